package internal

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Provider string

const (
	ProviderYouTube    Provider = "youtube"
	ProviderSoundCloud Provider = "soundcloud"
)

// Kind of a download request, derived from the submitted URL.
type Kind string

const (
	KindSingleYouTube      Kind = "single_youtube"
	KindPlaylistYouTube    Kind = "playlist_youtube"
	KindSingleSoundCloud   Kind = "single_soundcloud"
	KindPlaylistSoundCloud Kind = "playlist_soundcloud"
)

func (k Kind) Provider() Provider {
	switch k {
	case KindSingleYouTube, KindPlaylistYouTube:
		return ProviderYouTube
	case KindSingleSoundCloud, KindPlaylistSoundCloud:
		return ProviderSoundCloud
	}
	return ""
}

func (k Kind) IsPlaylist() bool {
	return k == KindPlaylistYouTube || k == KindPlaylistSoundCloud
}

// Track is one downloadable audio item as resolved from a provider.
// It is never modified after resolution.
type Track struct {
	ID           string   `json:"id"`
	Provider     Provider `json:"provider"`
	Title        string   `json:"title"`
	SourceURL    string   `json:"source_url"`
	ThumbnailURL string   `json:"thumbnail_url"`
	// Duration in seconds, nil when the provider does not report it.
	Duration *float64 `json:"duration,omitempty"`
}

// DurationSeconds returns the track duration and whether it is known.
func (t Track) DurationSeconds() (float64, bool) {
	if t.Duration == nil || *t.Duration <= 0 {
		return 0, false
	}
	return *t.Duration, true
}

type DownloadRequest struct {
	Id   string `json:"id"`
	URL  string `json:"url"`
	Kind Kind   `json:"kind"`
}

// NewDownloadRequest classifies url and returns a request ready to be
// consumed by a batch. It fails with ErrInvalidURL.
func NewDownloadRequest(url string) (DownloadRequest, error) {
	url = strings.TrimSpace(url)

	kind, err := Classify(url)
	if err != nil {
		return DownloadRequest{}, err
	}

	return DownloadRequest{
		Id:   uuid.NewString(),
		URL:  url,
		Kind: kind,
	}, nil
}

type JobState string

const (
	JobPending          JobState = "pending"
	JobRunning          JobState = "running"
	JobCompleted        JobState = "completed"
	JobFailed           JobState = "failed"
	JobSkippedCancelled JobState = "skipped_cancelled"
)

func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobSkippedCancelled
}

type JobSnapshot struct {
	Track  Track    `json:"track"`
	State  JobState `json:"state"`
	Path   string   `json:"path,omitempty"`
	Reason string   `json:"reason,omitempty"`
}

type BatchStatus string

const (
	BatchRunning   BatchStatus = "running"
	BatchCompleted BatchStatus = "completed"
	BatchCancelled BatchStatus = "cancelled"
	BatchFailed    BatchStatus = "failed"
)

// BatchSnapshot is the persisted view of a batch, stored when it starts and
// again when it terminates.
type BatchSnapshot struct {
	Id         string        `json:"id"`
	URL        string        `json:"url"`
	Kind       Kind          `json:"kind"`
	Status     BatchStatus   `json:"status"`
	Total      int           `json:"total"`
	Completed  int           `json:"completed"`
	Discarded  int           `json:"discarded"`
	Reason     string        `json:"reason,omitempty"`
	Jobs       []JobSnapshot `json:"jobs"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}
