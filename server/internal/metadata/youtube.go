package metadata

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/marcopiovanello/songify/server/internal"
)

const youtubeWatchURL = "https://www.youtube.com/watch?v="

var ErrNoAudioFormat = errors.New("no format with an audio track")

// YouTube resolves tracks and streams through the innertube client of
// kkdai/youtube. It needs no session.
type YouTube struct {
	client *youtube.Client
}

func NewYouTube(httpClient *http.Client) *YouTube {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &YouTube{
		client: &youtube.Client{HTTPClient: httpClient},
	}
}

func (y *YouTube) Name() internal.Provider { return internal.ProviderYouTube }

func (y *YouTube) Connect(ctx context.Context) error { return nil }

func (y *YouTube) FetchSingle(ctx context.Context, url string) (internal.Track, error) {
	video, err := y.client.GetVideoContext(ctx, url)
	if err != nil {
		return internal.Track{}, err
	}
	return trackFromVideo(video), nil
}

func (y *YouTube) FetchPlaylist(ctx context.Context, url string) ([]internal.Track, error) {
	playlist, err := y.client.GetPlaylistContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return tracksFromPlaylist(playlist), nil
}

func (y *YouTube) OpenStream(ctx context.Context, t internal.Track) (*Stream, error) {
	video, err := y.client.GetVideoContext(ctx, t.SourceURL)
	if err != nil {
		return nil, err
	}

	format, err := audioFormat(video.Formats)
	if err != nil {
		return nil, err
	}

	body, size, err := y.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, err
	}

	return &Stream{Body: body, Size: size}, nil
}

func trackFromVideo(v *youtube.Video) internal.Track {
	return internal.Track{
		ID:           v.ID,
		Provider:     internal.ProviderYouTube,
		Title:        v.Title,
		SourceURL:    youtubeWatchURL + v.ID,
		ThumbnailURL: largestThumbnail(v.Thumbnails),
		Duration:     seconds(v.Duration),
	}
}

func tracksFromPlaylist(p *youtube.Playlist) []internal.Track {
	tracks := make([]internal.Track, 0, len(p.Videos))

	for _, entry := range p.Videos {
		if entry == nil || entry.ID == "" {
			continue
		}
		tracks = append(tracks, internal.Track{
			ID:           entry.ID,
			Provider:     internal.ProviderYouTube,
			Title:        entry.Title,
			SourceURL:    youtubeWatchURL + entry.ID,
			ThumbnailURL: largestThumbnail(entry.Thumbnails),
			Duration:     seconds(entry.Duration),
		})
	}

	return tracks
}

// audioFormat prefers audio-only formats, then the highest bitrate.
func audioFormat(formats youtube.FormatList) (*youtube.Format, error) {
	var (
		best      *youtube.Format
		bestAudio bool
	)

	for i := range formats {
		f := &formats[i]
		if f.AudioChannels <= 0 {
			continue
		}

		audioOnly := strings.HasPrefix(f.MimeType, "audio/")

		switch {
		case best == nil,
			audioOnly && !bestAudio,
			audioOnly == bestAudio && f.Bitrate > best.Bitrate:
			best = f
			bestAudio = audioOnly
		}
	}

	if best == nil {
		return nil, ErrNoAudioFormat
	}
	return best, nil
}

// thumbnails are listed from smallest to largest
func largestThumbnail(thumbnails youtube.Thumbnails) string {
	if len(thumbnails) == 0 {
		return ""
	}
	return thumbnails[len(thumbnails)-1].URL
}

func seconds(d time.Duration) *float64 {
	if d <= 0 {
		return nil
	}
	s := d.Seconds()
	return &s
}
