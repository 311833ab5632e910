package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/marcopiovanello/songify/server/internal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	soundcloudAPIURL   = "https://api.soundcloud.com"
	soundcloudTokenURL = "https://secure.soundcloud.com/oauth/token"
)

var ErrNotStreamable = errors.New("track is not streamable")

type SoundCloudOptions struct {
	ClientId     string
	ClientSecret string
	// Overrides for the public endpoints, used by tests and proxies.
	APIURL   string
	TokenURL string
	// Requests per second against the API, unlimited when <= 0.
	RateLimit  float64
	HTTPClient *http.Client
}

// SoundCloud talks to the public SoundCloud API. Every call needs the OAuth
// session opened by Connect.
type SoundCloud struct {
	credentials clientcredentials.Config
	apiURL      string
	httpClient  *http.Client
	limiter     *rate.Limiter

	mu      sync.RWMutex
	session oauth2.TokenSource
}

func NewSoundCloud(opts SoundCloudOptions) *SoundCloud {
	if opts.APIURL == "" {
		opts.APIURL = soundcloudAPIURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = soundcloudTokenURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(1, int(opts.RateLimit)))
	}

	return &SoundCloud{
		credentials: clientcredentials.Config{
			ClientID:     opts.ClientId,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
		},
		apiURL:     strings.TrimRight(opts.APIURL, "/"),
		httpClient: opts.HTTPClient,
		limiter:    limiter,
	}
}

func (s *SoundCloud) Name() internal.Provider { return internal.ProviderSoundCloud }

// Connect opens the client-credentials session. An existing session is kept
// and only hits the token endpoint again once its token expired.
func (s *SoundCloud) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		// the token source outlives this call, it must not die with ctx
		tctx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, s.httpClient)
		s.session = s.credentials.TokenSource(tctx)
	}

	if _, err := s.session.Token(); err != nil {
		s.session = nil
		return fmt.Errorf("soundcloud authentication: %w", err)
	}

	slog.Info("soundcloud session established")
	return nil
}

type soundcloudTrack struct {
	ID           int64  `json:"id"`
	Kind         string `json:"kind"`
	Title        string `json:"title"`
	PermalinkURL string `json:"permalink_url"`
	ArtworkURL   string `json:"artwork_url"`
	Duration     int64  `json:"duration"` // milliseconds
	Streamable   *bool  `json:"streamable"`
}

type soundcloudResource struct {
	soundcloudTrack
	Tracks []soundcloudTrack `json:"tracks"`
}

type soundcloudStreams struct {
	HTTPMP3URL    string `json:"http_mp3_128_url"`
	PreviewMP3URL string `json:"preview_mp3_128_url"`
}

func (s *SoundCloud) FetchSingle(ctx context.Context, rawURL string) (internal.Track, error) {
	res, err := s.resolve(ctx, rawURL)
	if err != nil {
		return internal.Track{}, err
	}
	if res.Kind != "track" {
		return internal.Track{}, fmt.Errorf("expected a track, got %q", res.Kind)
	}
	return res.soundcloudTrack.toTrack(), nil
}

func (s *SoundCloud) FetchPlaylist(ctx context.Context, rawURL string) ([]internal.Track, error) {
	res, err := s.resolve(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if res.Kind != "playlist" {
		return nil, fmt.Errorf("expected a playlist, got %q", res.Kind)
	}

	tracks := make([]internal.Track, 0, len(res.Tracks))
	for _, t := range res.Tracks {
		if t.ID == 0 {
			continue
		}
		tracks = append(tracks, t.toTrack())
	}
	return tracks, nil
}

func (s *SoundCloud) OpenStream(ctx context.Context, t internal.Track) (*Stream, error) {
	body, err := s.doRequest(ctx, "/tracks/"+url.PathEscape(t.ID)+"/streams", nil)
	if err != nil {
		return nil, err
	}

	var streams soundcloudStreams
	if err := json.Unmarshal(body, &streams); err != nil {
		return nil, err
	}
	if streams.HTTPMP3URL == "" {
		return nil, ErrNotStreamable
	}

	resp, err := s.get(ctx, streams.HTTPMP3URL)
	if err != nil {
		return nil, err
	}

	return &Stream{Body: resp.Body, Size: resp.ContentLength}, nil
}

func (s *SoundCloud) resolve(ctx context.Context, rawURL string) (*soundcloudResource, error) {
	body, err := s.doRequest(ctx, "/resolve", url.Values{"url": {rawURL}})
	if err != nil {
		return nil, err
	}

	var res soundcloudResource
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *SoundCloud) doRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	reqURL := s.apiURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	resp, err := s.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// get performs an authenticated GET. The caller closes the body.
func (s *SoundCloud) get(ctx context.Context, reqURL string) (*http.Response, error) {
	s.mu.RLock()
	session := s.session
	s.mu.RUnlock()

	if session == nil {
		return nil, ErrNotConnected
	}

	token, err := session.Token()
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "OAuth "+token.AccessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("soundcloud: unexpected status %s", resp.Status)
	}

	return resp, nil
}

func (t soundcloudTrack) toTrack() internal.Track {
	var duration *float64
	if t.Duration > 0 {
		d := float64(t.Duration) / 1000
		duration = &d
	}

	return internal.Track{
		ID:           strconv.FormatInt(t.ID, 10),
		Provider:     internal.ProviderSoundCloud,
		Title:        t.Title,
		SourceURL:    t.PermalinkURL,
		ThumbnailURL: strings.Replace(t.ArtworkURL, "-large.", "-t500x500.", 1),
		Duration:     duration,
	}
}
