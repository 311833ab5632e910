package metadata

import (
	"context"
	"log/slog"

	"github.com/marcopiovanello/songify/server/internal"
)

// Resolver picks the provider matching a request and turns the request URL
// into the ordered list of tracks to download.
type Resolver struct {
	providers map[internal.Provider]Provider
}

func NewResolver(providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[internal.Provider]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

func (r *Resolver) Provider(name internal.Provider) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Resolve connects the provider once and fetches the tracks of req. A single
// request always yields exactly one track, a playlist keeps the provider's
// order. Every failure is a *MetadataFetchError.
func (r *Resolver) Resolve(ctx context.Context, req internal.DownloadRequest) (Provider, []internal.Track, error) {
	name := req.Kind.Provider()

	p, ok := r.providers[name]
	if !ok {
		return nil, nil, &MetadataFetchError{Provider: name, Cause: ErrUnknownProvider}
	}

	if err := p.Connect(ctx); err != nil {
		return nil, nil, &MetadataFetchError{Provider: name, Cause: err}
	}

	slog.Info("retrieving metadata",
		slog.String("url", req.URL),
		slog.String("kind", string(req.Kind)),
	)

	if !req.Kind.IsPlaylist() {
		track, err := p.FetchSingle(ctx, req.URL)
		if err != nil {
			return nil, nil, &MetadataFetchError{Provider: name, Cause: err}
		}
		return p, []internal.Track{track}, nil
	}

	tracks, err := p.FetchPlaylist(ctx, req.URL)
	if err != nil {
		return nil, nil, &MetadataFetchError{Provider: name, Cause: err}
	}
	if len(tracks) == 0 {
		return nil, nil, &MetadataFetchError{Provider: name, Cause: ErrEmptyResponse}
	}

	slog.Info("playlist detected", slog.String("url", req.URL), slog.Int("count", len(tracks)))

	return p, tracks, nil
}
