package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/marcopiovanello/songify/server/internal"
)

var (
	ErrEmptyResponse   = errors.New("provider returned no tracks")
	ErrUnknownProvider = errors.New("no provider registered")
	ErrNotConnected    = errors.New("provider session not established")
)

// Stream is a remote audio/video byte stream. Size is the total length in
// bytes, or <= 0 when the provider does not expose it.
type Stream struct {
	Body io.ReadCloser
	Size int64
}

// Provider is a metadata and media source.
//
// Connect establishes whatever session the provider needs; it is called once
// per batch before any fetch, and the session is then shared read-only by all
// the jobs of the batch.
type Provider interface {
	Name() internal.Provider
	Connect(ctx context.Context) error
	FetchSingle(ctx context.Context, url string) (internal.Track, error)
	FetchPlaylist(ctx context.Context, url string) ([]internal.Track, error)
	OpenStream(ctx context.Context, t internal.Track) (*Stream, error)
}

type MetadataFetchError struct {
	Provider internal.Provider
	Cause    error
}

func (e *MetadataFetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s metadata: %v", e.Provider, e.Cause)
}

func (e *MetadataFetchError) Unwrap() error { return e.Cause }
