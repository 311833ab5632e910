package archiver

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/marcopiovanello/songify/server/archive"
	"github.com/marcopiovanello/songify/server/internal/downloaders"
)

type Message = archive.Entry

var ErrClosed = errors.New("archiver closed")

// Archiver moves the archive writes off the download workers: Archive only
// queues the entry, a single goroutine stores it.
type Archiver struct {
	repo *archive.Repository
	ch   chan *Message

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func New(repo *archive.Repository, buffer int) *Archiver {
	a := &Archiver{
		repo: repo,
		ch:   make(chan *Message, buffer),
		done: make(chan struct{}),
	}

	go a.consume()
	return a
}

func (a *Archiver) Archive(ctx context.Context, batchId string, r downloaders.Result) error {
	m := &Message{
		BatchId:   batchId,
		Provider:  string(r.Track.Provider),
		TrackId:   r.Track.ID,
		Title:     r.Track.Title,
		Source:    r.Track.SourceURL,
		Thumbnail: r.Track.ThumbnailURL,
		Path:      r.Path,
		Size:      r.Size,
		Outcome:   string(r.Outcome),
		Reason:    r.Reason,
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return ErrClosed
	}

	select {
	case a.ch <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting entries and waits for the queued ones to be stored.
func (a *Archiver) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.ch)
	}
	a.mu.Unlock()

	<-a.done
}

func (a *Archiver) consume() {
	defer close(a.done)

	for m := range a.ch {
		slog.Info(
			"archiving download",
			slog.String("title", m.Title),
			slog.String("source", m.Source),
			slog.String("outcome", m.Outcome),
		)
		if err := a.repo.Archive(context.Background(), m); err != nil {
			slog.Error("failed to archive download", slog.String("title", m.Title), slog.Any("err", err))
		}
	}
}
