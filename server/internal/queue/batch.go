package queue

import (
	"sync/atomic"

	"github.com/marcopiovanello/songify/server/internal"
	"github.com/marcopiovanello/songify/server/internal/downloaders"
)

// BatchContext is the state shared by the workers of one batch. Counters are
// only touched atomically, the job list never changes after creation.
type BatchContext struct {
	Id       string
	Playlist bool
	Total    int
	Limit    int

	jobs []*downloaders.Job

	completed atomic.Int64
	discarded atomic.Int64
	cancelled atomic.Bool
}

// NewBatchContext creates the context of a batch over tracks. The
// concurrency limit is at least 1.
func NewBatchContext(id string, tracks []internal.Track, limit int, playlist bool) *BatchContext {
	jobs := make([]*downloaders.Job, len(tracks))
	for i, t := range tracks {
		jobs[i] = downloaders.NewJob(t)
	}

	return &BatchContext{
		Id:       id,
		Playlist: playlist,
		Total:    len(tracks),
		Limit:    max(limit, 1),
		jobs:     jobs,
	}
}

// Cancel stops the dispatch of pending jobs. Running jobs are not affected.
func (b *BatchContext) Cancel() { b.cancelled.Store(true) }

func (b *BatchContext) Cancelled() bool { return b.cancelled.Load() }

func (b *BatchContext) Completed() int { return int(b.completed.Load()) }

func (b *BatchContext) Discarded() int { return int(b.discarded.Load()) }

func (b *BatchContext) Jobs() []internal.JobSnapshot {
	snaps := make([]internal.JobSnapshot, len(b.jobs))
	for i, j := range b.jobs {
		snaps[i] = j.Status()
	}
	return snaps
}

func (b *BatchContext) complete() int { return int(b.completed.Add(1)) }

func (b *BatchContext) discard() { b.discarded.Add(1) }
