package queue

import (
	"context"
	"log/slog"
	"sync"

	"github.com/marcopiovanello/songify/server/internal"
	"github.com/marcopiovanello/songify/server/internal/downloaders"
	"golang.org/x/sync/errgroup"
)

type JobRunner interface {
	Run(ctx context.Context, t internal.Track, rep downloaders.Reporter) downloaders.Result
}

// Progress is the sink of the scheduler's signals, implemented by
// progress.Aggregator.
type Progress interface {
	downloaders.Reporter

	JobStarted(t internal.Track)
	JobDone()
	JobFailed(reason string)
	Completed(completed, total int, t internal.Track, outcome internal.Outcome, reason string)
	Complete()
	Cancelled()
}

// Scheduler runs the jobs of a batch on a pool of Limit workers.
type Scheduler struct {
	Runner JobRunner
	// OnResult, if set, is called by the worker once a job is terminal.
	OnResult func(batchId string, r downloaders.Result)
	// OnFinish, if set, is called once every worker returned and right
	// before the terminal event is emitted. reason is set for a failed
	// single-track batch.
	OnFinish func(status internal.BatchStatus, reason string)
}

// Run blocks until every job of batch is terminal or discarded and the
// terminal event was emitted. The returned status is the one of the batch.
//
// Cancellation is observed only before dispatching a job: a cancelled batch
// discards its pending jobs while the running ones finish on their own.
func (s *Scheduler) Run(ctx context.Context, batch *BatchContext, p Progress) internal.BatchStatus {
	pending := make(chan *downloaders.Job, len(batch.jobs))
	for _, j := range batch.jobs {
		pending <- j
	}
	close(pending)

	slog.Info("batch started",
		slog.String("id", batch.Id),
		slog.Int("total", batch.Total),
		slog.Int("workers", batch.Limit),
	)

	var (
		g errgroup.Group
		// completed increments and their batch_progress events go out together
		reportMu sync.Mutex
		failed   bool
		reason   string
	)

	for workerId := range batch.Limit {
		g.Go(func() error {
			for job := range pending {
				if batch.Cancelled() || ctx.Err() != nil {
					job.Skip()
					batch.discard()
					continue
				}

				job.Start()
				p.JobStarted(job.Track)

				slog.Info("download worker started",
					slog.Int("worker", workerId),
					slog.String("batch", batch.Id),
					slog.String("title", job.Track.Title),
				)

				var rep downloaders.Reporter
				if !batch.Playlist {
					rep = p
				}

				res := s.Runner.Run(ctx, job.Track, rep)
				job.Finish(res)

				if res.Failed() {
					slog.Warn("job failed",
						slog.String("batch", batch.Id),
						slog.String("title", job.Track.Title),
						slog.String("reason", res.Reason),
					)
				}

				if s.OnResult != nil {
					s.OnResult(batch.Id, res)
				}

				reportMu.Lock()
				n := batch.complete()
				if batch.Playlist {
					p.Completed(n, batch.Total, res.Track, res.Outcome, res.Reason)
				} else if res.Failed() {
					// a single batch has one job, job_failed is its terminal event
					failed = true
					reason = res.Reason
				} else {
					p.JobDone()
				}
				reportMu.Unlock()
			}
			return nil
		})
	}

	g.Wait()

	status := internal.BatchCompleted
	switch {
	case batch.Discarded() > 0:
		status = internal.BatchCancelled
	case failed:
		status = internal.BatchFailed
	}

	slog.Info("batch finished",
		slog.String("id", batch.Id),
		slog.String("status", string(status)),
		slog.Int("completed", batch.Completed()),
		slog.Int("discarded", batch.Discarded()),
	)

	if s.OnFinish != nil {
		s.OnFinish(status, reason)
	}

	switch status {
	case internal.BatchCancelled:
		p.Cancelled()
	case internal.BatchFailed:
		p.JobFailed(reason)
	default:
		p.Complete()
	}

	return status
}
