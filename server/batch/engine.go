package batch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/marcopiovanello/songify/server/internal"
	"github.com/marcopiovanello/songify/server/internal/downloaders"
	"github.com/marcopiovanello/songify/server/internal/metadata"
	"github.com/marcopiovanello/songify/server/internal/progress"
	"github.com/marcopiovanello/songify/server/internal/queue"
)

var (
	ErrBatchInProgress = errors.New("a batch is already running")
	ErrEngineClosed    = errors.New("engine is shutting down")
)

// Settings are read once when a batch starts.
type Settings interface {
	DestinationDir() string
	ConcurrencyLimit() int
	BitrateKbps() int
}

// Archiver stores the outcome of every finished job.
type Archiver interface {
	Archive(ctx context.Context, batchId string, r downloaders.Result) error
}

// Recorder stores batch snapshots, once when the batch starts and once when
// it terminates.
type Recorder interface {
	Record(snap internal.BatchSnapshot) error
}

type Options struct {
	Archiver   Archiver
	Recorder   Recorder
	Transcoder downloaders.TranscoderFunc
	// Size of the event channel buffer of each batch.
	EventBuffer int
}

// Handle is what the caller gets back from StartBatch. Events is closed right
// after the terminal event, Done once the engine is ready for another batch.
type Handle struct {
	Id      string
	Request internal.DownloadRequest
	Events  <-chan internal.ProgressEvent
	Done    <-chan struct{}
}

// Engine runs at most one batch at a time.
type Engine struct {
	ctx      context.Context
	resolver *metadata.Resolver
	settings Settings
	opts     Options

	mu      sync.Mutex
	current *run
	closed  bool
	wg      sync.WaitGroup
}

type run struct {
	req       internal.DownloadRequest
	startedAt time.Time
	cancelled bool
	batch     *queue.BatchContext
}

// New creates an engine whose batches live as long as ctx.
func New(ctx context.Context, resolver *metadata.Resolver, settings Settings, opts Options) *Engine {
	if opts.Transcoder == nil {
		opts.Transcoder = downloaders.FFmpeg("")
	}
	return &Engine{
		ctx:      ctx,
		resolver: resolver,
		settings: settings,
		opts:     opts,
	}
}

// StartBatch classifies url and starts resolving and downloading it in the
// background. It fails synchronously with internal.ErrInvalidURL or
// ErrBatchInProgress, in which case nothing was started. The engine is ready
// for another batch by the time the terminal event is delivered.
func (e *Engine) StartBatch(url string) (*Handle, error) {
	req, err := internal.NewDownloadRequest(url)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEngineClosed
	}
	if e.current != nil {
		e.mu.Unlock()
		return nil, ErrBatchInProgress
	}
	r := &run{req: req, startedAt: time.Now()}
	e.current = r
	e.wg.Add(1)
	e.mu.Unlock()

	var (
		dir     = e.settings.DestinationDir()
		limit   = e.settings.ConcurrencyLimit()
		bitrate = e.settings.BitrateKbps()
	)

	agg := progress.New(e.ctx, req.Id, req.Kind.IsPlaylist(), e.opts.EventBuffer)
	done := make(chan struct{})

	slog.Info("requesting batch",
		slog.String("id", req.Id),
		slog.String("url", req.URL),
		slog.String("kind", string(req.Kind)),
		slog.String("destination", dir),
	)

	go func() {
		defer e.wg.Done()
		defer close(done)
		defer e.release(r)

		e.run(r, agg, dir, limit, bitrate)
	}()

	return &Handle{
		Id:      req.Id,
		Request: req,
		Events:  agg.Events(),
		Done:    done,
	}, nil
}

// CancelBatch stops the dispatch of the running batch's pending jobs. It is
// idempotent and a no-op when no batch is running.
func (e *Engine) CancelBatch() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return
	}

	if !e.current.cancelled {
		slog.Info("cancelling batch", slog.String("id", e.current.req.Id))
	}

	e.current.cancelled = true
	if e.current.batch != nil {
		e.current.batch.Cancel()
	}
}

// Shutdown refuses new batches and waits for the running one, if any, to
// terminate. Cancelling the engine context beforehand aborts its transfers.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.wg.Wait()
}

// Current returns a snapshot of the running batch, if any.
func (e *Engine) Current() (internal.BatchSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return internal.BatchSnapshot{}, false
	}
	return e.current.snapshot(internal.BatchRunning, ""), true
}

func (e *Engine) run(r *run, agg *progress.Aggregator, dir string, limit, bitrate int) {
	e.record(r, internal.BatchRunning, "")

	provider, tracks, err := e.resolver.Resolve(e.ctx, r.req)
	if err != nil {
		slog.Error("failed to resolve batch",
			slog.String("id", r.req.Id),
			slog.String("url", r.req.URL),
			slog.Any("err", err),
		)
		e.finish(r, internal.BatchFailed, err.Error())
		agg.Abort(err.Error())
		return
	}

	batch := queue.NewBatchContext(r.req.Id, tracks, limit, r.req.Kind.IsPlaylist())

	e.mu.Lock()
	r.batch = batch
	if r.cancelled {
		batch.Cancel()
	}
	e.mu.Unlock()

	scheduler := &queue.Scheduler{
		Runner: &downloaders.Runner{
			Opener:      provider,
			Paths:       downloaders.NewPaths(dir),
			BitrateKbps: bitrate,
			Transcoder:  e.opts.Transcoder,
		},
		OnResult: e.archive,
		OnFinish: func(status internal.BatchStatus, reason string) {
			e.finish(r, status, reason)
		},
	}

	scheduler.Run(e.ctx, batch, agg)
}

// finish frees the engine for the next batch and records the final snapshot.
// It runs before the terminal event goes out.
func (e *Engine) finish(r *run, status internal.BatchStatus, reason string) {
	e.release(r)
	e.record(r, status, reason)
}

func (e *Engine) release(r *run) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == r {
		e.current = nil
	}
}

func (e *Engine) archive(batchId string, res downloaders.Result) {
	if e.opts.Archiver == nil {
		return
	}
	if err := e.opts.Archiver.Archive(e.ctx, batchId, res); err != nil {
		slog.Warn("failed to archive job",
			slog.String("batch", batchId),
			slog.String("title", res.Track.Title),
			slog.Any("err", err),
		)
	}
}

func (e *Engine) record(r *run, status internal.BatchStatus, reason string) {
	if e.opts.Recorder == nil {
		return
	}

	e.mu.Lock()
	snap := r.snapshot(status, reason)
	e.mu.Unlock()

	if err := e.opts.Recorder.Record(snap); err != nil {
		slog.Warn("failed to record batch", slog.String("id", r.req.Id), slog.Any("err", err))
	}
}

// caller holds the engine mutex
func (r *run) snapshot(status internal.BatchStatus, reason string) internal.BatchSnapshot {
	snap := internal.BatchSnapshot{
		Id:        r.req.Id,
		URL:       r.req.URL,
		Kind:      r.req.Kind,
		Status:    status,
		Reason:    reason,
		Jobs:      []internal.JobSnapshot{},
		StartedAt: r.startedAt,
	}

	if r.batch != nil {
		snap.Total = r.batch.Total
		snap.Completed = r.batch.Completed()
		snap.Discarded = r.batch.Discarded()
		snap.Jobs = r.batch.Jobs()
	}

	if status != internal.BatchRunning {
		now := time.Now()
		snap.FinishedAt = &now
	}

	return snap
}
