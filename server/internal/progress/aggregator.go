package progress

import (
	"context"
	"math"
	"sync"

	"github.com/marcopiovanello/songify/server/internal"
)

// Aggregator turns the raw signals of a batch (bytes read, transcoded
// seconds, finished jobs) into ProgressEvents on a single channel.
//
// Percentages are clamped to [0,100]. In single mode job_progress only moves
// forward in whole-percent steps and reaches 100 once. At most one terminal
// event is emitted, after which the channel is closed and further signals are
// dropped.
type Aggregator struct {
	ctx      context.Context
	batchId  string
	playlist bool
	events   chan internal.ProgressEvent

	mu      sync.Mutex
	percent float64
	elapsed float64
	closed  bool
}

func New(ctx context.Context, batchId string, playlist bool, buffer int) *Aggregator {
	return &Aggregator{
		ctx:      ctx,
		batchId:  batchId,
		playlist: playlist,
		events:   make(chan internal.ProgressEvent, buffer),
		percent:  -1,
	}
}

func (a *Aggregator) Events() <-chan internal.ProgressEvent { return a.events }

func (a *Aggregator) JobStarted(t internal.Track) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.send(internal.ProgressEvent{Type: internal.EventJobStarted, Track: &t})
}

// Bytes reports the bytes received so far out of total. Ignored in playlist
// mode or when total is unknown.
func (a *Aggregator) Bytes(received, total int64) {
	if a.playlist || total <= 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.advance(float64(received) / float64(total) * 100)
}

// Elapsed accumulates chunk seconds of transcoded audio against the track
// duration. Ignored in playlist mode or when the duration is unknown.
func (a *Aggregator) Elapsed(chunk, total float64) {
	if a.playlist || total <= 0 || chunk <= 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.elapsed += chunk
	a.advance(a.elapsed / total * 100)
}

// JobDone marks the single job as finished, emitting 100 if the byte or
// duration signal did not get there.
func (a *Aggregator) JobDone() {
	if a.playlist {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.advance(100)
}

// JobFailed ends a single-track batch.
func (a *Aggregator) JobFailed(reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.send(internal.ProgressEvent{Type: internal.EventJobFailed, Reason: reason})
	a.close()
}

// Completed reports that a playlist job reached a terminal state, completed
// being the batch counter after its increment.
func (a *Aggregator) Completed(completed, total int, t internal.Track, outcome internal.Outcome, reason string) {
	if !a.playlist {
		return
	}

	percent := 100.0
	if total > 0 {
		percent = clamp(float64(completed) / float64(total) * 100)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.send(internal.ProgressEvent{
		Type:      internal.EventBatchProgress,
		Track:     &t,
		Percent:   &percent,
		Completed: completed,
		Total:     total,
		Outcome:   outcome,
		Reason:    reason,
	})
}

func (a *Aggregator) Complete() { a.terminate(internal.ProgressEvent{Type: internal.EventBatchComplete}) }

func (a *Aggregator) Cancelled() { a.terminate(internal.ProgressEvent{Type: internal.EventBatchCancelled}) }

// Abort ends a batch that never dispatched any job.
func (a *Aggregator) Abort(reason string) {
	a.terminate(internal.ProgressEvent{Type: internal.EventBatchFailed, Reason: reason})
}

// Closed reports whether the terminal event was already emitted.
func (a *Aggregator) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

func (a *Aggregator) terminate(e internal.ProgressEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.send(e)
	a.close()
}

// caller holds mu
func (a *Aggregator) advance(p float64) {
	p = math.Floor(clamp(p))
	if p <= a.percent {
		return
	}
	a.percent = p
	a.send(internal.ProgressEvent{Type: internal.EventJobProgress, Percent: &p})
}

// caller holds mu
func (a *Aggregator) send(e internal.ProgressEvent) {
	if a.closed {
		return
	}
	e.BatchId = a.batchId

	select {
	case a.events <- e:
	case <-a.ctx.Done():
	}
}

// caller holds mu
func (a *Aggregator) close() {
	if a.closed {
		return
	}
	a.closed = true
	close(a.events)
}

func clamp(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
