package progress

import (
	"context"
	"testing"

	"github.com/marcopiovanello/songify/server/internal"
)

func drain(a *Aggregator) []internal.ProgressEvent {
	var out []internal.ProgressEvent
	for e := range a.Events() {
		out = append(out, e)
	}
	return out
}

func percents(events []internal.ProgressEvent) []float64 {
	var out []float64
	for _, e := range events {
		if e.Type == internal.EventJobProgress {
			out = append(out, *e.Percent)
		}
	}
	return out
}

func TestSingleByteProgress(t *testing.T) {
	a := New(context.Background(), "b1", false, 512)

	a.JobStarted(internal.Track{Title: "song"})
	for _, n := range []int64{0, 10, 10, 5, 333, 999, 1000, 1200} {
		a.Bytes(n, 1000)
	}
	a.JobDone()
	a.Complete()

	events := drain(a)

	if events[0].Type != internal.EventJobStarted || events[0].Track.Title != "song" {
		t.Fatalf("expected job_started first, got %+v", events[0])
	}
	if last := events[len(events)-1]; last.Type != internal.EventBatchComplete {
		t.Fatalf("expected batch_complete last, got %s", last.Type)
	}

	got := percents(events)
	want := []float64{0, 1, 33, 99, 100}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	for _, e := range events {
		if e.BatchId != "b1" {
			t.Errorf("event %s without batch id", e.Type)
		}
	}
}

func TestSingleDurationProgressClamped(t *testing.T) {
	a := New(context.Background(), "b1", false, 512)

	for range 30 {
		a.Elapsed(5, 100)
	}
	a.JobDone()
	a.Complete()

	got := percents(drain(a))
	hundreds := 0
	for i, p := range got {
		if p < 0 || p > 100 {
			t.Fatalf("percent out of range: %v", p)
		}
		if i > 0 && p < got[i-1] {
			t.Fatalf("percent decreased: %v", got)
		}
		if p == 100 {
			hundreds++
		}
	}
	if hundreds != 1 {
		t.Errorf("expected exactly one 100, got %d in %v", hundreds, got)
	}
}

func TestUnknownSizeOnlyReportsCompletion(t *testing.T) {
	a := New(context.Background(), "b1", false, 16)

	a.Bytes(100, 0)
	a.Elapsed(10, 0)
	a.JobDone()
	a.Complete()

	got := percents(drain(a))
	if len(got) != 1 || got[0] != 100 {
		t.Errorf("expected [100], got %v", got)
	}
}

func TestPlaylistIgnoresItemProgress(t *testing.T) {
	a := New(context.Background(), "b1", true, 64)

	a.Bytes(50, 100)
	a.Elapsed(1, 2)
	a.JobDone()
	a.Completed(1, 4, internal.Track{Title: "a"}, internal.OutcomeCompleted, "")
	a.Completed(2, 4, internal.Track{Title: "b"}, internal.OutcomeFailed, "boom")
	a.Complete()

	events := drain(a)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %+v", events)
	}
	if *events[0].Percent != 25 || events[0].Outcome != internal.OutcomeCompleted {
		t.Errorf("unexpected first progress %+v", events[0])
	}
	if *events[1].Percent != 50 || events[1].Outcome != internal.OutcomeFailed || events[1].Reason != "boom" {
		t.Errorf("unexpected second progress %+v", events[1])
	}
}

func TestSingleTerminalEvent(t *testing.T) {
	a := New(context.Background(), "b1", true, 16)

	a.Cancelled()
	a.Complete()
	a.Abort("late")
	a.JobStarted(internal.Track{})

	if !a.Closed() {
		t.Error("expected aggregator to be closed")
	}

	events := drain(a)
	if len(events) != 1 || events[0].Type != internal.EventBatchCancelled {
		t.Errorf("expected a single batch_cancelled, got %+v", events)
	}
}

func TestJobFailedEndsSingleBatch(t *testing.T) {
	a := New(context.Background(), "b1", false, 16)

	a.JobStarted(internal.Track{})
	a.JobFailed("stream error")
	a.Complete()

	events := drain(a)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %+v", events)
	}
	if events[1].Type != internal.EventJobFailed || events[1].Reason != "stream error" {
		t.Errorf("unexpected last event %+v", events[1])
	}
}

func TestClamp(t *testing.T) {
	tests := map[float64]float64{-5: 0, 0: 0, 42.5: 42.5, 100: 100, 250: 100}
	for in, want := range tests {
		if got := clamp(in); got != want {
			t.Errorf("clamp(%v) = %v, want %v", in, got, want)
		}
	}
}
