package internal

type EventType string

const (
	EventJobStarted     EventType = "job_started"
	EventJobProgress    EventType = "job_progress"
	EventBatchProgress  EventType = "batch_progress"
	EventJobFailed      EventType = "job_failed"
	EventBatchComplete  EventType = "batch_complete"
	EventBatchCancelled EventType = "batch_cancelled"
	EventBatchFailed    EventType = "batch_failed"
)

// Terminal reports whether no other event follows e in its batch.
// A job_failed event only ends a single-track batch, callers decide that
// from the request kind.
func (e EventType) Terminal() bool {
	return e == EventBatchComplete || e == EventBatchCancelled || e == EventBatchFailed
}

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

// ProgressEvent is the tagged union pushed to the caller of a batch. Only the
// fields relevant to Type are set.
type ProgressEvent struct {
	Type    EventType `json:"type"`
	BatchId string    `json:"batch_id"`

	// job_started, batch_progress
	Track *Track `json:"track,omitempty"`
	// job_progress, batch_progress
	Percent *float64 `json:"percent,omitempty"`
	// batch_progress
	Completed int     `json:"completed,omitempty"`
	Total     int     `json:"total,omitempty"`
	Outcome   Outcome `json:"outcome,omitempty"`
	// job_failed, batch_failed, failed batch_progress
	Reason string `json:"reason,omitempty"`
}
