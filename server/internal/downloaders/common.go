package downloaders

import (
	"sync"

	"github.com/marcopiovanello/songify/server/internal"
)

// Job is one track's download and transcode attempt.
//
//	pending -> running -> completed | failed
//	pending -> skipped_cancelled
//
// Terminal states have no way out.
type Job struct {
	Track internal.Track

	mutex  sync.Mutex
	state  internal.JobState
	path   string
	reason string
}

func NewJob(t internal.Track) *Job {
	return &Job{Track: t, state: internal.JobPending}
}

// Start moves a pending job to running and reports whether it did.
func (j *Job) Start() bool {
	return j.transition(internal.JobPending, internal.JobRunning)
}

// Skip discards a job that was never dispatched.
func (j *Job) Skip() bool {
	return j.transition(internal.JobPending, internal.JobSkippedCancelled)
}

// Finish records the outcome of a running job.
func (j *Job) Finish(r Result) bool {
	to := internal.JobCompleted
	if r.Outcome == internal.OutcomeFailed {
		to = internal.JobFailed
	}

	j.mutex.Lock()
	defer j.mutex.Unlock()

	if j.state != internal.JobRunning {
		return false
	}
	j.state = to
	j.path = r.Path
	j.reason = r.Reason
	return true
}

func (j *Job) State() internal.JobState {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	return j.state
}

func (j *Job) Status() internal.JobSnapshot {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	return internal.JobSnapshot{
		Track:  j.Track,
		State:  j.state,
		Path:   j.path,
		Reason: j.reason,
	}
}

func (j *Job) transition(from, to internal.JobState) bool {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	if j.state != from {
		return false
	}
	j.state = to
	return true
}
