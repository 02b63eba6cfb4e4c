package jobs

import (
	"context"
	"sync"
	"time"
)

// Type represents job type.
type Type string

const (
	TypeCopy Type = "copy"
	TypeMove Type = "move"
)

// Status represents job status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Transfer pairs a source document with the location it is written to.
type Transfer struct {
	Source      string
	Destination string
}

// Job holds a batch of transfers processed in order.
type Job struct {
	// immutable fields
	ID        int64
	Type      Type
	Transfers []Transfer

	// state
	mu            sync.RWMutex
	Status        Status
	DoneFiles     int
	BytesCopied   int64
	CurrentSource string
	Error         string
	Failure       *JobFailure
	EnqueuedAt    time.Time
	StartedAt     time.Time
	CompletedAt   time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Snapshot returns a copy of the job's state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	s := JobSnapshot{
		ID:            j.ID,
		Type:          j.Type,
		Status:        j.Status,
		Transfers:     append([]Transfer(nil), j.Transfers...),
		TotalFiles:    len(j.Transfers),
		DoneFiles:     j.DoneFiles,
		BytesCopied:   j.BytesCopied,
		CurrentSource: j.CurrentSource,
		Error:         j.Error,
		EnqueuedAt:    j.EnqueuedAt,
		StartedAt:     j.StartedAt,
		CompletedAt:   j.CompletedAt,
	}
	if j.Failure != nil {
		f := *j.Failure
		s.Failure = &f
	}
	return s
}

// Done is closed once the job has finished, failed or been canceled.
func (j *Job) Done() <-chan struct{} { return j.done }

// Cancel stops the job. A running transfer stops at its next chunk.
func (j *Job) Cancel() { j.cancel() }

// JobSnapshot is a read-only view of a job.
type JobSnapshot struct {
	ID            int64
	Type          Type
	Status        Status
	Transfers     []Transfer
	TotalFiles    int
	DoneFiles     int
	BytesCopied   int64
	CurrentSource string
	Error         string
	Failure       *JobFailure
	EnqueuedAt    time.Time
	StartedAt     time.Time
	CompletedAt   time.Time
}

// JobFailure records the transfer that stopped a job.
type JobFailure struct {
	Transfer Transfer
	Error    string
}
