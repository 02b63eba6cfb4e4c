// Package jobs runs copy and move batches between locations on a single
// background worker.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"docbridge/internal/location"
	"docbridge/internal/logging"
)

// Transferer is the part of the bridge jobs need.
type Transferer interface {
	Copy(ctx context.Context, src, dst location.Location) (int64, error)
	Delete(ctx context.Context, loc location.Location) (bool, error)
}

// Manager coordinates queueing and background processing (single worker).
type Manager struct {
	bridge Transferer
	logger *zap.Logger

	mu          sync.Mutex
	cond        *sync.Cond
	queue       []*Job
	closed      bool
	nextID      int64
	subscribers []func()
	current     *Job
	history     []*Job
	historyMax  int
	stopped     chan struct{}
}

// NewManager constructs a Manager and starts its worker.
func NewManager(bridge Transferer) *Manager {
	m := &Manager{
		bridge:     bridge,
		logger:     logging.Named("jobs"),
		historyMax: 100,
		stopped:    make(chan struct{}),
	}
	m.cond = sync.NewCond(&m.mu)
	go m.worker()
	return m
}

// Close cancels pending and running jobs and stops the worker.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	pending := m.queue
	m.queue = nil
	if m.current != nil {
		m.current.Cancel()
	}
	m.mu.Unlock()
	m.cond.Broadcast()

	for _, j := range pending {
		m.finish(j, StatusCanceled, "")
	}
	<-m.stopped
}

// Subscribe registers a callback called on state changes.
func (m *Manager) Subscribe(cb func()) {
	m.mu.Lock()
	m.subscribers = append(m.subscribers, cb)
	m.mu.Unlock()
}

func (m *Manager) notify() {
	// call without holding the lock to avoid re-entrancy
	m.mu.Lock()
	subs := append([]func(){}, m.subscribers...)
	m.mu.Unlock()
	for _, cb := range subs {
		cb()
	}
}

// EnqueueCopy enqueues a copy job.
func (m *Manager) EnqueueCopy(transfers []Transfer) *Job {
	return m.enqueue(TypeCopy, transfers)
}

// EnqueueMove enqueues a move job: each source is deleted once its copy
// has been written.
func (m *Manager) EnqueueMove(transfers []Transfer) *Job {
	return m.enqueue(TypeMove, transfers)
}

func (m *Manager) enqueue(t Type, transfers []Transfer) *Job {
	j := &Job{
		ID:         atomic.AddInt64(&m.nextID, 1),
		Type:       t,
		Transfers:  append([]Transfer(nil), transfers...),
		Status:     StatusPending,
		EnqueuedAt: time.Now(),
		done:       make(chan struct{}),
	}
	j.ctx, j.cancel = context.WithCancel(context.Background())

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.finish(j, StatusCanceled, "manager closed")
		return j
	}
	m.queue = append(m.queue, j)
	m.mu.Unlock()
	m.logger.Debug("enqueue", zap.Int64("id", j.ID), zap.String("type", string(t)), zap.Int("transfers", len(transfers)))
	m.notify()
	m.cond.Signal()
	return j
}

// Cancel cancels a job by ID.
func (m *Manager) Cancel(id int64) bool {
	m.mu.Lock()
	for i, j := range m.queue {
		if j.ID == id {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			m.mu.Unlock()
			m.finish(j, StatusCanceled, "")
			return true
		}
	}
	if m.current != nil && m.current.ID == id {
		m.current.Cancel()
		m.mu.Unlock()
		return true
	}
	m.mu.Unlock()
	return false
}

// List returns snapshots of the running job, then pending jobs, then
// finished jobs newest first.
func (m *Manager) List() []JobSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]JobSnapshot, 0, len(m.queue)+1+len(m.history))
	if m.current != nil {
		out = append(out, m.current.Snapshot())
	}
	for _, j := range m.queue {
		out = append(out, j.Snapshot())
	}
	for i := len(m.history) - 1; i >= 0; i-- {
		out = append(out, m.history[i].Snapshot())
	}
	return out
}

func (m *Manager) worker() {
	defer close(m.stopped)
	for {
		m.mu.Lock()
		for len(m.queue) == 0 && !m.closed {
			m.cond.Wait()
		}
		if m.closed {
			m.mu.Unlock()
			return
		}
		j := m.queue[0]
		m.queue = m.queue[1:]
		m.current = j
		m.mu.Unlock()

		j.mu.Lock()
		j.Status = StatusRunning
		j.StartedAt = time.Now()
		j.mu.Unlock()
		m.logger.Debug("start job", zap.Int64("id", j.ID))
		m.notify()

		err := m.runJob(j)
		m.mu.Lock()
		m.current = nil
		m.mu.Unlock()
		switch {
		case err == nil:
			m.finish(j, StatusCompleted, "")
		case errors.Is(err, context.Canceled):
			m.finish(j, StatusCanceled, "")
		default:
			m.finish(j, StatusFailed, err.Error())
		}
	}
}

// finish records the final state, files the job in history and wakes
// waiters on Done.
func (m *Manager) finish(j *Job, status Status, message string) {
	j.mu.Lock()
	j.Status = status
	j.Error = message
	j.CompletedAt = time.Now()
	j.mu.Unlock()

	m.mu.Lock()
	m.history = append(m.history, j)
	if m.historyMax > 0 && len(m.history) > m.historyMax {
		m.history = append([]*Job{}, m.history[len(m.history)-m.historyMax:]...)
	}
	m.mu.Unlock()
	close(j.done)
	m.logger.Debug("job finished", zap.Int64("id", j.ID), zap.String("status", string(status)))
	m.notify()
}

// runJob processes the transfers of j in order, stopping at the first failure.
func (m *Manager) runJob(j *Job) error {
	for i, t := range j.Transfers {
		if err := j.ctx.Err(); err != nil {
			return err
		}
		j.mu.Lock()
		j.CurrentSource = t.Source
		j.mu.Unlock()
		m.notify()

		n, err := m.transfer(j, t)
		j.mu.Lock()
		j.BytesCopied += n
		if err != nil && !errors.Is(err, context.Canceled) {
			j.Failure = &JobFailure{Transfer: t, Error: err.Error()}
		}
		if err == nil {
			j.DoneFiles = i + 1
		}
		j.mu.Unlock()
		if err != nil {
			return err
		}
		m.notify()
	}
	return nil
}

func (m *Manager) transfer(j *Job, t Transfer) (int64, error) {
	src, err := location.Parse(t.Source)
	if err != nil {
		return 0, err
	}
	dst, err := location.Parse(t.Destination)
	if err != nil {
		return 0, err
	}
	n, err := m.bridge.Copy(j.ctx, src, dst)
	if err != nil {
		return n, err
	}
	if j.Type == TypeMove {
		ok, err := m.bridge.Delete(j.ctx, src)
		if err != nil {
			return n, err
		}
		if !ok {
			return n, fmt.Errorf("%s: source was not removed", t.Source)
		}
	}
	return n, nil
}
