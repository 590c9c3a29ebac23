package circulator

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Executor is the bounded worker pool behind the push stage's per-runner
// executor (spec.md §5.3): a fixed number of concurrent workers plus a
// bounded backlog of queued-but-not-yet-running tasks. Submit never blocks
// the push worker loop beyond acquiring a backlog slot: once the backlog
// is full it fails fast with ErrExecutorSaturated so the caller can treat
// the batch as an ExecutorRejection (spec.md §7).
type Executor struct {
	workers *semaphore.Weighted
	backlog int64
	pending atomic.Int64
}

// NewExecutor builds an executor with the given worker concurrency and
// queue (backlog) capacity.
func NewExecutor(workers, queueCapacity int) *Executor {
	if workers <= 0 {
		workers = 1
	}
	if queueCapacity < 0 {
		queueCapacity = 0
	}
	return &Executor{
		workers: semaphore.NewWeighted(int64(workers)),
		backlog: int64(workers) + int64(queueCapacity),
	}
}

// Submit runs fn on the pool. It fails immediately with
// ErrExecutorSaturated if the backlog is already full; otherwise it
// returns immediately and fn runs once a worker slot is free.
func (e *Executor) Submit(ctx context.Context, fn func()) error {
	if e.pending.Add(1) > e.backlog {
		e.pending.Add(-1)
		return ErrExecutorSaturated
	}

	go func() {
		defer e.pending.Add(-1)
		if err := e.workers.Acquire(ctx, 1); err != nil {
			return
		}
		defer e.workers.Release(1)
		fn()
	}()

	return nil
}

// RemainingCapacity reports free backlog slots, used by the push worker to
// feed getExecutorServiceWorkerRemainingCapacity into the estimator.
func (e *Executor) RemainingCapacity() int {
	remaining := e.backlog - e.pending.Load()
	if remaining < 0 {
		return 0
	}
	return int(remaining)
}

// Capacity reports the executor's total backlog capacity.
func (e *Executor) Capacity() int {
	return int(e.backlog)
}
