// Package executor caps the number of row tasks in flight. Waiters are
// admitted in FIFO order.
package executor

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultCapacity is the pool size shared by both passes of a run.
const DefaultCapacity = 6

type Executor struct {
	sem      *semaphore.Weighted
	capacity int64
	inFlight atomic.Int64
}

// New returns an Executor admitting at most capacity concurrent units.
// A non-positive capacity selects DefaultCapacity.
func New(capacity int) *Executor {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Executor{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}
}

// Acquire blocks until a permit is free or ctx is done. Every successful
// Acquire must be paired with exactly one Release; prefer Do.
func (e *Executor) Acquire(ctx context.Context) error {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	e.inFlight.Add(1)
	return nil
}

// Release returns a permit and admits the next waiter.
func (e *Executor) Release() {
	e.inFlight.Add(-1)
	e.sem.Release(1)
}

// Do runs fn while holding a permit. The permit is released on every exit
// path, including a panic inside fn.
func (e *Executor) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := e.Acquire(ctx); err != nil {
		return err
	}
	defer e.Release()
	return fn(ctx)
}

// Capacity returns the configured pool size.
func (e *Executor) Capacity() int { return int(e.capacity) }

// InFlight returns the number of permits currently held.
func (e *Executor) InFlight() int { return int(e.inFlight.Load()) }
