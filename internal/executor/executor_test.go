package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, New(0).Capacity())
	assert.Equal(t, 2, New(2).Capacity())
}

func TestDo_NeverExceedsCapacity(t *testing.T) {
	e := New(2)

	var current, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := e.Do(context.Background(), func(ctx context.Context) error {
				n := current.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				current.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int32(2), peak.Load())
	assert.Equal(t, 0, e.InFlight())
}

func TestDo_ReleasesOnError(t *testing.T) {
	e := New(1)
	boom := errors.New("boom")

	err := e.Do(context.Background(), func(ctx context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, e.InFlight())

	// A leaked permit would block this call forever.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, e.Do(ctx, func(ctx context.Context) error { return nil }))
}

func TestDo_ReleasesOnPanic(t *testing.T) {
	e := New(1)

	func() {
		defer func() { _ = recover() }()
		_ = e.Do(context.Background(), func(ctx context.Context) error { panic("row exploded") })
	}()

	assert.Equal(t, 0, e.InFlight())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, e.Acquire(ctx))
	e.Release()
}

func TestAcquire_ContextCancelled(t *testing.T) {
	e := New(1)
	require.NoError(t, e.Acquire(context.Background()))
	defer e.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := e.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, e.InFlight())
}
