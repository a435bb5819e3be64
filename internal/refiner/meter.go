package refiner

import (
	"context"
	"slices"
	"sync"
)

// Call is one model request made while refining a draft.
type Call struct {
	Model  string
	Input  int
	Output int
}

type meterKey struct{}

// Meter collects the model calls made by refiners running under a context
// returned by WithMeter. Use one Meter per row.
type Meter struct {
	mu    sync.Mutex
	calls []Call
}

func WithMeter(ctx context.Context, m *Meter) context.Context {
	return context.WithValue(ctx, meterKey{}, m)
}

func (m *Meter) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

func record(ctx context.Context, c Call) {
	m, ok := ctx.Value(meterKey{}).(*Meter)
	if !ok || m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}
