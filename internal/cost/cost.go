// Package cost records token usage and spend per external operation.
package cost

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSpanClosed   = errors.New("cost span already closed")
	ErrSpanNotFound = errors.New("cost span not found")
)

type Tokens struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Span is one priced operation. It is mutable only until closed.
type Span struct {
	ID        string     `json:"id"`
	Operation string     `json:"operation"`
	RowID     string     `json:"rowId"`
	Model     string     `json:"model"`
	Tokens    Tokens     `json:"tokens"`
	Cost      float64    `json:"cost"`
	StartedAt time.Time  `json:"startedAt"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`
}

// Price is the USD cost per million tokens.
type Price struct {
	InputPerMillion  float64 `mapstructure:"input" json:"input"`
	OutputPerMillion float64 `mapstructure:"output" json:"output"`
}

// DefaultPrices covers the models the translator backends use out of the
// box. Unknown models are recorded with zero cost.
var DefaultPrices = map[string]Price{
	"gpt-4o-mini":                  {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	"gpt-4o":                       {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"google/gemini-2.0-flash-001":  {InputPerMillion: 0.10, OutputPerMillion: 0.40},
	"anthropic/claude-3.5-haiku":   {InputPerMillion: 0.80, OutputPerMillion: 4.00},
	"google-translate":             {InputPerMillion: 20.00, OutputPerMillion: 0},
}

// Sink persists closed spans.
type Sink interface {
	SaveSpan(ctx context.Context, s Span) error
}

type Option func(*Ledger)

func WithPrices(p map[string]Price) Option {
	return func(l *Ledger) {
		for k, v := range p {
			l.prices[k] = v
		}
	}
}

func WithSink(s Sink) Option {
	return func(l *Ledger) { l.sink = s }
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

type Ledger struct {
	mu     sync.Mutex
	spans  map[string]*Span
	order  []string
	prices map[string]Price
	sink   Sink
	logger *zap.Logger
	now    func() time.Time
}

func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		spans:  make(map[string]*Span),
		prices: make(map[string]Price, len(DefaultPrices)),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for k, v := range DefaultPrices {
		l.prices[k] = v
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Open starts a span and returns its id.
func (l *Ledger) Open(operation, rowID, model string) string {
	s := &Span{
		ID:        uuid.NewString(),
		Operation: operation,
		RowID:     rowID,
		Model:     model,
		StartedAt: l.now(),
	}
	l.mu.Lock()
	l.spans[s.ID] = s
	l.order = append(l.order, s.ID)
	l.mu.Unlock()
	return s.ID
}

// Close prices and freezes a span. Closing twice returns ErrSpanClosed.
func (l *Ledger) Close(ctx context.Context, id string, tokens Tokens) (Span, error) {
	l.mu.Lock()
	s, ok := l.spans[id]
	if !ok {
		l.mu.Unlock()
		return Span{}, fmt.Errorf("%w: %s", ErrSpanNotFound, id)
	}
	if s.ClosedAt != nil {
		l.mu.Unlock()
		return *s, fmt.Errorf("%w: %s", ErrSpanClosed, id)
	}
	now := l.now()
	s.Tokens = tokens
	s.Cost = l.price(s.Model, tokens)
	s.ClosedAt = &now
	closed := *s
	l.mu.Unlock()

	if l.sink != nil {
		if err := l.sink.SaveSpan(ctx, closed); err != nil {
			l.logger.Warn("failed to persist cost span", zap.String("span_id", id), zap.Error(err))
		}
	}
	return closed, nil
}

func (l *Ledger) price(model string, t Tokens) float64 {
	p, ok := l.prices[model]
	if !ok {
		return 0
	}
	return (float64(t.Input)*p.InputPerMillion + float64(t.Output)*p.OutputPerMillion) / 1e6
}

// Spans returns a copy of all spans in open order.
func (l *Ledger) Spans() []Span {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Span, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.spans[id])
	}
	return out
}

type OperationTotal struct {
	Operation string  `json:"operation"`
	Spans     int     `json:"spans"`
	Tokens    Tokens  `json:"tokens"`
	Cost      float64 `json:"cost"`
}

type Summary struct {
	Spans      int              `json:"spans"`
	OpenSpans  int              `json:"openSpans"`
	Tokens     Tokens           `json:"tokens"`
	Cost       float64          `json:"cost"`
	Operations []OperationTotal `json:"operations"`
}

// Summary aggregates closed spans by operation.
func (l *Ledger) Summary() Summary {
	var sum Summary
	byOp := make(map[string]*OperationTotal)
	for _, s := range l.Spans() {
		sum.Spans++
		if s.ClosedAt == nil {
			sum.OpenSpans++
			continue
		}
		op, ok := byOp[s.Operation]
		if !ok {
			op = &OperationTotal{Operation: s.Operation}
			byOp[s.Operation] = op
		}
		op.Spans++
		op.Tokens.Input += s.Tokens.Input
		op.Tokens.Output += s.Tokens.Output
		op.Cost += s.Cost
		sum.Tokens.Input += s.Tokens.Input
		sum.Tokens.Output += s.Tokens.Output
		sum.Cost += s.Cost
	}
	for _, op := range byOp {
		sum.Operations = append(sum.Operations, *op)
	}
	sort.Slice(sum.Operations, func(i, j int) bool {
		return sum.Operations[i].Operation < sum.Operations[j].Operation
	})
	return sum
}

// EstimateTokens approximates a token count from text length when the
// backend does not report usage.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}
