package retry

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestDo_RetriesServiceUnavailableWithBackoff(t *testing.T) {
	rec := &recordingSleeper{}
	c := New(WithSleeper(rec.sleep), WithLogger(zaptest.NewLogger(t)))

	calls := 0
	attempts, err := c.Do(context.Background(), "translate", func(ctx context.Context) error {
		calls++
		return errors.New("503 Service Temporarily Unavailable")
	})

	require.Error(t, err)
	assert.Equal(t, "503 Service Temporarily Unavailable", err.Error())
	assert.Equal(t, 4, calls)
	assert.Equal(t, calls, attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, rec.delays)
}

func TestDo_FatalErrorNotRetried(t *testing.T) {
	rec := &recordingSleeper{}
	c := New(WithSleeper(rec.sleep))

	attempts, err := c.Do(context.Background(), "scripture", func(ctx context.Context) error {
		return errors.New("Invalid scripture reference")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, rec.delays)
}

func TestDo_SucceedsAfterTransientFailure(t *testing.T) {
	rec := &recordingSleeper{}
	c := New(WithSleeper(rec.sleep))

	calls := 0
	attempts, err := c.Do(context.Background(), "translate", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("read tcp 10.0.0.1:443: connection reset by peer")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	c := New(WithBaseDelay(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts, err := c.Do(ctx, "translate", func(ctx context.Context) error {
		return errors.New("429 Too Many Requests")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestClassify(t *testing.T) {
	c := New()
	tests := []struct {
		msg       string
		retryable bool
		name      string
	}{
		{"dial tcp: lookup api.example.com: no such host", true, "dns"},
		{"context deadline exceeded", true, "timeout"},
		{"API returned status 502", true, "unavailable"},
		{"status 504 Gateway Timeout", true, "timeout"},
		{"openrouter: 429 rate limit", true, "throttled"},
		{"Internal error encountered.", true, "internal"},
		{"question_pattern_change: 1 vs 2", false, ""},
		{"invalid_reference: invalid_quran_reference: abc", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			m, ok := c.Classify(errors.New(tt.msg))
			assert.Equal(t, tt.retryable, ok && m.Retryable)
			if tt.retryable {
				assert.Equal(t, tt.name, m.Name)
			}
		})
	}
}

func TestWithMatchers_ExtendsTable(t *testing.T) {
	table := append([]Matcher{
		{Name: "quota", Pattern: regexp.MustCompile(`quota`), Retryable: false},
	}, DefaultMatchers...)
	c := New(WithMatchers(table))

	assert.False(t, c.IsRetryable(errors.New("429 quota exhausted")))
	assert.True(t, c.IsRetryable(errors.New("429 too many requests")))
}

func TestDelay(t *testing.T) {
	c := New(WithBaseDelay(100 * time.Millisecond))
	assert.Equal(t, 100*time.Millisecond, c.Delay(1))
	assert.Equal(t, 400*time.Millisecond, c.Delay(3))
}
