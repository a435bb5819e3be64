// Package retry wraps a unit of work with exponential backoff. Failures are
// classified by matching the error text against a table of transient-fault
// signatures; the upstream errors come from heterogeneous HTTP clients and
// SDKs, so there is no common error type to switch on.
package retry

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

// Matcher maps an error-text pattern to a retry decision. Matchers are
// evaluated in order and the first hit wins.
type Matcher struct {
	Name      string
	Pattern   *regexp.Regexp
	Retryable bool
}

// DefaultMatchers lists the transient-fault signatures seen from translation
// services and the scripture source.
var DefaultMatchers = []Matcher{
	{Name: "connection_reset", Pattern: regexp.MustCompile(`econnreset|connection reset|connection refused|econnrefused|broken pipe|unexpected eof`), Retryable: true},
	{Name: "timeout", Pattern: regexp.MustCompile(`timeout|timed out|etimedout|deadline exceeded`), Retryable: true},
	{Name: "dns", Pattern: regexp.MustCompile(`no such host|enotfound|eai_again|dns`), Retryable: true},
	{Name: "throttled", Pattern: regexp.MustCompile(`\b429\b|too many requests|rate limit`), Retryable: true},
	{Name: "unavailable", Pattern: regexp.MustCompile(`\b50[234]\b|bad gateway|service (temporarily )?unavailable|gateway timeout|overloaded`), Retryable: true},
	{Name: "internal", Pattern: regexp.MustCompile(`internal (server )?error`), Retryable: true},
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

type Controller struct {
	maxRetries int
	baseDelay  time.Duration
	matchers   []Matcher
	sleep      Sleeper
	logger     *zap.Logger
}

type Option func(*Controller)

// WithMaxRetries sets how many retries follow the first attempt.
func WithMaxRetries(n int) Option {
	return func(c *Controller) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBaseDelay sets the delay before the first retry; later delays double.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.baseDelay = d
		}
	}
}

// WithMatchers replaces the classification table.
func WithMatchers(m []Matcher) Option {
	return func(c *Controller) {
		c.matchers = m
	}
}

// WithSleeper overrides how backoff waits are performed (useful for tests).
func WithSleeper(s Sleeper) Option {
	return func(c *Controller) {
		if s != nil {
			c.sleep = s
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(opts ...Option) *Controller {
	c := &Controller{
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
		matchers:   DefaultMatchers,
		sleep:      sleepWithCtx,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the first matcher hit for err, if any.
func (c *Controller) Classify(err error) (Matcher, bool) {
	if err == nil {
		return Matcher{}, false
	}
	text := strings.ToLower(err.Error())
	for _, m := range c.matchers {
		if m.Pattern.MatchString(text) {
			return m, true
		}
	}
	return Matcher{}, false
}

// IsRetryable reports whether err matches a retryable signature.
func (c *Controller) IsRetryable(err error) bool {
	m, ok := c.Classify(err)
	return ok && m.Retryable
}

// Delay returns the wait before the given retry (1-based).
func (c *Controller) Delay(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	return c.baseDelay * time.Duration(1<<(retry-1))
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// retry budget is spent. It returns the number of attempts made and the
// last error.
func (c *Controller) Do(ctx context.Context, op string, fn func(ctx context.Context) error) (int, error) {
	attempts := 0
	for {
		attempts++
		err := fn(ctx)
		if err == nil {
			return attempts, nil
		}

		m, ok := c.Classify(err)
		if !ok || !m.Retryable {
			return attempts, err
		}
		retry := attempts
		if retry > c.maxRetries {
			c.logger.Warn("retries exhausted",
				zap.String("op", op),
				zap.Int("attempts", attempts),
				zap.Error(err))
			return attempts, err
		}

		delay := c.Delay(retry)
		c.logger.Info("retrying after transient failure",
			zap.String("op", op),
			zap.String("signature", m.Name),
			zap.Int("retry", retry),
			zap.Duration("delay", delay),
			zap.Error(err))
		if serr := c.sleep(ctx, delay); serr != nil {
			return attempts, serr
		}
	}
}

func sleepWithCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
