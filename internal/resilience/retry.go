// Package resilience wraps fallible calls in a bounded retry loop with
// exponential backoff. Retry decisions come from the error classification,
// never from message text.
package resilience

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/vagledaren/vagledaren/internal/fault"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second

	// exhaustedHint is suggested to callers once all attempts are spent.
	exhaustedHint = 60 * time.Second
)

// Retrier executes calls with the retry policy. Safe for concurrent use.
type Retrier struct {
	logger      *slog.Logger
	maxAttempts int
	baseDelay   time.Duration
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithMaxAttempts overrides the total attempt count, first try included.
func WithMaxAttempts(n int) Option {
	return func(r *Retrier) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithBaseDelay overrides the first backoff delay.
func WithBaseDelay(d time.Duration) Option {
	return func(r *Retrier) {
		if d > 0 {
			r.baseDelay = d
		}
	}
}

// New creates a Retrier.
func New(logger *slog.Logger, opts ...Option) *Retrier {
	r := &Retrier{
		logger:      logger.With("component", "resilience"),
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs call until it succeeds, fails non-retryably, the attempt
// budget is spent, or ctx is cancelled. The context is honored at every
// suspension point.
func Execute[T any](ctx context.Context, r *Retrier, op string, call func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fault.ClassifyTransport(err)
		}

		result, err := call(ctx)
		if err == nil {
			attemptsTotal.WithLabelValues(op, "success").Inc()
			return result, nil
		}
		lastErr = err

		if !fault.CanRetry(err) {
			attemptsTotal.WithLabelValues(op, "permanent_failure").Inc()
			return zero, err
		}
		attemptsTotal.WithLabelValues(op, "retryable_failure").Inc()

		if attempt == r.maxAttempts {
			break
		}

		delay := r.delayFor(attempt, fault.From(err).RetryAfter)
		r.logger.Warn("retrying after failure",
			"op", op, "attempt", attempt, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fault.ClassifyTransport(ctx.Err())
		case <-timer.C:
		}
	}

	retriesExhaustedTotal.WithLabelValues(op).Inc()
	return zero, fault.WrapRetryable(fault.CodeMaxRetriesExceeded,
		"all retry attempts failed", exhaustedHint, lastErr)
}

// delayFor returns the sleep before the next attempt: the error's own
// retry-after when it carries one, otherwise exponential backoff with
// uniform jitter in [0, delay/2].
func (r *Retrier) delayFor(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}
	delay := r.baseDelay * (1 << (attempt - 1))
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	return delay + jitter
}
