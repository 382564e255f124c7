package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vagledaren/vagledaren/internal/fault"
	"github.com/vagledaren/vagledaren/internal/testutil"
)

func newRetrier(t *testing.T) *Retrier {
	t.Helper()
	return New(testutil.TestLogger(), WithBaseDelay(time.Millisecond))
}

func TestExecute_SuccessOnFirstAttempt(t *testing.T) {
	r := newRetrier(t)

	calls := 0
	result, err := Execute(context.Background(), r, "test", func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestExecute_NonRetryableFailsImmediately(t *testing.T) {
	r := newRetrier(t)

	calls := 0
	_, err := Execute(context.Background(), r, "test", func(context.Context) (string, error) {
		calls++
		return "", fault.New(fault.CodeAuthentication, "bad credentials")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, fault.IsCode(err, fault.CodeAuthentication))
}

func TestExecute_RetryableSucceedsOnThirdAttempt(t *testing.T) {
	r := newRetrier(t)

	calls := 0
	result, err := Execute(context.Background(), r, "test", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", fault.Retryable(fault.CodeNetwork, "connection reset", 0)
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestExecute_ExhaustionYieldsMaxRetriesExceeded(t *testing.T) {
	r := newRetrier(t)

	calls := 0
	_, err := Execute(context.Background(), r, "test", func(context.Context) (string, error) {
		calls++
		return "", fault.Retryable(fault.CodeNetwork, "connection reset", 0)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, fault.IsCode(err, fault.CodeMaxRetriesExceeded))
	assert.True(t, fault.CanRetry(err))
	assert.Equal(t, 60*time.Second, fault.From(err).RetryAfter)
}

func TestExecute_HonorsErrorRetryAfter(t *testing.T) {
	r := New(testutil.TestLogger(), WithBaseDelay(time.Hour), WithMaxAttempts(2))

	calls := 0
	start := time.Now()
	result, err := Execute(context.Background(), r, "test", func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", fault.Retryable(fault.CodeRateLimited, "slow down", 5*time.Millisecond)
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	// The hour-long base delay was replaced by the error's own hint.
	assert.Less(t, time.Since(start), time.Second)
}

func TestExecute_BackoffGrowsWithAttempt(t *testing.T) {
	r := New(testutil.TestLogger(), WithBaseDelay(10*time.Millisecond))

	d1 := r.delayFor(1, 0)
	d2 := r.delayFor(2, 0)

	// Raw delay doubles per attempt; jitter adds at most half of it, so
	// attempt 2's floor stays above attempt 1's ceiling.
	assert.GreaterOrEqual(t, d1, 10*time.Millisecond)
	assert.Less(t, d1, 16*time.Millisecond)
	assert.GreaterOrEqual(t, d2, 20*time.Millisecond)
	assert.Less(t, d2, 31*time.Millisecond)
}

func TestExecute_CancelledContextStopsRetrying(t *testing.T) {
	r := New(testutil.TestLogger(), WithBaseDelay(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Execute(ctx, r, "test", func(context.Context) (string, error) {
			calls++
			return "", fault.Retryable(fault.CodeNetwork, "down", 0)
		})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("retry loop did not abort on cancellation")
	}
}

func TestExecute_CancelledBeforeFirstAttempt(t *testing.T) {
	r := newRetrier(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Execute(ctx, r, "test", func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	require.Error(t, err)
	assert.Equal(t, 0, calls)
}
