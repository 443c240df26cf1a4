package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/niksmo/storefront/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func TestDoWithResult(t *testing.T) {
	t.Run("SucceedsAfterRetries", func(t *testing.T) {
		calls := 0
		c := retry.RetryConfig{MaxAttempts: 3, Backoff: retry.ConstantBackoff(time.Millisecond)}

		v, err := retry.DoWithResult(t.Context(), c, func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errTransient
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.Equal(t, 3, calls)
	})

	t.Run("AttemptsSpent", func(t *testing.T) {
		calls := 0
		c := retry.RetryConfig{MaxAttempts: 2, Backoff: retry.ConstantBackoff(time.Millisecond)}

		_, err := retry.DoWithResult(t.Context(), c, func() (int, error) {
			calls++
			return 0, errTransient
		})
		require.ErrorIs(t, err, errTransient)
		assert.Equal(t, 2, calls)
	})

	t.Run("NotRetryable", func(t *testing.T) {
		permanent := errors.New("permanent")
		calls := 0
		c := retry.RetryConfig{
			MaxAttempts: 5,
			Backoff:     retry.ConstantBackoff(time.Millisecond),
			ShouldRetry: func(err error) bool { return errors.Is(err, errTransient) },
		}

		_, err := retry.DoWithResult(t.Context(), c, func() (int, error) {
			calls++
			return 0, permanent
		})
		require.ErrorIs(t, err, permanent)
		assert.Equal(t, 1, calls)
	})

	t.Run("ContextDone", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		c := retry.RetryConfig{MaxAttempts: 10, Backoff: retry.ConstantBackoff(time.Hour)}

		err := retry.Do(ctx, c, func() error {
			cancel()
			return errTransient
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, err, errTransient)
	})

	t.Run("CanceledBeforeStart", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		err := retry.Do(ctx, retry.RetryConfig{}, func() error {
			t.Fatal("must not be called")
			return nil
		})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestExponentialBackoff(t *testing.T) {
	b := retry.ExponentialBackoff(10 * time.Millisecond)
	for attempt, base := range map[int]time.Duration{1: 10, 2: 20, 3: 40} {
		d := b(attempt)
		assert.GreaterOrEqual(t, d, base*time.Millisecond)
		assert.LessOrEqual(t, d, base*time.Millisecond*3/2)
	}
}
