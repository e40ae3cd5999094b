package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	attempts := 0
	done := make(chan error, 1)
	go func() {
		_, err := Retry(ctx, RetryPolicy{MaxAttempts: 3, Backoff: time.Second, Clock: clock}, nil,
			func() (int, error) {
				attempts++
				if attempts < 3 {
					return 0, errSend
				}
				return attempts, nil
			})
		done <- err
	}()

	for i := 0; i < 2; i++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(time.Second)
	}

	require.NoError(t, <-done)
	assert.Equal(t, 3, attempts)
}

func TestRetryGivesUp(t *testing.T) {
	var retried []int
	policy := RetryPolicy{
		MaxAttempts: 2,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			retried = append(retried, attempt)
		},
	}

	err := RetryVoid(context.Background(), policy, nil, fail)
	assert.ErrorIs(t, err, errSend)
	assert.Contains(t, err.Error(), "failed after 2 attempts")
	assert.Equal(t, []int{1}, retried)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	attempts := 0
	err := RetryVoid(context.Background(), RetryPolicy{MaxAttempts: 5}, func(error) Action {
		return ActionStop
	}, func() error {
		attempts++
		return errSend
	})

	var perm *PermanentError
	require.True(t, errors.As(err, &perm))
	assert.ErrorIs(t, err, errSend)
	assert.Equal(t, 1, attempts)
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryVoid(ctx, RetryPolicy{MaxAttempts: 3, Backoff: time.Hour}, nil, fail)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryRejectsEmptyPolicy(t *testing.T) {
	err := RetryVoid(context.Background(), RetryPolicy{}, nil, succeed)
	assert.ErrorIs(t, err, ErrNoAttempts)
}
