package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// Action tells Retry how to treat an error
type Action int

const (
	ActionStop  Action = iota // permanent error, abort immediately
	ActionRetry               // transient error, back off and try again
)

// ErrNoAttempts is returned when a RetryPolicy allows zero attempts
var ErrNoAttempts = errors.New("retry policy allows no attempts")

// RetryPolicy configures Retry
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	// Multiplier grows the backoff after each attempt. Values below 1 keep it fixed.
	Multiplier float64
	Clock      clockwork.Clock
	OnRetry    func(attempt int, err error, backoff time.Duration)
}

// Classify maps an error to an Action. A nil Classify retries everything.
type Classify func(err error) Action

// PermanentError wraps an error that Classify marked as not retryable
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Retry runs op until it succeeds, classify stops it, attempts run out or ctx ends
func Retry[T any](ctx context.Context, p RetryPolicy, classify Classify, op func() (T, error)) (T, error) {
	var zero T
	if p.MaxAttempts < 1 {
		return zero, ErrNoAttempts
	}
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	backoff := p.Backoff
	for attempt := 1; ; attempt++ {
		val, err := op()
		if err == nil {
			return val, nil
		}

		if classify != nil && classify(err) == ActionStop {
			return zero, &PermanentError{Err: err}
		}
		if attempt == p.MaxAttempts {
			return zero, fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, err)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, backoff)
		}

		timer := clock.NewTimer(backoff)
		select {
		case <-timer.Chan():
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
		if p.Multiplier > 1 {
			backoff = time.Duration(float64(backoff) * p.Multiplier)
		}
	}
}

// RetryVoid is Retry for operations without a result
func RetryVoid(ctx context.Context, p RetryPolicy, classify Classify, op func() error) error {
	_, err := Retry(ctx, p, classify, func() (struct{}, error) { return struct{}{}, op() })
	return err
}
