// Package future hands one asynchronously produced value to a waiting goroutine.
//
// A Bridge is a single slot. The producer calls SetValue and the consumer blocks in
// GetResult for at most the given timeout. On timeout the consumer gets the
// bridge's fallback value instead of an error, so layout code always has a
// rectangle to work with.
//
// Writes are last-write-wins. A SetValue that lands after the consumer gave up
// stays in the slot until Reset re-arms the bridge for the next round.
package future

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Bridge is a single-slot, timeout-bounded value handoff
type Bridge[T any] struct {
	mu       sync.Mutex
	value    T
	set      bool
	ready    chan struct{}
	fallback T

	clock     clockwork.Clock
	onTimeout func()
}

// Option configures a Bridge
type Option func(*options)

type options struct {
	clock     clockwork.Clock
	onTimeout func()
}

// WithClock sets the clock used for timeouts
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithTimeoutHook registers a callback run each time GetResult gives up
func WithTimeoutHook(fn func()) Option {
	return func(o *options) { o.onTimeout = fn }
}

// New creates an empty bridge that yields fallback on timeout
func New[T any](fallback T, opts ...Option) *Bridge[T] {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	return &Bridge[T]{
		ready:     make(chan struct{}),
		fallback:  fallback,
		clock:     o.clock,
		onTimeout: o.onTimeout,
	}
}

// SetValue stores v and wakes the waiter. A second call before Reset overwrites.
func (b *Bridge[T]) SetValue(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.value = v
	if !b.set {
		b.set = true
		close(b.ready)
	}
}

// GetResult waits up to timeout for a value and returns the fallback on expiry
func (b *Bridge[T]) GetResult(timeout time.Duration) T {
	v, _ := b.TryGetResult(timeout)
	return v
}

// TryGetResult is GetResult that also reports whether a value arrived
func (b *Bridge[T]) TryGetResult(timeout time.Duration) (T, bool) {
	b.mu.Lock()
	if b.set {
		v := b.value
		b.mu.Unlock()
		return v, true
	}
	ready := b.ready
	b.mu.Unlock()

	timer := b.clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ready:
		return b.current(), true
	case <-timer.Chan():
		if b.onTimeout != nil {
			b.onTimeout()
		}
		return b.fallback, false
	}
}

// Wait blocks until a value arrives or ctx is done
func (b *Bridge[T]) Wait(ctx context.Context) (T, error) {
	b.mu.Lock()
	ready := b.ready
	b.mu.Unlock()

	select {
	case <-ready:
		return b.current(), nil
	case <-ctx.Done():
		return b.fallback, ctx.Err()
	}
}

// Reset clears the slot for the next round
func (b *Bridge[T]) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero T
	b.value = zero
	if b.set {
		b.set = false
		b.ready = make(chan struct{})
	}
}

// Ready reports whether a value is waiting in the slot
func (b *Bridge[T]) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.set
}

func (b *Bridge[T]) current() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}
