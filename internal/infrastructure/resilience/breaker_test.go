package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errSend     = errors.New("send failed")
	errRejected = errors.New("rejected by peer")
)

func fail() error    { return errSend }
func succeed() error { return nil }
func reject() error  { return errRejected }

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name     string
		policy   Policy
		requests []func() error
		want     State
	}{
		{
			name:     "stays closed on successes",
			policy:   Policy{Threshold: 3},
			requests: []func() error{succeed, succeed, succeed},
			want:     StateClosed,
		},
		{
			name:     "opens after consecutive failures",
			policy:   Policy{Threshold: 3},
			requests: []func() error{fail, fail, fail},
			want:     StateOpen,
		},
		{
			name:     "success resets the failure streak",
			policy:   Policy{Threshold: 2},
			requests: []func() error{fail, succeed, fail},
			want:     StateClosed,
		},
		{
			name:     "failure ratio trips without a streak",
			policy:   Policy{Threshold: 10, FailureRatio: 0.5, MinRequests: 4},
			requests: []func() error{fail, succeed, succeed, fail},
			want:     StateOpen,
		},
		{
			name:     "ratio waits for enough requests",
			policy:   Policy{Threshold: 10, FailureRatio: 0.5, MinRequests: 4},
			requests: []func() error{fail, succeed, fail},
			want:     StateClosed,
		},
		{
			name: "rejections from a live peer do not count",
			policy: Policy{
				Threshold: 2,
				IsFailure: func(err error) bool { return !errors.Is(err, errRejected) },
			},
			requests: []func() error{reject, reject, reject},
			want:     StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker := New("test", Settings{Policy: tt.policy, Clock: clockwork.NewFakeClock()})
			for _, req := range tt.requests {
				_ = breaker.Execute(req)
			}
			assert.Equal(t, tt.want, breaker.State())
		})
	}
}

func TestBreakerCounts(t *testing.T) {
	breaker := New("test", Settings{Policy: Policy{Threshold: 5}})

	require.NoError(t, breaker.Execute(succeed))
	counts := breaker.Counts()
	assert.Equal(t, uint32(1), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalSuccesses)
	assert.Equal(t, uint32(1), counts.ConsecutiveSuccesses)

	assert.ErrorIs(t, breaker.Execute(fail), errSend)
	counts = breaker.Counts()
	assert.Equal(t, uint32(2), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalFailures)
	assert.Equal(t, uint32(1), counts.ConsecutiveFailures)
	assert.Zero(t, counts.ConsecutiveSuccesses)
}

func TestBreakerWindowClearsCounts(t *testing.T) {
	clock := clockwork.NewFakeClock()
	breaker := New("test", Settings{Policy: Policy{Threshold: 2}, Window: time.Second, Clock: clock})

	_ = breaker.Execute(fail)
	clock.Advance(2 * time.Second)
	_ = breaker.Execute(fail)

	assert.Equal(t, StateClosed, breaker.State())
	assert.Equal(t, uint32(1), breaker.Counts().ConsecutiveFailures)
}

func TestBreakerOpenRefusesCalls(t *testing.T) {
	breaker := New("test", Settings{Policy: Policy{Threshold: 2}})
	for i := 0; i < 2; i++ {
		_ = breaker.Execute(fail)
	}

	assert.Equal(t, StateOpen, breaker.State())
	assert.False(t, breaker.Allow())

	called := false
	err := breaker.Execute(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerHalfOpenTrialCalls(t *testing.T) {
	clock := clockwork.NewFakeClock()
	breaker := New("test", Settings{
		Policy:     Policy{Threshold: 2},
		TrialCalls: 2,
		Cooldown:   50 * time.Millisecond,
		Clock:      clock,
	})

	for i := 0; i < 2; i++ {
		_ = breaker.Execute(fail)
	}
	require.Equal(t, StateOpen, breaker.State())

	clock.Advance(60 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, breaker.State())
	assert.True(t, breaker.Allow())

	require.NoError(t, breaker.Execute(succeed))
	assert.Equal(t, StateHalfOpen, breaker.State())
	require.NoError(t, breaker.Execute(succeed))
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerHalfOpenBudget(t *testing.T) {
	clock := clockwork.NewFakeClock()
	breaker := New("test", Settings{Policy: Policy{Threshold: 1}, Cooldown: time.Second, Clock: clock})

	_ = breaker.Execute(fail)
	clock.Advance(2 * time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = breaker.Execute(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	assert.ErrorIs(t, breaker.Execute(succeed), ErrTooManyRequests)
	close(release)
	require.Eventually(t, func() bool { return breaker.State() == StateClosed }, time.Second, 5*time.Millisecond)
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var opened int
	breaker := New("test", Settings{
		Policy:   Policy{Threshold: 1},
		Cooldown: time.Second,
		Clock:    clock,
		OnOpen:   func(string, Counts) { opened++ },
	})

	_ = breaker.Execute(fail)
	clock.Advance(2 * time.Second)
	require.Equal(t, StateHalfOpen, breaker.State())

	_ = breaker.Execute(fail)
	assert.Equal(t, StateOpen, breaker.State())
	assert.Equal(t, 2, opened)
}

func TestTerminalBreakerStaysOpen(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var tripped []Counts
	breaker := New("agent", Settings{
		Policy:   Policy{Threshold: 3, Terminal: true},
		Cooldown: time.Second,
		Clock:    clock,
		OnOpen: func(name string, counts Counts) {
			assert.Equal(t, "agent", name)
			tripped = append(tripped, counts)
		},
	})

	for i := 0; i < 3; i++ {
		_ = breaker.Execute(fail)
	}
	require.Len(t, tripped, 1)
	assert.Equal(t, uint32(3), tripped[0].ConsecutiveFailures)

	clock.Advance(time.Hour)
	assert.Equal(t, StateOpen, breaker.State())
	assert.ErrorIs(t, breaker.Execute(succeed), ErrCircuitOpen)
	assert.Len(t, tripped, 1)
}

func TestOnOpenRunsOutsideLock(t *testing.T) {
	var seen State
	var breaker *Breaker
	breaker = New("test", Settings{
		Policy: Policy{Threshold: 1},
		OnOpen: func(string, Counts) { seen = breaker.State() },
	})

	_ = breaker.Execute(fail)
	assert.Equal(t, StateOpen, seen)
}

func TestBreakerCallbacks(t *testing.T) {
	var transitions []string
	clock := clockwork.NewFakeClock()

	breaker := New("test", Settings{
		Policy:   Policy{Threshold: 2},
		Cooldown: 10 * time.Millisecond,
		Clock:    clock,
		OnStateChange: func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	for i := 0; i < 2; i++ {
		_ = breaker.Execute(fail)
	}
	clock.Advance(20 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, breaker.State())

	assert.Equal(t, []string{"closed->open", "open->half-open"}, transitions)
}

func TestBreakerCountsPanicAsFailure(t *testing.T) {
	breaker := New("test", Settings{})

	assert.Panics(t, func() {
		_ = breaker.Execute(func() error { panic("boom") })
	})
	assert.Equal(t, uint32(1), breaker.Counts().TotalFailures)
}
