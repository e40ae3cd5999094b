package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests")
)

// State is where a breaker sits in its cycle
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Policy decides which calls count against a peer and when it is given up on
type Policy struct {
	// Threshold trips after this many consecutive failures
	Threshold uint32
	// FailureRatio, when positive, also trips once MinRequests calls inside
	// one window failed at least this fraction
	FailureRatio float64
	MinRequests  uint32
	// Terminal keeps a tripped breaker open. Remote listener agents use it:
	// a peer that stopped taking frames is treated as dead, not slow.
	Terminal bool
	// IsFailure classifies a call's error. Nil counts every non-nil error.
	// Rejections answered by a live peer should not count.
	IsFailure func(error) bool
}

func (p Policy) trips(c Counts) bool {
	if c.ConsecutiveFailures >= p.Threshold {
		return true
	}
	return p.FailureRatio > 0 && c.Requests >= p.MinRequests &&
		float64(c.TotalFailures)/float64(c.Requests) >= p.FailureRatio
}

func (p Policy) failed(err error) bool {
	if err == nil {
		return false
	}
	if p.IsFailure == nil {
		return true
	}
	return p.IsFailure(err)
}

// Settings configures a breaker
type Settings struct {
	Policy Policy
	// TrialCalls is the number of trial calls admitted while half-open. That many
	// successes close the breaker.
	TrialCalls uint32
	// Window clears closed-state counts periodically
	Window time.Duration
	// Cooldown is how long a non-terminal breaker stays open
	Cooldown time.Duration
	// OnOpen runs once per trip after the breaker lock is released, with the
	// counts that tripped it
	OnOpen func(name string, counts Counts)
	// OnStateChange runs under the breaker lock and must not call back into it
	OnStateChange func(name string, from, to State)
	// Clock defaults to the wall clock
	Clock clockwork.Clock
}

// Counts are the call statistics of the current generation
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

func (c *Counts) record(failed bool) {
	if failed {
		c.TotalFailures++
		c.ConsecutiveFailures++
		c.ConsecutiveSuccesses = 0
		return
	}
	c.TotalSuccesses++
	c.ConsecutiveSuccesses++
	c.ConsecutiveFailures = 0
}

// Breaker stops calls to a peer after the policy gives up on it. Every state
// change starts a new generation; results of calls admitted in an earlier
// generation are dropped.
type Breaker struct {
	name     string
	settings Settings
	clock    clockwork.Clock

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	deadline   time.Time // window end while closed, cooldown end while open
}

// New creates a closed breaker
func New(name string, settings Settings) *Breaker {
	if settings.Policy.Threshold == 0 {
		settings.Policy.Threshold = 5
	}
	if settings.TrialCalls == 0 {
		settings.TrialCalls = 1
	}
	if settings.Window == 0 {
		settings.Window = time.Minute
	}
	if settings.Cooldown == 0 {
		settings.Cooldown = time.Minute
	}
	if settings.Clock == nil {
		settings.Clock = clockwork.NewRealClock()
	}
	return &Breaker{
		name:     name,
		settings: settings,
		clock:    settings.Clock,
		deadline: settings.Clock.Now().Add(settings.Window),
	}
}

func (b *Breaker) Name() string { return b.name }

// State returns the state after applying any elapsed window or cooldown
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance(b.clock.Now())
	return b.state
}

// Counts returns a copy of the current generation's counts
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Allow reports whether a call would currently be admitted
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance(b.clock.Now())
	return b.admits()
}

// Execute runs call if the breaker admits it. A panic in call counts as a
// failure and is re-raised.
func (b *Breaker) Execute(call func() error) error {
	generation, err := b.admit()
	if err != nil {
		return err
	}

	failed := true
	defer func() {
		b.settle(generation, failed)
	}()

	err = call()
	failed = b.settings.Policy.failed(err)
	return err
}

func (b *Breaker) admits() bool {
	switch b.state {
	case StateOpen:
		return false
	case StateHalfOpen:
		return b.counts.Requests < b.settings.TrialCalls
	default:
		return true
	}
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance(b.clock.Now())
	if !b.admits() {
		if b.state == StateOpen {
			return 0, ErrCircuitOpen
		}
		return 0, ErrTooManyRequests
	}
	b.counts.Requests++
	return b.generation, nil
}

func (b *Breaker) settle(generation uint64, failed bool) {
	b.mu.Lock()
	now := b.clock.Now()
	b.advance(now)
	if generation != b.generation {
		b.mu.Unlock()
		return
	}

	b.counts.record(failed)
	var tripped *Counts
	switch {
	case b.state == StateHalfOpen && failed:
		c := b.counts
		tripped = &c
		b.moveTo(StateOpen, now)
	case b.state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.settings.TrialCalls:
		b.moveTo(StateClosed, now)
	case b.state == StateClosed && failed && b.settings.Policy.trips(b.counts):
		c := b.counts
		tripped = &c
		b.moveTo(StateOpen, now)
	}
	b.mu.Unlock()

	if tripped != nil && b.settings.OnOpen != nil {
		b.settings.OnOpen(b.name, *tripped)
	}
}

// advance applies an elapsed window or cooldown
func (b *Breaker) advance(now time.Time) {
	switch b.state {
	case StateClosed:
		if now.After(b.deadline) {
			b.counts = Counts{}
			b.deadline = now.Add(b.settings.Window)
			b.generation++
		}
	case StateOpen:
		if !b.settings.Policy.Terminal && now.After(b.deadline) {
			b.moveTo(StateHalfOpen, now)
		}
	}
}

func (b *Breaker) moveTo(state State, now time.Time) {
	prev := b.state
	b.state = state
	b.generation++
	b.counts = Counts{}

	switch state {
	case StateClosed:
		b.deadline = now.Add(b.settings.Window)
	case StateOpen:
		b.deadline = now.Add(b.settings.Cooldown)
	default:
		b.deadline = time.Time{}
	}

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}
