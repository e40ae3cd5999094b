package fold

import (
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

// DualPolicy classifies readings for inward-folding dual-display devices
type DualPolicy struct {
	stateManager
	th    DualThresholds
	allow *AllowList
	apps  AppStateSource
	clock clockwork.Clock

	observerOnce sync.Once
	observer     *AppStateObserver

	mu              sync.Mutex
	isHallSwitchApp bool
	latestAngle     float64
	latestHall      int
	tentMode        bool
	pending         clockwork.Timer
}

// DualOption configures a DualPolicy
type DualOption func(*DualPolicy)

// WithClock sets the clock used for hall debouncing
func WithClock(clock clockwork.Clock) DualOption {
	return func(p *DualPolicy) { p.clock = clock }
}

// WithAppStateSource sets where the foreground-app observer is registered
func WithAppStateSource(src AppStateSource) DualOption {
	return func(p *DualPolicy) { p.apps = src }
}

// NewDualPolicy creates a dual-display policy
func NewDualPolicy(th DualThresholds, allow *AllowList, logger *zap.Logger, opts ...DualOption) *DualPolicy {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &DualPolicy{
		stateManager:    stateManager{logger: logger.Named("fold.dual")},
		th:              th,
		allow:           allow,
		clock:           clockwork.NewRealClock(),
		isHallSwitchApp: true,
		latestHall:      HallOpen,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Policy
func (p *DualPolicy) Name() string { return "dual" }

// SetHallSwitchApp overrides the hall-switch flag
func (p *DualPolicy) SetHallSwitchApp(v bool) {
	p.mu.Lock()
	p.isHallSwitchApp = v
	p.mu.Unlock()
}

// IsHallSwitchApp reports the hall-switch flag
func (p *DualPolicy) IsHallSwitchApp() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isHallSwitchApp
}

// IsTentMode reports whether tent mode is on
func (p *DualPolicy) IsTentMode() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tentMode
}

// Observer returns the foreground-app observer, or nil before the first hall event
func (p *DualPolicy) Observer() *AppStateObserver {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.observer
}

// GetNextFoldState classifies one reading
func (p *DualPolicy) GetNextFoldState(angle float64, hall int) types.FoldStatus {
	state := p.CurrentStatus()
	if angle >= p.th.Expand {
		state = types.FoldStatusExpand
	}
	if angle <= p.th.FoldedLower {
		state = types.FoldStatusFolded
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isHallSwitchApp {
		if angle >= p.th.FoldedUpper && angle <= p.th.HalfFoldMax {
			return types.FoldStatusHalfFold
		}
	} else if angle >= p.th.HalfFoldMin && angle <= p.th.HalfFoldMax {
		return types.FoldStatusHalfFold
	}
	return state
}

// HandleAngleChange implements Policy
func (p *DualPolicy) HandleAngleChange(angle float64, hall int) {
	p.mu.Lock()
	p.latestAngle = angle
	p.cancelPendingLocked()
	tent := p.tentMode
	p.mu.Unlock()

	if tent {
		p.tentModeHandleSensorChange(angle, hall)
		return
	}
	p.handleAngleChangeInTask(angle, hall)
}

// HandleHallChange implements Policy. A hall close at a wide angle is held for
// the debounce window; a fresh angle reading cancels it.
func (p *DualPolicy) HandleHallChange(angle float64, hall int) {
	p.ensureObserver()

	p.mu.Lock()
	p.latestHall = hall
	p.cancelPendingLocked()
	if hall == HallOpen || angle < p.th.HallZeroInvalidPosture {
		p.mu.Unlock()
		p.handleHallChangeInner(angle, hall)
		return
	}
	p.pending = p.clock.AfterFunc(p.th.HallDebounce, func() {
		p.onHallTimeout(angle, hall)
	})
	p.mu.Unlock()

	p.logger.Info("hall closed at wide angle, waiting for angle update",
		zap.Float64("angle", angle),
		zap.Duration("window", p.th.HallDebounce),
	)
}

// HandleTentChange turns tent mode on or off
func (p *DualPolicy) HandleTentChange(on bool, hall int) {
	p.mu.Lock()
	if p.tentMode == on {
		p.mu.Unlock()
		return
	}
	p.tentMode = on
	angle := p.latestAngle
	p.mu.Unlock()

	if on {
		p.handleSensorChange(types.FoldStatusFolded, angle)
		return
	}
	if hall == HallFolded {
		angle = 0
	}
	p.handleSensorChange(p.GetNextFoldState(angle, hall), angle)
}

func (p *DualPolicy) tentModeHandleSensorChange(angle float64, hall int) {
	exitByAngle := angle > p.th.TentExitMax || angle < p.th.TentExitMin
	exitByHall := hall == HallFolded
	if !exitByAngle && !exitByHall {
		return
	}
	p.logger.Info("leaving tent mode",
		zap.Bool("by_angle", exitByAngle),
		zap.Bool("by_hall", exitByHall),
	)
	p.HandleTentChange(false, hall)
}

func (p *DualPolicy) onHallTimeout(angle float64, hall int) {
	p.mu.Lock()
	p.pending = nil
	latestAngle, latestHall := p.latestAngle, p.latestHall
	p.mu.Unlock()

	switch {
	case latestHall == HallOpen:
		p.handleHallChangeInner(angle, hall)
	case floatEqual(latestAngle, angle):
		p.handleHallChangeInner(0, hall)
	case latestAngle < p.th.HallZeroInvalidPosture:
		p.handleAngleChangeInTask(latestAngle, latestHall)
	default:
		p.logger.Info("hall debounce expired without usable angle", zap.Float64("angle", latestAngle))
	}
}

func (p *DualPolicy) handleHallChangeInner(angle float64, hall int) {
	if p.IsTentMode() {
		p.tentModeHandleSensorChange(angle, hall)
		return
	}

	if hall == HallOpen {
		if obs := p.Observer(); obs != nil && p.allow.Contains(obs.ForegroundApp()) {
			p.SetHallSwitchApp(false)
			return
		}
		angle = p.th.HalfFoldMin + 1
	}

	next := p.GetNextFoldState(angle, hall)
	p.updateHallSwitchAppInfo(next)
	p.handleSensorChange(next, angle)
}

func (p *DualPolicy) handleAngleChangeInTask(angle float64, hall int) {
	angle, ok := p.checkUpdateAngle(angle, hall)
	if !ok {
		return
	}
	next := p.GetNextFoldState(angle, hall)
	p.updateHallSwitchAppInfo(next)
	p.handleSensorChange(next, angle)
}

// checkUpdateAngle filters readings that contradict the hall sensor
func (p *DualPolicy) checkUpdateAngle(angle float64, hall int) (float64, bool) {
	if angle <= p.th.Folded && hall == HallOpen {
		return angle, false
	}
	if angle >= p.th.HallZeroInvalidPosture && hall == HallFolded {
		return angle, false
	}
	if angle < 0 {
		return angle, false
	}
	if hall == HallFolded {
		return 0, true
	}
	return angle, true
}

func (p *DualPolicy) updateHallSwitchAppInfo(status types.FoldStatus) {
	if status == types.FoldStatusExpand || status == types.FoldStatusHalfFold {
		p.SetHallSwitchApp(true)
	}
}

// ensureObserver registers the foreground-app observer on the first hall event
func (p *DualPolicy) ensureObserver() {
	p.observerOnce.Do(func() {
		obs := NewAppStateObserver()
		if p.apps != nil {
			if err := p.apps.RegisterApplicationStateObserver(obs); err != nil {
				p.logger.Error("register application state observer failed", zap.Error(err))
			}
		}
		p.mu.Lock()
		p.observer = obs
		p.mu.Unlock()
	})
}

func (p *DualPolicy) cancelPendingLocked() {
	if p.pending != nil {
		p.pending.Stop()
		p.pending = nil
	}
}
