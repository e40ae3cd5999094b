package fold

import (
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

const (
	smallerBoundary = 0
	largerBoundary  = 1
)

// SinglePolicy classifies readings for single-display foldables
type SinglePolicy struct {
	stateManager
	th        SingleThresholds
	largeFold bool

	boundaryMu sync.Mutex
	boundary   int
}

// NewSinglePolicy creates a single-display policy. largeFold enables the
// hall-driven hysteresis bands.
func NewSinglePolicy(th SingleThresholds, largeFold bool, logger *zap.Logger) *SinglePolicy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SinglePolicy{
		stateManager: stateManager{logger: logger.Named("fold.single")},
		th:           th,
		largeFold:    largeFold,
		boundary:     smallerBoundary,
	}
}

// Name implements Policy
func (p *SinglePolicy) Name() string {
	if p.largeFold {
		return "single-large-fold"
	}
	return "single"
}

// HandleAngleChange implements Policy
func (p *SinglePolicy) HandleAngleChange(angle float64, hall int) {
	p.updateBoundary(angle, hall)
	p.handleSensorChange(p.GetNextFoldState(angle, hall), angle)
}

// HandleHallChange implements Policy
func (p *SinglePolicy) HandleHallChange(angle float64, hall int) {
	p.updateBoundary(angle, hall)
	p.handleSensorChange(p.GetNextFoldState(angle, hall), angle)
}

// GetNextFoldState classifies one reading
func (p *SinglePolicy) GetNextFoldState(angle float64, hall int) types.FoldStatus {
	if p.largeFold {
		return p.nextByBoundary(angle, hall)
	}

	if angle < 0 {
		return types.FoldStatusUnknown
	}
	if angle < p.th.HalfFoldMax {
		if hall == HallOpen {
			return types.FoldStatusHalfFold
		}
		return types.FoldStatusFolded
	}
	if hall == HallOpen && angle > p.th.ExpandMin {
		return types.FoldStatusExpand
	}
	return types.FoldStatusFolded
}

// updateBoundary switches to the smaller boundary on a hall close and to the
// larger one once the hinge opens past HalfFoldMin
func (p *SinglePolicy) updateBoundary(angle float64, hall int) {
	if !p.largeFold {
		return
	}

	p.boundaryMu.Lock()
	defer p.boundaryMu.Unlock()

	switch {
	case hall == HallFolded:
		p.boundary = smallerBoundary
	case angle >= p.th.HalfFoldMin:
		p.boundary = largerBoundary
	}
}

func (p *SinglePolicy) nextByBoundary(angle float64, hall int) types.FoldStatus {
	current := p.CurrentStatus()
	if angle < 0 {
		return current
	}

	p.boundaryMu.Lock()
	boundary := p.boundary
	p.boundaryMu.Unlock()

	th := p.th
	if boundary == smallerBoundary {
		switch {
		case angle <= th.OpenHalfFoldedMin && hall == HallFolded:
			return types.FoldStatusFolded
		case angle >= th.OpenHalfFoldedMin+th.HalfFoldedBuffer && hall == HallFolded:
			return types.FoldStatusHalfFold
		case angle <= th.ExpandMin-th.HalfFoldedBuffer && hall == HallOpen:
			return types.FoldStatusHalfFold
		case angle >= th.ExpandMin:
			return types.FoldStatusExpand
		}
		return holdOrHalfFold(current)
	}

	switch {
	case hall == HallOpen && floatEqual(angle, th.OpenHalfFoldedMin):
		return current
	case angle <= th.CloseHalfFoldedMin:
		return types.FoldStatusFolded
	case angle <= th.ExpandMin-th.HalfFoldedBuffer && angle > th.CloseHalfFoldedMin+th.HalfFoldedBuffer:
		return types.FoldStatusHalfFold
	case angle >= th.ExpandMin:
		return types.FoldStatusExpand
	}
	return holdOrHalfFold(current)
}

// holdOrHalfFold keeps the current status inside a dead band
func holdOrHalfFold(current types.FoldStatus) types.FoldStatus {
	if current == types.FoldStatusUnknown {
		return types.FoldStatusHalfFold
	}
	return current
}

func floatEqual(a, b float64) bool {
	d := a - b
	return d < 1e-3 && d > -1e-3
}
