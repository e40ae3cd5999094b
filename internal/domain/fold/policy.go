package fold

import (
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

// StatusHandler receives every fold status change
type StatusHandler func(status types.FoldStatus, angle float64)

// Policy classifies sensor readings for one device family
type Policy interface {
	Name() string
	HandleAngleChange(angle float64, hall int)
	HandleHallChange(angle float64, hall int)
	CurrentStatus() types.FoldStatus
	SetStatusHandler(h StatusHandler)
}

// stateManager holds the current status shared by all policies
type stateManager struct {
	mu      sync.Mutex
	current types.FoldStatus
	handler StatusHandler
	logger  *zap.Logger
}

func (m *stateManager) CurrentStatus() types.FoldStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *stateManager) SetStatusHandler(h StatusHandler) {
	m.mu.Lock()
	m.handler = h
	m.mu.Unlock()
}

// handleSensorChange records next and tells the handler when it differs from the current status
func (m *stateManager) handleSensorChange(next types.FoldStatus, angle float64) {
	if next == types.FoldStatusUnknown {
		m.logger.Debug("fold status unknown, keeping current", zap.Float64("angle", angle))
		return
	}

	m.mu.Lock()
	if next == m.current {
		m.mu.Unlock()
		return
	}
	prev := m.current
	m.current = next
	handler := m.handler
	m.mu.Unlock()

	m.logger.Info("fold status changed",
		zap.Stringer("from", prev),
		zap.Stringer("to", next),
		zap.Float64("angle", angle),
	)
	if handler != nil {
		handler(next, angle)
	}
}
