package directory

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/SceneOS/backend/internal/domain/screen"
	"github.com/GriffinCanCode/SceneOS/backend/internal/domain/session"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

// AddScreen registers a connected display
func (m *Manager) AddScreen(id uint64, name string, property types.ScreenProperty) (*screen.Screen, error) {
	m.mu.Lock()
	if _, ok := m.screens[id]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("screen %d already connected: %w", id, types.WSErrorInvalidParam)
	}
	scr := screen.New(id, name, property)
	m.screens[id] = scr
	live := len(m.screens)
	m.mu.Unlock()

	m.logger.Info("screen connected", zap.Uint64("screen_id", id), zap.String("name", name))
	if m.observer != nil {
		m.observer.ObserveScreens(live)
	}
	return scr, nil
}

// RemoveScreen forgets a disconnected display
func (m *Manager) RemoveScreen(id uint64) error {
	m.mu.Lock()
	if _, ok := m.screens[id]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("screen %d not found: %w", id, types.WSErrorDoNothing)
	}
	delete(m.screens, id)
	live := len(m.screens)
	m.mu.Unlock()

	m.logger.Info("screen disconnected", zap.Uint64("screen_id", id))
	if m.observer != nil {
		m.observer.ObserveScreens(live)
	}
	return nil
}

// GetScreen looks up a screen
func (m *Manager) GetScreen(id uint64) (*screen.Screen, error) {
	m.mu.RLock()
	scr, ok := m.screens[id]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("screen %d: %w", id, types.WSErrorInvalidParam)
	}
	return scr, nil
}

// Screens returns snapshots of every screen ordered by identifier
func (m *Manager) Screens() []types.ScreenSnapshot {
	m.mu.RLock()
	list := make([]*screen.Screen, 0, len(m.screens))
	for _, scr := range m.screens {
		list = append(list, scr)
	}
	m.mu.RUnlock()

	out := make([]types.ScreenSnapshot, 0, len(list))
	for _, scr := range list {
		out = append(out, scr.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetScreenRelativePosition moves a screen in global space and shifts the
// rectangle of every session bound to it by the same offset. Listeners see
// ReasonScreenRelativePositionChange.
func (m *Manager) SetScreenRelativePosition(id uint64, x, y int32) error {
	scr, err := m.GetScreen(id)
	if err != nil {
		return err
	}

	dx, dy, changed := scr.SetRelativePosition(x, y)
	if !changed {
		return nil
	}

	m.logger.Info("screen relative position changed",
		zap.Uint64("screen_id", id),
		zap.Int32("x", x),
		zap.Int32("y", y),
	)

	for _, s := range m.sessionsOnScreen(id) {
		if s == nil || !s.IsSessionValid() {
			continue
		}
		if err := s.OffsetRect(dx, dy, types.ReasonScreenRelativePositionChange); err != nil {
			m.logger.Debug("skip rect update", zap.Int32("persistent_id", s.PersistentID()), zap.Error(err))
		}
	}
	return nil
}

// SetScreenRotation rotates a screen and hands the outcome to every session on it
func (m *Manager) SetScreenRotation(id uint64, rotation types.Rotation) error {
	if rotation < types.RotationPortrait || rotation >= types.RotationInvalid {
		return fmt.Errorf("rotation %d: %w", rotation, types.WSErrorInvalidParam)
	}
	scr, err := m.GetScreen(id)
	if err != nil {
		return err
	}
	if !scr.SetRotation(rotation) {
		return nil
	}

	m.logger.Info("screen rotated", zap.Uint64("screen_id", id), zap.Stringer("rotation", rotation))
	for _, s := range m.sessionsOnScreen(id) {
		s.NotifyRotationResult(rotation)
	}
	return nil
}

// OnFoldStatusChanged applies a fold decision to the default screen
func (m *Manager) OnFoldStatusChanged(status types.FoldStatus) error {
	scr, err := m.GetScreen(m.defaultScreen)
	if err != nil {
		return fmt.Errorf("no screen for fold status: %w", types.WSErrorNullError)
	}
	if scr.SetFoldStatus(status) {
		m.logger.Info("screen fold status changed",
			zap.Uint64("screen_id", scr.ID()),
			zap.Stringer("status", status),
			zap.Stringer("display_mode", types.DisplayModeFor(status)),
		)
	}
	return nil
}

// OnRotationChanged applies a sensor rotation to the default screen
func (m *Manager) OnRotationChanged(rotation types.Rotation) error {
	if _, err := m.GetScreen(m.defaultScreen); err != nil {
		return fmt.Errorf("no screen for rotation: %w", types.WSErrorNullError)
	}
	return m.SetScreenRotation(m.defaultScreen, rotation)
}

func (m *Manager) sessionsOnScreen(id uint64) []*session.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*session.Session
	for _, s := range m.sessions {
		if s.ScreenID() == id {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PersistentID() < out[j].PersistentID() })
	return out
}
