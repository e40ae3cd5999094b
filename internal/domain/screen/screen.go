// Package screen models a physical or virtual display.
package screen

import (
	"sync"

	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

// Screen is a display surface with geometry, rotation and fold classification
type Screen struct {
	id   uint64
	name string

	mu         sync.RWMutex
	property   types.ScreenProperty
	foldStatus types.FoldStatus
}

// New creates a screen
func New(id uint64, name string, property types.ScreenProperty) *Screen {
	if property.Rotation < types.RotationPortrait || property.Rotation >= types.RotationInvalid {
		property.Rotation = types.RotationPortrait
	}
	return &Screen{id: id, name: name, property: property}
}

// ID returns the screen identifier
func (s *Screen) ID() uint64 { return s.id }

// Name returns the screen name
func (s *Screen) Name() string { return s.name }

// Property returns a copy of the screen geometry
func (s *Screen) Property() types.ScreenProperty {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.property
}

// SetRotation updates the rotation. Invalid values are ignored and reported as unchanged.
func (s *Screen) SetRotation(r types.Rotation) bool {
	if r < types.RotationPortrait || r >= types.RotationInvalid {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.property.Rotation == r {
		return false
	}
	s.property.Rotation = r
	s.property.Width, s.property.Height = orient(s.property.Width, s.property.Height, r)
	return true
}

// SetRelativePosition moves the screen in global space. It returns the
// displacement from the previous offset, read under the same lock, and
// whether the position changed at all.
func (s *Screen) SetRelativePosition(x, y int32) (dx, dy int32, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.property.OffsetX == x && s.property.OffsetY == y {
		return 0, 0, false
	}
	dx, dy = x-s.property.OffsetX, y-s.property.OffsetY
	s.property.OffsetX, s.property.OffsetY = x, y
	return dx, dy, true
}

// RelativePosition returns the screen offset in global space
func (s *Screen) RelativePosition() (int32, int32) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.property.OffsetX, s.property.OffsetY
}

// SetFoldStatus records the latest fold status and reports whether it changed
func (s *Screen) SetFoldStatus(status types.FoldStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.foldStatus == status {
		return false
	}
	s.foldStatus = status
	return true
}

// FoldStatus returns the last recorded fold status
func (s *Screen) FoldStatus() types.FoldStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.foldStatus
}

// DisplayMode returns the display mode implied by the fold status
func (s *Screen) DisplayMode() types.FoldDisplayMode {
	return types.DisplayModeFor(s.FoldStatus())
}

// Snapshot returns a copy of the screen state
func (s *Screen) Snapshot() types.ScreenSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return types.ScreenSnapshot{
		ID:          s.id,
		Name:        s.name,
		Property:    s.property,
		FoldStatus:  s.foldStatus,
		DisplayMode: types.DisplayModeFor(s.foldStatus),
	}
}

// orient returns width and height so that landscape rotations are wider than tall
func orient(w, h uint32, r types.Rotation) (uint32, uint32) {
	landscape := r == types.RotationLandscape || r == types.RotationLandscapeInverted
	if landscape != (w > h) && w != h {
		return h, w
	}
	return w, h
}
