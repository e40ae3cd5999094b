package session

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/future"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

// LifecycleListener receives host-side lifecycle notifications
type LifecycleListener interface {
	OnConnect(persistentID int32)
	OnForeground(persistentID int32)
	OnBackground(persistentID int32)
	OnActivation(persistentID int32)
	OnDisconnect(persistentID int32)
}

// StateListener receives client-side state callbacks
type StateListener interface {
	AfterForeground()
	AfterBackground()
	AfterActive()
	AfterInactive(notifyContent bool)
}

// RectListener receives geometry updates
type RectListener interface {
	OnRectChange(persistentID int32, rect types.Rect, reason types.SizeChangeReason)
}

// Observer receives lifecycle statistics
type Observer interface {
	ObserveTransition(from, to types.SessionState)
	ObserveNotification(capability string, listeners int)
}

// Session is one window/scene instance
type Session struct {
	persistentID int32
	info         types.SessionInfo
	surfaceName  string

	mu       sync.RWMutex
	state    types.SessionState // Protected by mu
	rect     types.Rect         // Protected by mu
	screenID uint64             // Protected by mu
	surface  any                // Protected by mu

	lifecycleListeners Registry[LifecycleListener]
	stateListeners     Registry[StateListener]
	rectListeners      Registry[RectListener]

	rectResult     *future.Bridge[types.Rect]
	rotationResult *future.Bridge[types.Rotation]

	logger   *zap.Logger
	observer Observer
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the session logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver attaches a statistics observer
func WithObserver(o Observer) Option {
	return func(s *Session) { s.observer = o }
}

// WithBridgeTimeoutHook is called whenever a result wait times out
func WithBridgeTimeoutHook(fn func()) Option {
	return func(s *Session) {
		s.rectResult = future.New(types.Rect{}, future.WithTimeoutHook(fn))
		s.rotationResult = future.New(types.RotationPortrait, future.WithTimeoutHook(fn))
	}
}

// New creates a session in the DISCONNECT state
func New(persistentID int32, info types.SessionInfo, opts ...Option) *Session {
	s := &Session{
		persistentID:   persistentID,
		info:           info,
		surfaceName:    SurfaceNodeName(info.AbilityName),
		state:          types.StateDisconnect,
		rect:           info.Rect,
		screenID:       info.ScreenID,
		rectResult:     future.New(types.Rect{}),
		rotationResult: future.New(types.RotationPortrait),
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.Int32("persistent_id", persistentID))
	return s
}

// PersistentID returns the directory-assigned identifier
func (s *Session) PersistentID() int32 { return s.persistentID }

// Info returns the creation request
func (s *Session) Info() types.SessionInfo { return s.info }

// SurfaceName returns the render surface node name
func (s *Session) SurfaceName() string { return s.surfaceName }

// OwnerID returns the owning client process
func (s *Session) OwnerID() string { return s.info.OwnerID }

// State returns the current lifecycle state
func (s *Session) State() types.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsSessionValid reports whether the session is visible to external queries
func (s *Session) IsSessionValid() bool {
	return s.State() > types.StateDisconnect
}

// Rect returns the current window rect
func (s *Session) Rect() types.Rect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rect
}

// ScreenID returns the screen the session is shown on
func (s *Session) ScreenID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.screenID
}

// SetScreenID moves the session to another screen
func (s *Session) SetScreenID(screenID uint64) {
	s.mu.Lock()
	s.screenID = screenID
	s.mu.Unlock()
}

// Surface returns the render surface handle
func (s *Session) Surface() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.surface
}

// SetSurface attaches a render surface handle. The session never inspects it.
func (s *Session) SetSurface(surface any) {
	s.mu.Lock()
	s.surface = surface
	s.mu.Unlock()
}

// Snapshot returns a copy of the session's externally visible fields
func (s *Session) Snapshot() types.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return types.SessionSnapshot{
		PersistentID: s.persistentID,
		Name:         s.info.AbilityName,
		SurfaceName:  s.surfaceName,
		BundleName:   s.info.BundleName,
		State:        s.state,
		StateName:    s.state.String(),
		Rect:         s.rect,
		ScreenID:     s.screenID,
		OwnerID:      s.info.OwnerID,
	}
}

// ============================================================================
// Lifecycle
// ============================================================================

// Connect moves DISCONNECT -> CONNECT
func (s *Session) Connect() error {
	if err := s.transition(types.StateConnect); err != nil {
		return err
	}
	s.notifyLifecycle("connect", func(l LifecycleListener) { l.OnConnect(s.persistentID) })
	return nil
}

// Foreground moves CONNECT or BACKGROUND -> FOREGROUND
func (s *Session) Foreground() error {
	if err := s.transition(types.StateForeground); err != nil {
		return err
	}
	s.notifyLifecycle("foreground", func(l LifecycleListener) { l.OnForeground(s.persistentID) })
	s.notifyState("after_foreground", func(l StateListener) { l.AfterForeground() })
	return nil
}

// Activate moves FOREGROUND or INACTIVE -> ACTIVE
func (s *Session) Activate() error {
	if err := s.transition(types.StateActive); err != nil {
		return err
	}
	s.notifyLifecycle("activation", func(l LifecycleListener) { l.OnActivation(s.persistentID) })
	s.notifyState("after_active", func(l StateListener) { l.AfterActive() })
	return nil
}

// Deactivate moves ACTIVE -> INACTIVE. notifyContent is passed through to listeners.
func (s *Session) Deactivate(notifyContent bool) error {
	if err := s.transition(types.StateInactive); err != nil {
		return err
	}
	s.notifyState("after_inactive", func(l StateListener) { l.AfterInactive(notifyContent) })
	return nil
}

// Background moves any connected state -> BACKGROUND
func (s *Session) Background() error {
	if err := s.transition(types.StateBackground); err != nil {
		return err
	}
	s.notifyLifecycle("background", func(l LifecycleListener) { l.OnBackground(s.persistentID) })
	s.notifyState("after_background", func(l StateListener) { l.AfterBackground() })
	return nil
}

// Disconnect moves any state -> DISCONNECT
func (s *Session) Disconnect() error {
	if err := s.transition(types.StateDisconnect); err != nil {
		return err
	}
	s.notifyLifecycle("disconnect", func(l LifecycleListener) { l.OnDisconnect(s.persistentID) })
	return nil
}

func (s *Session) transition(to types.SessionState) error {
	s.mu.Lock()
	from := s.state
	if from == to {
		s.mu.Unlock()
		return fmt.Errorf("session %d already %s: %w", s.persistentID, to, types.WSErrorDoNothing)
	}
	if !CanTransition(from, to) {
		s.mu.Unlock()
		s.logger.Info("rejected state transition",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
		return fmt.Errorf("session %d %s -> %s: %w", s.persistentID, from, to, types.WSErrorInvalidTransition)
	}
	s.state = to
	s.mu.Unlock()

	s.logger.Debug("state transition", zap.Stringer("from", from), zap.Stringer("to", to))
	if s.observer != nil {
		s.observer.ObserveTransition(from, to)
	}
	return nil
}

// ============================================================================
// Listener registration
// ============================================================================

// RegisterLifecycleListener adds a lifecycle listener
func (s *Session) RegisterLifecycleListener(l LifecycleListener) bool {
	return s.lifecycleListeners.Register(l)
}

// UnregisterLifecycleListener removes a lifecycle listener
func (s *Session) UnregisterLifecycleListener(l LifecycleListener) bool {
	return s.lifecycleListeners.Unregister(l)
}

// RegisterStateListener adds a state listener
func (s *Session) RegisterStateListener(l StateListener) bool {
	return s.stateListeners.Register(l)
}

// UnregisterStateListener removes a state listener
func (s *Session) UnregisterStateListener(l StateListener) bool {
	return s.stateListeners.Unregister(l)
}

// RegisterRectListener adds a rect listener
func (s *Session) RegisterRectListener(l RectListener) bool {
	return s.rectListeners.Register(l)
}

// UnregisterRectListener removes a rect listener
func (s *Session) UnregisterRectListener(l RectListener) bool {
	return s.rectListeners.Unregister(l)
}

// ListenerCounts returns registered listeners per capability
func (s *Session) ListenerCounts() map[string]int {
	return map[string]int{
		"lifecycle": s.lifecycleListeners.Len(),
		"state":     s.stateListeners.Len(),
		"rect":      s.rectListeners.Len(),
	}
}

func (s *Session) notifyLifecycle(event string, fn func(LifecycleListener)) {
	n := s.lifecycleListeners.Notify(fn)
	if s.observer != nil {
		s.observer.ObserveNotification(event, n)
	}
}

func (s *Session) notifyState(event string, fn func(StateListener)) {
	n := s.stateListeners.Notify(fn)
	if s.observer != nil {
		s.observer.ObserveNotification(event, n)
	}
}

// ============================================================================
// Geometry
// ============================================================================

// UpdateRect stores rect and notifies rect listeners with reason
func (s *Session) UpdateRect(rect types.Rect, reason types.SizeChangeReason) error {
	s.mu.Lock()
	if s.state <= types.StateDisconnect {
		s.mu.Unlock()
		return fmt.Errorf("session %d update rect: %w", s.persistentID, types.WSErrorInvalidSession)
	}
	s.rect = rect
	s.mu.Unlock()

	s.notifyRect(rect, reason)
	return nil
}

func (s *Session) notifyRect(rect types.Rect, reason types.SizeChangeReason) {
	s.logger.Debug("rect updated", zap.Stringer("rect", rect), zap.Stringer("reason", reason))
	n := s.rectListeners.Notify(func(l RectListener) { l.OnRectChange(s.persistentID, rect, reason) })
	if s.observer != nil {
		s.observer.ObserveNotification("rect_change", n)
	}
}

// OffsetRect shifts the rect by dx, dy in one step and notifies rect listeners
func (s *Session) OffsetRect(dx, dy int32, reason types.SizeChangeReason) error {
	s.mu.Lock()
	if s.state <= types.StateDisconnect {
		s.mu.Unlock()
		return fmt.Errorf("session %d offset rect: %w", s.persistentID, types.WSErrorInvalidSession)
	}
	rect := s.rect.Offset(dx, dy)
	s.rect = rect
	s.mu.Unlock()

	s.notifyRect(rect, reason)
	return nil
}

// NotifyRectResult hands a layout result to whoever waits in WaitRectResult
func (s *Session) NotifyRectResult(rect types.Rect) {
	s.rectResult.SetValue(rect)
}

// WaitRectResult waits for a layout result and yields a zero rect on timeout.
// The bridge is re-armed afterwards.
func (s *Session) WaitRectResult(timeout time.Duration) types.Rect {
	defer s.rectResult.Reset()
	return s.rectResult.GetResult(timeout)
}

// RequestRect proposes rect to rect listeners and waits for the layout answer
// delivered through NotifyRectResult. An answer left over from an earlier
// timed out round is discarded first.
func (s *Session) RequestRect(rect types.Rect, reason types.SizeChangeReason, timeout time.Duration) (types.Rect, error) {
	s.rectResult.Reset()
	if err := s.UpdateRect(rect, reason); err != nil {
		return types.Rect{}, err
	}
	return s.WaitRectResult(timeout), nil
}

// NotifyRotationResult hands a rotation outcome to WaitRotationResult
func (s *Session) NotifyRotationResult(r types.Rotation) {
	s.rotationResult.SetValue(r)
}

// WaitRotationResult waits for a rotation outcome and yields PORTRAIT on timeout
func (s *Session) WaitRotationResult(timeout time.Duration) types.Rotation {
	defer s.rotationResult.Reset()
	return s.rotationResult.GetResult(timeout)
}
