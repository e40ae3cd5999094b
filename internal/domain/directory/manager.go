package directory

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/SceneOS/backend/internal/domain/fold"
	"github.com/GriffinCanCode/SceneOS/backend/internal/domain/screen"
	"github.com/GriffinCanCode/SceneOS/backend/internal/domain/session"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/looper"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/lru"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

// Observer receives directory statistics
type Observer interface {
	ObserveSessions(live int)
	ObserveScreens(live int)
	ObserveEviction()
}

// Manager is the authoritative collection of sessions and screens
type Manager struct {
	mu       sync.RWMutex
	sessions map[int32]*session.Session // Protected by mu
	screens  map[uint64]*screen.Screen  // Protected by mu

	salt    int32
	counter atomic.Int32

	background    *lru.Cache
	looper        *looper.Looper
	defaultScreen uint64
	resultTimeout time.Duration

	appObservers session.Registry[*fold.AppStateObserver]

	logger          *zap.Logger
	observer        Observer
	sessionObserver session.Observer
	bridgeTimeout   func()
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithLooper routes deferred work through l
func WithLooper(l *looper.Looper) Option {
	return func(m *Manager) { m.looper = l }
}

// WithSalt sets the process-scoped salt mixed into session identifiers
func WithSalt(salt int32) Option {
	return func(m *Manager) { m.salt = salt }
}

// WithMaxBackground caps how many sessions may sit in BACKGROUND
func WithMaxBackground(n int) Option {
	return func(m *Manager) { m.background = lru.New(n) }
}

// WithDefaultScreen selects the screen that receives fold and rotation changes
func WithDefaultScreen(id uint64) Option {
	return func(m *Manager) { m.defaultScreen = id }
}

// WithResultTimeout sets how long session result waits may block
func WithResultTimeout(d time.Duration) Option {
	return func(m *Manager) { m.resultTimeout = d }
}

// WithObserver attaches directory statistics
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithSessionObserver is passed to every session the directory creates
func WithSessionObserver(o session.Observer) Option {
	return func(m *Manager) { m.sessionObserver = o }
}

// WithBridgeTimeoutHook is passed to every session the directory creates
func WithBridgeTimeoutHook(fn func()) Option {
	return func(m *Manager) { m.bridgeTimeout = fn }
}

// NewManager creates an empty directory
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions:      make(map[int32]*session.Session),
		screens:       make(map[uint64]*screen.Screen),
		background:    lru.New(8),
		resultTimeout: 500 * time.Millisecond,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.Named("directory")
	return m
}

// GenSessionID returns the next persistent identifier. Identifiers are salt
// plus a strictly increasing counter and are never reused by this process.
func (m *Manager) GenSessionID() int32 {
	return m.salt + m.counter.Add(1)
}

// ============================================================================
// Sessions
// ============================================================================

// RequestSession creates a session for info and inserts it in DISCONNECT state
func (m *Manager) RequestSession(info types.SessionInfo) *session.Session {
	opts := []session.Option{session.WithLogger(m.logger)}
	if m.sessionObserver != nil {
		opts = append(opts, session.WithObserver(m.sessionObserver))
	}
	if m.bridgeTimeout != nil {
		opts = append(opts, session.WithBridgeTimeoutHook(m.bridgeTimeout))
	}

	s := session.New(m.GenSessionID(), info, opts...)

	m.mu.Lock()
	m.sessions[s.PersistentID()] = s
	live := len(m.sessions)
	m.mu.Unlock()

	m.logger.Info("session created",
		zap.Int32("persistent_id", s.PersistentID()),
		zap.String("bundle", info.BundleName),
		zap.String("surface", s.SurfaceName()),
	)
	m.observeSessions(live)
	return s
}

// GetSession looks up a session by identifier
func (m *Manager) GetSession(id int32) (*session.Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("session %d: %w", id, types.WSErrorInvalidSession)
	}
	return s, nil
}

// GetValidSession looks up a session that is visible to external queries.
// A session in DISCONNECT is reported as WSErrorInvalidSession.
func (m *Manager) GetValidSession(id int32) (*session.Session, error) {
	s, err := m.GetSession(id)
	if err != nil {
		return nil, err
	}
	if !s.IsSessionValid() {
		return nil, fmt.Errorf("session %d disconnected: %w", id, types.WSErrorInvalidSession)
	}
	return s, nil
}

// Sessions returns snapshots of every session ordered by identifier, disconnected ones included
func (m *Manager) Sessions() []types.SessionSnapshot {
	return m.snapshots(false)
}

// ValidSessions returns snapshots of the sessions visible to external queries
func (m *Manager) ValidSessions() []types.SessionSnapshot {
	return m.snapshots(true)
}

func (m *Manager) snapshots(validOnly bool) []types.SessionSnapshot {
	m.mu.RLock()
	list := make([]*session.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mu.RUnlock()

	out := make([]types.SessionSnapshot, 0, len(list))
	for _, s := range list {
		snap := s.Snapshot()
		if validOnly && snap.State <= types.StateDisconnect {
			continue
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PersistentID < out[j].PersistentID })
	return out
}

// SessionCount returns the number of live sessions
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// RequestActivation brings s to ACTIVE, foregrounding it first when needed
func (m *Manager) RequestActivation(s *session.Session) error {
	if s == nil {
		return fmt.Errorf("request activation: %w", types.WSErrorNullError)
	}
	if !m.contains(s) {
		return fmt.Errorf("request activation %d: %w", s.PersistentID(), types.WSErrorInvalidSession)
	}

	switch s.State() {
	case types.StateActive:
		return fmt.Errorf("session %d already active: %w", s.PersistentID(), types.WSErrorDoNothing)
	case types.StateConnect, types.StateBackground:
		if err := s.Foreground(); err != nil {
			return err
		}
		m.background.Remove(s.PersistentID())
		m.notifyAppState(s.Info().BundleName, fold.AppStateForeground)
	}
	return s.Activate()
}

// RequestForeground moves s to FOREGROUND without activating it
func (m *Manager) RequestForeground(s *session.Session) error {
	if s == nil {
		return fmt.Errorf("request foreground: %w", types.WSErrorNullError)
	}
	if !m.contains(s) {
		return fmt.Errorf("request foreground %d: %w", s.PersistentID(), types.WSErrorInvalidSession)
	}
	if err := s.Foreground(); err != nil {
		return err
	}
	m.background.Remove(s.PersistentID())
	m.notifyAppState(s.Info().BundleName, fold.AppStateForeground)
	return nil
}

// RequestBackground moves s to BACKGROUND. When more sessions are in the
// background than allowed, the least recently backgrounded one is destroyed.
func (m *Manager) RequestBackground(s *session.Session) error {
	if s == nil {
		return fmt.Errorf("request background: %w", types.WSErrorNullError)
	}
	if !m.contains(s) {
		return fmt.Errorf("request background %d: %w", s.PersistentID(), types.WSErrorInvalidSession)
	}
	if err := s.Background(); err != nil {
		return err
	}
	m.notifyAppState(s.Info().BundleName, fold.AppStateBackground)

	if evicted := m.background.Put(s.PersistentID()); evicted != lru.NoEviction {
		m.logger.Info("background cap reached, evicting session", zap.Int32("persistent_id", evicted))
		if m.observer != nil {
			m.observer.ObserveEviction()
		}
		if victim, err := m.GetSession(evicted); err == nil {
			m.post("evict-background", func() { m.reclaim(victim) })
		}
	}
	return nil
}

// reclaim destroys an evicted session unless it left BACKGROUND or was
// backgrounded again after the eviction was queued.
func (m *Manager) reclaim(s *session.Session) {
	id := s.PersistentID()
	if s.State() != types.StateBackground || m.background.Visit(id) {
		m.logger.Debug("evicted session came back, keeping it",
			zap.Int32("persistent_id", id),
			zap.Stringer("state", s.State()),
		)
		return
	}
	if err := m.RequestDestruction(s); err != nil && !types.IsNoOp(err) {
		m.logger.Info("evict background session failed", zap.Int32("persistent_id", id), zap.Error(err))
	}
}

// RequestDeactivation moves an ACTIVE session to INACTIVE. notifyContent is
// handed to state listeners.
func (m *Manager) RequestDeactivation(s *session.Session, notifyContent bool) error {
	if s == nil {
		return fmt.Errorf("request deactivation: %w", types.WSErrorNullError)
	}
	if !m.contains(s) {
		return fmt.Errorf("request deactivation %d: %w", s.PersistentID(), types.WSErrorInvalidSession)
	}
	return s.Deactivate(notifyContent)
}

// RequestLayout proposes rect for s and waits up to the result timeout for
// the client's answer. A missing answer yields a zero rect.
func (m *Manager) RequestLayout(s *session.Session, rect types.Rect) (types.Rect, error) {
	if s == nil {
		return types.Rect{}, fmt.Errorf("request layout: %w", types.WSErrorNullError)
	}
	if !m.contains(s) {
		return types.Rect{}, fmt.Errorf("request layout %d: %w", s.PersistentID(), types.WSErrorInvalidSession)
	}
	return s.RequestRect(rect, types.ReasonResize, m.resultTimeout)
}

// WaitRotation returns the last rotation handed to s, waiting up to the
// result timeout. A missing rotation yields PORTRAIT.
func (m *Manager) WaitRotation(s *session.Session) (types.Rotation, error) {
	if s == nil {
		return types.RotationPortrait, fmt.Errorf("wait rotation: %w", types.WSErrorNullError)
	}
	if !s.IsSessionValid() || !m.contains(s) {
		return types.RotationPortrait, fmt.Errorf("wait rotation %d: %w", s.PersistentID(), types.WSErrorInvalidSession)
	}
	return s.WaitRotationResult(m.resultTimeout), nil
}

// RequestDestruction disconnects s and removes it. A session that is no longer
// in the directory yields WSErrorDoNothing.
func (m *Manager) RequestDestruction(s *session.Session) error {
	if s == nil {
		return fmt.Errorf("request destruction: %w", types.WSErrorNullError)
	}

	m.mu.Lock()
	cur, ok := m.sessions[s.PersistentID()]
	if !ok || cur != s {
		m.mu.Unlock()
		return fmt.Errorf("session %d not found: %w", s.PersistentID(), types.WSErrorDoNothing)
	}
	delete(m.sessions, s.PersistentID())
	live := len(m.sessions)
	m.mu.Unlock()

	m.background.Remove(s.PersistentID())
	if err := s.Disconnect(); err != nil && !types.IsNoOp(err) {
		m.logger.Debug("disconnect on destruction", zap.Int32("persistent_id", s.PersistentID()), zap.Error(err))
	}
	m.notifyAppState(s.Info().BundleName, fold.AppStateBackground)

	m.logger.Info("session destroyed", zap.Int32("persistent_id", s.PersistentID()))
	m.observeSessions(live)
	return nil
}

// RequestDestructionByID destroys the session with id
func (m *Manager) RequestDestructionByID(id int32) error {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("session %d not found: %w", id, types.WSErrorDoNothing)
	}
	return m.RequestDestruction(s)
}

// HandleOwnerDeath destroys every session owned by ownerID and returns how
// many were removed. With a running looper the destruction is serialized with
// other deferred work; it must not be called from a looper task.
func (m *Manager) HandleOwnerDeath(ownerID string) int {
	if ownerID == "" {
		return 0
	}
	removed := call(m, "owner-death", func() int { return m.destroyOwned(ownerID) })
	if removed > 0 {
		m.logger.Info("owner died, sessions destroyed", zap.String("owner", ownerID), zap.Int("count", removed))
	}
	return removed
}

func (m *Manager) destroyOwned(ownerID string) int {
	m.mu.RLock()
	var owned []*session.Session
	for _, s := range m.sessions {
		if s.OwnerID() == ownerID {
			owned = append(owned, s)
		}
	}
	m.mu.RUnlock()

	removed := 0
	for _, s := range owned {
		if err := m.RequestDestruction(s); err == nil {
			removed++
		}
	}
	return removed
}

// BackgroundSessions returns the background LRU from most to least recent
func (m *Manager) BackgroundSessions() []int32 {
	return m.background.Keys()
}

func (m *Manager) contains(s *session.Session) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[s.PersistentID()] == s
}

// post runs fn on the looper, or inline when no looper accepts it
func (m *Manager) post(name string, fn func()) {
	if m.looper != nil && m.looper.PostTask(fn, name) {
		return
	}
	fn()
}

// call runs fn on a running looper and waits up to the result timeout for its
// value. Without one, fn runs inline.
func call[T any](m *Manager, name string, fn func() T) T {
	if m.looper == nil || !m.looper.Running() {
		return fn()
	}
	return looper.ScheduleTask(m.looper, fn, name).GetResult(m.resultTimeout)
}

func (m *Manager) observeSessions(live int) {
	if m.observer != nil {
		m.observer.ObserveSessions(live)
	}
}

// ============================================================================
// Application state
// ============================================================================

// RegisterApplicationStateObserver subscribes o to foreground and background changes
func (m *Manager) RegisterApplicationStateObserver(o *fold.AppStateObserver) error {
	if o == nil {
		return fmt.Errorf("register application state observer: %w", types.WSErrorNullError)
	}
	m.appObservers.Register(o)
	return nil
}

// UnregisterApplicationStateObserver removes o
func (m *Manager) UnregisterApplicationStateObserver(o *fold.AppStateObserver) {
	m.appObservers.Unregister(o)
}

func (m *Manager) notifyAppState(bundle string, state fold.AppState) {
	if bundle == "" {
		return
	}
	m.appObservers.Notify(func(o *fold.AppStateObserver) {
		o.OnForegroundApplicationChanged(bundle, state)
	})
}
