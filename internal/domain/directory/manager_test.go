package directory

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/SceneOS/backend/internal/domain/fold"
	"github.com/GriffinCanCode/SceneOS/backend/internal/domain/session"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/looper"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

type mockRectListener struct {
	mock.Mock
}

func (m *mockRectListener) OnRectChange(id int32, rect types.Rect, reason types.SizeChangeReason) {
	m.Called(id, rect, reason)
}

type countingObserver struct {
	mu        sync.Mutex
	sessions  int
	screens   int
	evictions int
}

func (o *countingObserver) ObserveSessions(n int) { o.mu.Lock(); o.sessions = n; o.mu.Unlock() }
func (o *countingObserver) ObserveScreens(n int)  { o.mu.Lock(); o.screens = n; o.mu.Unlock() }
func (o *countingObserver) ObserveEviction()      { o.mu.Lock(); o.evictions++; o.mu.Unlock() }

func info(bundle string) types.SessionInfo {
	return types.SessionInfo{BundleName: bundle, AbilityName: bundle + ".MainAbility"}
}

// activeSession creates a session and drives it to ACTIVE
func activeSession(t *testing.T, m *Manager, si types.SessionInfo) *session.Session {
	t.Helper()
	s := m.RequestSession(si)
	require.NoError(t, s.Connect())
	require.NoError(t, m.RequestActivation(s))
	return s
}

func TestGenSessionID(t *testing.T) {
	m := NewManager(WithSalt(1000))

	prev := m.GenSessionID()
	assert.Equal(t, int32(1001), prev)
	for i := 0; i < 100; i++ {
		next := m.GenSessionID()
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestRequestSession(t *testing.T) {
	obs := &countingObserver{}
	m := NewManager(WithObserver(obs))

	s := m.RequestSession(info("com.example.notes"))
	assert.Equal(t, types.StateDisconnect, s.State())
	assert.False(t, s.IsSessionValid())

	got, err := m.GetSession(s.PersistentID())
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, m.SessionCount())
	assert.Equal(t, 1, obs.sessions)

	_, err = m.GetSession(999)
	assert.ErrorIs(t, err, types.WSErrorInvalidSession)
}

func TestNullSessionRequests(t *testing.T) {
	m := NewManager()

	assert.ErrorIs(t, m.RequestActivation(nil), types.WSErrorNullError)
	assert.ErrorIs(t, m.RequestForeground(nil), types.WSErrorNullError)
	assert.ErrorIs(t, m.RequestBackground(nil), types.WSErrorNullError)
	assert.ErrorIs(t, m.RequestDestruction(nil), types.WSErrorNullError)
	assert.ErrorIs(t, m.RegisterApplicationStateObserver(nil), types.WSErrorNullError)
}

func TestRequestsOnForeignSession(t *testing.T) {
	m := NewManager()
	other := NewManager().RequestSession(info("com.example.other"))

	assert.ErrorIs(t, m.RequestActivation(other), types.WSErrorInvalidSession)
	assert.ErrorIs(t, m.RequestBackground(other), types.WSErrorInvalidSession)
	assert.ErrorIs(t, m.RequestDestruction(other), types.WSErrorDoNothing)
}

func TestRequestActivation(t *testing.T) {
	m := NewManager()
	s := m.RequestSession(info("com.example.notes"))

	assert.ErrorIs(t, m.RequestActivation(s), types.WSErrorInvalidTransition, "disconnected session cannot activate")

	require.NoError(t, s.Connect())
	require.NoError(t, m.RequestActivation(s))
	assert.Equal(t, types.StateActive, s.State())

	err := m.RequestActivation(s)
	assert.ErrorIs(t, err, types.WSErrorDoNothing)
	assert.True(t, types.IsNoOp(err))

	require.NoError(t, s.Deactivate(false))
	require.NoError(t, m.RequestActivation(s))
	assert.Equal(t, types.StateActive, s.State())
}

func TestRequestDestructionIsIdempotent(t *testing.T) {
	m := NewManager()
	s := activeSession(t, m, info("com.example.notes"))
	keep := m.RequestSession(info("com.example.keep"))

	require.NoError(t, m.RequestDestruction(s))
	assert.Equal(t, types.StateDisconnect, s.State())
	assert.Equal(t, 1, m.SessionCount())

	err := m.RequestDestruction(s)
	assert.ErrorIs(t, err, types.WSErrorDoNothing)
	assert.Equal(t, 1, m.SessionCount())

	assert.ErrorIs(t, m.RequestDestructionByID(s.PersistentID()), types.WSErrorDoNothing)
	_, err = m.GetSession(keep.PersistentID())
	assert.NoError(t, err)
}

func TestBackgroundCapEvictsLeastRecent(t *testing.T) {
	obs := &countingObserver{}
	m := NewManager(WithMaxBackground(2), WithObserver(obs))

	s1 := activeSession(t, m, info("com.example.one"))
	s2 := activeSession(t, m, info("com.example.two"))
	s3 := activeSession(t, m, info("com.example.three"))

	require.NoError(t, m.RequestBackground(s1))
	require.NoError(t, m.RequestBackground(s2))
	assert.Equal(t, 3, m.SessionCount())

	require.NoError(t, m.RequestBackground(s3))
	assert.Equal(t, 2, m.SessionCount())
	assert.Equal(t, []int32{s3.PersistentID(), s2.PersistentID()}, m.BackgroundSessions())
	assert.Equal(t, types.StateDisconnect, s1.State())
	assert.Equal(t, 1, obs.evictions)

	// foregrounding takes a session out of the cap
	require.NoError(t, m.RequestForeground(s2))
	assert.Equal(t, []int32{s3.PersistentID()}, m.BackgroundSessions())
}

func TestBackgroundEvictionRunsOnLooper(t *testing.T) {
	l := looper.New("directory-test")
	require.NoError(t, l.Start())
	defer l.Stop()

	m := NewManager(WithMaxBackground(1), WithLooper(l))
	s1 := activeSession(t, m, info("com.example.one"))
	s2 := activeSession(t, m, info("com.example.two"))

	require.NoError(t, m.RequestBackground(s1))
	require.NoError(t, m.RequestBackground(s2))

	require.Eventually(t, func() bool { return m.SessionCount() == 1 }, time.Second, 5*time.Millisecond)
	_, err := m.GetSession(s1.PersistentID())
	assert.ErrorIs(t, err, types.WSErrorInvalidSession)
}

func TestEvictedSessionBroughtBackSurvives(t *testing.T) {
	l := looper.New("directory-test")
	m := NewManager(WithMaxBackground(1), WithLooper(l))

	s1 := activeSession(t, m, info("com.example.one"))
	s2 := activeSession(t, m, info("com.example.two"))
	require.NoError(t, m.RequestBackground(s1))
	require.NoError(t, m.RequestBackground(s2))
	require.Equal(t, 1, l.Pending(), "eviction of s1 is queued")

	require.NoError(t, m.RequestActivation(s1))

	require.NoError(t, l.Start())
	defer l.Stop()
	require.Eventually(t, func() bool { return l.Pending() == 0 && l.Executed() == 1 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, types.StateActive, s1.State())
	_, err := m.GetSession(s1.PersistentID())
	assert.NoError(t, err)
	assert.Equal(t, 2, m.SessionCount())
}

func TestEvictedSessionBackgroundedAgainSurvives(t *testing.T) {
	l := looper.New("directory-test")
	m := NewManager(WithMaxBackground(2), WithLooper(l))

	s1 := activeSession(t, m, info("com.example.one"))
	s2 := activeSession(t, m, info("com.example.two"))
	s3 := activeSession(t, m, info("com.example.three"))
	require.NoError(t, m.RequestBackground(s1))
	require.NoError(t, m.RequestBackground(s2))
	require.NoError(t, m.RequestBackground(s3))

	// s1 returns and goes back, pushing s2 out instead
	require.NoError(t, m.RequestForeground(s1))
	require.NoError(t, m.RequestBackground(s1))

	require.NoError(t, l.Start())
	defer l.Stop()
	require.Eventually(t, func() bool { return l.Pending() == 0 && l.Executed() == 2 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, types.StateBackground, s1.State())
	assert.Equal(t, types.StateDisconnect, s2.State())
	assert.Equal(t, 2, m.SessionCount())
}

func TestValidSessionQueries(t *testing.T) {
	m := NewManager()
	idle := m.RequestSession(info("com.example.idle"))
	live := activeSession(t, m, info("com.example.live"))

	_, err := m.GetValidSession(idle.PersistentID())
	assert.ErrorIs(t, err, types.WSErrorInvalidSession)
	_, err = m.GetSession(idle.PersistentID())
	assert.NoError(t, err, "raw lookup still sees the session")

	got, err := m.GetValidSession(live.PersistentID())
	require.NoError(t, err)
	assert.Same(t, live, got)

	valid := m.ValidSessions()
	require.Len(t, valid, 1)
	assert.Equal(t, live.PersistentID(), valid[0].PersistentID)
	assert.Len(t, m.Sessions(), 2)

	_, err = m.GetValidSession(999)
	assert.ErrorIs(t, err, types.WSErrorInvalidSession)
}

type recordingStateListener struct {
	mu       sync.Mutex
	inactive []bool
}

func (l *recordingStateListener) AfterForeground() {}
func (l *recordingStateListener) AfterBackground() {}
func (l *recordingStateListener) AfterActive()     {}
func (l *recordingStateListener) AfterInactive(notifyContent bool) {
	l.mu.Lock()
	l.inactive = append(l.inactive, notifyContent)
	l.mu.Unlock()
}

func TestRequestDeactivation(t *testing.T) {
	m := NewManager()
	assert.ErrorIs(t, m.RequestDeactivation(nil, false), types.WSErrorNullError)

	s := activeSession(t, m, info("com.example.notes"))
	listener := &recordingStateListener{}
	require.True(t, s.RegisterStateListener(listener))

	require.NoError(t, m.RequestDeactivation(s, true))
	assert.Equal(t, types.StateInactive, s.State())
	assert.Equal(t, []bool{true}, listener.inactive)

	assert.ErrorIs(t, m.RequestDeactivation(s, true), types.WSErrorDoNothing)

	other := NewManager().RequestSession(info("com.example.other"))
	assert.ErrorIs(t, m.RequestDeactivation(other, false), types.WSErrorInvalidSession)
}

type answeringRectListener struct {
	sess   *session.Session
	answer types.Rect
}

func (l *answeringRectListener) OnRectChange(int32, types.Rect, types.SizeChangeReason) {
	go l.sess.NotifyRectResult(l.answer)
}

func TestRequestLayout(t *testing.T) {
	m := NewManager(WithResultTimeout(time.Second))
	s := activeSession(t, m, info("com.example.notes"))

	answer := types.Rect{X: 0, Y: 100, Width: 1080, Height: 1200}
	require.True(t, s.RegisterRectListener(&answeringRectListener{sess: s, answer: answer}))

	got, err := m.RequestLayout(s, types.Rect{Width: 1080, Height: 1300})
	require.NoError(t, err)
	assert.Equal(t, answer, got)
	assert.Equal(t, types.Rect{Width: 1080, Height: 1300}, s.Rect())
}

func TestRequestLayoutTimesOutToZeroRect(t *testing.T) {
	m := NewManager(WithResultTimeout(20 * time.Millisecond))
	s := activeSession(t, m, info("com.example.notes"))

	got, err := m.RequestLayout(s, types.Rect{Width: 10, Height: 10})
	require.NoError(t, err)
	assert.Equal(t, types.Rect{}, got)

	idle := m.RequestSession(info("com.example.idle"))
	_, err = m.RequestLayout(idle, types.Rect{Width: 10, Height: 10})
	assert.ErrorIs(t, err, types.WSErrorInvalidSession)
	_, err = m.RequestLayout(nil, types.Rect{})
	assert.ErrorIs(t, err, types.WSErrorNullError)
}

func TestWaitRotation(t *testing.T) {
	m := NewManager(WithResultTimeout(20 * time.Millisecond))
	_, err := m.AddScreen(0, "internal", types.ScreenProperty{Width: 1080, Height: 2340})
	require.NoError(t, err)

	s := activeSession(t, m, info("com.example.notes"))
	got, err := m.WaitRotation(s)
	require.NoError(t, err)
	assert.Equal(t, types.RotationPortrait, got, "no rotation yields the fail-safe")

	require.NoError(t, m.SetScreenRotation(0, types.RotationLandscapeInverted))
	got, err = m.WaitRotation(s)
	require.NoError(t, err)
	assert.Equal(t, types.RotationLandscapeInverted, got)

	_, err = m.WaitRotation(m.RequestSession(info("com.example.idle")))
	assert.ErrorIs(t, err, types.WSErrorInvalidSession)
}

func TestHandleOwnerDeathOnLooper(t *testing.T) {
	l := looper.New("directory-test")
	require.NoError(t, l.Start())
	defer l.Stop()

	m := NewManager(WithLooper(l), WithResultTimeout(time.Second))
	owned := info("com.example.remote")
	owned.OwnerID = "agt_2"
	activeSession(t, m, owned)
	activeSession(t, m, owned)

	assert.Equal(t, 2, m.HandleOwnerDeath("agt_2"))
	assert.Zero(t, m.SessionCount())
	require.Eventually(t, func() bool { return l.Executed() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHandleOwnerDeath(t *testing.T) {
	m := NewManager()
	owned := info("com.example.remote")
	owned.OwnerID = "agt_1"

	activeSession(t, m, owned)
	m.RequestSession(owned)
	activeSession(t, m, info("com.example.local"))

	assert.Equal(t, 2, m.HandleOwnerDeath("agt_1"))
	assert.Equal(t, 1, m.SessionCount())
	assert.Equal(t, 0, m.HandleOwnerDeath("agt_1"))
	assert.Equal(t, 0, m.HandleOwnerDeath(""))
}

func TestScreenLifecycle(t *testing.T) {
	obs := &countingObserver{}
	m := NewManager(WithObserver(obs))

	_, err := m.AddScreen(0, "internal", types.ScreenProperty{Width: 1080, Height: 2340})
	require.NoError(t, err)
	_, err = m.AddScreen(0, "internal", types.ScreenProperty{})
	assert.ErrorIs(t, err, types.WSErrorInvalidParam)
	_, err = m.AddScreen(5, "external", types.ScreenProperty{Width: 1920, Height: 1080})
	require.NoError(t, err)

	screens := m.Screens()
	require.Len(t, screens, 2)
	assert.Equal(t, uint64(0), screens[0].ID)
	assert.Equal(t, 2, obs.screens)

	require.NoError(t, m.RemoveScreen(5))
	assert.ErrorIs(t, m.RemoveScreen(5), types.WSErrorDoNothing)
	_, err = m.GetScreen(5)
	assert.ErrorIs(t, err, types.WSErrorInvalidParam)
}

func TestScreenRelativePositionPropagates(t *testing.T) {
	m := NewManager()
	_, err := m.AddScreen(1, "external", types.ScreenProperty{Width: 1920, Height: 1080})
	require.NoError(t, err)

	si := info("com.example.notes")
	si.ScreenID = 1
	si.Rect = types.Rect{X: 10, Y: 20, Width: 100, Height: 200}
	s := m.RequestSession(si)
	require.NoError(t, s.Connect())

	idle := m.RequestSession(si)

	onOther := info("com.example.other")
	onOther.ScreenID = 2
	other := m.RequestSession(onOther)
	require.NoError(t, other.Connect())

	listener := &mockRectListener{}
	want := types.Rect{X: 110, Y: 70, Width: 100, Height: 200}
	listener.On("OnRectChange", s.PersistentID(), want, types.ReasonScreenRelativePositionChange).Once()
	require.True(t, s.RegisterRectListener(listener))
	require.True(t, idle.RegisterRectListener(listener))
	require.True(t, other.RegisterRectListener(listener))

	require.NoError(t, m.SetScreenRelativePosition(1, 100, 50))
	require.NoError(t, m.SetScreenRelativePosition(1, 100, 50))

	listener.AssertExpectations(t)
	assert.Equal(t, want, s.Rect())
	assert.Equal(t, si.Rect, idle.Rect())

	assert.ErrorIs(t, m.SetScreenRelativePosition(9, 0, 0), types.WSErrorInvalidParam)
}

func TestConcurrentScreenMovesKeepSessionsAligned(t *testing.T) {
	m := NewManager()
	scr, err := m.AddScreen(1, "external", types.ScreenProperty{Width: 1920, Height: 1080})
	require.NoError(t, err)

	si := info("com.example.notes")
	si.ScreenID = 1
	si.Rect = types.Rect{X: 0, Y: 0, Width: 100, Height: 100}
	s := m.RequestSession(si)
	require.NoError(t, s.Connect())

	var wg sync.WaitGroup
	for i := int32(1); i <= 40; i++ {
		wg.Add(1)
		go func(x int32) {
			defer wg.Done()
			assert.NoError(t, m.SetScreenRelativePosition(1, x*10, x))
		}(i)
	}
	wg.Wait()

	x, y := scr.RelativePosition()
	assert.Equal(t, x, s.Rect().X)
	assert.Equal(t, y, s.Rect().Y)
}

func TestFoldSink(t *testing.T) {
	m := NewManager(WithDefaultScreen(0))

	assert.ErrorIs(t, m.OnFoldStatusChanged(types.FoldStatusExpand), types.WSErrorNullError)
	assert.ErrorIs(t, m.OnRotationChanged(types.RotationLandscape), types.WSErrorNullError)

	scr, err := m.AddScreen(0, "internal", types.ScreenProperty{Width: 1080, Height: 2340})
	require.NoError(t, err)
	s := m.RequestSession(info("com.example.notes"))

	require.NoError(t, m.OnFoldStatusChanged(types.FoldStatusHalfFold))
	assert.Equal(t, types.FoldStatusHalfFold, scr.FoldStatus())

	require.NoError(t, m.OnRotationChanged(types.RotationLandscape))
	assert.Equal(t, types.RotationLandscape, scr.Property().Rotation)
	assert.Equal(t, types.RotationLandscape, s.WaitRotationResult(time.Second))

	assert.ErrorIs(t, m.SetScreenRotation(0, types.RotationInvalid), types.WSErrorInvalidParam)
}

func TestApplicationStateObserver(t *testing.T) {
	m := NewManager()
	obs := fold.NewAppStateObserver()
	require.NoError(t, m.RegisterApplicationStateObserver(obs))

	s := activeSession(t, m, info("com.example.reader"))
	assert.Equal(t, "com.example.reader", obs.ForegroundApp())

	require.NoError(t, m.RequestBackground(s))
	assert.Equal(t, "", obs.ForegroundApp())

	m.UnregisterApplicationStateObserver(obs)
	require.NoError(t, m.RequestForeground(s))
	assert.Equal(t, "", obs.ForegroundApp())
}

func TestDualPolicyTracksForegroundApp(t *testing.T) {
	m := NewManager()
	allow, err := fold.NewAllowList([]string{"com.example.*"})
	require.NoError(t, err)
	p := fold.NewDualPolicy(fold.DefaultDualThresholds(), allow, nil, fold.WithAppStateSource(m))

	p.HandleHallChange(30, fold.HallOpen)
	require.True(t, p.IsHallSwitchApp())

	activeSession(t, m, info("com.example.reader"))
	p.HandleHallChange(30, fold.HallOpen)
	assert.False(t, p.IsHallSwitchApp())
}

func TestErrorsCarryCodes(t *testing.T) {
	m := NewManager()
	err := m.RequestDestructionByID(42)

	var code types.WSError
	require.True(t, errors.As(err, &code))
	assert.Equal(t, types.WSErrorDoNothing, code)
}
