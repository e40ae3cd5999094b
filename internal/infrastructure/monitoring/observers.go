package monitoring

import (
	"time"

	"github.com/GriffinCanCode/SceneOS/backend/internal/domain/directory"
	"github.com/GriffinCanCode/SceneOS/backend/internal/domain/fold"
	"github.com/GriffinCanCode/SceneOS/backend/internal/domain/session"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/looper"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

var (
	_ looper.Observer    = (*Metrics)(nil)
	_ session.Observer   = (*Metrics)(nil)
	_ fold.Observer      = (*Metrics)(nil)
	_ directory.Observer = (*Metrics)(nil)
)

// ObserveLooperDepth implements looper.Observer
func (m *Metrics) ObserveLooperDepth(name string, depth int) {
	m.LooperDepth.WithLabelValues(name).Set(float64(depth))
}

// ObserveLooperTask implements looper.Observer
func (m *Metrics) ObserveLooperTask(name string, wait, run time.Duration) {
	m.LooperTasks.WithLabelValues(name).Inc()
	m.LooperWait.WithLabelValues(name).Observe(wait.Seconds())
	m.LooperRun.WithLabelValues(name).Observe(run.Seconds())
}

// ObserveTransition implements session.Observer
func (m *Metrics) ObserveTransition(from, to types.SessionState) {
	m.Transitions.WithLabelValues(from.String(), to.String()).Inc()
	m.mu.Lock()
	m.snapshot.Transitions++
	m.mu.Unlock()
}

// ObserveNotification implements session.Observer
func (m *Metrics) ObserveNotification(capability string, listeners int) {
	m.Notifications.WithLabelValues(capability).Inc()
	m.Listeners.WithLabelValues(capability).Observe(float64(listeners))
}

// ObserveFoldStatus implements fold.Observer
func (m *Metrics) ObserveFoldStatus(status types.FoldStatus) {
	m.FoldStatus.Set(float64(status))
	m.FoldChanges.WithLabelValues(status.String()).Inc()
	m.mu.Lock()
	m.snapshot.FoldStatus = status.String()
	m.mu.Unlock()
}

// ObserveSensorEvent implements fold.Observer
func (m *Metrics) ObserveSensorEvent(sensor string, accepted bool) {
	result := "accepted"
	if !accepted {
		result = "rejected"
	}
	m.SensorEvents.WithLabelValues(sensor, result).Inc()
}

// ObserveSessions implements directory.Observer
func (m *Metrics) ObserveSessions(live int) {
	m.SessionsLive.Set(float64(live))
	m.mu.Lock()
	m.snapshot.LiveSessions = int64(live)
	m.mu.Unlock()
}

// ObserveScreens implements directory.Observer
func (m *Metrics) ObserveScreens(live int) {
	m.ScreensLive.Set(float64(live))
	m.mu.Lock()
	m.snapshot.LiveScreens = int64(live)
	m.mu.Unlock()
}

// ObserveEviction implements directory.Observer
func (m *Metrics) ObserveEviction() {
	m.Evictions.Inc()
	m.mu.Lock()
	m.snapshot.Evictions++
	m.mu.Unlock()
}
