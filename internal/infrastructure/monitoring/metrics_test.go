package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewMetrics(reg), reg
}

// sample returns the value of the first series of name whose labels include want
func sample(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			if !hasLabels(m, want) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("metric %s %v not found", name, want)
	return 0
}

func hasLabels(m *dto.Metric, want map[string]string) bool {
	matched := 0
	for _, lp := range m.GetLabel() {
		if v, ok := want[lp.GetName()]; ok && v == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}

func TestNewMetricsRegistersUnderSceneNamespace(t *testing.T) {
	m, reg := newTestMetrics(t)
	m.ObserveEviction()

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
	for _, fam := range families {
		assert.Regexp(t, `^scene_`, fam.GetName())
	}
}

func TestNilRegistererLeavesMetricsUnregistered(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(nil)
		NewMetrics(nil)
	})
}

func TestDirectoryObserver(t *testing.T) {
	m, reg := newTestMetrics(t)

	m.ObserveSessions(3)
	m.ObserveScreens(1)
	m.ObserveEviction()
	m.ObserveEviction()

	assert.Equal(t, 3.0, sample(t, reg, "scene_sessions_live", nil))
	assert.Equal(t, 1.0, sample(t, reg, "scene_screens_live", nil))
	assert.Equal(t, 2.0, sample(t, reg, "scene_background_evictions_total", nil))

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.LiveSessions)
	assert.Equal(t, int64(1), snap.LiveScreens)
	assert.Equal(t, int64(2), snap.Evictions)
}

func TestSessionObserver(t *testing.T) {
	m, reg := newTestMetrics(t)

	m.ObserveTransition(types.StateConnect, types.StateForeground)
	m.ObserveTransition(types.StateConnect, types.StateForeground)
	m.ObserveNotification("lifecycle", 2)

	assert.Equal(t, 2.0, sample(t, reg, "scene_session_transitions_total",
		map[string]string{"from": "CONNECT", "to": "FOREGROUND"}))
	assert.Equal(t, 1.0, sample(t, reg, "scene_listener_notifications_total",
		map[string]string{"capability": "lifecycle"}))
	assert.Equal(t, 1.0, sample(t, reg, "scene_listener_fanout_size",
		map[string]string{"capability": "lifecycle"}))
	assert.Equal(t, int64(2), m.Snapshot().Transitions)
}

func TestFoldObserver(t *testing.T) {
	m, reg := newTestMetrics(t)
	assert.Equal(t, "UNKNOWN", m.Snapshot().FoldStatus)

	m.ObserveFoldStatus(types.FoldStatusHalfFold)
	m.ObserveSensorEvent("posture", true)
	m.ObserveSensorEvent("posture", false)
	m.ObserveSensorEvent("posture", false)

	assert.Equal(t, 3.0, sample(t, reg, "scene_fold_status", nil))
	assert.Equal(t, 1.0, sample(t, reg, "scene_fold_status_changes_total",
		map[string]string{"status": "HALF_FOLD"}))
	assert.Equal(t, 2.0, sample(t, reg, "scene_sensor_events_total",
		map[string]string{"sensor": "posture", "result": "rejected"}))
	assert.Equal(t, "HALF_FOLD", m.Snapshot().FoldStatus)
}

func TestLooperObserver(t *testing.T) {
	m, reg := newTestMetrics(t)

	m.ObserveLooperDepth("scene", 4)
	m.ObserveLooperTask("scene", time.Millisecond, 2*time.Millisecond)

	assert.Equal(t, 4.0, sample(t, reg, "scene_looper_queue_depth", map[string]string{"looper": "scene"}))
	assert.Equal(t, 1.0, sample(t, reg, "scene_looper_tasks_total", map[string]string{"looper": "scene"}))
	assert.Equal(t, 1.0, sample(t, reg, "scene_looper_task_run_seconds", map[string]string{"looper": "scene"}))
}

func TestRecordIPC(t *testing.T) {
	m, reg := newTestMetrics(t)

	m.RecordIPCCall("request_session", nil, time.Millisecond)
	m.RecordIPCCall("activate", types.WSErrorInvalidSession, time.Millisecond)
	m.RecordIPCCall("activate", errors.New("boom"), time.Millisecond)
	m.RecordIPCError("activate", "token")

	assert.Equal(t, 1.0, sample(t, reg, "scene_ipc_calls_total",
		map[string]string{"message": "request_session", "code": "0"}))
	assert.Equal(t, 1.0, sample(t, reg, "scene_ipc_calls_total",
		map[string]string{"message": "activate", "code": "3"}))
	assert.Equal(t, 1.0, sample(t, reg, "scene_ipc_calls_total",
		map[string]string{"message": "activate", "code": "99"}))
	assert.Equal(t, 1.0, sample(t, reg, "scene_ipc_errors_total",
		map[string]string{"message": "activate", "reason": "token"}))

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.IPCCalls)
	assert.Equal(t, int64(1), snap.IPCErrors)
}

func TestCountersAndConnections(t *testing.T) {
	m, reg := newTestMetrics(t)

	m.IncBridgeTimeouts()
	m.IncPluginRetries()
	m.IncWSConnections()
	m.IncWSConnections()
	m.DecWSConnections()
	m.RecordWSMessage("out", "lifecycle")

	assert.Equal(t, 1.0, sample(t, reg, "scene_bridge_timeouts_total", nil))
	assert.Equal(t, 1.0, sample(t, reg, "scene_sensor_plugin_retries_total", nil))
	assert.Equal(t, 1.0, sample(t, reg, "scene_ws_agent_connections", nil))
	assert.Equal(t, 1.0, sample(t, reg, "scene_ws_messages_total",
		map[string]string{"direction": "out", "type": "lifecycle"}))

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.BridgeTimeouts)
	assert.Equal(t, int64(1), snap.ActiveConnections)
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, reg := newTestMetrics(t)

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/sessions/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	for _, path := range []string{"/sessions/1", "/sessions/2", "/missing"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, sample(t, reg, "scene_http_requests_total",
		map[string]string{"method": "GET", "path": "/sessions/:id", "status": "200"}))
	assert.Equal(t, 1.0, sample(t, reg, "scene_http_requests_total",
		map[string]string{"path": "unmatched", "status": "404"}))

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors)
}

func TestTimerRecordsServiceCall(t *testing.T) {
	m, reg := newTestMetrics(t)

	NewTimer(m, "directory", "activate").StopErr(nil)
	NewTimer(m, "directory", "activate").StopErr(types.WSErrorInvalidSession)

	assert.Equal(t, 1.0, sample(t, reg, "scene_service_calls_total",
		map[string]string{"service": "directory", "method": "activate", "status": "success"}))
	assert.Equal(t, 1.0, sample(t, reg, "scene_service_calls_total",
		map[string]string{"service": "directory", "method": "activate", "status": "error"}))
}
