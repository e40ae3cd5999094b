package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "scene"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Directory metrics
	SessionsLive prometheus.Gauge
	ScreensLive  prometheus.Gauge
	Evictions    prometheus.Counter

	// Session lifecycle metrics
	Transitions   *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	Listeners     *prometheus.HistogramVec
	BridgeTimeout prometheus.Counter

	// Fold metrics
	FoldStatus    prometheus.Gauge
	FoldChanges   *prometheus.CounterVec
	SensorEvents  *prometheus.CounterVec
	PluginRetries prometheus.Counter

	// Looper metrics
	LooperDepth *prometheus.GaugeVec
	LooperTasks *prometheus.CounterVec
	LooperWait  *prometheus.HistogramVec
	LooperRun   *prometheus.HistogramVec

	// Service metrics
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec

	// IPC metrics
	IPCCalls    *prometheus.CounterVec
	IPCDuration *prometheus.HistogramVec
	IPCErrors   *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for the JSON API
type Snapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	LiveSessions      int64   `json:"live_sessions"`
	LiveScreens       int64   `json:"live_screens"`
	Transitions       int64   `json:"transitions"`
	Evictions         int64   `json:"evictions"`
	BridgeTimeouts    int64   `json:"bridge_timeouts"`
	FoldStatus        string  `json:"fold_status"`
	IPCCalls          int64   `json:"ipc_calls"`
	IPCErrors         int64   `json:"ipc_errors"`
	ActiveConnections int64   `json:"active_connections"`
	AvgRequestSeconds float64 `json:"avg_request_seconds"`
	UptimeSeconds     float64 `json:"uptime_seconds"`

	totalDuration float64
	requestCount  int64
}

// NewMetrics creates a metrics collector registered with reg.
// A nil registerer leaves the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	durations := []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}
	sizes := []float64{100, 1000, 10000, 100000, 1000000, 10000000}

	m := &Metrics{
		startTime: time.Now(),
		snapshot:  Snapshot{FoldStatus: types.FoldStatusUnknown.String()},

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   durations,
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_size_bytes",
				Help:      "HTTP request size in bytes",
				Buckets:   sizes,
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   sizes,
			},
			[]string{"method", "path"},
		),

		SessionsLive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_live",
			Help:      "Number of sessions held by the directory",
		}),
		ScreensLive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "screens_live",
			Help:      "Number of screens held by the directory",
		}),
		Evictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "background_evictions_total",
			Help:      "Background sessions evicted by the recency cap",
		}),

		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_transitions_total",
				Help:      "Session lifecycle transitions by source and target state",
			},
			[]string{"from", "to"},
		),
		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "listener_notifications_total",
				Help:      "Listener fan-outs by capability",
			},
			[]string{"capability"},
		),
		Listeners: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "listener_fanout_size",
				Help:      "Listeners reached per fan-out",
				Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
			},
			[]string{"capability"},
		),
		BridgeTimeout: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_timeouts_total",
			Help:      "Result waits that returned the default value",
		}),

		FoldStatus: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fold_status",
			Help:      "Current fold status (0 unknown, 1 expand, 2 folded, 3 half folded)",
		}),
		FoldChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fold_status_changes_total",
				Help:      "Fold status changes by new status",
			},
			[]string{"status"},
		),
		SensorEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sensor_events_total",
				Help:      "Sensor readings by sensor and outcome",
			},
			[]string{"sensor", "result"},
		),
		PluginRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_plugin_retries_total",
			Help:      "Sensor plugin load attempts that were retried",
		}),

		LooperDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "looper_queue_depth",
				Help:      "Tasks waiting in the looper queue",
			},
			[]string{"looper"},
		),
		LooperTasks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "looper_tasks_total",
				Help:      "Tasks executed by the looper",
			},
			[]string{"looper"},
		),
		LooperWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "looper_task_wait_seconds",
				Help:      "Time a task spent queued",
				Buckets:   durations,
			},
			[]string{"looper"},
		),
		LooperRun: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "looper_task_run_seconds",
				Help:      "Time a task spent running",
				Buckets:   durations,
			},
			[]string{"looper"},
		),

		ServiceCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "service_calls_total",
				Help:      "Total number of directory operations",
			},
			[]string{"service", "method", "status"},
		),
		ServiceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "service_duration_seconds",
				Help:      "Directory operation duration in seconds",
				Buckets:   durations,
			},
			[]string{"service", "method"},
		),

		IPCCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ipc_calls_total",
				Help:      "IPC transactions by message and result code",
			},
			[]string{"message", "code"},
		),
		IPCDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ipc_duration_seconds",
				Help:      "IPC transaction duration in seconds",
				Buckets:   durations,
			},
			[]string{"message"},
		),
		IPCErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ipc_errors_total",
				Help:      "IPC transactions that failed before dispatch",
			},
			[]string{"message", "reason"},
		),

		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_agent_connections",
			Help:      "Number of connected remote listener agents",
		}),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_messages_total",
				Help:      "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Service uptime in seconds",
	}, func() float64 { return time.Since(m.startTime).Seconds() })

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	m.snapshot.requestCount++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordServiceCall records a directory operation
func (m *Metrics) RecordServiceCall(service, method, status string, duration time.Duration) {
	m.ServiceCalls.WithLabelValues(service, method, status).Inc()
	m.ServiceDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordIPCCall records one completed IPC transaction
func (m *Metrics) RecordIPCCall(message string, err error, duration time.Duration) {
	m.IPCCalls.WithLabelValues(message, strconv.Itoa(int(types.Code(err)))).Inc()
	m.IPCDuration.WithLabelValues(message).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.IPCCalls++
	m.mu.Unlock()
}

// RecordIPCError records a transaction rejected before reaching the directory
func (m *Metrics) RecordIPCError(message, reason string) {
	m.IPCErrors.WithLabelValues(message, reason).Inc()

	m.mu.Lock()
	m.snapshot.IPCErrors++
	m.mu.Unlock()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// IncBridgeTimeouts counts a result wait that fell back to its default
func (m *Metrics) IncBridgeTimeouts() {
	m.BridgeTimeout.Inc()
	m.mu.Lock()
	m.snapshot.BridgeTimeouts++
	m.mu.Unlock()
}

// IncPluginRetries counts a retried sensor plugin load
func (m *Metrics) IncPluginRetries() {
	m.PluginRetries.Inc()
}

// Snapshot returns the current values for the JSON API
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	if s.requestCount > 0 {
		s.AvgRequestSeconds = s.totalDuration / float64(s.requestCount)
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
