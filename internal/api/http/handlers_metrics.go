package http

import (
	"github.com/GriffinCanCode/SceneOS/backend/internal/infrastructure/monitoring"
)

// HandlerMetrics wraps handlers with metrics tracking
type HandlerMetrics struct {
	metrics *monitoring.Metrics
}

// NewHandlerMetrics creates a metrics wrapper
func NewHandlerMetrics(metrics *monitoring.Metrics) *HandlerMetrics {
	return &HandlerMetrics{metrics: metrics}
}

func (hm *HandlerMetrics) track(service, operation string) func(error) {
	if hm == nil || hm.metrics == nil {
		return func(error) {}
	}
	timer := monitoring.NewTimer(hm.metrics, service, operation)
	return timer.StopErr
}

// TrackDirectoryOperation tracks session and screen operations
func (hm *HandlerMetrics) TrackDirectoryOperation(operation string) func(error) {
	return hm.track("directory", operation)
}

// TrackFoldOperation tracks fold engine operations
func (hm *HandlerMetrics) TrackFoldOperation(operation string) func(error) {
	return hm.track("fold", operation)
}

// TrackStorageOperation tracks key/value store operations
func (hm *HandlerMetrics) TrackStorageOperation(operation string) func(error) {
	return hm.track("storage", operation)
}
