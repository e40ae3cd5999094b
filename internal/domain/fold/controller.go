package fold

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

// StatusSink applies fold and rotation decisions to the screen model
type StatusSink interface {
	OnFoldStatusChanged(status types.FoldStatus) error
	OnRotationChanged(rotation types.Rotation) error
}

// Observer receives fold statistics
type Observer interface {
	ObserveFoldStatus(status types.FoldStatus)
	ObserveSensorEvent(sensor string, accepted bool)
}

// Dump is a point-in-time view of the controller for diagnostics
type Dump struct {
	Policy   string           `json:"policy"`
	Status   types.FoldStatus `json:"status"`
	Name     string           `json:"status_name"`
	Angle    float64          `json:"angle"`
	Hall     int              `json:"hall"`
	Rotation types.Rotation   `json:"rotation"`
	Locked   bool             `json:"locked"`
	History  AngleStats       `json:"history"`
}

// Controller routes sensor events through a Policy and publishes the outcome
type Controller struct {
	policy   Policy
	logger   *zap.Logger
	observer Observer
	history  *AngleHistory
	angleLog rate.Sometimes

	mu       sync.Mutex
	sink     StatusSink
	angle    float64
	hall     int
	rotation types.Rotation
	locked   bool
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithObserver attaches a statistics observer
func WithObserver(o Observer) ControllerOption {
	return func(c *Controller) { c.observer = o }
}

// WithHistorySize sets how many angle samples are kept for dumps
func WithHistorySize(n int) ControllerOption {
	return func(c *Controller) { c.history = NewAngleHistory(n) }
}

// NewController wires policy to sink. sink may be set later with SetSink.
func NewController(policy Policy, sink StatusSink, logger *zap.Logger, opts ...ControllerOption) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		policy:   policy,
		sink:     sink,
		logger:   logger.Named("fold"),
		history:  NewAngleHistory(64),
		angleLog: rate.Sometimes{Interval: time.Second},
		hall:     HallOpen,
	}
	for _, opt := range opts {
		opt(c)
	}
	policy.SetStatusHandler(c.publishStatus)
	return c
}

// SetSink replaces the status sink
func (c *Controller) SetSink(sink StatusSink) {
	c.mu.Lock()
	c.sink = sink
	c.mu.Unlock()
}

// Policy returns the active policy
func (c *Controller) Policy() Policy {
	return c.policy
}

// HandleSensorEvent validates ev and feeds it to the policy. Invalid events are
// dropped and leave the current state untouched.
func (c *Controller) HandleSensorEvent(ev SensorEvent) error {
	err := c.dispatch(ev)
	if c.observer != nil {
		c.observer.ObserveSensorEvent(ev.Type.String(), err == nil)
	}
	if err != nil {
		c.logger.Debug("sensor event dropped", zap.Stringer("sensor", ev.Type), zap.Error(err))
	}
	return err
}

// Callback adapts the controller to the plugin callback signature
func (c *Controller) Callback() SensorCallback {
	return func(sensorType int32, status int32, data []byte) {
		_ = c.HandleSensorEvent(SensorEvent{Type: SensorType(sensorType), Status: status, Data: data})
	}
}

func (c *Controller) dispatch(ev SensorEvent) error {
	switch ev.Type {
	case SensorTypePosture:
		angle, err := ev.Angle()
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.angle = angle
		hall := c.hall
		c.mu.Unlock()

		c.history.Add(angle)
		c.angleLog.Do(func() {
			c.logger.Debug("posture", zap.Float64("angle", angle), zap.Int("hall", hall))
		})
		c.policy.HandleAngleChange(angle, hall)
		return nil

	case SensorTypeHall:
		hall, err := ev.Hall()
		if err != nil {
			return err
		}
		c.mu.Lock()
		changed := c.hall != hall
		c.hall = hall
		angle := c.angle
		c.mu.Unlock()

		if changed {
			c.logger.Info("hall changed", zap.Int("hall", hall), zap.Float64("angle", angle))
		}
		c.policy.HandleHallChange(angle, hall)
		return nil

	case SensorTypeMotion:
		rotation, err := ev.Rotation()
		if err != nil {
			return err
		}
		c.mu.Lock()
		if c.rotation == rotation {
			c.mu.Unlock()
			return nil
		}
		c.rotation = rotation
		sink := c.sink
		c.mu.Unlock()

		if sink == nil {
			c.logger.Info("no screen session for rotation change", zap.Stringer("rotation", rotation))
			return nil
		}
		if err := sink.OnRotationChanged(rotation); err != nil {
			c.logger.Info("rotation change not applied", zap.Error(err))
		}
		return nil

	default:
		return fmt.Errorf("%s: %w", ev.Type, ErrUnknownSensor)
	}
}

// publishStatus is the policy's status handler
func (c *Controller) publishStatus(status types.FoldStatus, angle float64) {
	c.mu.Lock()
	locked := c.locked
	sink := c.sink
	c.mu.Unlock()

	if locked {
		c.logger.Debug("fold status locked, not publishing", zap.Stringer("status", status))
		return
	}
	c.apply(sink, status)
}

func (c *Controller) apply(sink StatusSink, status types.FoldStatus) {
	if c.observer != nil {
		c.observer.ObserveFoldStatus(status)
	}
	if sink == nil {
		c.logger.Info("no screen session for fold status change", zap.Stringer("status", status))
		return
	}
	if err := sink.OnFoldStatusChanged(status); err != nil {
		c.logger.Info("fold status change not applied", zap.Stringer("status", status), zap.Error(err))
	}
}

// LockStatus publishes status and ignores sensor-driven changes until UnlockStatus
func (c *Controller) LockStatus(status types.FoldStatus) {
	c.mu.Lock()
	c.locked = true
	sink := c.sink
	c.mu.Unlock()

	c.logger.Info("fold status locked", zap.Stringer("status", status))
	c.apply(sink, status)
}

// UnlockStatus resumes sensor-driven publishing and republishes the policy's status
func (c *Controller) UnlockStatus() {
	c.mu.Lock()
	c.locked = false
	sink := c.sink
	c.mu.Unlock()

	if status := c.policy.CurrentStatus(); status != types.FoldStatusUnknown {
		c.apply(sink, status)
	}
}

// CurrentStatus returns the policy's fold status
func (c *Controller) CurrentStatus() types.FoldStatus {
	return c.policy.CurrentStatus()
}

// Dump returns the controller state
func (c *Controller) Dump() Dump {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := c.policy.CurrentStatus()
	return Dump{
		Policy:   c.policy.Name(),
		Status:   status,
		Name:     status.String(),
		Angle:    c.angle,
		Hall:     c.hall,
		Rotation: c.rotation,
		Locked:   c.locked,
		History:  c.history.Stats(),
	}
}
