package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/SceneOS/backend/internal/domain/fold"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

// SensorRequest is the body of POST /fold/sensor. The field read depends on Sensor.
type SensorRequest struct {
	Sensor  string   `json:"sensor" binding:"required,oneof=posture hall motion"`
	Angle   *float32 `json:"angle,omitempty"`
	Hall    *uint32  `json:"hall,omitempty"`
	Degrees *int32   `json:"degrees,omitempty"`
	Status  int32    `json:"status"`
}

func (r SensorRequest) event() (fold.SensorEvent, error) {
	var ev fold.SensorEvent
	switch r.Sensor {
	case "posture":
		if r.Angle == nil {
			return ev, fmt.Errorf("posture reading needs angle: %w", types.WSErrorInvalidParam)
		}
		ev = fold.PostureEvent(*r.Angle)
	case "hall":
		if r.Hall == nil {
			return ev, fmt.Errorf("hall reading needs hall: %w", types.WSErrorInvalidParam)
		}
		ev = fold.HallEvent(*r.Hall)
	case "motion":
		if r.Degrees == nil {
			return ev, fmt.Errorf("motion reading needs degrees: %w", types.WSErrorInvalidParam)
		}
		ev = fold.MotionEvent(*r.Degrees)
	}
	ev.Status = r.Status
	return ev, nil
}

// GetFold returns the fold engine state
func (h *Handlers) GetFold(c *gin.Context) {
	if h.fold == nil {
		respondError(c, fmt.Errorf("fold engine: %w", types.WSErrorUnavailable))
		return
	}
	dump := h.fold.Dump()
	c.JSON(http.StatusOK, gin.H{
		"fold":         dump,
		"display_mode": types.DisplayModeFor(dump.Status).String(),
	})
}

// InjectSensor feeds one synthetic reading through the fold controller
func (h *Handlers) InjectSensor(c *gin.Context) {
	if h.fold == nil {
		respondError(c, fmt.Errorf("fold engine: %w", types.WSErrorUnavailable))
		return
	}
	var req SensorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ev, err := req.event()
	if err != nil {
		respondError(c, err)
		return
	}

	done := h.metrics.TrackFoldOperation("inject_" + req.Sensor)
	err = h.fold.HandleSensorEvent(ev)
	done(err)

	if err != nil {
		respondError(c, fmt.Errorf("sensor event rejected: %w", errors.Join(types.WSErrorInvalidParam, err)))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  h.fold.CurrentStatus().String(),
	})
}
