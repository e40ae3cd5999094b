package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/SceneOS/backend/internal/domain/fold"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

// PositionRequest is the body of POST /screens/:id/position
type PositionRequest struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// RotationRequest is the body of POST /screens/:id/rotation. Either the
// discrete rotation or a degree value may be given.
type RotationRequest struct {
	Rotation *types.Rotation `json:"rotation,omitempty"`
	Degrees  *int32          `json:"degrees,omitempty"`
}

// ListScreens lists every screen
func (h *Handlers) ListScreens(c *gin.Context) {
	screens := h.dir.Screens()
	c.JSON(http.StatusOK, gin.H{
		"screens": screens,
		"count":   len(screens),
	})
}

// SetScreenPosition moves a screen in the global coordinate space
func (h *Handlers) SetScreenPosition(c *gin.Context) {
	id, ok := parseScreenID(c)
	if !ok {
		return
	}
	var req PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	done := h.metrics.TrackDirectoryOperation("set_position")
	err := h.dir.SetScreenRelativePosition(id, req.X, req.Y)
	done(err)

	h.respondScreen(c, id, err)
}

// SetScreenRotation rotates a screen
func (h *Handlers) SetScreenRotation(c *gin.Context) {
	id, ok := parseScreenID(c)
	if !ok {
		return
	}
	var req RotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	var rotation types.Rotation
	switch {
	case req.Rotation != nil:
		rotation = *req.Rotation
	case req.Degrees != nil:
		rotation = fold.RotationFromDegrees(*req.Degrees)
	default:
		badRequest(c, "rotation or degrees is required")
		return
	}

	done := h.metrics.TrackDirectoryOperation("set_rotation")
	err := h.dir.SetScreenRotation(id, rotation)
	done(err)

	h.respondScreen(c, id, err)
}

func (h *Handlers) respondScreen(c *gin.Context, id uint64, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	scr, err := h.dir.GetScreen(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"screen":  scr.Snapshot(),
	})
}

func parseScreenID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid screen id")
		return 0, false
	}
	return id, true
}
