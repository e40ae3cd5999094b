package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/SceneOS/backend/internal/domain/session"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

// CreateSessionRequest is the body of POST /sessions
type CreateSessionRequest struct {
	BundleName  string      `json:"bundle_name" binding:"required"`
	ModuleName  string      `json:"module_name"`
	AbilityName string      `json:"ability_name"`
	ScreenID    uint64      `json:"screen_id"`
	Rect        *types.Rect `json:"rect,omitempty"`
	OwnerID     string      `json:"owner_id"`
}

func (r CreateSessionRequest) info() types.SessionInfo {
	info := types.SessionInfo{
		BundleName:  r.BundleName,
		ModuleName:  r.ModuleName,
		AbilityName: r.AbilityName,
		ScreenID:    r.ScreenID,
		OwnerID:     r.OwnerID,
	}
	if r.Rect != nil {
		info.Rect = *r.Rect
	}
	return info
}

// DeactivateRequest is the optional body of POST /sessions/:id/deactivate
type DeactivateRequest struct {
	NotifyContent bool `json:"notify_content"`
}

// ListSessions lists every connected session
func (h *Handlers) ListSessions(c *gin.Context) {
	sessions := h.dir.ValidSessions()
	c.JSON(http.StatusOK, gin.H{
		"sessions":   sessions,
		"count":      len(sessions),
		"background": h.dir.BackgroundSessions(),
	})
}

// GetSession returns one connected session with its listener counts
func (h *Handlers) GetSession(c *gin.Context) {
	sess, ok := h.lookup(c, h.dir.GetValidSession)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session":   sess.Snapshot(),
		"listeners": sess.ListenerCounts(),
	})
}

// CreateSession creates a session in DISCONNECT state
func (h *Handlers) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	done := h.metrics.TrackDirectoryOperation("request_session")
	sess := h.dir.RequestSession(req.info())
	done(nil)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"session": sess.Snapshot(),
	})
}

// ConnectSession moves a session to CONNECT
func (h *Handlers) ConnectSession(c *gin.Context) {
	h.transition(c, "connect", (*session.Session).Connect)
}

// ActivateSession makes a session the active one
func (h *Handlers) ActivateSession(c *gin.Context) {
	h.transition(c, "activate", h.dir.RequestActivation)
}

// ForegroundSession brings a session to the foreground
func (h *Handlers) ForegroundSession(c *gin.Context) {
	h.transition(c, "foreground", h.dir.RequestForeground)
}

// BackgroundSession sends a session to the background
func (h *Handlers) BackgroundSession(c *gin.Context) {
	h.transition(c, "background", h.dir.RequestBackground)
}

// DisconnectSession moves a session to DISCONNECT without removing it
func (h *Handlers) DisconnectSession(c *gin.Context) {
	h.transition(c, "disconnect", (*session.Session).Disconnect)
}

// DeactivateSession moves an ACTIVE session to INACTIVE
func (h *Handlers) DeactivateSession(c *gin.Context) {
	var req DeactivateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	h.transition(c, "deactivate", func(s *session.Session) error {
		return h.dir.RequestDeactivation(s, req.NotifyContent)
	})
}

// LayoutSession proposes a rect to the session's client and returns the
// rect it settled on. A zero rect means the client did not answer in time.
func (h *Handlers) LayoutSession(c *gin.Context) {
	var rect types.Rect
	if err := c.ShouldBindJSON(&rect); err != nil {
		badRequest(c, err.Error())
		return
	}
	sess, ok := h.lookup(c, h.dir.GetSession)
	if !ok {
		return
	}

	done := h.metrics.TrackDirectoryOperation("request_layout")
	settled, err := h.dir.RequestLayout(sess, rect)
	done(err)

	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"settled":  settled,
		"answered": settled != types.Rect{},
		"session":  sess.Snapshot(),
	})
}

// SessionRotation waits for the rotation the session's client reports
func (h *Handlers) SessionRotation(c *gin.Context) {
	sess, ok := h.lookup(c, h.dir.GetValidSession)
	if !ok {
		return
	}
	rotation, err := h.dir.WaitRotation(sess)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"persistent_id": sess.PersistentID(),
		"rotation":      rotation.String(),
	})
}

// DeleteSession destroys a session. Deleting an unknown session is a no-op.
func (h *Handlers) DeleteSession(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	done := h.metrics.TrackDirectoryOperation("destroy")
	err := h.dir.RequestDestructionByID(id)
	done(err)

	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "persistent_id": id})
}

func (h *Handlers) transition(c *gin.Context, op string, fn func(*session.Session) error) {
	sess, ok := h.lookup(c, h.dir.GetSession)
	if !ok {
		return
	}

	done := h.metrics.TrackDirectoryOperation(op)
	err := fn(sess)
	done(err)

	if err != nil {
		h.logger.Info("session operation rejected",
			zap.String("op", op),
			zap.Int32("persistent_id", sess.PersistentID()),
			zap.Error(err),
		)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": sess.Snapshot(),
	})
}

// lookup resolves the :id parameter through get. Queries pass the
// connected-only lookup; mutations must still reach DISCONNECT sessions.
func (h *Handlers) lookup(c *gin.Context, get func(int32) (*session.Session, error)) (*session.Session, bool) {
	id, ok := parseSessionID(c)
	if !ok {
		return nil, false
	}
	sess, err := get(id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return sess, true
}

func parseSessionID(c *gin.Context) (int32, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		badRequest(c, "invalid session id")
		return 0, false
	}
	return int32(id), true
}
