package ws

import (
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

// Inbound message types
const (
	MsgPing           = "ping"
	MsgRequestSession = "request_session"
	MsgSubscribe      = "subscribe"
	MsgUnsubscribe    = "unsubscribe"
	MsgRectResult     = "rect_result"
)

// Outbound message types
const (
	MsgWelcome   = "welcome"
	MsgPong      = "pong"
	MsgSession   = "session"
	MsgLifecycle = "lifecycle"
	MsgRect      = "rect"
	MsgAck       = "ack"
	MsgError     = "error"
)

// Inbound is a frame sent by a remote agent
type Inbound struct {
	Type         string             `json:"type"`
	PersistentID int32              `json:"persistent_id,omitempty"`
	Session      *types.SessionInfo `json:"session,omitempty"`
	Rect         *types.Rect        `json:"rect,omitempty"`
}

// Outbound is a frame sent to a remote agent
type Outbound struct {
	Type         string                 `json:"type"`
	AgentID      string                 `json:"agent_id,omitempty"`
	ConnectionID string                 `json:"connection_id,omitempty"`
	PersistentID int32                  `json:"persistent_id,omitempty"`
	ListenerID   string                 `json:"listener_id,omitempty"`
	Event        string                 `json:"event,omitempty"`
	Session      *types.SessionSnapshot `json:"session,omitempty"`
	Rect         *types.Rect            `json:"rect,omitempty"`
	Reason       string                 `json:"reason,omitempty"`
	Code         int32                  `json:"code,omitempty"`
	Error        string                 `json:"error,omitempty"`
	Timestamp    int64                  `json:"timestamp"`
}
