package types

import "fmt"

// SessionState is the lifecycle state of a scene session
type SessionState int32

const (
	StateDisconnect SessionState = 0
	StateConnect    SessionState = 1
	StateForeground SessionState = 2
	StateActive     SessionState = 3
	StateInactive   SessionState = 4
	StateBackground SessionState = 5
)

// String returns the state name used in logs and dumps
func (s SessionState) String() string {
	switch s {
	case StateDisconnect:
		return "DISCONNECT"
	case StateConnect:
		return "CONNECT"
	case StateForeground:
		return "FOREGROUND"
	case StateActive:
		return "ACTIVE"
	case StateInactive:
		return "INACTIVE"
	case StateBackground:
		return "BACKGROUND"
	default:
		return fmt.Sprintf("STATE(%d)", int32(s))
	}
}

// Rect is a window rectangle. Width and height are never negative.
type Rect struct {
	X      int32  `json:"x"`
	Y      int32  `json:"y"`
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// IsEmpty reports whether the rect has no area
func (r Rect) IsEmpty() bool {
	return r.Width == 0 || r.Height == 0
}

// Offset returns the rect translated by dx, dy
func (r Rect) Offset(dx, dy int32) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

func (r Rect) String() string {
	return fmt.Sprintf("[%d %d %d %d]", r.X, r.Y, r.Width, r.Height)
}

// SizeChangeReason tags a rect update so consumers can pick animation and clamping policy
type SizeChangeReason uint32

const (
	ReasonUndefined SizeChangeReason = iota
	ReasonMaximize
	ReasonRecover
	ReasonRotation
	ReasonDragMove
	ReasonResize
	ReasonMove
	ReasonScreenRelativePositionChange
)

// String returns the reason name
func (r SizeChangeReason) String() string {
	switch r {
	case ReasonMaximize:
		return "maximize"
	case ReasonRecover:
		return "recover"
	case ReasonRotation:
		return "rotation"
	case ReasonDragMove:
		return "drag_move"
	case ReasonResize:
		return "resize"
	case ReasonMove:
		return "move"
	case ReasonScreenRelativePositionChange:
		return "screen_relative_position_change"
	default:
		return "undefined"
	}
}

// SessionInfo describes a session creation request
type SessionInfo struct {
	BundleName  string `json:"bundle_name"`
	ModuleName  string `json:"module_name"`
	AbilityName string `json:"ability_name"`
	ScreenID    uint64 `json:"screen_id"`
	Rect        Rect   `json:"rect"`
	// OwnerID identifies the client process; its death destroys the session
	OwnerID string `json:"owner_id,omitempty"`
}

// SessionSnapshot is a point-in-time view of a session for queries and dumps
type SessionSnapshot struct {
	PersistentID int32        `json:"persistent_id"`
	Name         string       `json:"name"`
	SurfaceName  string       `json:"surface_name"`
	BundleName   string       `json:"bundle_name"`
	State        SessionState `json:"state"`
	StateName    string       `json:"state_name"`
	Rect         Rect         `json:"rect"`
	ScreenID     uint64       `json:"screen_id"`
	OwnerID      string       `json:"owner_id,omitempty"`
}
