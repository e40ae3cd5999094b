package types

// Rotation is a discrete display orientation
type Rotation int32

const (
	RotationPortrait Rotation = iota
	RotationLandscape
	RotationPortraitInverted
	RotationLandscapeInverted
	RotationInvalid
)

// String returns the rotation name
func (r Rotation) String() string {
	switch r {
	case RotationPortrait:
		return "PORTRAIT"
	case RotationLandscape:
		return "LANDSCAPE"
	case RotationPortraitInverted:
		return "PORTRAIT_INVERTED"
	case RotationLandscapeInverted:
		return "LANDSCAPE_INVERTED"
	default:
		return "INVALID"
	}
}

// FoldStatus is the hinge classification produced by the fold engine
type FoldStatus int32

const (
	FoldStatusUnknown  FoldStatus = 0
	FoldStatusExpand   FoldStatus = 1
	FoldStatusFolded   FoldStatus = 2
	FoldStatusHalfFold FoldStatus = 3
)

// String returns the fold status name
func (f FoldStatus) String() string {
	switch f {
	case FoldStatusExpand:
		return "EXPAND"
	case FoldStatusFolded:
		return "FOLDED"
	case FoldStatusHalfFold:
		return "HALF_FOLD"
	default:
		return "UNKNOWN"
	}
}

// FoldDisplayMode is the screen classification derived from a fold status
type FoldDisplayMode int32

const (
	FoldDisplayModeUnknown FoldDisplayMode = iota
	FoldDisplayModeFull
	FoldDisplayModeMain
	FoldDisplayModeSub
)

// String returns the display mode name
func (m FoldDisplayMode) String() string {
	switch m {
	case FoldDisplayModeFull:
		return "FULL"
	case FoldDisplayModeMain:
		return "MAIN"
	case FoldDisplayModeSub:
		return "SUB"
	default:
		return "UNKNOWN"
	}
}

// DisplayModeFor maps a fold status to a display mode. It is a pure function of the status.
func DisplayModeFor(status FoldStatus) FoldDisplayMode {
	switch status {
	case FoldStatusExpand, FoldStatusHalfFold:
		return FoldDisplayModeFull
	case FoldStatusFolded:
		return FoldDisplayModeMain
	default:
		return FoldDisplayModeUnknown
	}
}

// ScreenProperty is the mutable geometry of a screen
type ScreenProperty struct {
	Width       uint32   `json:"width"`
	Height      uint32   `json:"height"`
	RefreshRate uint32   `json:"refresh_rate"`
	Rotation    Rotation `json:"rotation"`
	// Relative position of the screen in the global coordinate space
	OffsetX int32 `json:"offset_x"`
	OffsetY int32 `json:"offset_y"`
}

// ScreenSnapshot is a point-in-time view of a screen
type ScreenSnapshot struct {
	ID          uint64          `json:"id"`
	Name        string          `json:"name"`
	Property    ScreenProperty  `json:"property"`
	FoldStatus  FoldStatus      `json:"fold_status"`
	DisplayMode FoldDisplayMode `json:"display_mode"`
}

// ScreenChangeEvent names a screen property change
type ScreenChangeEvent uint32

const (
	ScreenChangeUndefined ScreenChangeEvent = iota
	ScreenChangeRotation
	ScreenChangeRelativePosition
	ScreenChangeFoldStatus
	ScreenChangeResolution
)
