package fold

import "time"

// Hall readings
const (
	HallFolded = 0
	HallOpen   = 1
)

// SingleThresholds configures SinglePolicy
type SingleThresholds struct {
	HalfFoldMin float64
	HalfFoldMax float64
	ExpandMin   float64

	// Large-fold hysteresis bands
	OpenHalfFoldedMin  float64
	CloseHalfFoldedMin float64
	HalfFoldedBuffer   float64
}

// DefaultSingleThresholds returns the stock single-display thresholds
func DefaultSingleThresholds() SingleThresholds {
	return SingleThresholds{
		HalfFoldMin:        90,
		HalfFoldMax:        130,
		ExpandMin:          140,
		OpenHalfFoldedMin:  25,
		CloseHalfFoldedMin: 70,
		HalfFoldedBuffer:   10,
	}
}

// DualThresholds configures DualPolicy
type DualThresholds struct {
	Folded      float64
	Expand      float64
	HalfFoldMin float64
	HalfFoldMax float64
	FoldedLower float64
	FoldedUpper float64

	// A hall close reported at or above this angle is treated as suspect
	HallZeroInvalidPosture float64
	TentExitMin            float64
	TentExitMax            float64
	HallDebounce           time.Duration
}

// DefaultDualThresholds returns the stock dual-display thresholds
func DefaultDualThresholds() DualThresholds {
	return DualThresholds{
		Folded:                 85,
		Expand:                 145,
		HalfFoldMin:            85,
		HalfFoldMax:            135,
		FoldedLower:            10,
		FoldedUpper:            20,
		HallZeroInvalidPosture: 170,
		TentExitMin:            5,
		TentExitMax:            110,
		HallDebounce:           300 * time.Millisecond,
	}
}
