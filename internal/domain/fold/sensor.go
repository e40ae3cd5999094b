package fold

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

// SensorType identifies a sensor stream
type SensorType int32

const (
	SensorTypePosture SensorType = 1
	SensorTypeHall    SensorType = 2
	SensorTypeMotion  SensorType = 3
)

// String returns the sensor name
func (t SensorType) String() string {
	switch t {
	case SensorTypePosture:
		return "posture"
	case SensorTypeHall:
		return "hall"
	case SensorTypeMotion:
		return "motion"
	default:
		return fmt.Sprintf("sensor(%d)", int32(t))
	}
}

// Sensor status codes
const (
	SensorStatusOK      int32 = 0
	SensorStatusNotInit int32 = -1
)

// Payload sizes in bytes
const (
	postureDataLen = 4 // float32 angle
	hallDataLen    = 4 // uint32 hall
	motionDataLen  = 4 // int32 degrees
)

var (
	ErrSensorStatus  = errors.New("sensor reported failure status")
	ErrShortBuffer   = errors.New("sensor data buffer too short")
	ErrUnknownSensor = errors.New("unknown sensor type")
)

// SensorEvent is one raw callback from the sensor plugin. Data may be nil when empty.
type SensorEvent struct {
	Type   SensorType
	Status int32
	Data   []byte
}

// PostureEvent builds a hinge angle event
func PostureEvent(angle float32) SensorEvent {
	buf := make([]byte, postureDataLen)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(angle))
	return SensorEvent{Type: SensorTypePosture, Data: buf}
}

// HallEvent builds a hall event
func HallEvent(hall uint32) SensorEvent {
	buf := make([]byte, hallDataLen)
	binary.LittleEndian.PutUint32(buf, hall)
	return SensorEvent{Type: SensorTypeHall, Data: buf}
}

// MotionEvent builds a rotation event carrying degrees
func MotionEvent(degrees int32) SensorEvent {
	buf := make([]byte, motionDataLen)
	binary.LittleEndian.PutUint32(buf, uint32(degrees))
	return SensorEvent{Type: SensorTypeMotion, Data: buf}
}

func (e SensorEvent) validate(need int) error {
	if e.Status != SensorStatusOK {
		return fmt.Errorf("%s status %d: %w", e.Type, e.Status, ErrSensorStatus)
	}
	if len(e.Data) < need {
		return fmt.Errorf("%s has %d bytes, need %d: %w", e.Type, len(e.Data), need, ErrShortBuffer)
	}
	return nil
}

// Angle decodes a posture event
func (e SensorEvent) Angle() (float64, error) {
	if err := e.validate(postureDataLen); err != nil {
		return 0, err
	}
	angle := float64(math.Float32frombits(binary.LittleEndian.Uint32(e.Data)))
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return 0, fmt.Errorf("posture angle %v: %w", angle, ErrSensorStatus)
	}
	return angle, nil
}

// Hall decodes a hall event into HallOpen or HallFolded
func (e SensorEvent) Hall() (int, error) {
	if err := e.validate(hallDataLen); err != nil {
		return 0, err
	}
	if binary.LittleEndian.Uint32(e.Data) != 0 {
		return HallOpen, nil
	}
	return HallFolded, nil
}

// Rotation decodes a motion event. Malformed events yield RotationInvalid.
func (e SensorEvent) Rotation() (types.Rotation, error) {
	if err := e.validate(motionDataLen); err != nil {
		return types.RotationInvalid, err
	}
	return RotationFromDegrees(int32(binary.LittleEndian.Uint32(e.Data))), nil
}

// RotationFromDegrees maps a canonical angle to a rotation. Unrecognised input
// falls back to portrait so a glitch never leaves the display orientation undefined.
func RotationFromDegrees(degrees int32) types.Rotation {
	switch degrees {
	case 0:
		return types.RotationPortrait
	case 90:
		return types.RotationLandscape
	case 180:
		return types.RotationPortraitInverted
	case 270:
		return types.RotationLandscapeInverted
	default:
		return types.RotationPortrait
	}
}

// DegreesFromRotation is the inverse of RotationFromDegrees
func DegreesFromRotation(r types.Rotation) int32 {
	switch r {
	case types.RotationLandscape:
		return 90
	case types.RotationPortraitInverted:
		return 180
	case types.RotationLandscapeInverted:
		return 270
	default:
		return 0
	}
}
