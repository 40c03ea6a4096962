package orientation

import (
	"math"
)

// Pose is the canonical representation of orientation, in degrees.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Source is anything that can provide poses over time.
type Source interface {
	Next() (Pose, error)
}

// Class is the coarse orientation the gesture engine reasons about.
type Class int

const (
	Unknown Class = iota
	FaceUp
	FaceDown
	Vertical
	Tilted
)

func (c Class) String() string {
	switch c {
	case FaceUp:
		return "face_up"
	case FaceDown:
		return "face_down"
	case Vertical:
		return "vertical"
	case Tilted:
		return "tilted"
	default:
		return "unknown"
	}
}

// ParseClass is the inverse of Class.String.
func ParseClass(s string) (Class, bool) {
	switch s {
	case "face_up":
		return FaceUp, true
	case "face_down":
		return FaceDown, true
	case "vertical":
		return Vertical, true
	case "tilted":
		return Tilted, true
	case "unknown":
		return Unknown, true
	}
	return Unknown, false
}

// Classification thresholds, in degrees.
const (
	FlatTolerance    = 35.0
	VerticalMinAngle = 55.0
)

// Classify maps a pose to a Class.
//
//	face up:   roll and pitch within FlatTolerance of level
//	face down: roll within FlatTolerance of 180, pitch near level
//	vertical:  pitch or roll at least VerticalMinAngle away from both flats
func Classify(p Pose) Class {
	roll := math.Abs(p.Roll)
	pitch := math.Abs(p.Pitch)

	switch {
	case pitch >= VerticalMinAngle:
		return Vertical
	case pitch <= FlatTolerance && roll <= FlatTolerance:
		return FaceUp
	case pitch <= FlatTolerance && roll >= 180-FlatTolerance:
		return FaceDown
	case roll >= VerticalMinAngle && roll <= 180-VerticalMinAngle:
		return Vertical
	default:
		return Tilted
	}
}

// ComputePoseFromAccel computes roll and pitch from accelerometer data only.
// Yaw is left at 0; nothing here needs heading.
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func ComputePoseFromAccel(ax, ay, az float64) Pose {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return Pose{
		Roll:  rollRad * 180.0 / math.Pi,
		Pitch: pitchRad * 180.0 / math.Pi,
	}
}
