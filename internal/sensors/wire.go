package sensors

import "github.com/relabs-tech/doze_gestures/internal/orientation"

// ProximityMessage is the JSON body published on the proximity topic.
type ProximityMessage struct {
	Near      bool  `json:"near"`
	Timestamp int64 `json:"ts"`
	Init      bool  `json:"init,omitempty"`
}

// PickUpMessage is the JSON body published on the pick-up topic.
type PickUpMessage struct {
	PickedUp bool `json:"picked_up"`
	Init     bool `json:"init,omitempty"`
}

// PoseMessage is the JSON body published on the pose topic. Class is
// informational; receivers classify Pose themselves.
type PoseMessage struct {
	orientation.Pose
	Class string `json:"class"`
}

// Control commands, published on <control prefix>/<sensor>.
const (
	CommandEnable  = "enable"
	CommandDisable = "disable"
	CommandReset   = "reset"
)
