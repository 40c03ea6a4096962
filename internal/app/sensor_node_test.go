package app

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/relabs-tech/doze_gestures/internal/gesture"
	"github.com/relabs-tech/doze_gestures/internal/orientation"
	"github.com/relabs-tech/doze_gestures/internal/sensors"
	"github.com/relabs-tech/doze_gestures/internal/transport"
)

var nodeTopics = sensors.RemoteTopics{
	Proximity: "doze/sensor/proximity",
	PickUp:    "doze/sensor/pickup",
	Pose:      "doze/sensor/pose",
	Control:   "doze/sensor/control",
}

type countingPort struct {
	enables, disables, resets int
}

func (p *countingPort) Enable()  { p.enables++ }
func (p *countingPort) Disable() { p.disables++ }
func (p *countingPort) Reset()   { p.resets++ }

type posingPort struct {
	countingPort
	pose orientation.Pose
}

func (p *posingPort) Pose() orientation.Pose { return p.pose }

func TestSensorNode_Control(t *testing.T) {
	bus := transport.NewMemoryBus()
	node := NewSensorNode(bus, nodeTopics, zaptest.NewLogger(t))
	prox := &countingPort{}
	node.Attach(gesture.SensorProximity, prox)
	node.Attach(gesture.SensorPickUp, nil)
	require.NoError(t, node.Start())

	require.NoError(t, bus.Publish("doze/sensor/control/proximity", 1, false, []byte(sensors.CommandEnable)))
	require.NoError(t, bus.Publish("doze/sensor/control/proximity", 1, false, []byte(sensors.CommandReset)))
	require.NoError(t, bus.Publish("doze/sensor/control/proximity", 1, false, []byte("explode")))
	require.NoError(t, bus.Publish("doze/sensor/control/pickup", 1, false, []byte(sensors.CommandEnable)))

	assert.Equal(t, 1, prox.enables)
	assert.Equal(t, 1, prox.resets)

	node.Stop()
	assert.Equal(t, 1, prox.disables)
}

func TestSensorNode_EmitPublishesReadings(t *testing.T) {
	bus := transport.NewMemoryBus()
	node := NewSensorNode(bus, nodeTopics, nil)
	orient := &posingPort{pose: orientation.ComputePoseFromAccel(0, 0, -1)}
	node.Attach(gesture.SensorOrientation, orient)

	node.Emit(gesture.ProximityEvent{Near: true, Timestamp: 12, Init: true})
	node.Emit(gesture.PickUpEvent{PickedUp: true})
	node.Emit(gesture.OrientationEvent{})
	node.Emit(gesture.DisplayEvent{On: true})

	require.Eventually(t, func() bool { return len(bus.Published()) == 3 }, wait, tick)

	var prox sensors.ProximityMessage
	require.NoError(t, json.Unmarshal(bus.PublishedTo(nodeTopics.Proximity)[0].Payload, &prox))
	assert.Equal(t, sensors.ProximityMessage{Near: true, Timestamp: 12, Init: true}, prox)

	var pose sensors.PoseMessage
	require.NoError(t, json.Unmarshal(bus.PublishedTo(nodeTopics.Pose)[0].Payload, &pose))
	assert.Equal(t, "face_down", pose.Class)
	assert.Equal(t, orientation.FaceDown, orientation.Classify(pose.Pose))
}

func TestSensorNode_FeedsRemotePorts(t *testing.T) {
	bus := transport.NewMemoryBus()
	node := NewSensorNode(bus, nodeTopics, nil)

	got := make(chan gesture.Event, 1)
	remote, err := sensors.NewRemote(bus, nodeTopics, func(ev gesture.Event) { got <- ev }, nil)
	require.NoError(t, err)
	remote.PickUp().Enable()

	node.Emit(gesture.PickUpEvent{PickedUp: true, Init: true})
	select {
	case ev := <-got:
		assert.Equal(t, gesture.PickUpEvent{PickedUp: true, Init: true}, ev)
	case <-time.After(wait):
		t.Fatal("no reading reached the remote port")
	}
}
