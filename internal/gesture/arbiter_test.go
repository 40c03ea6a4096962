package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestArbiter(t *testing.T) (*Arbiter, *fakePort, *fakePort, *fakePort, *wakeRecorder, *int) {
	violations := 0
	orientation := &fakePort{name: "orientation"}
	pickUp := &fakePort{name: "pickup"}
	proximity := &fakePort{name: "proximity"}
	orientation.exclusive, orientation.violations = pickUp, &violations
	pickUp.exclusive, pickUp.violations = orientation, &violations
	wake := &wakeRecorder{}
	return NewArbiter(orientation, pickUp, proximity, wake, zaptest.NewLogger(t)), orientation, pickUp, proximity, wake, &violations
}

func TestArbiter_MutualExclusion(t *testing.T) {
	a, orientation, pickUp, _, _, violations := newTestArbiter(t)

	a.SetPickUp(true, false)
	require.True(t, pickUp.enabled)

	a.SetOrientation(true, false)
	assert.True(t, orientation.enabled)
	assert.False(t, pickUp.enabled)

	a.SetPickUp(true, false)
	assert.True(t, pickUp.enabled)
	assert.False(t, orientation.enabled)

	assert.Zero(t, *violations)
	assert.False(t, a.Enabled(SensorOrientation) && a.Enabled(SensorPickUp))
}

func TestArbiter_OrientationTakesWakeHold(t *testing.T) {
	a, _, _, _, wake, _ := newTestArbiter(t)

	a.SetPickUp(true, false)
	assert.Empty(t, wake.holds)

	a.SetOrientation(true, false)
	require.Len(t, wake.holds, 1)
	assert.Equal(t, SensorsWakeLockDuration, wake.holds[0])

	a.SetOrientation(false, false)
	assert.Len(t, wake.holds, 1)
}

func TestArbiter_ResetFlag(t *testing.T) {
	a, orientation, _, proximity, _, _ := newTestArbiter(t)

	a.SetProximity(true, true)
	assert.Equal(t, 1, proximity.resets)
	assert.True(t, proximity.enabled)

	a.SetOrientation(false, false)
	assert.Zero(t, orientation.resets)

	a.DisableAll()
	assert.Equal(t, 1, orientation.resets)
	assert.Equal(t, 2, proximity.resets)
	assert.False(t, proximity.enabled)
}

func TestArbiter_Generations(t *testing.T) {
	a, _, _, _, _, _ := newTestArbiter(t)

	assert.Zero(t, a.Generation(SensorProximity))
	a.SetProximity(true, false)
	g1 := a.Generation(SensorProximity)
	assert.NotZero(t, g1)

	a.SetProximity(true, false)
	assert.Equal(t, g1, a.Generation(SensorProximity), "re-enabling an enabled sensor keeps its generation")
	assert.True(t, a.current(SensorProximity, g1))

	a.SetProximity(true, true)
	assert.NotEqual(t, g1, a.Generation(SensorProximity), "reset invalidates in-flight events")
	assert.False(t, a.current(SensorProximity, g1))

	a.SetProximity(false, false)
	assert.False(t, a.current(SensorProximity, 0))
}

func TestArbiter_NilPortsAreNoOps(t *testing.T) {
	a := NewArbiter(nil, nil, nil, nil, nil)

	assert.NotPanics(t, func() {
		a.SetOrientation(true, true)
		a.SetPickUp(true, true)
		a.SetProximity(true, true)
		a.DisableAll()
	})
	assert.False(t, a.Enabled(SensorOrientation))
	assert.False(t, a.Enabled(SensorProximity))
	assert.False(t, a.Enabled(Sensor(7)))
}
