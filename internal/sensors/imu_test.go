package sensors

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relabs-tech/doze_gestures/internal/gesture"
	"github.com/relabs-tech/doze_gestures/internal/orientation"
)

var (
	faceDownPose = orientation.ComputePoseFromAccel(0, 0, -1)
	faceUpPose   = orientation.ComputePoseFromAccel(0, 0, 1)
	uprightPose  = orientation.ComputePoseFromAccel(0, 1, 0.1)
)

func TestOrientationPort_FirstSampleAndChanges(t *testing.T) {
	src := orientation.NewScriptedSource(faceUpPose, faceUpPose, faceDownPose)
	c := &collector{}
	p := NewOrientationPort(src, 2*time.Millisecond, c.emit, zap.NewNop())

	p.Enable()
	defer p.Disable()

	require.Eventually(t, func() bool { return c.len() == 2 }, wait, tick)
	assert.True(t, p.IsFaceDown())
	assert.False(t, p.IsFaceUp())
	assert.False(t, p.IsVertical())
	assert.Equal(t, gesture.OrientationEvent{}, c.all()[0])

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, c.len(), "steady orientation emits nothing")
}

func TestOrientationPort_Vertical(t *testing.T) {
	src := orientation.NewScriptedSource(uprightPose)
	c := &collector{}
	p := NewOrientationPort(src, 2*time.Millisecond, c.emit, zap.NewNop())

	p.Enable()
	require.Eventually(t, func() bool { return c.len() == 1 }, wait, tick)
	p.Disable()

	assert.True(t, p.IsVertical())
	assert.InDelta(t, uprightPose.Roll, p.Pose().Roll, 1e-9)

	p.Reset()
	assert.Equal(t, orientation.Unknown, p.Class())
}

func TestOrientationPort_ReenableEmitsAgain(t *testing.T) {
	src := orientation.NewScriptedSource(faceUpPose)
	c := &collector{}
	p := NewOrientationPort(src, 2*time.Millisecond, c.emit, zap.NewNop())

	p.Enable()
	require.Eventually(t, func() bool { return c.len() == 1 }, wait, tick)
	p.Disable()
	time.Sleep(10 * time.Millisecond)

	p.Enable()
	defer p.Disable()
	require.Eventually(t, func() bool { return c.len() == 2 }, wait, tick)
}

// overlapSource records how many Next calls run at the same time.
type overlapSource struct {
	active  atomic.Int32
	maxSeen atomic.Int32
	calls   atomic.Int32
}

func (s *overlapSource) Next() (orientation.Pose, error) {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		m := s.maxSeen.Load()
		if n <= m || s.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	s.calls.Add(1)
	time.Sleep(3 * time.Millisecond)
	return faceUpPose, nil
}

func TestOrientationPort_QuickRearmNeverOverlapsReads(t *testing.T) {
	src := &overlapSource{}
	c := &collector{}
	p := NewOrientationPort(src, time.Millisecond, c.emit, zap.NewNop())
	defer p.Close()

	for i := 0; i < 20; i++ {
		p.Enable()
		time.Sleep(time.Millisecond)
		p.Disable()
	}
	p.Enable()
	require.Eventually(t, func() bool { return src.calls.Load() > 25 }, wait, tick)

	assert.Equal(t, int32(1), src.maxSeen.Load())
	assert.NotZero(t, c.len())
}

func TestOrientationPort_CloseStopsPolling(t *testing.T) {
	src := &overlapSource{}
	p := NewOrientationPort(src, time.Millisecond, nil, zap.NewNop())

	p.Enable()
	require.Eventually(t, func() bool { return src.calls.Load() > 2 }, wait, tick)
	require.NoError(t, p.Close())

	n := src.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, src.calls.Load())
}
