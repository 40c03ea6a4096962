package orientation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputePoseFromAccel(t *testing.T) {
	p := ComputePoseFromAccel(0, 0, 16384)
	assert.InDelta(t, 0, p.Roll, 1e-9)
	assert.InDelta(t, 0, p.Pitch, 1e-9)

	p = ComputePoseFromAccel(0, 16384, 0)
	assert.InDelta(t, 90, p.Roll, 1e-9)

	p = ComputePoseFromAccel(-16384, 0, 0)
	assert.InDelta(t, 90, p.Pitch, 1e-9)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		ax, ay, az float64
		want       Class
	}{
		{"flat on table", 0, 0, 1, FaceUp},
		{"slightly tilted up", 0.2, 0.3, 1, FaceUp},
		{"screen down", 0, 0, -1, FaceDown},
		{"screen down tilted", 0.1, -0.2, -1, FaceDown},
		{"portrait upright", 0, 1, 0.1, Vertical},
		{"portrait upside down", 0, -1, 0.1, Vertical},
		{"landscape", 1, 0, 0.1, Vertical},
		{"half way", 0, 0.7, 0.7, Tilted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(ComputePoseFromAccel(tt.ax, tt.ay, tt.az)))
		})
	}
}

func TestParseClass_RoundTrip(t *testing.T) {
	for _, c := range []Class{Unknown, FaceUp, FaceDown, Vertical, Tilted} {
		got, ok := ParseClass(c.String())
		assert.True(t, ok)
		assert.Equal(t, c, got)
	}
	_, ok := ParseClass("sideways")
	assert.False(t, ok)
}

func TestScriptedSource(t *testing.T) {
	s := NewScriptedSource(Pose{Roll: 1}, Pose{Roll: 2})

	p, _ := s.Next()
	assert.Equal(t, 1.0, p.Roll)
	p, _ = s.Next()
	assert.Equal(t, 2.0, p.Roll)
	p, _ = s.Next()
	assert.Equal(t, 2.0, p.Roll, "last pose repeats")

	s.Set(Pose{Pitch: 80})
	p, _ = s.Next()
	assert.Equal(t, 80.0, p.Pitch)
}
