package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestTopicMatches(t *testing.T) {
	tests := []struct {
		filter, topic string
		want          bool
	}{
		{"doze/pulse", "doze/pulse", true},
		{"doze/pulse", "doze/pulses", false},
		{"doze/prefs/+", "doze/prefs/gesture_pocket", true},
		{"doze/prefs/+", "doze/prefs", false},
		{"doze/#", "doze/sensor/proximity", true},
		{"doze/+/proximity", "doze/sensor/proximity", true},
		{"doze/sensor", "doze/sensor/proximity", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TopicMatches(tt.filter, tt.topic), "%s vs %s", tt.filter, tt.topic)
	}
}

func TestMemoryBus_RetainedReplay(t *testing.T) {
	bus := NewMemoryBus()
	require.NoError(t, bus.Publish("doze/enabled", 1, true, []byte("off")))

	var got []string
	require.NoError(t, bus.Subscribe("doze/enabled", 1, func(_ string, p []byte) error {
		got = append(got, string(p))
		return nil
	}))
	require.NoError(t, bus.Publish("doze/enabled", 1, true, []byte("on")))

	assert.Equal(t, []string{"off", "on"}, got)
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus()
	calls := 0
	require.NoError(t, bus.Subscribe("a/b", 0, func(string, []byte) error { calls++; return nil }))
	require.NoError(t, bus.Unsubscribe("a/b"))
	require.NoError(t, bus.Publish("a/b", 0, false, []byte("x")))
	assert.Zero(t, calls)
	assert.False(t, bus.Subscribed("a/b"))
}

func TestPulsePublisher(t *testing.T) {
	bus := NewMemoryBus()
	p := NewPulsePublisher(bus, "doze/pulse", zap.NewNop())

	p.Pulse()
	p.Pulse()

	require.Eventually(t, func() bool { return len(bus.PublishedTo("doze/pulse")) == 2 },
		time.Second, 5*time.Millisecond)

	for _, m := range bus.PublishedTo("doze/pulse") {
		assert.Empty(t, m.Payload, "a pulse carries no payload")
		assert.Equal(t, byte(1), m.QoS)
		assert.False(t, m.Retained)
	}
	assert.Equal(t, uint64(2), p.Sent())
}

func TestPulsePublisher_FailureDoesNotPanic(t *testing.T) {
	bus := NewMemoryBus()
	bus.Err = errors.New("broker down")
	p := NewPulsePublisher(bus, "doze/pulse", zap.NewNop())

	p.Pulse()
	assert.Equal(t, uint64(1), p.Sent())
}

func TestDozeFlag(t *testing.T) {
	bus := NewMemoryBus()
	f, err := NewDozeFlag(bus, "doze/enabled", zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.True(t, f.DozeEnabled(), "defaults to enabled")
	assert.False(t, f.Known())

	require.NoError(t, bus.Publish("doze/enabled", 1, true, []byte("off")))
	assert.False(t, f.DozeEnabled())
	assert.True(t, f.Known())

	require.NoError(t, bus.Publish("doze/enabled", 1, true, []byte("garbage")))
	assert.False(t, f.DozeEnabled(), "invalid payload keeps the last value")

	require.NoError(t, bus.Publish("doze/enabled", 1, true, []byte("1")))
	assert.True(t, f.DozeEnabled())
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"on", "true", "1", "YES", " enabled\n"} {
		v, err := ParseBool([]byte(s))
		require.NoError(t, err, s)
		assert.True(t, v, s)
	}
	for _, s := range []string{"off", "false", "0", "no", "disabled"} {
		v, err := ParseBool([]byte(s))
		require.NoError(t, err, s)
		assert.False(t, v, s)
	}
	_, err := ParseBool([]byte("maybe"))
	assert.Error(t, err)

	assert.Equal(t, "on", string(FormatBool(true)))
}

func TestNewClient_RequiresBroker(t *testing.T) {
	_, err := NewClient(Options{ClientID: "x"}, nil)
	assert.Error(t, err)
}
