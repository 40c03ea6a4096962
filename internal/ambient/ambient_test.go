package ambient

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/relabs-tech/doze_gestures/internal/transport"
)

type fakePanel struct {
	mu     sync.Mutex
	frames []image.Image
	halted bool
	err    error
}

func (p *fakePanel) Bounds() image.Rectangle { return image.Rect(0, 0, 128, 64) }

func (p *fakePanel) Draw(_ image.Rectangle, src image.Image, _ image.Point) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.frames = append(p.frames, src)
	return nil
}

func (p *fakePanel) Halt() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.halted = true
	return nil
}

func (p *fakePanel) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

func litPixels(img image.Image) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r != 0 {
				n++
			}
		}
	}
	return n
}

func TestRender(t *testing.T) {
	assert.Zero(t, litPixels(Blank()))
	img := Render(time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC), 3)
	assert.Positive(t, litPixels(img))
}

func TestScreen_ShowThenBlank(t *testing.T) {
	panel := &fakePanel{}
	s := NewScreen(panel, 20*time.Millisecond, zaptest.NewLogger(t))

	require.NoError(t, s.Show())
	assert.Equal(t, 1, panel.count())

	require.Eventually(t, func() bool { return panel.count() == 2 }, time.Second, 5*time.Millisecond)
	panel.mu.Lock()
	assert.Zero(t, litPixels(panel.frames[1]))
	panel.mu.Unlock()
}

func TestScreen_PulseTopic(t *testing.T) {
	bus := transport.NewMemoryBus()
	panel := &fakePanel{}
	s := NewScreen(panel, time.Hour, nil)
	require.NoError(t, s.Subscribe(bus, "doze/pulse"))

	require.NoError(t, bus.Publish("doze/pulse", 1, false, []byte(`{"seq":1}`)))
	require.NoError(t, bus.Publish("doze/pulse", 1, false, []byte(`{"seq":2}`)))
	assert.Equal(t, uint64(2), s.Shown())
	assert.Equal(t, 2, panel.count())
}

func TestScreen_DrawError(t *testing.T) {
	panel := &fakePanel{err: errors.New("i2c nack")}
	s := NewScreen(panel, time.Hour, nil)
	assert.Error(t, s.Show())
}

func TestScreen_RunHaltsPanel(t *testing.T) {
	panel := &fakePanel{}
	s := NewScreen(panel, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	assert.True(t, panel.halted)
}
