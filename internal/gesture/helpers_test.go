package gesture

import (
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type fakePort struct {
	name    string
	enabled bool

	enables  int
	disables int
	resets   int

	// exclusive is the port that must never be enabled together with this one.
	exclusive  *fakePort
	violations *int
}

func (p *fakePort) Enable() {
	p.enabled = true
	p.enables++
	if p.exclusive != nil && p.exclusive.enabled && p.violations != nil {
		*p.violations++
	}
}

func (p *fakePort) Disable() {
	p.enabled = false
	p.disables++
}

func (p *fakePort) Reset() { p.resets++ }

type fakeOrientation struct {
	fakePort
	faceDown bool
	faceUp   bool
	vertical bool
}

func (o *fakeOrientation) IsFaceDown() bool { return o.faceDown }
func (o *fakeOrientation) IsFaceUp() bool   { return o.faceUp }
func (o *fakeOrientation) IsVertical() bool { return o.vertical }

func (o *fakeOrientation) set(faceDown, faceUp, vertical bool) {
	o.faceDown, o.faceUp, o.vertical = faceDown, faceUp, vertical
}

type fakeClock struct {
	now time.Duration
}

func (c *fakeClock) Now() time.Duration { return c.now }

type pulseRecorder struct {
	count int
}

func (r *pulseRecorder) Pulse() { r.count++ }

type wakeRecorder struct {
	holds []time.Duration
}

func (w *wakeRecorder) Acquire(d time.Duration) { w.holds = append(w.holds, d) }

type dozeFlag struct {
	enabled bool
}

func (d *dozeFlag) DozeEnabled() bool { return d.enabled }

type ackCounter struct {
	count int
}

func (a *ackCounter) Acknowledge() { a.count++ }

type harness struct {
	t *testing.T

	engine      *Engine
	orientation *fakeOrientation
	pickUp      *fakePort
	proximity   *fakePort
	clock       *fakeClock
	sink        *pulseRecorder
	wake        *wakeRecorder
	doze        *dozeFlag
	ack         *ackCounter

	violations int
	snapshots  []Snapshot
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()

	h := &harness{
		t:           t,
		orientation: &fakeOrientation{fakePort: fakePort{name: "orientation"}},
		pickUp:      &fakePort{name: "pickup"},
		proximity:   &fakePort{name: "proximity"},
		clock:       &fakeClock{now: 10 * time.Second},
		sink:        &pulseRecorder{},
		wake:        &wakeRecorder{},
		doze:        &dozeFlag{enabled: true},
		ack:         &ackCounter{},
	}
	h.orientation.exclusive = h.pickUp
	h.orientation.violations = &h.violations
	h.pickUp.exclusive = &h.orientation.fakePort
	h.pickUp.violations = &h.violations

	h.engine = New(cfg, Deps{
		Orientation: h.orientation,
		PickUp:      h.pickUp,
		Proximity:   h.proximity,
		Doze:        h.doze,
		Sink:        h.sink,
		Wake:        h.wake,
		Ack:         h.ack,
		Clock:       h.clock,
		Logger:      zaptest.NewLogger(t),
		OnChange: func(s Snapshot) {
			h.snapshots = append(h.snapshots, s)
		},
	})
	return h
}

func allGestures() Config {
	return Config{HandWave: true, PickUp: true, Pocket: true}
}

func ms(n int64) int64 { return n * int64(time.Millisecond) }

func (h *harness) displayOff()        { h.engine.Handle(DisplayEvent{On: false}) }
func (h *harness) displayOn()         { h.engine.Handle(DisplayEvent{On: true}) }
func (h *harness) stow(ts int64)      { h.engine.Handle(ProximityEvent{Near: true, Timestamp: ts}) }
func (h *harness) release(ts int64)   { h.engine.Handle(ProximityEvent{Near: false, Timestamp: ts}) }
func (h *harness) orientationEvent()  { h.engine.Handle(OrientationEvent{}) }
func (h *harness) pickUpEvent(v bool) { h.engine.Handle(PickUpEvent{PickedUp: v}) }
func (h *harness) advance(d time.Duration) {
	h.clock.now += d
}

func (h *harness) window() WindowState {
	return h.engine.Snapshot().Window
}
