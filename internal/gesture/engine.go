// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// HandwaveDelta is the longest stow period, in sensor nanoseconds, that still
// counts as a wave over the proximity sensor.
const HandwaveDelta = int64(time.Second)

// DefaultQueueSize is the event queue capacity used when Deps.QueueSize is 0.
const DefaultQueueSize = 32

// Deps are the collaborators of an Engine. Every field except Logger may be
// nil; a nil port means that sensor is unavailable and the gestures depending
// on it never fire.
type Deps struct {
	Orientation OrientationPort
	PickUp      Port
	Proximity   Port

	Doze   DozeSource
	Sink   PulseSink
	Wake   WakeHold
	Ack    Acknowledger
	Clock  Clock
	Logger *zap.Logger

	// OnChange is called after every handled event with a fresh snapshot.
	// It runs on the evaluation goroutine and must not block.
	OnChange func(Snapshot)

	QueueSize int
}

// window is the transient gesture window. It is reset on every release, on
// every re-stow and after every decision step.
type window struct {
	handwavePending bool
	pickupPending   bool
	pocketPending   bool
	pickedUp        bool
	proximityNear   bool
}

func (w *window) pending() bool {
	return w.handwavePending || w.pickupPending || w.pocketPending
}

func (w *window) resetPending() {
	w.handwavePending = false
	w.pickupPending = false
	w.pocketPending = false
}

// Engine is the gesture decision state machine. All inputs are serialized:
// Run drains the queue on a single goroutine and Handle holds a mutex, so no
// two decision steps ever overlap.
type Engine struct {
	mu sync.Mutex

	arbiter     *Arbiter
	orientation OrientationReader
	doze        DozeSource
	sink        PulseSink
	wake        WakeHold
	ack         Acknowledger
	clock       Clock
	throttle    *PulseThrottle
	logger      *zap.Logger
	onChange    func(Snapshot)

	cfg        Config
	win        window
	lastStowed int64
	pulses     uint64
	lastEvent  string

	queue   chan Event
	dropped atomic.Uint64
}

// New builds an engine with the given gesture flags. cfg.DozeEnabled is
// overwritten by the DozeSource before every decision.
func New(cfg Config, deps Deps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("gesture")

	wake := deps.Wake
	if wake == nil {
		wake = noWake{}
	}
	doze := deps.Doze
	if doze == nil {
		doze = StaticDoze(true)
	}
	sink := deps.Sink
	if sink == nil {
		sink = discardSink{}
	}
	ack := deps.Ack
	if ack == nil {
		ack = RingerAck{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = processClock{start: time.Now()}
	}
	size := deps.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}

	var orientation, pickUp, proximity Port
	var reader OrientationReader
	if deps.Orientation != nil {
		orientation = deps.Orientation
		reader = deps.Orientation
	}
	if deps.PickUp != nil {
		pickUp = deps.PickUp
	}
	if deps.Proximity != nil {
		proximity = deps.Proximity
	}

	return &Engine{
		arbiter:     NewArbiter(orientation, pickUp, proximity, wake, logger.Named("arbiter")),
		orientation: reader,
		doze:        doze,
		sink:        sink,
		wake:        wake,
		ack:         ack,
		clock:       clock,
		throttle:    NewPulseThrottle(PulseMinInterval),
		logger:      logger,
		onChange:    deps.OnChange,
		cfg:         cfg,
		queue:       make(chan Event, size),
	}
}

// Arbiter exposes the sensor arbiter, mainly for inspection.
func (e *Engine) Arbiter() *Arbiter { return e.arbiter }

// Post queues ev for the evaluation goroutine. Sensor events are stamped with
// the sensor's current generation so events emitted before a disable are
// recognised as stale. Post never blocks; it returns false when the queue is
// full and the event was dropped.
func (e *Engine) Post(ev Event) bool {
	if se, ok := ev.(sensorEvent); ok && se.generation() == 0 {
		ev = se.stamped(e.arbiter.Generation(se.source()))
	}
	select {
	case e.queue <- ev:
		return true
	default:
		n := e.dropped.Add(1)
		e.logger.Warn("event queue full, dropping event",
			zap.String("event", eventName(ev)),
			zap.Uint64("dropped_total", n),
		)
		return false
	}
}

// Run handles queued events until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-e.queue:
			e.Handle(ev)
		}
	}
}

// Handle processes one event synchronously.
func (e *Engine) Handle(ev Event) {
	e.mu.Lock()
	handled := e.handle(ev)
	var snap Snapshot
	if handled && e.onChange != nil {
		snap = e.snapshot()
	}
	e.mu.Unlock()

	if handled && e.onChange != nil {
		e.onChange(snap)
	}
}

func (e *Engine) handle(ev Event) bool {
	if se, ok := ev.(sensorEvent); ok && !e.arbiter.current(se.source(), se.generation()) {
		e.logger.Debug("ignoring stale sensor event",
			zap.Stringer("sensor", se.source()),
			zap.Uint64("generation", se.generation()),
		)
		return false
	}

	e.lastEvent = eventName(ev)
	switch ev := ev.(type) {
	case ProximityEvent:
		if ev.Init {
			e.onProximityInit(ev.Near, ev.Timestamp)
		} else {
			e.onProximity(ev.Near, ev.Timestamp)
		}
	case OrientationEvent:
		e.onOrientation()
	case PickUpEvent:
		e.win.pickedUp = ev.PickedUp
		if ev.Init {
			e.logger.Debug("pick-up sensor init", zap.Bool("picked_up", ev.PickedUp))
		} else {
			e.onPickUp()
		}
	case DisplayEvent:
		if ev.On {
			e.onDisplayOn()
		} else {
			e.onDisplayOff()
		}
	case ConfigChange:
		e.onConfigChange(ev.Key, ev.Enabled)
	default:
		return false
	}
	return true
}

// Shutdown forces every sensor off. It is the engine half of the service stop.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.arbiter.DisableAll()
	e.win.resetPending()
}

func (e *Engine) refreshDoze() {
	e.cfg.DozeEnabled = e.doze.DozeEnabled()
}

func (e *Engine) onProximity(near bool, ts int64) {
	quickWave := ts-e.lastStowed < HandwaveDelta
	e.win.proximityNear = near
	e.refreshDoze()

	e.logger.Debug("proximity sensor",
		zap.Bool("near", near),
		zap.Bool("quick_wave", quickWave),
	)

	if near {
		e.lastStowed = ts
		e.win.resetPending()
		e.arbiter.SetOrientation(false, false)
		e.arbiter.SetPickUp(false, false)
		return
	}

	e.win.resetPending()
	cfg := e.cfg
	switch {
	case cfg.HandWaveEnabled() && cfg.PickUpEnabled() && cfg.PocketEnabled():
		e.win.handwavePending = quickWave
		e.win.pickupPending = !quickWave
		e.win.pocketPending = !quickWave
		e.arbiter.SetOrientation(true, false)
	case cfg.HandWaveEnabled() && quickWave:
		e.win.handwavePending = true
		e.arbiter.SetOrientation(true, false)
	case (cfg.PickUpEnabled() || cfg.PocketEnabled()) && !quickWave:
		e.win.pickupPending = cfg.PickUpEnabled()
		e.win.pocketPending = cfg.PocketEnabled()
		e.arbiter.SetOrientation(true, false)
	case cfg.PickUpEnabled():
		e.arbiter.SetPickUp(true, false)
	}
}

func (e *Engine) onProximityInit(near bool, ts int64) {
	e.logger.Debug("proximity sensor init", zap.Bool("near", near))
	e.lastStowed = ts
	e.win.proximityNear = near
	e.refreshDoze()

	if !e.win.pending() && !near && e.cfg.PickUpEnabled() {
		e.arbiter.SetPickUp(true, false)
	}
}

func (e *Engine) onOrientation() {
	// one reading per evaluation
	e.arbiter.SetOrientation(false, false)

	if e.orientation != nil {
		e.logger.Debug("orientation sensor",
			zap.Bool("face_down", e.orientation.IsFaceDown()),
			zap.Bool("face_up", e.orientation.IsFaceUp()),
			zap.Bool("vertical", e.orientation.IsVertical()),
		)
	}

	if !e.win.proximityNear {
		e.analyse()
	}
}

func (e *Engine) onPickUp() {
	e.refreshDoze()
	e.logger.Debug("pick-up sensor", zap.Bool("picked_up", e.win.pickedUp))

	if e.win.pickedUp && e.cfg.PickUpEnabled() {
		e.win.pickupPending = true
		e.wake.Acquire(SensorsWakeLockDuration)
		e.analyse()
		return
	}
	e.win.pickupPending = false
}

// analyse is the decision step. The window closes after it whether or not a
// pulse fired.
func (e *Engine) analyse() {
	e.refreshDoze()

	var faceDown, vertical bool
	if e.orientation != nil {
		faceDown = e.orientation.IsFaceDown()
		vertical = e.orientation.IsVertical()
	}
	w := e.win

	e.logger.Debug("doze analysis",
		zap.Bool("handwave_pending", w.handwavePending),
		zap.Bool("pickup_pending", w.pickupPending),
		zap.Bool("pocket_pending", w.pocketPending),
		zap.Bool("picked_up", w.pickedUp),
	)

	if e.cfg.DozeEnabled {
		switch {
		case w.handwavePending && !faceDown:
			e.launchPulse("handwave")
		case w.pickupPending &&
			((w.pickedUp && !w.proximityNear) || (!w.pickedUp && faceDown)):
			e.launchPulse("pickup")
		case w.pocketPending && vertical:
			e.launchPulse("pocket")
		}
	}

	// catch a later lift
	if !w.proximityNear && e.cfg.PickUpEnabled() {
		e.arbiter.SetPickUp(true, false)
	}

	e.win.resetPending()
}

func (e *Engine) launchPulse(gesture string) {
	now := e.clock.Now()
	since := e.throttle.Since(now)
	if !e.throttle.ShouldFire(now) {
		e.logger.Debug("doze pulse avoided",
			zap.String("gesture", gesture),
			zap.Duration("since_last", since),
		)
		return
	}

	e.wake.Acquire(SensorsWakeLockDuration)
	e.ack.Acknowledge()
	e.pulses++
	e.sink.Pulse()

	e.logger.Info("doze pulse",
		zap.String("gesture", gesture),
		zap.Duration("since_last", since),
		zap.Uint64("pulses", e.pulses),
	)
}

func (e *Engine) onDisplayOn() {
	e.logger.Debug("display on")
	e.arbiter.DisableAll()
}

func (e *Engine) onDisplayOff() {
	e.logger.Debug("display off")
	e.refreshDoze()
	e.throttle.Reset()

	if !e.cfg.AnyEnabled() {
		return
	}
	e.win.resetPending()
	e.arbiter.SetOrientation(false, true)
	e.arbiter.SetPickUp(false, true)
	e.arbiter.SetProximity(true, true)
}

func (e *Engine) onConfigChange(key string, enabled bool) {
	if !e.cfg.Set(key, enabled) {
		e.logger.Warn("unknown gesture key", zap.String("key", key))
		return
	}
	e.logger.Info("gesture preference changed",
		zap.String("key", key),
		zap.Bool("enabled", enabled),
	)
}

func eventName(ev Event) string {
	switch ev := ev.(type) {
	case ProximityEvent:
		if ev.Init {
			return "proximity_init"
		}
		return "proximity"
	case OrientationEvent:
		return "orientation"
	case PickUpEvent:
		if ev.Init {
			return "pickup_init"
		}
		return "pickup"
	case DisplayEvent:
		if ev.On {
			return "display_on"
		}
		return "display_off"
	case ConfigChange:
		return "config_change"
	}
	return "unknown"
}

type discardSink struct{}

func (discardSink) Pulse() {}

type processClock struct {
	start time.Time
}

func (c processClock) Now() time.Duration { return time.Since(c.start) }
