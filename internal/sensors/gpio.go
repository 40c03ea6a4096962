// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/doze_gestures/internal/gesture"
)

// EdgePin is the subset of gpio.PinIn used by DigitalPort.
type EdgePin interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	Read() gpio.Level
	WaitForEdge(timeout time.Duration) bool
	Halt() error
	String() string
}

// edgePoll bounds how long the watcher sits in WaitForEdge before it
// rechecks the enabled flag.
const edgePoll = 100 * time.Millisecond

// DigitalPort is a binary sensor on a GPIO line: a proximity switch or a
// pick-up (tilt/lift) switch. While enabled it reports the level once as an
// init reading, then every level change. One watcher goroutine owns the pin
// for the life of the port; Enable and Disable only flip its gate.
type DigitalPort struct {
	pin       EdgePin
	activeLow bool
	event     func(active bool, ts int64, init bool) gesture.Event
	emit      Emit
	nanos     Nanos
	logger    *zap.Logger

	wake chan struct{}

	mu          sync.Mutex
	enabled     bool
	pendingInit bool
	quit        chan struct{}
	done        chan struct{}
	last        gpio.Level
	hasLast     bool
}

// NewProximityPort reports "near" while the pin is active.
func NewProximityPort(pin EdgePin, activeLow bool, emit Emit, nanos Nanos, logger *zap.Logger) *DigitalPort {
	return newDigitalPort(pin, activeLow, emit, nanos, logger, "proximity",
		func(active bool, ts int64, init bool) gesture.Event {
			return gesture.ProximityEvent{Near: active, Timestamp: ts, Init: init}
		})
}

// NewPickUpPort reports "picked up" while the pin is active.
func NewPickUpPort(pin EdgePin, activeLow bool, emit Emit, logger *zap.Logger) *DigitalPort {
	return newDigitalPort(pin, activeLow, emit, nil, logger, "pickup",
		func(active bool, _ int64, init bool) gesture.Event {
			return gesture.PickUpEvent{PickedUp: active, Init: init}
		})
}

func newDigitalPort(pin EdgePin, activeLow bool, emit Emit, nanos Nanos, logger *zap.Logger, name string,
	event func(bool, int64, bool) gesture.Event) *DigitalPort {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DigitalPort{
		pin:       pin,
		activeLow: activeLow,
		event:     event,
		emit:      orDiscard(emit),
		nanos:     orDefault(nanos),
		logger:    logger.Named(name).With(zap.String("pin", pin.String())),
		wake:      make(chan struct{}, 1),
	}
}

// OpenPin initializes periph and looks up a GPIO line by name.
func OpenPin(name string) (gpio.PinIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("GPIO pin %q not found", name)
	}
	return p, nil
}

func (p *DigitalPort) active(l gpio.Level) bool {
	if p.activeLow {
		return l == gpio.Low
	}
	return l == gpio.High
}

// Enable starts reporting. The next reading is an init reading. A second
// Enable while enabled is a no-op.
func (p *DigitalPort) Enable() {
	p.mu.Lock()
	if p.enabled {
		p.mu.Unlock()
		return
	}
	p.enabled = true
	p.pendingInit = true
	if p.quit == nil {
		p.quit = make(chan struct{})
		p.done = make(chan struct{})
		go p.watch(p.quit, p.done)
	}
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	p.logger.Debug("enabled")
}

// Disable stops reporting. It does not block; edges seen by the watcher
// while disabled are discarded.
func (p *DigitalPort) Disable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	p.enabled = false
	p.pendingInit = false
	p.logger.Debug("disabled")
}

// Reset forgets the last reported level so the next reading is reported
// even if unchanged.
func (p *DigitalPort) Reset() {
	p.mu.Lock()
	p.hasLast = false
	p.mu.Unlock()
}

// Close stops the watcher, waits for it to exit and releases the pin.
func (p *DigitalPort) Close() error {
	p.mu.Lock()
	p.enabled = false
	quit, done := p.quit, p.done
	p.quit, p.done = nil, nil
	p.mu.Unlock()

	if quit != nil {
		close(quit)
		<-done
	}
	return p.pin.Halt()
}

func (p *DigitalPort) watch(quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	configured := false
	for {
		p.mu.Lock()
		enabled, init := p.enabled, p.pendingInit
		p.pendingInit = false
		p.mu.Unlock()

		if !enabled {
			select {
			case <-quit:
				return
			case <-p.wake:
			}
			continue
		}

		if init {
			if !configured {
				pull := gpio.PullDown
				if p.activeLow {
					pull = gpio.PullUp
				}
				if err := p.pin.In(pull, gpio.BothEdges); err != nil {
					p.logger.Error("failed to configure pin", zap.Error(err))
					p.mu.Lock()
					p.enabled = false
					p.mu.Unlock()
					continue
				}
				configured = true
			}
			p.report(p.pin.Read(), true)
		}

		select {
		case <-quit:
			return
		default:
		}
		if p.pin.WaitForEdge(edgePoll) {
			p.report(p.pin.Read(), false)
		}
	}
}

// report emits a reading unless the port was disabled, or re-enabled and
// still owes its init reading, since the watcher sampled the pin.
func (p *DigitalPort) report(level gpio.Level, init bool) {
	p.mu.Lock()
	if !p.enabled || p.pendingInit {
		p.mu.Unlock()
		return
	}
	if !init && p.hasLast && p.last == level {
		p.mu.Unlock()
		return
	}
	p.last = level
	p.hasLast = true
	p.mu.Unlock()

	active := p.active(level)
	p.logger.Debug("level", zap.Bool("active", active), zap.Bool("init", init))
	p.emit(p.event(active, p.nanos(), init))
}
