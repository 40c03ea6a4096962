// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/relabs-tech/doze_gestures/internal/gesture"
	"github.com/relabs-tech/doze_gestures/internal/orientation"
	"github.com/relabs-tech/doze_gestures/internal/transport"
)

// RemoteTopics are the topics a sensor node publishes on.
type RemoteTopics struct {
	Proximity string
	PickUp    string
	Pose      string
	Control   string // prefix; commands go to Control/<sensor>
}

// ControlTopic returns the command topic for one sensor.
func (t RemoteTopics) ControlTopic(s gesture.Sensor) string {
	return t.Control + "/" + s.String()
}

// Remote exposes sensors that live on another machine (a sensor node) and
// talk to the daemon over MQTT. Enable, Disable and Reset queue a control
// command without blocking; one sender publishes the queue in call order.
// Readings arrive as JSON messages.
type Remote struct {
	bus    transport.Bus
	topics RemoteTopics
	emit   Emit
	logger *zap.Logger

	enabled [3]atomic.Bool
	class   atomic.Int32

	proximity   *remotePort
	pickUp      *remotePort
	orientation *remoteOrientation

	mu      sync.Mutex
	pending []controlCommand
	kick    chan struct{}
	quit    chan struct{}
	done    chan struct{}
	closed  bool
}

type controlCommand struct {
	topic string
	cmd   string
}

// NewRemote subscribes to the reading topics.
func NewRemote(bus transport.Bus, topics RemoteTopics, emit Emit, logger *zap.Logger) (*Remote, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Remote{
		bus:    bus,
		topics: topics,
		emit:   orDiscard(emit),
		logger: logger.Named("remote_sensors"),
		kick:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	r.proximity = &remotePort{remote: r, sensor: gesture.SensorProximity}
	r.pickUp = &remotePort{remote: r, sensor: gesture.SensorPickUp}
	r.orientation = &remoteOrientation{remotePort{remote: r, sensor: gesture.SensorOrientation}}

	subs := []struct {
		topic   string
		handler transport.MessageHandler
	}{
		{topics.Proximity, r.onProximity},
		{topics.PickUp, r.onPickUp},
		{topics.Pose, r.onPose},
	}
	for _, s := range subs {
		if err := bus.Subscribe(s.topic, 1, s.handler); err != nil {
			return nil, fmt.Errorf("remote sensors: %w", err)
		}
	}
	go r.sendLoop()
	return r, nil
}

func (r *Remote) Proximity() gesture.Port              { return r.proximity }
func (r *Remote) PickUp() gesture.Port                 { return r.pickUp }
func (r *Remote) Orientation() gesture.OrientationPort { return r.orientation }
func (r *Remote) Class() orientation.Class             { return orientation.Class(r.class.Load()) }

// Close unsubscribes from the reading topics, publishes any queued
// commands and stops the sender.
func (r *Remote) Close() error {
	err := r.bus.Unsubscribe(r.topics.Proximity, r.topics.PickUp, r.topics.Pose)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return err
	}
	r.closed = true
	r.mu.Unlock()

	close(r.quit)
	<-r.done
	return err
}

func (r *Remote) onProximity(_ string, payload []byte) error {
	var m ProximityMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return fmt.Errorf("proximity payload: %w", err)
	}
	if r.enabled[gesture.SensorProximity].Load() {
		r.emit(gesture.ProximityEvent{Near: m.Near, Timestamp: m.Timestamp, Init: m.Init})
	}
	return nil
}

func (r *Remote) onPickUp(_ string, payload []byte) error {
	var m PickUpMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return fmt.Errorf("pick-up payload: %w", err)
	}
	if r.enabled[gesture.SensorPickUp].Load() {
		r.emit(gesture.PickUpEvent{PickedUp: m.PickedUp, Init: m.Init})
	}
	return nil
}

func (r *Remote) onPose(_ string, payload []byte) error {
	var m PoseMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return fmt.Errorf("pose payload: %w", err)
	}
	r.class.Store(int32(orientation.Classify(m.Pose)))
	if r.enabled[gesture.SensorOrientation].Load() {
		r.emit(gesture.OrientationEvent{})
	}
	return nil
}

func (r *Remote) command(s gesture.Sensor, cmd string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Debug("command after close dropped", zap.Stringer("sensor", s), zap.String("command", cmd))
		return
	}
	r.pending = append(r.pending, controlCommand{topic: r.topics.ControlTopic(s), cmd: cmd})
	r.mu.Unlock()

	select {
	case r.kick <- struct{}{}:
	default:
	}
}

func (r *Remote) sendLoop() {
	defer close(r.done)
	for {
		select {
		case <-r.kick:
			r.flush()
		case <-r.quit:
			r.flush()
			return
		}
	}
}

func (r *Remote) flush() {
	for {
		r.mu.Lock()
		if len(r.pending) == 0 {
			r.mu.Unlock()
			return
		}
		c := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()

		if err := r.bus.Publish(c.topic, 1, false, []byte(c.cmd)); err != nil {
			r.logger.Warn("control command failed",
				zap.String("topic", c.topic),
				zap.String("command", c.cmd),
				zap.Error(err),
			)
		}
	}
}

type remotePort struct {
	remote *Remote
	sensor gesture.Sensor
}

func (p *remotePort) Enable() {
	p.remote.enabled[p.sensor].Store(true)
	p.remote.command(p.sensor, CommandEnable)
}

func (p *remotePort) Disable() {
	p.remote.enabled[p.sensor].Store(false)
	p.remote.command(p.sensor, CommandDisable)
}

func (p *remotePort) Reset() {
	if p.sensor == gesture.SensorOrientation {
		p.remote.class.Store(int32(orientation.Unknown))
	}
	p.remote.command(p.sensor, CommandReset)
}

type remoteOrientation struct {
	remotePort
}

func (o *remoteOrientation) IsFaceDown() bool { return o.remote.Class() == orientation.FaceDown }
func (o *remoteOrientation) IsFaceUp() bool   { return o.remote.Class() == orientation.FaceUp }
func (o *remoteOrientation) IsVertical() bool { return o.remote.Class() == orientation.Vertical }
