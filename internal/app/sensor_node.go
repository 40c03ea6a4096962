// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/doze_gestures/internal/clock"
	"github.com/relabs-tech/doze_gestures/internal/config"
	"github.com/relabs-tech/doze_gestures/internal/gesture"
	"github.com/relabs-tech/doze_gestures/internal/orientation"
	"github.com/relabs-tech/doze_gestures/internal/sensors"
	"github.com/relabs-tech/doze_gestures/internal/transport"
)

// Poser exposes the last pose an orientation port read.
type Poser interface {
	Pose() orientation.Pose
}

// SensorNode runs the sensors locally and bridges them to a remote daemon:
// readings are published as JSON, control commands drive the ports.
type SensorNode struct {
	bus    transport.Bus
	topics sensors.RemoteTopics
	logger *zap.Logger

	ports map[string]gesture.Port
	poser Poser
}

func NewSensorNode(bus transport.Bus, topics sensors.RemoteTopics, logger *zap.Logger) *SensorNode {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SensorNode{
		bus:    bus,
		topics: topics,
		logger: logger.Named("sensor_node"),
		ports:  make(map[string]gesture.Port),
	}
}

// Attach registers the port controlled by <control>/<sensor>.
func (n *SensorNode) Attach(s gesture.Sensor, p gesture.Port) {
	if p == nil {
		return
	}
	n.ports[s.String()] = p
	if poser, ok := p.(Poser); ok && s == gesture.SensorOrientation {
		n.poser = poser
	}
}

// Emit publishes a reading. It is the sensors.Emit of every attached port.
func (n *SensorNode) Emit(ev gesture.Event) {
	var (
		topic string
		msg   any
	)
	switch ev := ev.(type) {
	case gesture.ProximityEvent:
		topic, msg = n.topics.Proximity, sensors.ProximityMessage{Near: ev.Near, Timestamp: ev.Timestamp, Init: ev.Init}
	case gesture.PickUpEvent:
		topic, msg = n.topics.PickUp, sensors.PickUpMessage{PickedUp: ev.PickedUp, Init: ev.Init}
	case gesture.OrientationEvent:
		var pose orientation.Pose
		if n.poser != nil {
			pose = n.poser.Pose()
		}
		topic, msg = n.topics.Pose, sensors.PoseMessage{Pose: pose, Class: orientation.Classify(pose).String()}
	default:
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		n.logger.Error("json marshal error", zap.Error(err))
		return
	}
	go func() {
		if err := n.bus.Publish(topic, 1, false, payload); err != nil {
			n.logger.Warn("MQTT publish error", zap.String("topic", topic), zap.Error(err))
		}
	}()
}

// Start subscribes to the control topics.
func (n *SensorNode) Start() error {
	filter := n.topics.Control + "/+"
	if err := n.bus.Subscribe(filter, 1, n.onControl); err != nil {
		return fmt.Errorf("sensor node: %w", err)
	}
	n.logger.Info("listening for sensor control", zap.String("topic", filter))
	return nil
}

// Stop disables every port.
func (n *SensorNode) Stop() {
	_ = n.bus.Unsubscribe(n.topics.Control + "/+")
	for _, p := range n.ports {
		p.Disable()
	}
}

func (n *SensorNode) onControl(topic string, payload []byte) error {
	name := path.Base(topic)
	p, ok := n.ports[name]
	if !ok {
		return fmt.Errorf("no sensor %q on this node", name)
	}

	switch cmd := string(payload); cmd {
	case sensors.CommandEnable:
		p.Enable()
	case sensors.CommandDisable:
		p.Disable()
	case sensors.CommandReset:
		p.Reset()
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	n.logger.Debug("control", zap.String("sensor", name), zap.ByteString("command", payload))
	return nil
}

// RunSensorNode runs the GPIO/IMU sensors on this machine for a remote
// daemon until ctx is cancelled.
func RunSensorNode(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting doze sensor node (sensors → MQTT)")

	client, err := transport.NewClient(transport.Options{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientIDNode,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
	}, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	node := NewSensorNode(client, RemoteTopics(cfg), logger)

	pin, err := sensors.OpenPin(cfg.ProximityGPIOPin)
	if err != nil {
		return fmt.Errorf("proximity: %w", err)
	}
	prox := sensors.NewProximityPort(pin, cfg.ProximityActiveLow, node.Emit, clock.Nanos, logger)
	defer prox.Close()
	node.Attach(gesture.SensorProximity, prox)

	if cfg.PickUpGPIOPin != "" {
		pin, err := sensors.OpenPin(cfg.PickUpGPIOPin)
		if err != nil {
			return fmt.Errorf("pick-up: %w", err)
		}
		pick := sensors.NewPickUpPort(pin, cfg.PickUpActiveLow, node.Emit, logger)
		defer pick.Close()
		node.Attach(gesture.SensorPickUp, pick)
	}

	src, err := orientation.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin)
	if err != nil {
		return fmt.Errorf("orientation: %w", err)
	}
	interval := time.Duration(cfg.OrientationSampleInterval) * time.Millisecond
	orient := sensors.NewOrientationPort(src, interval, node.Emit, logger)
	defer orient.Close()
	node.Attach(gesture.SensorOrientation, orient)

	if err := node.Start(); err != nil {
		return err
	}
	defer node.Stop()

	<-ctx.Done()
	logger.Info("sensor node shutting down")
	return nil
}
