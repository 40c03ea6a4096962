// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/relabs-tech/doze_gestures/internal/clock"
	"github.com/relabs-tech/doze_gestures/internal/config"
	"github.com/relabs-tech/doze_gestures/internal/display"
	"github.com/relabs-tech/doze_gestures/internal/gesture"
	"github.com/relabs-tech/doze_gestures/internal/orientation"
	"github.com/relabs-tech/doze_gestures/internal/prefs"
	"github.com/relabs-tech/doze_gestures/internal/sensors"
	"github.com/relabs-tech/doze_gestures/internal/transport"
	"github.com/relabs-tech/doze_gestures/internal/wakelock"
)

// Ports are the three sensor ports plus whatever must run or be closed
// alongside them.
type Ports struct {
	Orientation gesture.OrientationPort
	PickUp      gesture.Port
	Proximity   gesture.Port

	run     []func(ctx context.Context) error
	closers []io.Closer
}

// BuildPorts opens the sensor backend named in cfg. emit receives every
// sensor event.
func BuildPorts(cfg *config.Config, bus transport.Bus, emit func(gesture.Event), logger *zap.Logger) (*Ports, error) {
	switch cfg.SensorBackend {
	case config.BackendGPIO:
		return buildGPIOPorts(cfg, emit, logger)

	case config.BackendSerial:
		rwc, err := sensors.OpenSerial(cfg.SerialPort, cfg.SerialBaudRate)
		if err != nil {
			return nil, err
		}
		hub := sensors.NewHub(rwc, emit, clock.Nanos, logger)
		logger.Info("serial sensor hub opened",
			zap.String("port", cfg.SerialPort),
			zap.Int("baud", cfg.SerialBaudRate),
		)
		return &Ports{
			Orientation: hub.Orientation(),
			PickUp:      hub.PickUp(),
			Proximity:   hub.Proximity(),
			run:         []func(context.Context) error{hub.Run},
			closers:     []io.Closer{rwc},
		}, nil

	case config.BackendMQTT:
		remote, err := sensors.NewRemote(bus, RemoteTopics(cfg), emit, logger)
		if err != nil {
			return nil, err
		}
		return &Ports{
			Orientation: remote.Orientation(),
			PickUp:      remote.PickUp(),
			Proximity:   remote.Proximity(),
			closers:     []io.Closer{closerFunc(remote.Close)},
		}, nil
	}
	return nil, fmt.Errorf("unknown sensor backend %q", cfg.SensorBackend)
}

func buildGPIOPorts(cfg *config.Config, emit func(gesture.Event), logger *zap.Logger) (*Ports, error) {
	ports := &Ports{}

	pin, err := sensors.OpenPin(cfg.ProximityGPIOPin)
	if err != nil {
		return nil, fmt.Errorf("proximity: %w", err)
	}
	prox := sensors.NewProximityPort(pin, cfg.ProximityActiveLow, emit, clock.Nanos, logger)
	ports.Proximity = prox
	ports.closers = append(ports.closers, prox)

	// Pick-up is optional hardware; without it the pick-up gesture relies
	// on orientation alone.
	if cfg.PickUpGPIOPin != "" {
		pin, err := sensors.OpenPin(cfg.PickUpGPIOPin)
		if err != nil {
			return nil, fmt.Errorf("pick-up: %w", err)
		}
		pick := sensors.NewPickUpPort(pin, cfg.PickUpActiveLow, emit, logger)
		ports.PickUp = pick
		ports.closers = append(ports.closers, pick)
	}

	src, err := orientation.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin)
	if err != nil {
		ports.Close()
		return nil, fmt.Errorf("orientation: %w", err)
	}
	interval := time.Duration(cfg.OrientationSampleInterval) * time.Millisecond
	orient := sensors.NewOrientationPort(src, interval, emit, logger)
	ports.Orientation = orient
	ports.closers = append(ports.closers, orient)

	return ports, nil
}

// RemoteTopics maps the configured topics for a sensor node.
func RemoteTopics(cfg *config.Config) sensors.RemoteTopics {
	return sensors.RemoteTopics{
		Proximity: cfg.TopicSensorProximity,
		PickUp:    cfg.TopicSensorPickUp,
		Pose:      cfg.TopicSensorPose,
		Control:   cfg.TopicSensorControl,
	}
}

// Close releases the backend.
func (p *Ports) Close() {
	for _, c := range p.closers {
		_ = c.Close()
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// RunDaemon runs the gesture daemon until ctx is cancelled.
func RunDaemon(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	lock := flock.New(cfg.LockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another dozed instance holds %s", cfg.LockPath)
	}
	defer lock.Unlock()

	client, err := transport.NewClient(transport.Options{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
	}, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	d, err := NewDaemon(cfg, client, logger)
	if err != nil {
		return err
	}
	return d.Run(ctx)
}

// Daemon is the assembled gesture service.
type Daemon struct {
	cfg    *config.Config
	logger *zap.Logger

	Engine  *gesture.Engine
	Service *Service
	Debug   *DebugServer
	Pulses  *transport.PulsePublisher

	ports *Ports
	state *statePublisher
}

// NewDaemon wires the engine to its collaborators over bus.
func NewDaemon(cfg *config.Config, bus transport.Bus, logger *zap.Logger) (*Daemon, error) {
	d := &Daemon{cfg: cfg, logger: logger}

	// Ports and sources are built before the engine exists; they reach it
	// through this indirection.
	var engine *gesture.Engine
	post := func(ev gesture.Event) {
		if engine != nil {
			engine.Post(ev)
		}
	}

	doze, err := transport.NewDozeFlag(bus, cfg.TopicDozeEnabled, logger)
	if err != nil {
		return nil, err
	}

	store := prefs.NewStore(cfg.PrefsPath)
	toggles, err := store.Load()
	if err != nil {
		return nil, err
	}
	initial := gesture.Config{DozeEnabled: doze.DozeEnabled()}
	toggles.Apply(&initial)
	logger.Info("gesture toggles loaded",
		zap.String("path", store.Path()),
		zap.Bool(gesture.KeyHandWave, initial.HandWave),
		zap.Bool(gesture.KeyPickUp, initial.PickUp),
		zap.Bool(gesture.KeyPocket, initial.Pocket),
	)

	ports, err := BuildPorts(cfg, bus, post, logger)
	if err != nil {
		return nil, err
	}
	d.ports = ports

	var wake gesture.WakeHold = wakelock.Noop{}
	if w, err := wakelock.Open(cfg.WakeLockPath, cfg.WakeLockName, logger); err != nil {
		logger.Warn("wake locks unavailable", zap.Error(err))
	} else {
		wake = w
	}

	mode, _ := gesture.ParseRingerMode(cfg.RingerMode)
	d.Pulses = transport.NewPulsePublisher(bus, cfg.TopicPulse, logger)
	d.state = newStatePublisher(bus, cfg.TopicState, logger)

	engine = gesture.New(initial, gesture.Deps{
		Orientation: ports.Orientation,
		PickUp:      ports.PickUp,
		Proximity:   ports.Proximity,
		Doze:        doze,
		Sink:        d.Pulses,
		Wake:        wake,
		Ack:         gesture.RingerAck{Mode: func() gesture.RingerMode { return mode }},
		Clock:       clock.Boot{},
		Logger:      logger,
		OnChange:    d.onChange,
		QueueSize:   cfg.EventQueueSize,
	})
	d.Engine = engine
	if cfg.DebugHTTPAddr != "" {
		d.Debug = NewDebugServer(engine, logger)
	}

	var source display.Source
	switch cfg.DisplaySource {
	case config.DisplayUdev:
		m, err := display.NewBacklightMonitor(cfg.BacklightDevice, post, logger)
		if err != nil {
			ports.Close()
			return nil, fmt.Errorf("display source: %w", err)
		}
		source = m
	default:
		source = display.NewMQTTSource(bus, cfg.TopicDisplay, post, logger)
	}
	watcher := prefs.NewWatcher(bus, cfg.TopicPrefs, store, post, logger)
	d.Service = NewService(engine, source, watcher, logger)

	return d, nil
}

func (d *Daemon) onChange(s gesture.Snapshot) {
	d.state.Offer(s)
	if d.Debug != nil {
		d.Debug.Publish(s)
	}
}

// Run starts the service and processes events until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer d.ports.Close()

	errc := make(chan error, 4)
	for _, run := range d.ports.run {
		go func(run func(context.Context) error) {
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errc <- fmt.Errorf("sensor backend: %w", err)
			}
		}(run)
	}
	go d.state.Run(ctx)
	if d.Debug != nil {
		go func() {
			if err := d.Debug.ListenAndServe(ctx, d.cfg.DebugHTTPAddr); err != nil {
				errc <- fmt.Errorf("debug server: %w", err)
			}
		}()
	}

	if err := d.Service.Start(ctx); err != nil {
		return err
	}
	defer d.Service.Stop()

	go func() {
		_ = d.Engine.Run(ctx)
	}()

	d.logger.Info("dozed running",
		zap.String("sensor_backend", d.cfg.SensorBackend),
		zap.String("display_source", d.cfg.DisplaySource),
	)

	select {
	case <-ctx.Done():
		d.logger.Info("shutting down")
		return nil
	case err := <-errc:
		d.logger.Error("fatal component error", zap.Error(err))
		return err
	}
}
