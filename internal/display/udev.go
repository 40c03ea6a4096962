// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"
	"go.uber.org/zap"

	"github.com/relabs-tech/doze_gestures/internal/gesture"
)

// BacklightMonitor listens for udev netlink "change" events on a backlight
// device and reads its power state from sysfs.
type BacklightMonitor struct {
	device    string
	sysfsRoot string
	emit      Emit
	logger    *zap.Logger

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
	state   tracker
}

// ErrNoBacklightDevice is returned for an empty device name.
var ErrNoBacklightDevice = errors.New("backlight device not set")

// NewBacklightMonitor watches /sys/class/backlight/<device>.
func NewBacklightMonitor(device string, emit Emit, logger *zap.Logger) (*BacklightMonitor, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		return nil, ErrNoBacklightDevice
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BacklightMonitor{
		device:    device,
		sysfsRoot: "/sys",
		emit:      emit,
		logger:    logger.Named("backlight").With(zap.String("device", device)),
	}, nil
}

func (m *BacklightMonitor) powerPath() string {
	return filepath.Join(m.sysfsRoot, "class", "backlight", m.device, "bl_power")
}

func (m *BacklightMonitor) brightnessPath() string {
	return filepath.Join(m.sysfsRoot, "class", "backlight", m.device, "brightness")
}

// readState reads bl_power (0 = unblanked). Drivers without bl_power are
// judged by brightness instead.
func (m *BacklightMonitor) readState() (bool, error) {
	if raw, err := os.ReadFile(m.powerPath()); err == nil {
		v, err := strconv.Atoi(strings.TrimSpace(string(raw)))
		if err != nil {
			return false, fmt.Errorf("parse bl_power: %w", err)
		}
		return v == 0, nil
	}

	raw, err := os.ReadFile(m.brightnessPath())
	if err != nil {
		return false, fmt.Errorf("read backlight state: %w", err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return false, fmt.Errorf("parse brightness: %w", err)
	}
	return v > 0, nil
}

// IsOn reads the state from sysfs; read failures report on.
func (m *BacklightMonitor) IsOn() bool {
	on, err := m.readState()
	if err != nil {
		m.logger.Warn("backlight state unreadable", zap.Error(err))
		return true
	}
	return on
}

// Start connects to the netlink socket. A connect failure is returned: with
// no display signal the daemon would never arm its sensors.
func (m *BacklightMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return fmt.Errorf("netlink connect: %w", err)
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	if on, err := m.readState(); err == nil {
		m.state.update(on)
	}

	quit := m.quit
	go m.monitorLoop(ctx, conn, quit)

	m.logger.Info("backlight monitor started")
	return nil
}

func (m *BacklightMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	close(m.quit)
	m.quit = nil
	_ = m.conn.Close()
	m.conn = nil
	m.running = false

	m.logger.Info("backlight monitor stopped")
}

// Running reports whether the monitor is active.
func (m *BacklightMonitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *BacklightMonitor) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, m.buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error", zap.Error(err))
		}
	}
}

// buildMatcher matches SUBSYSTEM=backlight, ACTION=change.
func (m *BacklightMonitor) buildMatcher() netlink.Matcher {
	action := "change"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "backlight",
		},
	})
	return rules
}

func (m *BacklightMonitor) handleEvent(uevent netlink.UEvent) {
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		devpath = uevent.KObj
	}
	if filepath.Base(devpath) != m.device {
		m.logger.Debug("ignoring event for other backlight", zap.String("devpath", devpath))
		return
	}

	on, err := m.readState()
	if err != nil {
		m.logger.Warn("backlight state unreadable", zap.Error(err))
		return
	}

	m.mu.Lock()
	changed := m.state.update(on)
	m.mu.Unlock()

	if changed {
		m.logger.Info("display state", zap.Bool("on", on))
		if m.emit != nil {
			m.emit(gesture.DisplayEvent{On: on})
		}
	}
}
