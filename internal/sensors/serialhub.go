// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	serial "github.com/jacobsa/go-serial/serial"
	"go.uber.org/zap"

	"github.com/relabs-tech/doze_gestures/internal/gesture"
	"github.com/relabs-tech/doze_gestures/internal/orientation"
)

// Hub speaks a line protocol with a sensor microcontroller over a UART.
//
// Inbound, one reading per line:
//
//	PROX <0|1> [ts_ns]     proximity change, 1 = near
//	PROX_INIT <0|1> [ts_ns]
//	PICK <0|1>             pick-up change, 1 = picked up
//	PICK_INIT <0|1>
//	ORIENT <face_up|face_down|vertical|tilted|unknown>
//
// Outbound, one command per line: "EN <sensor>", "DIS <sensor>", "RST <sensor>"
// where sensor is PROX, PICK or ORIENT. Without a timestamp the boot clock is used.
type Hub struct {
	rw     io.ReadWriter
	emit   Emit
	nanos  Nanos
	logger *zap.Logger

	out     chan string
	enabled [3]atomic.Bool
	class   atomic.Int32

	proximity   *hubPort
	pickUp      *hubPort
	orientation *hubOrientation
}

// HubCommandQueue bounds outstanding outbound commands.
const HubCommandQueue = 16

// OpenSerial opens a UART with the 8N1 settings the hub firmware uses.
func OpenSerial(port string, baud int) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:              port,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	rwc, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", port, err)
	}
	return rwc, nil
}

func NewHub(rw io.ReadWriter, emit Emit, nanos Nanos, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		rw:     rw,
		emit:   orDiscard(emit),
		nanos:  orDefault(nanos),
		logger: logger.Named("serial_hub"),
		out:    make(chan string, HubCommandQueue),
	}
	h.proximity = &hubPort{hub: h, sensor: gesture.SensorProximity}
	h.pickUp = &hubPort{hub: h, sensor: gesture.SensorPickUp}
	h.orientation = &hubOrientation{hubPort{hub: h, sensor: gesture.SensorOrientation}}
	return h
}

func (h *Hub) Proximity() gesture.Port               { return h.proximity }
func (h *Hub) PickUp() gesture.Port                  { return h.pickUp }
func (h *Hub) Orientation() gesture.OrientationPort  { return h.orientation }
func (h *Hub) Class() orientation.Class              { return orientation.Class(h.class.Load()) }
func (h *Hub) enabledSensor(s gesture.Sensor) bool   { return h.enabled[s].Load() }
func (h *Hub) setEnabled(s gesture.Sensor, v bool)   { h.enabled[s].Store(v) }
func (h *Hub) command(verb string, s gesture.Sensor) { h.send(verb + " " + wireName(s)) }

func wireName(s gesture.Sensor) string {
	switch s {
	case gesture.SensorProximity:
		return "PROX"
	case gesture.SensorPickUp:
		return "PICK"
	default:
		return "ORIENT"
	}
}

func (h *Hub) send(line string) {
	select {
	case h.out <- line:
	default:
		h.logger.Warn("command queue full, dropping command", zap.String("command", line))
	}
}

// Run reads readings and writes commands until ctx is cancelled or the
// stream fails.
func (h *Hub) Run(ctx context.Context) error {
	errc := make(chan error, 2)
	go func() { errc <- h.writeLoop(ctx) }()
	go func() { errc <- h.readLoop() }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errc:
		return err
	}
}

func (h *Hub) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line := <-h.out:
			if _, err := io.WriteString(h.rw, line+"\n"); err != nil {
				return fmt.Errorf("serial write: %w", err)
			}
			h.logger.Debug("command sent", zap.String("command", line))
		}
	}
}

func (h *Hub) readLoop() error {
	reader := bufio.NewReader(h.rw)
	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			if perr := h.handleLine(line); perr != nil {
				h.logger.Debug("ignoring line", zap.String("line", line), zap.Error(perr))
			}
		}
		if err != nil {
			return fmt.Errorf("serial read: %w", err)
		}
	}
}

func (h *Hub) handleLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return fmt.Errorf("too few fields")
	}

	switch fields[0] {
	case "PROX", "PROX_INIT":
		near, err := parseFlag(fields[1])
		if err != nil {
			return err
		}
		ts := h.nanos()
		if len(fields) > 2 {
			if ts, err = strconv.ParseInt(fields[2], 10, 64); err != nil {
				return fmt.Errorf("bad timestamp %q", fields[2])
			}
		}
		if h.enabledSensor(gesture.SensorProximity) {
			h.emit(gesture.ProximityEvent{Near: near, Timestamp: ts, Init: fields[0] == "PROX_INIT"})
		}

	case "PICK", "PICK_INIT":
		picked, err := parseFlag(fields[1])
		if err != nil {
			return err
		}
		if h.enabledSensor(gesture.SensorPickUp) {
			h.emit(gesture.PickUpEvent{PickedUp: picked, Init: fields[0] == "PICK_INIT"})
		}

	case "ORIENT":
		class, ok := orientation.ParseClass(fields[1])
		if !ok {
			return fmt.Errorf("unknown orientation %q", fields[1])
		}
		h.class.Store(int32(class))
		if h.enabledSensor(gesture.SensorOrientation) {
			h.emit(gesture.OrientationEvent{})
		}

	default:
		return fmt.Errorf("unknown reading %q", fields[0])
	}
	return nil
}

func parseFlag(s string) (bool, error) {
	switch s {
	case "1":
		return true, nil
	case "0":
		return false, nil
	}
	return false, fmt.Errorf("bad flag %q", s)
}

type hubPort struct {
	hub    *Hub
	sensor gesture.Sensor
}

func (p *hubPort) Enable() {
	p.hub.setEnabled(p.sensor, true)
	p.hub.command("EN", p.sensor)
}

func (p *hubPort) Disable() {
	p.hub.setEnabled(p.sensor, false)
	p.hub.command("DIS", p.sensor)
}

func (p *hubPort) Reset() {
	if p.sensor == gesture.SensorOrientation {
		p.hub.class.Store(int32(orientation.Unknown))
	}
	p.hub.command("RST", p.sensor)
}

type hubOrientation struct {
	hubPort
}

func (o *hubOrientation) IsFaceDown() bool { return o.hub.Class() == orientation.FaceDown }
func (o *hubOrientation) IsFaceUp() bool   { return o.hub.Class() == orientation.FaceUp }
func (o *hubOrientation) IsVertical() bool { return o.hub.Class() == orientation.Vertical }
