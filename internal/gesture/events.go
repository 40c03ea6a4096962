// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

// Sensor identifies one of the three sensors owned by the Arbiter.
type Sensor int

const (
	SensorOrientation Sensor = iota
	SensorPickUp
	SensorProximity

	sensorCount
)

func (s Sensor) String() string {
	switch s {
	case SensorOrientation:
		return "orientation"
	case SensorPickUp:
		return "pickup"
	case SensorProximity:
		return "proximity"
	default:
		return "unknown"
	}
}

// Event is any input the engine consumes. All inputs share one queue so
// sensor callbacks, display transitions and config changes are totally ordered.
type Event interface {
	isEvent()
}

// sensorEvent is implemented by events that originate from a sensor port.
// gen is the arbiter generation at emission time; zero means "current".
type sensorEvent interface {
	Event
	source() Sensor
	generation() uint64
	stamped(gen uint64) Event
}

// ProximityEvent reports a proximity transition. Timestamp is in nanoseconds
// on the sensor timebase. Init marks the first reading after the port is enabled.
type ProximityEvent struct {
	Near      bool
	Timestamp int64
	Init      bool

	gen uint64
}

// OrientationEvent carries no payload; the engine re-reads the orientation
// classification from the port.
type OrientationEvent struct {
	gen uint64
}

// PickUpEvent reports the pick-up state. Init marks the first reading after
// the port is enabled.
type PickUpEvent struct {
	PickedUp bool
	Init     bool

	gen uint64
}

// DisplayEvent is posted by the display lifecycle bridge.
type DisplayEvent struct {
	On bool
}

// ConfigChange updates a single gesture flag.
type ConfigChange struct {
	Key     string
	Enabled bool
}

func (ProximityEvent) isEvent()   {}
func (OrientationEvent) isEvent() {}
func (PickUpEvent) isEvent()      {}
func (DisplayEvent) isEvent()     {}
func (ConfigChange) isEvent()     {}

func (e ProximityEvent) source() Sensor         { return SensorProximity }
func (e ProximityEvent) generation() uint64     { return e.gen }
func (e ProximityEvent) stamped(g uint64) Event { e.gen = g; return e }

func (e OrientationEvent) source() Sensor         { return SensorOrientation }
func (e OrientationEvent) generation() uint64     { return e.gen }
func (e OrientationEvent) stamped(g uint64) Event { e.gen = g; return e }

func (e PickUpEvent) source() Sensor         { return SensorPickUp }
func (e PickUpEvent) generation() uint64     { return e.gen }
func (e PickUpEvent) stamped(g uint64) Event { e.gen = g; return e }
