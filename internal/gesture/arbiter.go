// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// SensorsWakeLockDuration bounds every wake-hold taken by the daemon.
const SensorsWakeLockDuration = 1000 * time.Millisecond

// Arbiter is the single authority over which sensors are powered.
// Orientation and PickUp are never enabled at the same time.
//
// Set* calls are expected from the engine's evaluation context only; the
// enabled flags and generations are atomics so Post can stamp events from
// port goroutines.
type Arbiter struct {
	ports   [sensorCount]Port
	enabled [sensorCount]atomic.Bool
	gen     [sensorCount]atomic.Uint64

	wake   WakeHold
	logger *zap.Logger
}

// NewArbiter builds an arbiter over the three ports. Any port may be nil;
// calls on a nil port are silent no-ops.
func NewArbiter(orientation, pickUp, proximity Port, wake WakeHold, logger *zap.Logger) *Arbiter {
	if wake == nil {
		wake = noWake{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Arbiter{wake: wake, logger: logger}
	a.ports[SensorOrientation] = orientation
	a.ports[SensorPickUp] = pickUp
	a.ports[SensorProximity] = proximity
	return a
}

// SetOrientation powers the orientation sensor. Enabling it first disables
// the pick-up sensor and takes a bounded wake-hold.
func (a *Arbiter) SetOrientation(enabled, reset bool) {
	if a.ports[SensorOrientation] == nil {
		return
	}
	if enabled {
		a.SetPickUp(false, false)
		a.wake.Acquire(SensorsWakeLockDuration)
	}
	a.set(SensorOrientation, enabled, reset)
}

// SetPickUp powers the pick-up sensor. Enabling it first disables the
// orientation sensor.
func (a *Arbiter) SetPickUp(enabled, reset bool) {
	if a.ports[SensorPickUp] == nil {
		return
	}
	if enabled {
		a.SetOrientation(false, false)
	}
	a.set(SensorPickUp, enabled, reset)
}

// SetProximity powers the proximity sensor.
func (a *Arbiter) SetProximity(enabled, reset bool) {
	a.set(SensorProximity, enabled, reset)
}

func (a *Arbiter) set(s Sensor, enabled, reset bool) {
	port := a.ports[s]
	if port == nil {
		return
	}

	if reset {
		port.Reset()
		a.gen[s].Add(1)
	}

	was := a.enabled[s].Load()
	if enabled {
		if !was {
			a.gen[s].Add(1)
		}
		a.enabled[s].Store(true)
		port.Enable()
	} else {
		a.enabled[s].Store(false)
		port.Disable()
	}

	if was != enabled {
		a.logger.Debug("sensor power changed",
			zap.Stringer("sensor", s),
			zap.Bool("enabled", enabled),
			zap.Bool("reset", reset),
		)
	}
}

// DisableAll force-disables and resets every sensor.
func (a *Arbiter) DisableAll() {
	a.SetOrientation(false, true)
	a.SetPickUp(false, true)
	a.SetProximity(false, true)
}

// Enabled reports whether s is currently powered.
func (a *Arbiter) Enabled(s Sensor) bool {
	if s < 0 || s >= sensorCount {
		return false
	}
	return a.enabled[s].Load()
}

// Generation returns the current power generation of s. It changes every
// time the sensor is enabled from off or reset.
func (a *Arbiter) Generation(s Sensor) uint64 {
	if s < 0 || s >= sensorCount {
		return 0
	}
	return a.gen[s].Load()
}

// current reports whether an event stamped with gen from sensor s may still be
// acted upon.
func (a *Arbiter) current(s Sensor, gen uint64) bool {
	if !a.Enabled(s) {
		return false
	}
	return gen == 0 || gen == a.Generation(s)
}
