// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors contains the concrete sensor ports: GPIO and IMU drivers,
// a UART sensor hub, and a remote feed over MQTT.
package sensors

import (
	"github.com/relabs-tech/doze_gestures/internal/clock"
	"github.com/relabs-tech/doze_gestures/internal/gesture"
)

// Emit delivers a sensor event to the engine. It must not block.
type Emit func(gesture.Event)

// Nanos returns the sensor timebase in nanoseconds.
type Nanos func() int64

func orDefault(n Nanos) Nanos {
	if n == nil {
		return clock.Nanos
	}
	return n
}

func orDiscard(e Emit) Emit {
	if e == nil {
		return func(gesture.Event) {}
	}
	return e
}
