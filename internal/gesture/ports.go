// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

import "time"

// Port is the power-control side of a sensor. Implementations must not block:
// enable and disable are fire-and-forget, reset clears internal debounce state
// and is idempotent.
type Port interface {
	Enable()
	Disable()
	Reset()
}

// OrientationReader exposes the current orientation classification.
type OrientationReader interface {
	IsFaceDown() bool
	IsFaceUp() bool
	IsVertical() bool
}

// OrientationPort is a Port that also classifies orientation.
type OrientationPort interface {
	Port
	OrientationReader
}

// WakeHold keeps the device awake for a bounded time. There is no release:
// the hold expires on its own after timeout.
type WakeHold interface {
	Acquire(timeout time.Duration)
}

// PulseSink receives the doze pulse. Delivery is fire-and-forget.
type PulseSink interface {
	Pulse()
}

// Clock returns monotonic time since boot.
type Clock interface {
	Now() time.Duration
}

type noWake struct{}

func (noWake) Acquire(time.Duration) {}
