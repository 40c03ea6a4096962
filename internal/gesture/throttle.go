// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

import "time"

// PulseMinInterval is the minimum spacing between two emitted pulses.
const PulseMinInterval = 5000 * time.Millisecond

// PulseThrottle is a size-one rate limiter. Triggers inside the interval are
// dropped, never deferred.
type PulseThrottle struct {
	MinInterval time.Duration

	last time.Duration // 0 = never fired
}

// NewPulseThrottle returns a throttle with the given minimum interval.
func NewPulseThrottle(minInterval time.Duration) *PulseThrottle {
	return &PulseThrottle{MinInterval: minInterval}
}

// ShouldFire reports whether a pulse may be emitted at now and, if so,
// records now as the last pulse time.
func (t *PulseThrottle) ShouldFire(now time.Duration) bool {
	if t.last != 0 && now-t.last < t.MinInterval {
		return false
	}
	t.last = now
	return true
}

// Since returns the time elapsed since the last pulse, or MinInterval if
// no pulse was ever emitted.
func (t *PulseThrottle) Since(now time.Duration) time.Duration {
	if t.last == 0 {
		return t.MinInterval
	}
	return now - t.last
}

// Last returns the last pulse time (0 = never).
func (t *PulseThrottle) Last() time.Duration { return t.last }

// Reset forgets the last pulse.
func (t *PulseThrottle) Reset() { t.last = 0 }
