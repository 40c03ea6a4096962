// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

import "strings"

// RingerMode mirrors the phone ringer setting consulted on acknowledgment.
type RingerMode int

const (
	RingerNormal RingerMode = iota
	RingerVibrate
	RingerSilent
)

// ParseRingerMode accepts "normal", "vibrate" or "silent".
func ParseRingerMode(s string) (RingerMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return RingerNormal, true
	case "vibrate":
		return RingerVibrate, true
	case "silent":
		return RingerSilent, true
	}
	return RingerNormal, false
}

func (m RingerMode) String() string {
	switch m {
	case RingerVibrate:
		return "vibrate"
	case RingerSilent:
		return "silent"
	default:
		return "normal"
	}
}

// Acknowledger runs the side effect that accompanies an emitted pulse.
type Acknowledger interface {
	Acknowledge()
}

// RingerAck dispatches on the ringer mode. No branch produces sound or
// vibration; the pulse is acknowledged silently in every mode.
type RingerAck struct {
	Mode func() RingerMode
}

func (a RingerAck) Acknowledge() {
	mode := RingerNormal
	if a.Mode != nil {
		mode = a.Mode()
	}
	switch mode {
	case RingerSilent:
	case RingerVibrate, RingerNormal:
	}
}
