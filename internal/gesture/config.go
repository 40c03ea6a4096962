// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

// Preference keys for the individual gestures.
const (
	KeyHandWave = "gesture_hand_wave"
	KeyPickUp   = "gesture_pick_up"
	KeyPocket   = "gesture_pocket"
)

// Keys lists the gesture preference keys in a stable order.
var Keys = []string{KeyHandWave, KeyPickUp, KeyPocket}

// Config holds the per-gesture flags and the global doze flag.
// A gesture is effectively enabled only when its own flag and DozeEnabled are both set.
type Config struct {
	DozeEnabled bool `json:"doze_enabled"`
	HandWave    bool `json:"hand_wave"`
	PickUp      bool `json:"pick_up"`
	Pocket      bool `json:"pocket"`
}

func (c Config) HandWaveEnabled() bool { return c.HandWave && c.DozeEnabled }
func (c Config) PickUpEnabled() bool   { return c.PickUp && c.DozeEnabled }
func (c Config) PocketEnabled() bool   { return c.Pocket && c.DozeEnabled }

// AnyEnabled reports whether at least one gesture is effectively enabled.
func (c Config) AnyEnabled() bool {
	return c.HandWaveEnabled() || c.PickUpEnabled() || c.PocketEnabled()
}

// Set updates the flag named by key. It returns false for unknown keys.
func (c *Config) Set(key string, enabled bool) bool {
	switch key {
	case KeyHandWave:
		c.HandWave = enabled
	case KeyPickUp:
		c.PickUp = enabled
	case KeyPocket:
		c.Pocket = enabled
	default:
		return false
	}
	return true
}

// Get returns the flag named by key.
func (c Config) Get(key string) (bool, bool) {
	switch key {
	case KeyHandWave:
		return c.HandWave, true
	case KeyPickUp:
		return c.PickUp, true
	case KeyPocket:
		return c.Pocket, true
	}
	return false, false
}

// DozeSource reports whether doze is globally enabled. It is polled before
// every decision and never cached across a gesture window.
type DozeSource interface {
	DozeEnabled() bool
}

// StaticDoze is a DozeSource with a fixed answer.
type StaticDoze bool

func (s StaticDoze) DozeEnabled() bool { return bool(s) }
