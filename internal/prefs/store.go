// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package prefs persists the per-gesture toggles. They are the only state
// that survives a restart.
package prefs

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"

	"github.com/relabs-tech/doze_gestures/internal/gesture"
)

// Gestures is the on-disk document. Missing keys read as false.
type Gestures struct {
	HandWave bool `toml:"gesture_hand_wave"`
	PickUp   bool `toml:"gesture_pick_up"`
	Pocket   bool `toml:"gesture_pocket"`
}

// Apply copies the toggles into cfg, leaving DozeEnabled alone.
func (g Gestures) Apply(cfg *gesture.Config) {
	cfg.HandWave = g.HandWave
	cfg.PickUp = g.PickUp
	cfg.Pocket = g.Pocket
}

func (g Gestures) config() gesture.Config {
	var c gesture.Config
	g.Apply(&c)
	return c
}

func fromConfig(c gesture.Config) Gestures {
	return Gestures{HandWave: c.HandWave, PickUp: c.PickUp, Pocket: c.Pocket}
}

// Get returns the toggle for key.
func (g Gestures) Get(key string) (bool, bool) {
	return g.config().Get(key)
}

// Store reads and writes the toggles file. Writers take an exclusive file
// lock so the daemon and the CLI never interleave.
type Store struct {
	path string
	lock *flock.Flock
}

func NewStore(path string) *Store {
	return &Store{path: path, lock: flock.New(path + ".lock")}
}

// Path returns the toggles file location.
func (s *Store) Path() string { return s.path }

// Load reads the toggles. A missing file yields all gestures disabled.
func (s *Store) Load() (Gestures, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return Gestures{}, fmt.Errorf("prefs dir: %w", err)
	}
	if err := s.lock.RLock(); err != nil {
		return Gestures{}, fmt.Errorf("prefs lock: %w", err)
	}
	defer s.lock.Unlock()
	return s.read()
}

func (s *Store) read() (Gestures, error) {
	var g Gestures
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return g, nil
	}
	if err != nil {
		return g, fmt.Errorf("read prefs: %w", err)
	}
	if err := toml.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return g, fmt.Errorf("parse prefs %s: %w", s.path, err)
	}
	return g, nil
}

// Set updates one toggle. It reports whether the stored value changed.
func (s *Store) Set(key string, enabled bool) (Gestures, bool, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return Gestures{}, false, fmt.Errorf("prefs dir: %w", err)
	}
	if err := s.lock.Lock(); err != nil {
		return Gestures{}, false, fmt.Errorf("prefs lock: %w", err)
	}
	defer s.lock.Unlock()

	g, err := s.read()
	if err != nil {
		return g, false, err
	}

	cfg := g.config()
	prev, _ := cfg.Get(key)
	if !cfg.Set(key, enabled) {
		return g, false, fmt.Errorf("unknown gesture key %q", key)
	}
	if prev == enabled {
		return g, false, nil
	}
	g = fromConfig(cfg)

	if err := s.write(g); err != nil {
		return g, false, err
	}
	return g, true, nil
}

// write replaces the file atomically.
func (s *Store) write(g Gestures) error {
	data, err := toml.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".gestures-*.toml")
	if err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}
