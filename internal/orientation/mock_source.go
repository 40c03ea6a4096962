// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import "sync"

// ScriptedSource replays a fixed list of poses and then repeats the last one.
// It stands in for the IMU in tests and dry runs.
type ScriptedSource struct {
	mu    sync.Mutex
	poses []Pose
	next  int
}

// NewScriptedSource creates a source that yields poses in order.
func NewScriptedSource(poses ...Pose) *ScriptedSource {
	return &ScriptedSource{poses: poses}
}

// Set replaces the script and rewinds it.
func (s *ScriptedSource) Set(poses ...Pose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.poses = poses
	s.next = 0
}

func (s *ScriptedSource) Next() (Pose, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.poses) == 0 {
		return Pose{}, nil
	}
	p := s.poses[s.next]
	if s.next < len(s.poses)-1 {
		s.next++
	}
	return p, nil
}
