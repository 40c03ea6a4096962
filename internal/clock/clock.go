// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package clock reads the monotonic boot clock used for sensor timestamps and
// pulse throttling. It keeps counting through suspend.
package clock

import "time"

// Boot is a gesture.Clock backed by the boot clock.
type Boot struct{}

// Now returns the time elapsed since boot.
func (Boot) Now() time.Duration { return time.Duration(Nanos()) }
