// Package display reports screen on/off transitions to the gesture engine.
package display

import (
	"context"

	"github.com/relabs-tech/doze_gestures/internal/gesture"
)

// Source detects display state.
type Source interface {
	Start(ctx context.Context) error
	Stop()
	// IsOn reports the current state; unknown reads as on.
	IsOn() bool
}

// Emit delivers a display event to the engine.
type Emit func(gesture.Event)

// tracker turns a stream of states into transitions.
type tracker struct {
	known bool
	on    bool
}

// update returns true when state differs from the last one seen.
func (t *tracker) update(on bool) bool {
	if t.known && t.on == on {
		return false
	}
	t.known = true
	t.on = on
	return true
}
