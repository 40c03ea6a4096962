package gesture

// SensorState is the power state of the three sensors.
type SensorState struct {
	Orientation bool `json:"orientation"`
	PickUp      bool `json:"pickup"`
	Proximity   bool `json:"proximity"`
}

// WindowState is the exported view of the gesture window.
type WindowState struct {
	HandwavePending bool `json:"handwave_pending"`
	PickUpPending   bool `json:"pickup_pending"`
	PocketPending   bool `json:"pocket_pending"`
	PickedUp        bool `json:"picked_up"`
	ProximityNear   bool `json:"proximity_near"`
}

// Snapshot is a point-in-time copy of engine state for status and debug output.
type Snapshot struct {
	Config        Config      `json:"config"`
	Sensors       SensorState `json:"sensors"`
	Window        WindowState `json:"window"`
	LastStowedNs  int64       `json:"last_stowed_ns"`
	LastPulseMs   int64       `json:"last_pulse_ms"`
	Pulses        uint64      `json:"pulses"`
	DroppedEvents uint64      `json:"dropped_events"`
	LastEvent     string      `json:"last_event"`
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

func (e *Engine) snapshot() Snapshot {
	return Snapshot{
		Config: e.cfg,
		Sensors: SensorState{
			Orientation: e.arbiter.Enabled(SensorOrientation),
			PickUp:      e.arbiter.Enabled(SensorPickUp),
			Proximity:   e.arbiter.Enabled(SensorProximity),
		},
		Window: WindowState{
			HandwavePending: e.win.handwavePending,
			PickUpPending:   e.win.pickupPending,
			PocketPending:   e.win.pocketPending,
			PickedUp:        e.win.pickedUp,
			ProximityNear:   e.win.proximityNear,
		},
		LastStowedNs:  e.lastStowed,
		LastPulseMs:   e.throttle.Last().Milliseconds(),
		Pulses:        e.pulses,
		DroppedEvents: e.dropped.Load(),
		LastEvent:     e.lastEvent,
	}
}
