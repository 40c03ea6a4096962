package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/doze_gestures/internal/gesture"
	"github.com/relabs-tech/doze_gestures/internal/transport"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var (
		asJSON  bool
		useMQTT bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the daemon's engine state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var snap gesture.Snapshot
			if useMQTT || cfg.DebugHTTPAddr == "" {
				snap, err = stateFromBroker(ctx, cfg.TopicState)
			} else {
				snap, err = stateFromHTTP(cfg.DebugHTTPAddr)
			}
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, statusRows(snap), nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON")
	cmd.Flags().BoolVar(&useMQTT, "mqtt", false, "Read the retained state topic instead of the debug server")
	return cmd
}

func stateURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/api/state"
}

func stateFromHTTP(addr string) (gesture.Snapshot, error) {
	var snap gesture.Snapshot
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(stateURL(addr))
	if err != nil {
		return snap, fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return snap, fmt.Errorf("daemon returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return snap, fmt.Errorf("decode state: %w", err)
	}
	return snap, nil
}

func stateFromBroker(ctx *commandContext, topic string) (gesture.Snapshot, error) {
	var snap gesture.Snapshot
	client, err := ctx.connect()
	if err != nil {
		return snap, err
	}
	defer client.Disconnect()

	got := make(chan []byte, 1)
	if err := client.Subscribe(topic, 1, func(_ string, payload []byte) error {
		select {
		case got <- payload:
		default:
		}
		return nil
	}); err != nil {
		return snap, err
	}

	select {
	case payload := <-got:
		if err := json.Unmarshal(payload, &snap); err != nil {
			return snap, fmt.Errorf("decode state: %w", err)
		}
		return snap, nil
	case <-time.After(3 * time.Second):
		return snap, errors.New("no retained state on " + topic + " (is dozed running?)")
	}
}

func onOff(v bool) string { return string(transport.FormatBool(v)) }

func statusRows(s gesture.Snapshot) [][]string {
	lastPulse := "never"
	if s.LastPulseMs > 0 {
		lastPulse = (time.Duration(s.LastPulseMs) * time.Millisecond).String() + " since boot"
	}
	return [][]string{
		{"doze", onOff(s.Config.DozeEnabled)},
		{gesture.KeyHandWave, onOff(s.Config.HandWave)},
		{gesture.KeyPickUp, onOff(s.Config.PickUp)},
		{gesture.KeyPocket, onOff(s.Config.Pocket)},
		{"sensor.proximity", onOff(s.Sensors.Proximity)},
		{"sensor.orientation", onOff(s.Sensors.Orientation)},
		{"sensor.pickup", onOff(s.Sensors.PickUp)},
		{"window.near", onOff(s.Window.ProximityNear)},
		{"window.picked_up", onOff(s.Window.PickedUp)},
		{"pulses", fmt.Sprint(s.Pulses)},
		{"last_pulse", lastPulse},
		{"dropped_events", fmt.Sprint(s.DroppedEvents)},
		{"last_event", s.LastEvent},
	}
}
