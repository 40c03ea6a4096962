package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// newMonitorCommand prints every message on the daemon's topics until Ctrl+C.
func newMonitorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Print pulses, display and sensor traffic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.connect()
			if err != nil {
				return err
			}
			defer client.Disconnect()

			out := cmd.OutOrStdout()
			labels := map[string]string{
				cfg.TopicPulse:                "PULSE",
				cfg.TopicDisplay:              "DISP ",
				cfg.TopicDozeEnabled:          "DOZE ",
				cfg.TopicPrefs + "/+":         "PREF ",
				cfg.TopicSensorProximity:      "PROX ",
				cfg.TopicSensorPickUp:         "PICK ",
				cfg.TopicSensorPose:           "POSE ",
				cfg.TopicSensorControl + "/+": "CTRL ",
			}
			for topic, label := range labels {
				label := label
				if err := client.Subscribe(topic, 0, func(t string, payload []byte) error {
					fmt.Fprintf(out, "%s [%s] %-28s %s\n", time.Now().Format("15:04:05.000"), label, t, payload)
					return nil
				}); err != nil {
					return err
				}
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			<-sigCh
			return nil
		},
	}
}
