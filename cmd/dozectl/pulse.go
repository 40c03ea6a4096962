package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/doze_gestures/internal/transport"
)

func newPulseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pulse",
		Short: "Publish one doze pulse, bypassing the gesture engine",
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

			if err := client.Publish(cfg.TopicPulse, 1, false, transport.PulsePayload); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pulse sent to %s\n", cfg.TopicPulse)
			return nil
		},
	}
}
