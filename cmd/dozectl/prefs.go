package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/doze_gestures/internal/gesture"
	"github.com/relabs-tech/doze_gestures/internal/prefs"
	"github.com/relabs-tech/doze_gestures/internal/transport"
)

func newPrefsCommand(ctx *commandContext) *cobra.Command {
	prefsCmd := &cobra.Command{
		Use:   "prefs",
		Short: "Read or change the gesture toggles",
	}
	prefsCmd.AddCommand(newPrefsGetCommand(ctx))
	prefsCmd.AddCommand(newPrefsSetCommand(ctx))
	return prefsCmd
}

// resolveKey accepts the full key or its short form ("pocket").
func resolveKey(arg string) (string, error) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	for _, k := range gesture.Keys {
		if arg == k || "gesture_"+arg == k {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown gesture %q (want one of %s)", arg, strings.Join(gesture.Keys, ", "))
}

func prefsRows(g prefs.Gestures) [][]string {
	rows := make([][]string, 0, len(gesture.Keys))
	for _, k := range gesture.Keys {
		v, _ := g.Get(k)
		rows = append(rows, []string{k, string(transport.FormatBool(v))})
	}
	return rows
}

func newPrefsGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get [gesture]",
		Short: "Show the stored gesture toggles",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			g, err := prefs.NewStore(cfg.PrefsPath).Load()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				key, err := resolveKey(args[0])
				if err != nil {
					return err
				}
				v, _ := g.Get(key)
				fmt.Fprintln(cmd.OutOrStdout(), string(transport.FormatBool(v)))
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Gesture", "State"}, prefsRows(g), nil))
			return nil
		},
	}
}

func newPrefsSetCommand(ctx *commandContext) *cobra.Command {
	var noNotify bool

	cmd := &cobra.Command{
		Use:   "set <gesture> <on|off>",
		Short: "Change a gesture toggle and notify the daemon",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			key, err := resolveKey(args[0])
			if err != nil {
				return err
			}
			enabled, err := transport.ParseBool([]byte(args[1]))
			if err != nil {
				return err
			}

			if _, changed, err := prefs.NewStore(cfg.PrefsPath).Set(key, enabled); err != nil {
				return err
			} else if !changed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already %s\n", key, transport.FormatBool(enabled))
			}

			if noNotify {
				return nil
			}
			client, err := ctx.connect()
			if err != nil {
				return err
			}
			defer client.Disconnect()
			if err := client.Publish(prefs.Topic(cfg.TopicPrefs, key), 1, false, transport.FormatBool(enabled)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, transport.FormatBool(enabled))
			return nil
		},
	}
	cmd.Flags().BoolVar(&noNotify, "no-notify", false, "Only write the file; the daemon picks it up on restart")
	return cmd
}
