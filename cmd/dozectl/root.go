package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/relabs-tech/doze_gestures/internal/config"
	"github.com/relabs-tech/doze_gestures/internal/logger"
	"github.com/relabs-tech/doze_gestures/internal/transport"
)

type commandContext struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

func (c *commandContext) log() *zap.Logger {
	if c.logger != nil {
		return c.logger
	}
	level := "warn"
	if c.verbose {
		level = "debug"
	}
	l, err := logger.NewLogger(level, "console", "dozectl")
	if err != nil {
		l = zap.NewNop()
	}
	c.logger = l
	return l
}

// connect opens a short-lived broker connection with a unique client id.
func (c *commandContext) connect() (*transport.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	client, err := transport.NewClient(transport.Options{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientIDCtl,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
		UniqueID: true,
	}, c.log())
	if err != nil {
		return nil, fmt.Errorf("broker: %w", err)
	}
	return client, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "dozectl",
		Short:         "Control and inspect the doze gesture daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "./dozed_config.txt", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false, "Log broker activity")

	rootCmd.AddCommand(newPrefsCommand(ctx))
	rootCmd.AddCommand(newPulseCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newMonitorCommand(ctx))

	return rootCmd
}
