// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/relabs-tech/doze_gestures/internal/app"
	"github.com/relabs-tech/doze_gestures/internal/config"
	"github.com/relabs-tech/doze_gestures/internal/logger"
)

func main() {
	configPath := flag.String("config", "./dozed_config.txt", "path to configuration file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	l, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, "doze-sensor-node")
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer l.Sync()

	l.Info("starting sensor node (GPIO/IMU -> MQTT)", zap.String("broker", cfg.MQTTBroker))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunSensorNode(ctx, cfg, l); err != nil && !errors.Is(err, context.Canceled) {
		l.Fatal("sensor node stopped", zap.Error(err))
	}
}
