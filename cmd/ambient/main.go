package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/doze_gestures/internal/ambient"
	"github.com/relabs-tech/doze_gestures/internal/config"
	"github.com/relabs-tech/doze_gestures/internal/logger"
	"github.com/relabs-tech/doze_gestures/internal/transport"
)

// ambient lights an SSD1306 panel for a few seconds on every doze pulse.
func main() {
	configPath := flag.String("config", "./dozed_config.txt", "path to configuration file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	l, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, "doze-ambient")
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer l.Sync()

	panel, closeBus, err := ambient.OpenSSD1306()
	if err != nil {
		l.Fatal("failed to open display", zap.Error(err))
	}
	defer closeBus()

	client, err := transport.NewClient(transport.Options{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientIDAmbient,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
	}, l)
	if err != nil {
		l.Fatal("failed to connect to broker", zap.Error(err))
	}
	defer client.Disconnect()

	screen := ambient.NewScreen(panel, time.Duration(cfg.AmbientDuration)*time.Millisecond, l)
	if err := screen.Subscribe(client, cfg.TopicPulse); err != nil {
		l.Fatal("failed to subscribe", zap.String("topic", cfg.TopicPulse), zap.Error(err))
	}
	l.Info("ambient display ready", zap.String("topic", cfg.TopicPulse))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := screen.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		l.Error("display loop ended", zap.Error(err))
	}
}
