// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/relabs-tech/doze_gestures/internal/display"
	"github.com/relabs-tech/doze_gestures/internal/gesture"
)

// Notifier is a source of configuration change notifications.
type Notifier interface {
	Start() error
	Stop()
}

// Service is the lifecycle wrapper around the engine: it registers the
// display and configuration notifications on Start and forces all sensors
// off on Stop.
type Service struct {
	engine   *gesture.Engine
	display  display.Source
	notifier Notifier
	logger   *zap.Logger

	mu      sync.Mutex
	started bool
}

func NewService(engine *gesture.Engine, disp display.Source, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{engine: engine, display: disp, notifier: notifier, logger: logger.Named("service")}
}

// Start registers notifications and, if the display is already off, arms
// the sensors as a display-off transition would.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("service already started")
	}

	// Sampled before the source starts: a source that replays its state on
	// start reports it as a transition itself.
	displayOff := s.display != nil && !s.display.IsOn()

	if s.display != nil {
		if err := s.display.Start(ctx); err != nil {
			return fmt.Errorf("display source: %w", err)
		}
	}
	if s.notifier != nil {
		if err := s.notifier.Start(); err != nil {
			if s.display != nil {
				s.display.Stop()
			}
			return fmt.Errorf("config notifications: %w", err)
		}
	}

	if displayOff {
		s.engine.Handle(gesture.DisplayEvent{On: false})
	}

	s.started = true
	s.logger.Info("service started", zap.Bool("display_off", displayOff))
	return nil
}

// Stop unregisters notifications and disables every sensor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	if s.notifier != nil {
		s.notifier.Stop()
	}
	if s.display != nil {
		s.display.Stop()
	}
	s.engine.Shutdown()
	s.started = false
	s.logger.Info("service stopped")
}
