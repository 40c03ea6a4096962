package display

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/relabs-tech/doze_gestures/internal/gesture"
	"github.com/relabs-tech/doze_gestures/internal/transport"
)

// MQTTSource follows a retained on/off topic published by the compositor or
// the display controller.
type MQTTSource struct {
	sub    transport.Subscriber
	topic  string
	emit   Emit
	logger *zap.Logger

	mu    sync.Mutex
	state tracker
}

func NewMQTTSource(sub transport.Subscriber, topic string, emit Emit, logger *zap.Logger) *MQTTSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MQTTSource{sub: sub, topic: topic, emit: emit, logger: logger.Named("display_mqtt")}
}

func (s *MQTTSource) Start(context.Context) error {
	if err := s.sub.Subscribe(s.topic, 1, s.handle); err != nil {
		return fmt.Errorf("display source: %w", err)
	}
	s.logger.Info("following display state", zap.String("topic", s.topic))
	return nil
}

func (s *MQTTSource) Stop() {
	if err := s.sub.Unsubscribe(s.topic); err != nil {
		s.logger.Warn("unsubscribe failed", zap.Error(err))
	}
}

func (s *MQTTSource) IsOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.state.known || s.state.on
}

func (s *MQTTSource) handle(_ string, payload []byte) error {
	on, err := transport.ParseBool(payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	changed := s.state.update(on)
	s.mu.Unlock()

	if changed {
		s.logger.Info("display state", zap.Bool("on", on))
		if s.emit != nil {
			s.emit(gesture.DisplayEvent{On: on})
		}
	}
	return nil
}
