package app

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/relabs-tech/doze_gestures/internal/gesture"
	"github.com/relabs-tech/doze_gestures/internal/transport"
)

// statePublisher publishes the latest engine snapshot (retained) on a topic.
// Offer never blocks: an unsent snapshot is replaced by a newer one.
type statePublisher struct {
	pub    transport.Publisher
	topic  string
	logger *zap.Logger
	latest chan gesture.Snapshot
}

func newStatePublisher(pub transport.Publisher, topic string, logger *zap.Logger) *statePublisher {
	return &statePublisher{
		pub:    pub,
		topic:  topic,
		logger: logger.Named("state"),
		latest: make(chan gesture.Snapshot, 1),
	}
}

func (p *statePublisher) Offer(s gesture.Snapshot) {
	for {
		select {
		case p.latest <- s:
			return
		default:
		}
		select {
		case <-p.latest:
		default:
		}
	}
}

func (p *statePublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-p.latest:
			payload, err := json.Marshal(s)
			if err != nil {
				p.logger.Error("state marshal failed", zap.Error(err))
				continue
			}
			if err := p.pub.Publish(p.topic, 0, true, payload); err != nil {
				p.logger.Warn("state publish failed", zap.Error(err))
			}
		}
	}
}
