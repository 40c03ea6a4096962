package transport

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// PulsePayload is the body of a doze pulse. The pulse carries no data;
// the message itself is the signal.
var PulsePayload = []byte{}

// PulsePublisher delivers doze pulses to the broker. Pulse never blocks the
// caller; delivery failures are logged and dropped.
type PulsePublisher struct {
	pub    Publisher
	topic  string
	logger *zap.Logger
	seq    atomic.Uint64
}

func NewPulsePublisher(pub Publisher, topic string, logger *zap.Logger) *PulsePublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PulsePublisher{
		pub:    pub,
		topic:  topic,
		logger: logger.Named("pulse"),
	}
}

// Pulse publishes one pulse asynchronously.
func (p *PulsePublisher) Pulse() {
	seq := p.seq.Add(1)
	go func() {
		if err := p.pub.Publish(p.topic, 1, false, PulsePayload); err != nil {
			p.logger.Warn("pulse delivery failed", zap.Uint64("seq", seq), zap.Error(err))
			return
		}
		p.logger.Debug("pulse delivered", zap.Uint64("seq", seq))
	}()
}

// Sent returns the number of pulses issued.
func (p *PulsePublisher) Sent() uint64 { return p.seq.Load() }
