// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/doze_gestures/internal/gesture"
	"github.com/relabs-tech/doze_gestures/internal/orientation"
)

// OrientationPort polls an orientation.Source while enabled and classifies
// each pose. It emits an OrientationEvent on the first classified sample
// after enable and on every class change. A single poller goroutine reads the
// source, so the device never sees overlapping transactions.
type OrientationPort struct {
	src      orientation.Source
	interval time.Duration
	emit     Emit
	logger   *zap.Logger

	class atomic.Int32
	wake  chan struct{}

	mu           sync.Mutex
	enabled      bool
	pendingFirst bool
	quit         chan struct{}
	done         chan struct{}
	pose         orientation.Pose
}

var _ gesture.OrientationPort = (*OrientationPort)(nil)

func NewOrientationPort(src orientation.Source, interval time.Duration, emit Emit, logger *zap.Logger) *OrientationPort {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &OrientationPort{
		src:      src,
		interval: interval,
		emit:     orDiscard(emit),
		logger:   logger.Named("orientation"),
		wake:     make(chan struct{}, 1),
	}
}

func (p *OrientationPort) Enable() {
	p.mu.Lock()
	if p.enabled {
		p.mu.Unlock()
		return
	}
	p.enabled = true
	p.pendingFirst = true
	if p.quit == nil {
		p.quit = make(chan struct{})
		p.done = make(chan struct{})
		go p.poll(p.quit, p.done)
	}
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	p.logger.Debug("enabled")
}

func (p *OrientationPort) Disable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	p.enabled = false
	p.pendingFirst = false
	p.logger.Debug("disabled")
}

// Close stops the poller and waits for it to exit.
func (p *OrientationPort) Close() error {
	p.mu.Lock()
	p.enabled = false
	quit, done := p.quit, p.done
	p.quit, p.done = nil, nil
	p.mu.Unlock()

	if quit != nil {
		close(quit)
		<-done
	}
	return nil
}

// Reset forgets the last classification.
func (p *OrientationPort) Reset() {
	p.class.Store(int32(orientation.Unknown))
}

func (p *OrientationPort) Class() orientation.Class { return orientation.Class(p.class.Load()) }
func (p *OrientationPort) IsFaceDown() bool         { return p.Class() == orientation.FaceDown }
func (p *OrientationPort) IsFaceUp() bool           { return p.Class() == orientation.FaceUp }
func (p *OrientationPort) IsVertical() bool         { return p.Class() == orientation.Vertical }

// Pose returns the last pose read.
func (p *OrientationPort) Pose() orientation.Pose {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pose
}

func (p *OrientationPort) poll(quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	first := false
	for {
		p.mu.Lock()
		enabled, rearmed := p.enabled, p.pendingFirst
		p.pendingFirst = false
		p.mu.Unlock()

		if !enabled {
			select {
			case <-quit:
				return
			case <-p.wake:
			}
			continue
		}
		first = first || rearmed

		pose, err := p.src.Next()
		if err != nil {
			p.logger.Warn("orientation read failed", zap.Error(err))
		} else if p.sample(pose, first) {
			first = false
		}

		select {
		case <-quit:
			return
		case <-ticker.C:
		}
	}
}

// sample records pose and emits when needed. It returns false if the port was
// disabled or re-enabled while the source was read.
func (p *OrientationPort) sample(pose orientation.Pose, first bool) bool {
	p.mu.Lock()
	if !p.enabled || p.pendingFirst {
		p.mu.Unlock()
		return false
	}
	p.pose = pose
	p.mu.Unlock()

	class := orientation.Classify(pose)
	prev := orientation.Class(p.class.Swap(int32(class)))
	if first || prev != class {
		p.logger.Debug("orientation",
			zap.Stringer("class", class),
			zap.Float64("roll", pose.Roll),
			zap.Float64("pitch", pose.Pitch),
		)
		p.emit(gesture.OrientationEvent{})
	}
	return true
}
