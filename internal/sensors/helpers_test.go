package sensors

import (
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/relabs-tech/doze_gestures/internal/gesture"
)

type fakePin struct {
	mu     sync.Mutex
	level  gpio.Level
	pull   gpio.Pull
	edge   gpio.Edge
	halted bool
	edges  chan struct{}
}

func newFakePin(level gpio.Level) *fakePin {
	return &fakePin{level: level, edges: make(chan struct{}, 8)}
}

func (p *fakePin) In(pull gpio.Pull, edge gpio.Edge) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pull, p.edge = pull, edge
	return nil
}

func (p *fakePin) Read() gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *fakePin) WaitForEdge(timeout time.Duration) bool {
	select {
	case <-p.edges:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (p *fakePin) Halt() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.halted = true
	return nil
}

func (p *fakePin) String() string { return "FAKE" }

// set changes the level and signals an edge.
func (p *fakePin) set(l gpio.Level) {
	p.mu.Lock()
	p.level = l
	p.mu.Unlock()
	p.edges <- struct{}{}
}

// bounce signals an edge without changing the level.
func (p *fakePin) bounce() { p.edges <- struct{}{} }

type collector struct {
	mu     sync.Mutex
	events []gesture.Event
}

func (c *collector) emit(ev gesture.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collector) all() []gesture.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]gesture.Event(nil), c.events...)
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func fixedNanos(v int64) Nanos { return func() int64 { return v } }
