package transport

import (
	"fmt"
	"strings"
	"sync"
)

// Message is a published message as recorded by MemoryBus.
type Message struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

// MemoryBus is an in-process Bus. Delivery is synchronous on the publishing
// goroutine; retained messages are replayed to new subscribers like a broker
// would. Topic filters support the MQTT '+' and '#' wildcards.
type MemoryBus struct {
	mu        sync.Mutex
	subs      map[string]MessageHandler
	retained  map[string]Message
	published []Message

	// Err, when set, is returned by every Publish.
	Err error
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		subs:     make(map[string]MessageHandler),
		retained: make(map[string]Message),
	}
}

func (b *MemoryBus) Publish(topic string, qos byte, retained bool, payload []byte) error {
	b.mu.Lock()
	if b.Err != nil {
		err := b.Err
		b.mu.Unlock()
		return err
	}
	msg := Message{Topic: topic, Payload: append([]byte(nil), payload...), QoS: qos, Retained: retained}
	b.published = append(b.published, msg)
	if retained {
		if len(payload) == 0 {
			delete(b.retained, topic)
		} else {
			b.retained[topic] = msg
		}
	}
	var handlers []MessageHandler
	for filter, h := range b.subs {
		if TopicMatches(filter, topic) {
			handlers = append(handlers, h)
		}
	}
	b.mu.Unlock()

	for _, h := range handlers {
		_ = h(topic, msg.Payload)
	}
	return nil
}

func (b *MemoryBus) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if handler == nil {
		return fmt.Errorf("nil handler for topic %s", topic)
	}
	b.mu.Lock()
	b.subs[topic] = handler
	var replay []Message
	for t, m := range b.retained {
		if TopicMatches(topic, t) {
			replay = append(replay, m)
		}
	}
	b.mu.Unlock()

	for _, m := range replay {
		_ = handler(m.Topic, m.Payload)
	}
	return nil
}

func (b *MemoryBus) Unsubscribe(topics ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range topics {
		delete(b.subs, t)
	}
	return nil
}

// Published returns a copy of every message published so far.
func (b *MemoryBus) Published() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Message(nil), b.published...)
}

// PublishedTo returns the messages published to topic.
func (b *MemoryBus) PublishedTo(topic string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Message
	for _, m := range b.published {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// Subscribed reports whether a handler is registered for the exact filter.
func (b *MemoryBus) Subscribed(filter string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.subs[filter]
	return ok
}

// TopicMatches reports whether topic matches an MQTT subscription filter.
func TopicMatches(filter, topic string) bool {
	f := strings.Split(filter, "/")
	t := strings.Split(topic, "/")
	for i, part := range f {
		if part == "#" {
			return true
		}
		if i >= len(t) {
			return false
		}
		if part != "+" && part != t[i] {
			return false
		}
	}
	return len(f) == len(t)
}
