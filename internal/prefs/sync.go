package prefs

import (
	"fmt"
	"path"

	"go.uber.org/zap"

	"github.com/relabs-tech/doze_gestures/internal/gesture"
	"github.com/relabs-tech/doze_gestures/internal/transport"
)

// Topic returns the change-notification topic for key under prefix.
func Topic(prefix, key string) string { return prefix + "/" + key }

// Watcher applies toggle changes announced on <prefix>/<key>: it persists
// them and hands a gesture.ConfigChange to emit.
type Watcher struct {
	sub    transport.Subscriber
	prefix string
	store  *Store
	emit   func(gesture.Event)
	logger *zap.Logger
}

func NewWatcher(sub transport.Subscriber, prefix string, store *Store, emit func(gesture.Event), logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{sub: sub, prefix: prefix, store: store, emit: emit, logger: logger.Named("prefs")}
}

// Start subscribes to the change topics.
func (w *Watcher) Start() error {
	if err := w.sub.Subscribe(Topic(w.prefix, "+"), 1, w.handle); err != nil {
		return fmt.Errorf("prefs watcher: %w", err)
	}
	return nil
}

// Stop unsubscribes.
func (w *Watcher) Stop() {
	if err := w.sub.Unsubscribe(Topic(w.prefix, "+")); err != nil {
		w.logger.Warn("unsubscribe failed", zap.Error(err))
	}
}

func (w *Watcher) handle(topic string, payload []byte) error {
	key := path.Base(topic)
	if _, ok := (gesture.Config{}).Get(key); !ok {
		return fmt.Errorf("unknown gesture key %q", key)
	}
	enabled, err := transport.ParseBool(payload)
	if err != nil {
		return err
	}

	if w.store != nil {
		if _, changed, err := w.store.Set(key, enabled); err != nil {
			w.logger.Error("failed to persist gesture toggle", zap.String("key", key), zap.Error(err))
		} else if changed {
			w.logger.Info("gesture toggle stored", zap.String("key", key), zap.Bool("enabled", enabled))
		}
	}

	if w.emit != nil {
		w.emit(gesture.ConfigChange{Key: key, Enabled: enabled})
	}
	return nil
}
