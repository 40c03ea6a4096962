package transport

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

// DozeFlag mirrors the global doze switch published (retained) on a topic.
// Until a value arrives the flag reads true.
type DozeFlag struct {
	topic   string
	enabled atomic.Bool
	known   atomic.Bool
	logger  *zap.Logger
}

// NewDozeFlag subscribes to topic and returns the mirrored flag.
func NewDozeFlag(sub Subscriber, topic string, logger *zap.Logger) (*DozeFlag, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &DozeFlag{topic: topic, logger: logger.Named("doze_flag")}
	f.enabled.Store(true)

	if err := sub.Subscribe(topic, 1, f.handle); err != nil {
		return nil, fmt.Errorf("doze flag: %w", err)
	}
	return f, nil
}

func (f *DozeFlag) handle(_ string, payload []byte) error {
	v, err := ParseBool(payload)
	if err != nil {
		return err
	}
	prev := f.enabled.Swap(v)
	f.known.Store(true)
	if prev != v {
		f.logger.Info("doze flag changed", zap.Bool("enabled", v))
	}
	return nil
}

// DozeEnabled returns the last value seen.
func (f *DozeFlag) DozeEnabled() bool { return f.enabled.Load() }

// Known reports whether a value has been received.
func (f *DozeFlag) Known() bool { return f.known.Load() }

// ParseBool accepts the payload spellings used on control topics:
// true/false, 1/0, on/off, yes/no, enabled/disabled.
func ParseBool(payload []byte) (bool, error) {
	s := strings.ToLower(strings.TrimSpace(string(payload)))
	switch s {
	case "on", "yes", "enabled":
		return true, nil
	case "off", "no", "disabled":
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid boolean payload %q", s)
	}
	return v, nil
}

// FormatBool is the canonical spelling written by this module.
func FormatBool(v bool) []byte {
	if v {
		return []byte("on")
	}
	return []byte("off")
}
