// Package wakelock takes kernel wake locks through /sys/power/wake_lock.
package wakelock

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sysfs writes "<name> <timeout_ns>" to the wake_lock file. The kernel
// drops the lock on its own once the timeout expires, so there is no release.
type Sysfs struct {
	path   string
	name   string
	logger *zap.Logger

	mu       sync.Mutex
	acquired uint64
}

// Open checks that path is writable. On kernels without CONFIG_PM_WAKELOCKS
// the file does not exist and ErrUnsupported is returned.
func Open(path, name string, logger *zap.Logger) (*Sysfs, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, errors.ErrUnsupported)
	}
	if err != nil {
		return nil, fmt.Errorf("open wake lock: %w", err)
	}
	f.Close()
	return &Sysfs{path: path, name: name, logger: logger.Named("wakelock")}, nil
}

// Acquire holds the lock for timeout.
func (w *Sysfs) Acquire(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	line := fmt.Sprintf("%s %d", w.name, timeout.Nanoseconds())

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := os.WriteFile(w.path, []byte(line), 0); err != nil {
		w.logger.Warn("wake lock failed", zap.Duration("timeout", timeout), zap.Error(err))
		return
	}
	w.acquired++
}

// Acquired returns the number of successful acquisitions.
func (w *Sysfs) Acquired() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.acquired
}

// Noop is used where the platform has no wake locks.
type Noop struct{}

func (Noop) Acquire(time.Duration) {}
