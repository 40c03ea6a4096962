//go:build !linux

package clock

// Nanos returns nanoseconds since process start on platforms without a boot clock.
func Nanos() int64 { return fallbackNanos() }
