//go:build linux

package clock

import "golang.org/x/sys/unix"

// Nanos returns CLOCK_BOOTTIME in nanoseconds.
func Nanos() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_BOOTTIME, &ts); err != nil {
		return fallbackNanos()
	}
	return ts.Nano()
}
