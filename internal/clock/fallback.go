package clock

import "time"

var processStart = time.Now()

// fallbackNanos counts from process start, offset by one second so it never
// reads as zero.
func fallbackNanos() int64 {
	return int64(time.Since(processStart) + time.Second)
}
