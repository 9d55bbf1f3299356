// Package lifecycle holds process-wide drain state shared by main and the health handler.
package lifecycle

import (
	"sync/atomic"
	"time"
)

// drainStart is the Unix nanosecond time the drain began, zero while serving.
var drainStart atomic.Int64

// BeginShutdown marks the process as draining from at onward. Later calls keep the
// first timestamp.
func BeginShutdown(at time.Time) {
	drainStart.CompareAndSwap(0, at.UnixNano())
}

// SetShuttingDown sets or clears the drain flag using the current time.
func SetShuttingDown(v bool) {
	if v {
		BeginShutdown(time.Now())
		return
	}
	drainStart.Store(0)
}

// IsShuttingDown reports whether the process is draining and should not receive new traffic.
func IsShuttingDown() bool {
	return drainStart.Load() != 0
}

// ShutdownStartedAt returns when draining began, or false while serving.
func ShutdownStartedAt() (time.Time, bool) {
	ns := drainStart.Load()
	if ns == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, ns).UTC(), true
}
