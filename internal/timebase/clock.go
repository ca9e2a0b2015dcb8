// Package timebase provides monotonic timing helpers for the boundary
// collaborators around the core (the TCP server stamps incoming orders
// with NowNs). The matching book and SPSC primitives never read the
// clock themselves.
package timebase

import "time"

// NowNs returns the current time as nanoseconds since an unspecified
// epoch, suitable only for relative comparisons — it is backed by
// time.Now(), whose monotonic reading is what actually matters here.
func NowNs() int64 {
	return int64(time.Since(epoch))
}

// epoch is the process-local origin NowNs measures from.
var epoch = time.Now()

// Stopwatch measures elapsed wall-clock time using Go's monotonic
// clock reading (every time.Time from time.Now() carries one, and it
// survives subtraction even across NTP adjustments).
type Stopwatch struct {
	start time.Time
}

// NewStopwatch starts a running stopwatch.
func NewStopwatch() Stopwatch {
	return Stopwatch{start: time.Now()}
}

// Reset restarts the stopwatch from now.
func (s *Stopwatch) Reset() {
	s.start = time.Now()
}

// Elapsed returns the time since the stopwatch was started or reset.
func (s Stopwatch) Elapsed() time.Duration {
	return time.Since(s.start)
}

// ElapsedSec returns Elapsed as fractional seconds, matching the
// benchmark harnesses' reporting units.
func (s Stopwatch) ElapsedSec() float64 {
	return s.Elapsed().Seconds()
}
