// Package pacer meters the sender loop toward a target frame rate.
package pacer

import "time"

// Pacer computes how long the sender should sleep after each
// capture/encode/send cycle to approximate the target interval. A cycle that
// runs longer than the interval gets no sleep and no catch-up: slow cycles
// lower the instantaneous rate, they never cause a burst.
type Pacer struct {
	Interval time.Duration
}

// IntervalForFPS returns the per-frame interval for a target rate.
func IntervalForFPS(fps int) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Second / time.Duration(fps)
}

// New creates a Pacer targeting fps frames per second.
func New(fps int) Pacer {
	return Pacer{Interval: IntervalForFPS(fps)}
}

// SleepFor returns the remaining time budget for a cycle that took cycle:
// Interval - cycle, clamped at zero.
func (p Pacer) SleepFor(cycle time.Duration) time.Duration {
	d := p.Interval - cycle
	if d < 0 {
		return 0
	}
	return d
}

// Pace sleeps off the remainder of the cycle that began at start.
func (p Pacer) Pace(start time.Time) {
	if d := p.SleepFor(time.Since(start)); d > 0 {
		time.Sleep(d)
	}
}
