// Package clock abstracts engine time so runs can be driven by wall time or
// by the simulation itself.
package clock

import (
	"time"
)

// Clock is the minimal time source consumed by the engine
type Clock interface {
	// Now returns the current time in UTC
	Now() time.Time
	// Reset sets the clock to a start time; passing the zero value clears
	// any previous state. Real clocks ignore resets.
	Reset(start time.Time)
	// AdvanceTo moves the clock forward to the given moment. Real clocks
	// ignore advancement; simulated clocks never move backwards.
	AdvanceTo(moment time.Time)
}

// RealClock reflects wall-clock time
type RealClock struct{}

// NewRealClock returns a wall-clock time source
func NewRealClock() *RealClock {
	return &RealClock{}
}

// Now returns the current wall-clock UTC time
func (c *RealClock) Now() time.Time {
	return time.Now().UTC()
}

// Reset is a no-op; real time cannot be rewound
func (c *RealClock) Reset(time.Time) {}

// AdvanceTo is a no-op; real time is always moving forward
func (c *RealClock) AdvanceTo(time.Time) {}

// SimulatedClock is a deterministic clock advanced only by the engine.
// It is monotonic within a run.
type SimulatedClock struct {
	now time.Time
}

// NewSimulatedClock returns a simulated clock, optionally initialised to start
func NewSimulatedClock(start time.Time) *SimulatedClock {
	c := &SimulatedClock{}
	if !start.IsZero() {
		c.Reset(start)
	}
	return c
}

// Now returns the current simulated time, falling back to wall time before
// the first reset.
func (c *SimulatedClock) Now() time.Time {
	if c.now.IsZero() {
		return time.Now().UTC()
	}
	return c.now
}

// Reset sets the simulated clock to start, or clears it when start is zero
func (c *SimulatedClock) Reset(start time.Time) {
	if start.IsZero() {
		c.now = time.Time{}
		return
	}
	c.now = start.UTC()
}

// AdvanceTo moves the simulated clock to moment if it is later than now
func (c *SimulatedClock) AdvanceTo(moment time.Time) {
	target := moment.UTC()
	if c.now.IsZero() || target.After(c.now) {
		c.now = target
	}
}
