package clock

import (
	"testing"
	"time"
)

func TestSimulatedClockAdvances(t *testing.T) {
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	c := NewSimulatedClock(start)

	if got := c.Now(); !got.Equal(start) {
		t.Fatalf("Now() = %v, want %v", got, start)
	}

	later := start.Add(2 * time.Hour)
	c.AdvanceTo(later)
	if got := c.Now(); !got.Equal(later) {
		t.Fatalf("Now() after advance = %v, want %v", got, later)
	}
}

func TestSimulatedClockNeverMovesBackwards(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewSimulatedClock(start)

	c.AdvanceTo(start.Add(-time.Hour))
	if got := c.Now(); !got.Equal(start) {
		t.Fatalf("clock moved backwards to %v", got)
	}
}

func TestSimulatedClockReset(t *testing.T) {
	c := NewSimulatedClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	restart := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	c.Reset(restart)
	if got := c.Now(); !got.Equal(restart) {
		t.Fatalf("Now() after reset = %v, want %v", got, restart)
	}
}

func TestSimulatedClockFallsBackToWallTime(t *testing.T) {
	c := NewSimulatedClock(time.Time{})
	before := time.Now().UTC().Add(-time.Second)
	if got := c.Now(); got.Before(before) {
		t.Fatalf("unset clock returned stale time %v", got)
	}
}

func TestRealClockIgnoresControl(t *testing.T) {
	c := NewRealClock()
	c.Reset(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	c.AdvanceTo(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))

	if got := c.Now(); got.Year() < 2020 {
		t.Fatalf("real clock reported %v", got)
	}
}
