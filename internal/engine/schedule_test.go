package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/yourusername/keiba-engine/internal/models"
)

type stubStrategy struct{ nopStrategy }

func durationPtr(d time.Duration) *time.Duration { return &d }

func TestBuildScheduleRequiresExactlyOneMode(t *testing.T) {
	cb := func() {}

	if _, err := buildSchedule(ScheduleSpec{Callback: cb}, &stubStrategy{}); !errors.Is(err, models.ErrInvalidSchedule) {
		t.Errorf("no mode: got %v", err)
	}
	spec := ScheduleSpec{At: "10:00", Cron: "* * * * *", Callback: cb}
	if _, err := buildSchedule(spec, &stubStrategy{}); !errors.Is(err, models.ErrInvalidSchedule) {
		t.Errorf("two modes: got %v", err)
	}
	spec = ScheduleSpec{At: "10:00", Offset: durationPtr(-time.Minute), Callback: cb}
	if _, err := buildSchedule(spec, &stubStrategy{}); !errors.Is(err, models.ErrInvalidSchedule) {
		t.Errorf("at plus offset: got %v", err)
	}
}

func TestBuildScheduleValidatesCallback(t *testing.T) {
	spec := ScheduleSpec{At: "10:00", Callback: "not a function"}
	if _, err := buildSchedule(spec, &stubStrategy{}); !errors.Is(err, models.ErrInvalidSchedule) {
		t.Errorf("bad callback: got %v", err)
	}

	called := false
	spec = ScheduleSpec{At: "10:00", Callback: func(Strategy) { called = true }}
	sched, err := buildSchedule(spec, &stubStrategy{})
	if err != nil {
		t.Fatalf("strategy callback: %v", err)
	}
	sched.invoke()
	if !called {
		t.Error("strategy-arg callback not invoked")
	}
}

func TestAbsoluteRule(t *testing.T) {
	rule, err := newAbsoluteRule("10:30")
	if err != nil {
		t.Fatal(err)
	}

	morning := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	due := rule.firstAt(morning)
	if want := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC); !due.Equal(want) {
		t.Errorf("firstAt before = %v, want %v", due, want)
	}

	// Exactly on the boundary counts as due on the first pass
	onTime := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)
	if due := rule.firstAt(onTime); !due.Equal(onTime) {
		t.Errorf("firstAt on boundary = %v, want %v", due, onTime)
	}
	// But advancing from the boundary moves to the next day
	if due := rule.nextAfter(onTime); !due.Equal(onTime.AddDate(0, 0, 1)) {
		t.Errorf("nextAfter on boundary = %v", due)
	}

	end := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	if !rule.expired(end, end) {
		t.Error("due at the timeline end should expire a daily rule")
	}
	if rule.expired(end.Add(-time.Second), end) {
		t.Error("due inside the timeline expired")
	}

	if _, err := newAbsoluteRule("25:00"); !errors.Is(err, models.ErrInvalidSchedule) {
		t.Errorf("out of range: got %v", err)
	}
	if _, err := newAbsoluteRule("soon"); !errors.Is(err, models.ErrInvalidSchedule) {
		t.Errorf("unparsable: got %v", err)
	}
}

func TestAbsoluteRuleWithSeconds(t *testing.T) {
	rule, err := newAbsoluteRule("10:30:45")
	if err != nil {
		t.Fatal(err)
	}
	due := rule.firstAt(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	if want := time.Date(2024, 6, 1, 10, 30, 45, 0, time.UTC); !due.Equal(want) {
		t.Errorf("firstAt = %v, want %v", due, want)
	}
}

func TestRelativeRuleWalksRaces(t *testing.T) {
	races := []*models.Race{
		{RaceID: "r1", ScheduledAt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)},
		{RaceID: "r2", ScheduledAt: time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)},
	}
	rule := &relativeRule{offset: -30 * time.Minute}
	rule.prepare(races)

	current := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	due := rule.firstAt(current)
	if want := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC); !due.Equal(want) {
		t.Fatalf("firstAt = %v, want %v", due, want)
	}

	due = rule.nextAfter(*due)
	if want := time.Date(2024, 6, 1, 13, 30, 0, 0, time.UTC); !due.Equal(want) {
		t.Fatalf("nextAfter = %v, want %v", due, want)
	}

	if due := rule.nextAfter(*due); due != nil {
		t.Errorf("exhausted rule returned %v", due)
	}

	end := time.Date(2024, 6, 1, 13, 30, 0, 0, time.UTC)
	if rule.expired(end, end) {
		t.Error("relative due at the timeline end should still fire")
	}
	if !rule.expired(end.Add(time.Second), end) {
		t.Error("due past the timeline did not expire")
	}
}

func TestRelativeRulePositiveOffset(t *testing.T) {
	races := []*models.Race{
		{RaceID: "r1", ScheduledAt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)},
	}
	rule := &relativeRule{offset: 15 * time.Minute}
	rule.prepare(races)

	due := rule.firstAt(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	if want := time.Date(2024, 6, 1, 10, 15, 0, 0, time.UTC); !due.Equal(want) {
		t.Errorf("firstAt = %v, want %v", due, want)
	}
}

func TestCronRule(t *testing.T) {
	rule, err := newCronRule("*/15 * * * *")
	if err != nil {
		t.Fatal(err)
	}

	current := time.Date(2024, 6, 1, 10, 7, 0, 0, time.UTC)
	due := rule.firstAt(current)
	if want := time.Date(2024, 6, 1, 10, 15, 0, 0, time.UTC); !due.Equal(want) {
		t.Errorf("firstAt = %v, want %v", due, want)
	}

	// A boundary moment is due on the first pass
	boundary := time.Date(2024, 6, 1, 10, 15, 0, 0, time.UTC)
	if due := rule.firstAt(boundary); !due.Equal(boundary) {
		t.Errorf("firstAt on boundary = %v, want %v", due, boundary)
	}
	// And strictly after when advancing
	if due := rule.nextAfter(boundary); !due.Equal(boundary.Add(15 * time.Minute)) {
		t.Errorf("nextAfter on boundary = %v", due)
	}

	if _, err := newCronRule("bad cron"); !errors.Is(err, models.ErrInvalidSchedule) {
		t.Errorf("invalid expression: got %v", err)
	}
}
