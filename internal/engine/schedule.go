package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yourusername/keiba-engine/internal/models"
)

// ScheduleSpec describes when a strategy callback should fire. Exactly one of
// At, Offset, and Cron must be set. Callback must be a func() or a
// func(Strategy).
type ScheduleSpec struct {
	// At fires once per day at a fixed time of day, "15:04" or "15:04:05"
	At string

	// Offset fires once per race at scheduled start plus the offset,
	// which may be negative.
	Offset *time.Duration

	// Cron fires on a standard five-field cron expression
	Cron string

	Name     string
	Callback any
}

// scheduleRule yields the due times for one registered schedule
type scheduleRule interface {
	// prepare receives the run's races before the first due time is asked for
	prepare(races []*models.Race)

	// firstAt returns the first due time at or after current, nil when none
	firstAt(current time.Time) *time.Time

	// nextAfter returns the due time following an activation at current,
	// nil when none. Race-pinned rules advance one race at a time, so the
	// returned due may coincide with current when races share an instant.
	nextAfter(current time.Time) *time.Time

	// expired reports whether a due time falls outside the run timeline.
	// Daily rules stop at the timeline end; the tail day past the last race
	// belongs to them but the end instant itself does not. Relative dues are
	// pinned to races and fire up to and including the end.
	expired(due, end time.Time) bool
}

// schedule is a registered callback with its rule and next activation.
// A nil nextDue marks the schedule inactive for the rest of the run.
type schedule struct {
	name    string
	rule    scheduleRule
	invoke  func()
	nextDue *time.Time
}

func buildSchedule(spec ScheduleSpec, strat Strategy) (*schedule, error) {
	modes := 0
	if spec.At != "" {
		modes++
	}
	if spec.Offset != nil {
		modes++
	}
	if spec.Cron != "" {
		modes++
	}
	if modes != 1 {
		return nil, fmt.Errorf("%w: exactly one of at, offset, and cron must be set", models.ErrInvalidSchedule)
	}

	invoke, err := bindCallback(spec.Callback, strat)
	if err != nil {
		return nil, err
	}

	var rule scheduleRule
	switch {
	case spec.At != "":
		rule, err = newAbsoluteRule(spec.At)
	case spec.Offset != nil:
		rule = &relativeRule{offset: *spec.Offset}
	default:
		rule, err = newCronRule(spec.Cron)
	}
	if err != nil {
		return nil, err
	}

	name := spec.Name
	if name == "" {
		name = fmt.Sprintf("schedule-%p", rule)
	}
	return &schedule{name: name, rule: rule, invoke: invoke}, nil
}

func bindCallback(callback any, strat Strategy) (func(), error) {
	switch fn := callback.(type) {
	case func():
		return fn, nil
	case func(Strategy):
		return func() { fn(strat) }, nil
	default:
		return nil, fmt.Errorf("%w: callback must be func() or func(Strategy), got %T", models.ErrInvalidSchedule, callback)
	}
}

// absoluteRule fires daily at a fixed time of day
type absoluteRule struct {
	hour, minute, second int
}

func newAbsoluteRule(at string) (*absoluteRule, error) {
	rule := &absoluteRule{}
	if _, err := fmt.Sscanf(at, "%d:%d:%d", &rule.hour, &rule.minute, &rule.second); err != nil {
		rule.second = 0
		if _, err := fmt.Sscanf(at, "%d:%d", &rule.hour, &rule.minute); err != nil {
			return nil, fmt.Errorf("%w: cannot parse time of day %q", models.ErrInvalidSchedule, at)
		}
	}
	if rule.hour < 0 || rule.hour > 23 || rule.minute < 0 || rule.minute > 59 || rule.second < 0 || rule.second > 59 {
		return nil, fmt.Errorf("%w: time of day %q out of range", models.ErrInvalidSchedule, at)
	}
	return rule, nil
}

func (r *absoluteRule) prepare([]*models.Race) {}

func (r *absoluteRule) onDay(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), r.hour, r.minute, r.second, 0, time.UTC)
}

func (r *absoluteRule) firstAt(current time.Time) *time.Time {
	due := r.onDay(current)
	if due.Before(current) {
		due = due.AddDate(0, 0, 1)
	}
	return &due
}

func (r *absoluteRule) nextAfter(current time.Time) *time.Time {
	due := r.onDay(current)
	if !due.After(current) {
		due = due.AddDate(0, 0, 1)
	}
	return &due
}

func (r *absoluteRule) expired(due, end time.Time) bool {
	return !due.Before(end)
}

// relativeRule fires once per race at scheduled start plus a fixed offset.
// Races arrive sorted, so a forward-walking index suffices.
type relativeRule struct {
	offset time.Duration
	dues   []time.Time
	idx    int
}

func (r *relativeRule) prepare(races []*models.Race) {
	r.dues = make([]time.Time, 0, len(races))
	for _, race := range races {
		r.dues = append(r.dues, race.ScheduledAt.UTC().Add(r.offset))
	}
	sort.Slice(r.dues, func(a, b int) bool { return r.dues[a].Before(r.dues[b]) })
	r.idx = 0
}

func (r *relativeRule) firstAt(current time.Time) *time.Time {
	for r.idx < len(r.dues) && r.dues[r.idx].Before(current) {
		r.idx++
	}
	if r.idx >= len(r.dues) {
		return nil
	}
	return &r.dues[r.idx]
}

// nextAfter steps past exactly one race so that races sharing an activation
// instant each get their own firing
func (r *relativeRule) nextAfter(current time.Time) *time.Time {
	if r.idx < len(r.dues) && !r.dues[r.idx].After(current) {
		r.idx++
	}
	if r.idx >= len(r.dues) {
		return nil
	}
	return &r.dues[r.idx]
}

func (r *relativeRule) expired(due, end time.Time) bool {
	return due.After(end)
}

// cronRule fires on a five-field cron expression
type cronRule struct {
	expr     string
	schedule cron.Schedule
}

func newCronRule(expr string) (*cronRule, error) {
	parsed, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidSchedule, err)
	}
	return &cronRule{expr: expr, schedule: parsed}, nil
}

func (r *cronRule) prepare([]*models.Race) {}

// firstAt backs up one second so a current time sitting exactly on a cron
// boundary still counts as due.
func (r *cronRule) firstAt(current time.Time) *time.Time {
	due := r.schedule.Next(current.Add(-time.Second))
	if due.IsZero() {
		return nil
	}
	due = due.UTC()
	return &due
}

func (r *cronRule) nextAfter(current time.Time) *time.Time {
	due := r.schedule.Next(current)
	if due.IsZero() {
		return nil
	}
	due = due.UTC()
	return &due
}

func (r *cronRule) expired(due, end time.Time) bool {
	return !due.Before(end)
}
