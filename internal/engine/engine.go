// Package engine runs the event loop that replays racing data against a
// strategy. A single virtual clock orders every event; the loop is
// deterministic for a given dataset and strategy.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-engine/internal/betting"
	"github.com/yourusername/keiba-engine/internal/clock"
	"github.com/yourusername/keiba-engine/internal/events"
	"github.com/yourusername/keiba-engine/internal/metrics"
	"github.com/yourusername/keiba-engine/internal/models"
	"github.com/yourusername/keiba-engine/internal/repository"
)

// DefaultTickInterval paces ticks when running against the wall clock
const DefaultTickInterval = time.Second

// Strategy is the decision logic driven by the engine. Hooks are invoked
// synchronously on the event loop; a strategy must not block.
type Strategy interface {
	// Name identifies the strategy in logs and reports
	Name() string

	// Bind hands the strategy its engine before the run starts
	Bind(e *Engine)

	// OnStart runs once before the first event; schedules registered here
	// participate in the run.
	OnStart()

	// OnTime fires for every consumed tick, before due schedules run
	OnTime(tick *events.TimeEvent)

	// OnRaceData fires when a race card becomes visible
	OnRaceData(race *models.Race)

	// OnPayoffData fires when a race's payoffs become visible
	OnPayoffData(race *models.Race, payoffs []models.Payoff)

	// OnBetConfirmation fires for every bet request, accepted or not
	OnBetConfirmation(confirmation *events.BetConfirmationEvent)

	// OnResult fires after a race settled at least one position
	OnResult(result *events.ResultEvent)

	// OnFinish runs once after the last event
	OnFinish()
}

// Engine replays data events through a strategy and books its bets
type Engine struct {
	clock    clock.Clock
	data     repository.DataRepository
	betting  betting.Repository
	queue    *eventQueue
	strategy Strategy

	schedules   []*schedule
	pendingTick *time.Time
	timelineEnd time.Time
	races       []*models.Race
	published   map[string]bool
	running     bool

	tickInterval time.Duration
	live         bool

	log     *logrus.Logger
	metrics *metrics.Metrics
	runID   string
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(log *logrus.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMetrics attaches a metrics recorder
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTickInterval sets the wall-clock tick pacing for live runs
func WithTickInterval(interval time.Duration) Option {
	return func(e *Engine) { e.tickInterval = interval }
}

// WithLiveMode switches tick scheduling from virtual time to wall-clock pacing
func WithLiveMode(live bool) Option {
	return func(e *Engine) { e.live = live }
}

// New creates an engine over the given repositories and clock
func New(data repository.DataRepository, bets betting.Repository, clk clock.Clock, opts ...Option) *Engine {
	e := &Engine{
		clock:        clk,
		data:         data,
		betting:      bets,
		queue:        newEventQueue(),
		tickInterval: DefaultTickInterval,
		log:          logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetStrategy attaches the strategy and lets it bind to the engine
func (e *Engine) SetStrategy(strat Strategy) {
	e.strategy = strat
	strat.Bind(e)
}

// Now returns the current virtual time
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// RunID identifies the current run; empty before Run is called
func (e *Engine) RunID() string {
	return e.runID
}

// Schedule registers a recurring callback. A schedule registered mid-run is
// prepared immediately and may pull the next tick earlier; it cannot cancel a
// later tick that is already queued.
func (e *Engine) Schedule(spec ScheduleSpec) error {
	if e.strategy == nil {
		return fmt.Errorf("%w: no strategy attached", models.ErrInvalidSchedule)
	}
	sched, err := buildSchedule(spec, e.strategy)
	if err != nil {
		return err
	}
	e.schedules = append(e.schedules, sched)
	if e.running {
		e.timelineEnd = e.computeTimelineEnd(e.races)
		sched.rule.prepare(e.races)
		sched.nextDue = sched.rule.firstAt(e.clock.Now())
		if sched.nextDue != nil && sched.rule.expired(*sched.nextDue, e.timelineEnd) {
			sched.nextDue = nil
		}
		e.scheduleNextTick()
	}
	return nil
}

// PlaceBet enqueues a bet request at the current virtual time. Validation
// happens when the request is processed; the strategy learns the outcome
// through OnBetConfirmation.
func (e *Engine) PlaceBet(raceID, betType string, combination []string, stake decimal.Decimal) {
	e.queue.Push(&events.BetRequestEvent{
		RaceID:      raceID,
		BetType:     betType,
		Combination: append([]string(nil), combination...),
		Stake:       stake,
		PlacedAt:    e.clock.Now(),
	})
}

// Balance returns cash available for new bets
func (e *Engine) Balance() decimal.Decimal {
	return e.betting.Balance()
}

// Positions returns all portfolio positions in placement order
func (e *Engine) Positions() []*models.BetPosition {
	return e.betting.Positions()
}

// Race returns the race with the given identifier, or nil
func (e *Engine) Race(raceID string) *models.Race {
	return e.data.GetRace(raceID)
}

// Payoffs returns the known payoffs for a race
func (e *Engine) Payoffs(raceID string) []models.Payoff {
	return e.data.GetPayoffs(raceID)
}

// Historical returns win statistics for a horse
func (e *Engine) Historical(horseID string) models.HistoricalStat {
	return e.data.GetHistorical(horseID)
}

// Run replays the dataset to completion or until ctx is cancelled
func (e *Engine) Run(ctx context.Context) error {
	if e.strategy == nil {
		return fmt.Errorf("engine has no strategy attached")
	}
	e.runID = uuid.New().String()
	log := e.log.WithFields(logrus.Fields{
		"run_id":   e.runID,
		"strategy": e.strategy.Name(),
	})

	races := e.data.IterRaces()
	sort.SliceStable(races, func(a, b int) bool {
		return races[a].ScheduledAt.Before(races[b].ScheduledAt)
	})
	e.races = races

	start := e.clock.Now()
	if len(races) > 0 {
		start = races[0].ScheduledAt.UTC()
	}
	e.clock.Reset(start)
	e.published = make(map[string]bool)
	if err := e.seed(races, e.clock.Now()); err != nil {
		return fmt.Errorf("seeding event queue: %w", err)
	}

	e.strategy.OnStart()

	now := e.clock.Now()
	for _, sched := range e.schedules {
		sched.rule.prepare(races)
		sched.nextDue = sched.rule.firstAt(now)
	}

	e.timelineEnd = e.computeTimelineEnd(races)
	for _, sched := range e.schedules {
		if sched.nextDue != nil && sched.rule.expired(*sched.nextDue, e.timelineEnd) {
			sched.nextDue = nil
		}
	}
	log.WithFields(logrus.Fields{
		"races":        len(races),
		"schedules":    len(e.schedules),
		"timeline_end": e.timelineEnd,
	}).Info("Run starting")

	e.running = true
	defer func() { e.running = false }()

	// Schedules due exactly at the start fire before the first event
	e.fireDueSchedules()
	e.scheduleNextTick()

	for e.queue.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		event := e.queue.Pop()
		if event.When().After(e.timelineEnd) {
			break
		}
		e.clock.AdvanceTo(event.When())
		if err := e.dispatch(event); err != nil {
			return err
		}
	}

	e.strategy.OnFinish()
	log.WithField("bankroll", e.betting.Portfolio().Bankroll().String()).Info("Run finished")
	return nil
}

// seed enqueues a data event per race and per known payoff publication.
// Publish times are clamped so nothing lands before the run start and no
// payoff lands before its race card.
func (e *Engine) seed(races []*models.Race, now time.Time) error {
	for _, race := range races {
		raceAt, err := e.data.GetPublishTime(race.RaceID, events.DataKindRace)
		if err != nil {
			return err
		}
		availableAt := race.ScheduledAt.UTC()
		if raceAt != nil {
			availableAt = raceAt.UTC()
		}
		if availableAt.Before(now) {
			availableAt = now
		}
		e.queue.Push(&events.DataEvent{Kind: events.DataKindRace, Race: race, AvailableAt: availableAt})

		payoffAt, err := e.data.GetPublishTime(race.RaceID, events.DataKindPayoff)
		if err != nil {
			return err
		}
		if payoffAt == nil {
			continue
		}
		publishAt := payoffAt.UTC()
		if publishAt.Before(availableAt) {
			publishAt = availableAt
		}
		if publishAt.Before(now) {
			publishAt = now
		}
		e.queue.Push(&events.DataEvent{Kind: events.DataKindPayoff, Race: race, AvailableAt: publishAt})
	}
	return nil
}

// computeTimelineEnd bounds the run: the day after the last race, stretched
// to cover late payoff publications and positive relative schedule offsets.
func (e *Engine) computeTimelineEnd(races []*models.Race) time.Time {
	if len(races) == 0 {
		return e.clock.Now()
	}
	last := races[len(races)-1].ScheduledAt.UTC()
	end := last.Add(24 * time.Hour)

	var maxOffset time.Duration
	for _, sched := range e.schedules {
		if rel, ok := sched.rule.(*relativeRule); ok && rel.offset > maxOffset {
			maxOffset = rel.offset
		}
	}
	if candidate := last.Add(maxOffset); candidate.After(end) {
		end = candidate
	}
	for _, race := range races {
		payoffAt, err := e.data.GetPublishTime(race.RaceID, events.DataKindPayoff)
		if err == nil && payoffAt != nil && payoffAt.After(end) {
			end = *payoffAt
		}
	}
	return end
}

func (e *Engine) dispatch(event events.Event) error {
	if e.metrics != nil {
		e.metrics.ObserveEvent(event)
	}
	switch ev := event.(type) {
	case *events.TimeEvent:
		e.pendingTick = nil
		e.strategy.OnTime(ev)
		e.fireDueSchedules()
		e.scheduleNextTick()
	case *events.DataEvent:
		return e.handleData(ev)
	case *events.BetRequestEvent:
		e.handleBetRequest(ev)
	case *events.BetConfirmationEvent:
		return e.handleBetConfirmation(ev)
	case *events.ResultEvent:
		e.strategy.OnResult(ev)
	default:
		return fmt.Errorf("unhandled event type %T", event)
	}
	return nil
}

func (e *Engine) handleData(ev *events.DataEvent) error {
	switch ev.Kind {
	case events.DataKindRace:
		e.strategy.OnRaceData(ev.Race)
	case events.DataKindPayoff:
		payoffs := e.data.GetPayoffs(ev.Race.RaceID)
		ev.Payoffs = payoffs
		e.published[ev.Race.RaceID] = true
		// The strategy observes the payoffs before any of its positions
		// settle; bets it places here still reach this race.
		e.strategy.OnPayoffData(ev.Race, payoffs)
		return e.settleRace(ev.Race.RaceID)
	default:
		return fmt.Errorf("%w: %s", models.ErrUnsupportedDataType, ev.Kind)
	}
	return nil
}

// handleBetRequest validates the request and pushes the confirmation to the
// front lane so the strategy reacts before anything else at the same instant.
func (e *Engine) handleBetRequest(ev *events.BetRequestEvent) {
	confirmation := e.betting.PlaceBet(ev)
	if e.metrics != nil {
		e.metrics.ObserveBetRequest(confirmation)
	}
	if !confirmation.Accepted {
		e.log.WithFields(logrus.Fields{
			"race_id": ev.RaceID,
			"reason":  confirmation.Message,
		}).Warn("Bet rejected")
	}
	e.queue.PushFront(confirmation)
}

func (e *Engine) handleBetConfirmation(ev *events.BetConfirmationEvent) error {
	if ev.Accepted {
		if _, err := e.betting.ConfirmBet(ev); err != nil {
			return fmt.Errorf("confirming bet %s: %w", ev.BetID, err)
		}
		if e.metrics != nil {
			e.metrics.ObservePortfolio(e.betting.Portfolio())
		}
		// A bet confirmed after its race published settles immediately
		if e.published[ev.RaceID] {
			if err := e.settleRace(ev.RaceID); err != nil {
				return err
			}
		}
	}
	e.strategy.OnBetConfirmation(ev)
	return nil
}

// settleRace settles open positions on a published race and emits a
// ResultEvent when anything settled.
func (e *Engine) settleRace(raceID string) error {
	settledAt := e.clock.Now()
	settled, err := e.betting.SettleRace(raceID, e.data.GetPayoffs(raceID), settledAt)
	if err != nil {
		return fmt.Errorf("settling race %s: %w", raceID, err)
	}
	if e.metrics != nil {
		e.metrics.ObserveSettlement(settled, e.betting.Portfolio())
	}
	if len(settled) > 0 {
		e.queue.Push(&events.ResultEvent{RaceID: raceID, SettledAt: settledAt})
	}
	return nil
}

// fireDueSchedules drains every activation due at the current instant; a
// relative rule fires once per race even when races share a due time.
func (e *Engine) fireDueSchedules() {
	now := e.clock.Now()
	for _, sched := range e.schedules {
		for sched.nextDue != nil && !sched.nextDue.After(now) {
			sched.invoke()
			sched.nextDue = sched.rule.nextAfter(now)
			if sched.nextDue != nil && sched.rule.expired(*sched.nextDue, e.timelineEnd) {
				sched.nextDue = nil
			}
		}
	}
}

// scheduleNextTick queues the next tick when anything strictly in the future
// remains to drive: a non-tick event or an active schedule. Virtual runs jump
// straight to the next candidate time; live runs pace by the tick interval.
// An already queued earlier tick is kept; a later one is superseded and fires
// as a harmless extra.
func (e *Engine) scheduleNextTick() {
	now := e.clock.Now()
	var at time.Time
	if e.live {
		at = now.Add(e.tickInterval)
	} else {
		var candidate *time.Time
		if t, ok := e.queue.EarliestNonTick(); ok && t.After(now) {
			candidate = &t
		}
		for _, sched := range e.schedules {
			if sched.nextDue != nil && sched.nextDue.After(now) && (candidate == nil || sched.nextDue.Before(*candidate)) {
				candidate = sched.nextDue
			}
		}
		if candidate == nil {
			return
		}
		at = *candidate
	}
	if at.After(e.timelineEnd) {
		return
	}
	if e.pendingTick != nil && !at.Before(*e.pendingTick) {
		return
	}
	e.queue.PushFront(&events.TimeEvent{Name: "tick", ScheduledFor: at})
	e.pendingTick = &at
}
