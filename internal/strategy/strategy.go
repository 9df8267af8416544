// Package strategy contains the betting strategies and the base plumbing
// they build on.
package strategy

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/keiba-engine/internal/engine"
	"github.com/yourusername/keiba-engine/internal/events"
	"github.com/yourusername/keiba-engine/internal/models"
)

// Base provides the engine binding and helper accessors shared by all
// strategies. Embed it and override the hooks you need; every hook is a
// no-op by default.
type Base struct {
	name   string
	engine *engine.Engine
}

// NewBase creates the shared strategy plumbing
func NewBase(name string) Base {
	return Base{name: name}
}

// Name returns the strategy name
func (b *Base) Name() string { return b.name }

// Bind stores the engine reference; called by the engine on attachment
func (b *Base) Bind(e *engine.Engine) { b.engine = e }

// Engine returns the bound engine
func (b *Base) Engine() *engine.Engine { return b.engine }

// Now returns the current virtual time
func (b *Base) Now() time.Time { return b.engine.Now() }

// Schedule registers a recurring callback with the engine
func (b *Base) Schedule(spec engine.ScheduleSpec) error {
	return b.engine.Schedule(spec)
}

// PlaceBet submits a bet request for validation
func (b *Base) PlaceBet(raceID, betType string, combination []string, stake decimal.Decimal) {
	b.engine.PlaceBet(raceID, betType, combination, stake)
}

// Balance returns cash available for new bets
func (b *Base) Balance() decimal.Decimal { return b.engine.Balance() }

// Positions returns all portfolio positions
func (b *Base) Positions() []*models.BetPosition { return b.engine.Positions() }

// Race returns the race card for an identifier, or nil
func (b *Base) Race(raceID string) *models.Race { return b.engine.Race(raceID) }

// Payoffs returns the known payoffs for a race
func (b *Base) Payoffs(raceID string) []models.Payoff { return b.engine.Payoffs(raceID) }

// Historical returns win statistics for a horse
func (b *Base) Historical(horseID string) models.HistoricalStat {
	return b.engine.Historical(horseID)
}

// OnStart is a no-op by default
func (b *Base) OnStart() {}

// OnTime is a no-op by default
func (b *Base) OnTime(*events.TimeEvent) {}

// OnRaceData is a no-op by default
func (b *Base) OnRaceData(*models.Race) {}

// OnPayoffData is a no-op by default
func (b *Base) OnPayoffData(*models.Race, []models.Payoff) {}

// OnBetConfirmation is a no-op by default
func (b *Base) OnBetConfirmation(*events.BetConfirmationEvent) {}

// OnResult is a no-op by default
func (b *Base) OnResult(*events.ResultEvent) {}

// OnFinish is a no-op by default
func (b *Base) OnFinish() {}

// Factory builds a fresh strategy instance
type Factory func() engine.Strategy

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// Register makes a strategy available to Create by name
func Register(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// Create builds a registered strategy by name
func Create(name string) (engine.Strategy, error) {
	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q, available: %v", name, Names())
	}
	return factory(), nil
}

// Names returns the registered strategy names sorted
func Names() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
