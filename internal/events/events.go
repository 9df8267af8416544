// Package events defines the event variants pumped through the engine queue.
// The variants form a tagged union over the Event interface; the engine
// dispatches by switching on the concrete type.
package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/keiba-engine/internal/models"
)

// DataKind identifies the payload of a DataEvent
type DataKind string

const (
	DataKindRace   DataKind = "race"
	DataKindPayoff DataKind = "payoff"
)

// Event is implemented by every variant processed by the engine. When
// returns the UTC timestamp that governs queue ordering.
type Event interface {
	When() time.Time
}

// TimeEvent is the engine's tick
type TimeEvent struct {
	Name         string
	ScheduledFor time.Time
}

// When returns the tick's scheduled time
func (e *TimeEvent) When() time.Time { return e.ScheduledFor }

// DataEvent announces newly visible race or payoff data
type DataEvent struct {
	Kind        DataKind
	Race        *models.Race
	AvailableAt time.Time
	// Payoffs is populated by the engine for payoff events before the
	// strategy observes them.
	Payoffs []models.Payoff
}

// When returns the moment the data becomes available
func (e *DataEvent) When() time.Time { return e.AvailableAt }

// BetRequestEvent is raised by a strategy asking for a bet to be placed
type BetRequestEvent struct {
	RaceID      string
	BetType     string
	Combination []string
	Stake       decimal.Decimal
	PlacedAt    time.Time
}

// When returns the request's placement time
func (e *BetRequestEvent) When() time.Time { return e.PlacedAt }

// BetConfirmationEvent is emitted by the betting repository once a request
// has been validated. Rejections carry a diagnostic message instead of
// failing the run.
type BetConfirmationEvent struct {
	BetID       string
	RaceID      string
	BetType     string
	Combination []string
	Stake       decimal.Decimal
	PlacedAt    time.Time
	Accepted    bool
	Message     string
	Position    *models.BetPosition
}

// When returns the confirmation's processing time
func (e *BetConfirmationEvent) When() time.Time { return e.PlacedAt }

// ResultEvent is emitted when a race has settled at least one position
type ResultEvent struct {
	RaceID    string
	SettledAt time.Time
}

// When returns the settlement time
func (e *ResultEvent) When() time.Time { return e.SettledAt }
