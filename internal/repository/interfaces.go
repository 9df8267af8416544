// Package repository provides read-only access to racing data for the engine
// and strategies.
package repository

import (
	"time"

	"github.com/yourusername/keiba-engine/internal/events"
	"github.com/yourusername/keiba-engine/internal/models"
)

// DataRepository is the read-only data source consumed by the engine.
// Implementations must not mutate state during a run; registration APIs on
// live repositories are called before the run starts.
type DataRepository interface {
	// GetRace returns the race with the given identifier, or nil
	GetRace(raceID string) *models.Race

	// IterRaces returns the available races. Order is not required; the
	// engine sorts by scheduled time.
	IterRaces() []*models.Race

	// GetPayoffs returns the settled payoffs for a race
	GetPayoffs(raceID string) []models.Payoff

	// GetHistorical returns win statistics for a horse, zeroed when unknown
	GetHistorical(horseID string) models.HistoricalStat

	// GetPublishTime returns when data of the given kind becomes available
	// for a race, or nil when unknown. Unknown kinds fail with
	// models.ErrUnsupportedDataType.
	GetPublishTime(raceID string, kind events.DataKind) (*time.Time, error)
}
