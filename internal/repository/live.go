package repository

import (
	"fmt"
	"time"

	"github.com/yourusername/keiba-engine/internal/events"
	"github.com/yourusername/keiba-engine/internal/models"
)

type publishKey struct {
	raceID string
	kind   events.DataKind
}

// LiveDataRepository holds races and payoffs registered by an external feed.
// All registration must happen before the engine run starts; the repository
// is read-only while a run is in progress.
type LiveDataRepository struct {
	races        map[string]*models.Race
	payoffs      map[string][]models.Payoff
	publishTimes map[publishKey]time.Time
}

// NewLive returns an empty live repository
func NewLive() *LiveDataRepository {
	return &LiveDataRepository{
		races:        make(map[string]*models.Race),
		payoffs:      make(map[string][]models.Payoff),
		publishTimes: make(map[publishKey]time.Time),
	}
}

// RegisterRace inserts or replaces a race entry
func (r *LiveDataRepository) RegisterRace(race models.Race) {
	r.races[race.RaceID] = &race
}

// RegisterPayoff appends a payoff entry for later retrieval
func (r *LiveDataRepository) RegisterPayoff(payoff models.Payoff) {
	r.payoffs[payoff.RaceID] = append(r.payoffs[payoff.RaceID], payoff)
}

// RegisterPublishTime records when data of a kind becomes available
func (r *LiveDataRepository) RegisterPublishTime(raceID string, kind events.DataKind, availableAt time.Time) {
	r.publishTimes[publishKey{raceID: raceID, kind: kind}] = availableAt.UTC()
}

// GetRace returns a registered race, or nil
func (r *LiveDataRepository) GetRace(raceID string) *models.Race {
	return r.races[raceID]
}

// IterRaces returns the currently registered races
func (r *LiveDataRepository) IterRaces() []*models.Race {
	races := make([]*models.Race, 0, len(r.races))
	for _, race := range r.races {
		races = append(races, race)
	}
	return races
}

// GetPayoffs returns payoffs registered for the race
func (r *LiveDataRepository) GetPayoffs(raceID string) []models.Payoff {
	return append([]models.Payoff(nil), r.payoffs[raceID]...)
}

// GetHistorical returns zeroed stats; live feeds carry no history
func (r *LiveDataRepository) GetHistorical(string) models.HistoricalStat {
	return models.HistoricalStat{}
}

// GetPublishTime returns the registered publish time for a race and kind
func (r *LiveDataRepository) GetPublishTime(raceID string, kind events.DataKind) (*time.Time, error) {
	switch kind {
	case events.DataKindRace, events.DataKindPayoff:
	default:
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedDataType, kind)
	}
	if at, ok := r.publishTimes[publishKey{raceID: raceID, kind: kind}]; ok {
		return &at, nil
	}
	return nil, nil
}

// Prime copies races, payoffs, and publish times from another repository.
// Used to seed a live run from simulation inputs.
func (r *LiveDataRepository) Prime(source DataRepository) error {
	for _, race := range source.IterRaces() {
		r.RegisterRace(*race)
		for _, kind := range []events.DataKind{events.DataKindRace, events.DataKindPayoff} {
			publishAt, err := source.GetPublishTime(race.RaceID, kind)
			if err != nil {
				return err
			}
			if publishAt != nil {
				r.RegisterPublishTime(race.RaceID, kind, *publishAt)
			}
		}
		for _, payoff := range source.GetPayoffs(race.RaceID) {
			r.RegisterPayoff(payoff)
		}
	}
	return nil
}
