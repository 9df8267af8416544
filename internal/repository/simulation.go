package repository

import (
	"fmt"
	"sort"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/keiba-engine/internal/events"
	"github.com/yourusername/keiba-engine/internal/models"
)

// DefaultPayoffDelay is how long after the off payoffs become visible
const DefaultPayoffDelay = 10 * time.Minute

const historicalStatTTL = 5 * time.Minute

// SimulationDataRepository serves a static dataset loaded before the run.
// Publish times are derived: race cards publish at the scheduled start and
// payoffs a configurable delay later.
type SimulationDataRepository struct {
	races         map[string]*models.Race
	payoffsByRace map[string][]models.Payoff
	payoffDelay   time.Duration
	stats         *cache.Cache
}

// SimulationOption customises a simulation repository
type SimulationOption func(*SimulationDataRepository)

// WithPayoffDelay overrides the payoff publication delay
func WithPayoffDelay(delay time.Duration) SimulationOption {
	return func(r *SimulationDataRepository) {
		r.payoffDelay = delay
	}
}

// NewSimulation builds a repository from validated races and payoffs
func NewSimulation(races []models.Race, payoffs []models.Payoff, opts ...SimulationOption) *SimulationDataRepository {
	repo := &SimulationDataRepository{
		races:         make(map[string]*models.Race, len(races)),
		payoffsByRace: make(map[string][]models.Payoff),
		payoffDelay:   DefaultPayoffDelay,
		stats:         cache.New(historicalStatTTL, 2*historicalStatTTL),
	}
	for i := range races {
		race := races[i]
		repo.races[race.RaceID] = &race
	}
	for _, payoff := range payoffs {
		repo.payoffsByRace[payoff.RaceID] = append(repo.payoffsByRace[payoff.RaceID], payoff)
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// GetRace returns a cached race by identifier, or nil
func (r *SimulationDataRepository) GetRace(raceID string) *models.Race {
	return r.races[raceID]
}

// IterRaces returns all races in chronological order
func (r *SimulationDataRepository) IterRaces() []*models.Race {
	races := make([]*models.Race, 0, len(r.races))
	for _, race := range r.races {
		races = append(races, race)
	}
	sort.SliceStable(races, func(a, b int) bool {
		return races[a].ScheduledAt.Before(races[b].ScheduledAt)
	})
	return races
}

// GetPayoffs returns the payoffs for the given race identifier
func (r *SimulationDataRepository) GetPayoffs(raceID string) []models.Payoff {
	return append([]models.Payoff(nil), r.payoffsByRace[raceID]...)
}

// GetHistorical derives simple win statistics for a horse across the dataset.
// Results are cached with a TTL because strategies tend to query the same
// horses repeatedly within a race card.
func (r *SimulationDataRepository) GetHistorical(horseID string) models.HistoricalStat {
	if cached, found := r.stats.Get(horseID); found {
		if stat, ok := cached.(models.HistoricalStat); ok {
			return stat
		}
	}
	stat := r.computeHistorical(horseID)
	r.stats.Set(horseID, stat, cache.DefaultExpiration)
	return stat
}

func (r *SimulationDataRepository) computeHistorical(horseID string) models.HistoricalStat {
	starts := 0
	for _, race := range r.races {
		if race.GetHorse(horseID) != nil {
			starts++
		}
	}
	wins := 0
	for _, payoffs := range r.payoffsByRace {
		for _, payoff := range payoffs {
			if payoff.BetType != "win" && payoff.BetType != "単勝" {
				continue
			}
			for _, id := range payoff.Combination {
				if id == horseID {
					wins++
					break
				}
			}
		}
	}
	if starts == 0 {
		return models.HistoricalStat{}
	}
	return models.HistoricalStat{
		Starts:  starts,
		Wins:    wins,
		WinRate: float64(wins) / float64(starts),
	}
}

// GetPublishTime returns when race or payoff data becomes available
func (r *SimulationDataRepository) GetPublishTime(raceID string, kind events.DataKind) (*time.Time, error) {
	race := r.GetRace(raceID)
	if race == nil {
		return nil, nil
	}
	switch kind {
	case events.DataKindRace:
		at := race.ScheduledAt.UTC()
		return &at, nil
	case events.DataKindPayoff:
		// No payoffs loaded means the result is not known; the race must
		// not settle.
		if len(r.payoffsByRace[raceID]) == 0 {
			return nil, nil
		}
		at := race.ScheduledAt.UTC().Add(r.payoffDelay)
		return &at, nil
	default:
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedDataType, kind)
	}
}
