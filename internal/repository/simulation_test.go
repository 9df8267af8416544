package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/yourusername/keiba-engine/internal/events"
	"github.com/yourusername/keiba-engine/internal/models"
)

var raceStart = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func fixtureRaces() []models.Race {
	return []models.Race{
		{
			RaceID:      "r1",
			ScheduledAt: raceStart,
			Course:      "Nakayama",
			Distance:    1200,
			Horses: []models.HorseEntry{
				{RaceID: "r1", HorseID: "h1", Name: "Alpha", Draw: 1},
				{RaceID: "r1", HorseID: "h2", Name: "Beta", Draw: 2},
			},
		},
		{
			RaceID:      "r2",
			ScheduledAt: raceStart.Add(time.Hour),
			Course:      "Nakayama",
			Distance:    1800,
			Horses: []models.HorseEntry{
				{RaceID: "r2", HorseID: "h1", Name: "Alpha", Draw: 3},
			},
		},
	}
}

func fixturePayoffs() []models.Payoff {
	return []models.Payoff{
		{RaceID: "r1", BetType: "win", Combination: []string{"h1"}, Odds: 2.4},
		{RaceID: "r1", BetType: "place", Combination: []string{"h1", "h2"}, Odds: 1.3},
	}
}

func TestSimulationPublishTimes(t *testing.T) {
	repo := NewSimulation(fixtureRaces(), fixturePayoffs())

	at, err := repo.GetPublishTime("r1", events.DataKindRace)
	if err != nil || at == nil || !at.Equal(raceStart) {
		t.Errorf("race publish = %v, %v", at, err)
	}

	at, err = repo.GetPublishTime("r1", events.DataKindPayoff)
	if err != nil || at == nil || !at.Equal(raceStart.Add(DefaultPayoffDelay)) {
		t.Errorf("payoff publish = %v, %v", at, err)
	}

	if _, err := repo.GetPublishTime("r1", events.DataKind("weather")); !errors.Is(err, models.ErrUnsupportedDataType) {
		t.Errorf("unknown kind: got %v", err)
	}

	// Unknown races resolve to no publish time rather than an error
	at, err = repo.GetPublishTime("missing", events.DataKindRace)
	if err != nil || at != nil {
		t.Errorf("unknown race = %v, %v", at, err)
	}

	// A race without loaded payoffs never publishes a result
	at, err = repo.GetPublishTime("r2", events.DataKindPayoff)
	if err != nil || at != nil {
		t.Errorf("payoff publish without results = %v, %v", at, err)
	}
}

func TestSimulationPayoffDelayOption(t *testing.T) {
	repo := NewSimulation(fixtureRaces(), fixturePayoffs(), WithPayoffDelay(30*time.Minute))
	at, err := repo.GetPublishTime("r1", events.DataKindPayoff)
	if err != nil || !at.Equal(raceStart.Add(30*time.Minute)) {
		t.Errorf("payoff publish = %v, %v", at, err)
	}
}

func TestSimulationRaceLookup(t *testing.T) {
	repo := NewSimulation(fixtureRaces(), nil)

	if race := repo.GetRace("r2"); race == nil || race.Distance != 1800 {
		t.Errorf("GetRace r2 = %+v", race)
	}
	if race := repo.GetRace("missing"); race != nil {
		t.Errorf("GetRace missing = %+v", race)
	}

	races := repo.IterRaces()
	if len(races) != 2 || races[0].RaceID != "r1" || races[1].RaceID != "r2" {
		t.Errorf("IterRaces order: %v, %v", races[0].RaceID, races[1].RaceID)
	}
}

func TestSimulationHistoricalStats(t *testing.T) {
	repo := NewSimulation(fixtureRaces(), fixturePayoffs())

	stat := repo.GetHistorical("h1")
	if stat.Starts != 2 || stat.Wins != 1 {
		t.Errorf("h1 stat = %+v", stat)
	}
	if stat.WinRate != 0.5 {
		t.Errorf("h1 win rate = %f", stat.WinRate)
	}

	// h2 only placed; the place payoff must not count as a win
	stat = repo.GetHistorical("h2")
	if stat.Starts != 1 || stat.Wins != 0 {
		t.Errorf("h2 stat = %+v", stat)
	}

	if stat := repo.GetHistorical("unknown"); stat.Starts != 0 || stat.WinRate != 0 {
		t.Errorf("unknown horse stat = %+v", stat)
	}

	// Second lookup is served from the cache and stays consistent
	if again := repo.GetHistorical("h1"); again.WinRate != 0.5 {
		t.Errorf("cached stat = %+v", again)
	}
}

func TestLiveRegistrationAndPrime(t *testing.T) {
	live := NewLive()
	if races := live.IterRaces(); len(races) != 0 {
		t.Fatalf("fresh repository has %d races", len(races))
	}

	sim := NewSimulation(fixtureRaces(), fixturePayoffs())
	if err := live.Prime(sim); err != nil {
		t.Fatalf("Prime: %v", err)
	}

	if race := live.GetRace("r1"); race == nil || len(race.Horses) != 2 {
		t.Errorf("primed race = %+v", race)
	}
	if payoffs := live.GetPayoffs("r1"); len(payoffs) != 2 {
		t.Errorf("primed payoffs = %d", len(payoffs))
	}
	at, err := live.GetPublishTime("r1", events.DataKindPayoff)
	if err != nil || at == nil || !at.Equal(raceStart.Add(DefaultPayoffDelay)) {
		t.Errorf("primed publish = %v, %v", at, err)
	}

	// Feed updates replace the primed race card
	updated := fixtureRaces()[0]
	updated.Distance = 1400
	live.RegisterRace(updated)
	if race := live.GetRace("r1"); race.Distance != 1400 {
		t.Errorf("updated race distance = %d", race.Distance)
	}

	live.RegisterPayoff(models.Payoff{RaceID: "r2", BetType: "win", Combination: []string{"h1"}, Odds: 3.1})
	if payoffs := live.GetPayoffs("r2"); len(payoffs) != 1 {
		t.Errorf("registered payoffs = %d", len(payoffs))
	}

	// Live feeds carry no history
	if stat := live.GetHistorical("h1"); stat.Starts != 0 {
		t.Errorf("live historical = %+v", stat)
	}
}
