package strategy

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-engine/internal/betting"
	"github.com/yourusername/keiba-engine/internal/clock"
	"github.com/yourusername/keiba-engine/internal/engine"
	"github.com/yourusername/keiba-engine/internal/models"
	"github.com/yourusername/keiba-engine/internal/repository"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func runEngine(t *testing.T, strat engine.Strategy, races []models.Race, payoffs []models.Payoff, bankroll int64) *betting.SimulationBettingRepository {
	t.Helper()
	dataRepo := repository.NewSimulation(races, payoffs)
	betRepo := betting.NewSimulation(decimal.NewFromInt(bankroll), quietLogger())
	eng := engine.New(dataRepo, betRepo, clock.NewSimulatedClock(time.Time{}), engine.WithLogger(quietLogger()))
	eng.SetStrategy(strat)
	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return betRepo
}

func TestRegistry(t *testing.T) {
	names := Names()
	found := map[string]bool{}
	for _, name := range names {
		found[name] = true
	}
	if !found["naive_favorite"] || !found["value_betting"] {
		t.Fatalf("registered strategies: %v", names)
	}

	strat, err := Create("naive_favorite")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if strat.Name() != "naive_favorite" {
		t.Errorf("name = %s", strat.Name())
	}

	if _, err := Create("martingale"); err == nil {
		t.Error("unknown strategy should fail")
	}
}

func TestNaiveFavoriteBacksShortestOdds(t *testing.T) {
	races := []models.Race{{
		RaceID:      "r1",
		ScheduledAt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		Course:      "Hanshin",
		Distance:    1600,
		Horses: []models.HorseEntry{
			{RaceID: "r1", HorseID: "h1", Name: "Alpha", Draw: 1, Odds: map[string]float64{"win": 4.5}},
			{RaceID: "r1", HorseID: "h2", Name: "Beta", Draw: 2, Odds: map[string]float64{"win": 1.8}},
			{RaceID: "r1", HorseID: "h3", Name: "Gamma", Draw: 3, Odds: map[string]float64{"win": 12.0}},
		},
	}}

	betRepo := runEngine(t, NewNaiveFavorite(), races, nil, 100000)

	positions := betRepo.Positions()
	if len(positions) != 1 {
		t.Fatalf("positions: %d", len(positions))
	}
	if positions[0].Combination[0] != "h2" {
		t.Errorf("backed %s, want the favorite h2", positions[0].Combination[0])
	}
	// 1% of 100000
	if !positions[0].Stake.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("stake = %s", positions[0].Stake)
	}
}

func TestNaiveFavoriteSkipsOddsOnRaces(t *testing.T) {
	races := []models.Race{{
		RaceID:      "r1",
		ScheduledAt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		Course:      "Hanshin",
		Distance:    1600,
		Horses: []models.HorseEntry{
			{RaceID: "r1", HorseID: "h1", Name: "Alpha", Draw: 1, Odds: map[string]float64{"win": 1.0}},
		},
	}}

	betRepo := runEngine(t, NewNaiveFavorite(), races, nil, 100000)
	if got := len(betRepo.Positions()); got != 0 {
		t.Errorf("positions: %d, want none when no horse trades above evens", got)
	}
}

func TestNaiveFavoriteAppliesMinimumStake(t *testing.T) {
	races := []models.Race{{
		RaceID:      "r1",
		ScheduledAt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		Course:      "Hanshin",
		Distance:    1600,
		Horses: []models.HorseEntry{
			{RaceID: "r1", HorseID: "h1", Name: "Alpha", Draw: 1, Odds: map[string]float64{"win": 2.0}},
		},
	}}

	// 1% of 5000 is 50, below the 100 floor
	betRepo := runEngine(t, NewNaiveFavorite(), races, nil, 5000)
	positions := betRepo.Positions()
	if len(positions) != 1 || !positions[0].Stake.Equal(decimal.NewFromInt(100)) {
		t.Errorf("positions: %+v", positions)
	}
}

func TestValueBettingRequiresHistoryAndEdge(t *testing.T) {
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	// h1 runs in six races and wins five, giving it a strong edge at 2.0
	var races []models.Race
	var payoffs []models.Payoff
	for i := 0; i < 6; i++ {
		id := string(rune('a' + i))
		races = append(races, models.Race{
			RaceID:      "hist-" + id,
			ScheduledAt: start.Add(time.Duration(i) * time.Hour),
			Course:      "Kyoto",
			Distance:    1400,
			Horses: []models.HorseEntry{
				{RaceID: "hist-" + id, HorseID: "h1", Name: "Alpha", Draw: 1, Odds: map[string]float64{"win": 2.0}},
				{RaceID: "hist-" + id, HorseID: "h2", Name: "Beta", Draw: 2, Odds: map[string]float64{"win": 2.0}},
			},
		})
		if i < 5 {
			payoffs = append(payoffs, models.Payoff{
				RaceID: "hist-" + id, BetType: "win", Combination: []string{"h1"}, Odds: 2.0,
			})
		}
	}

	betRepo := runEngine(t, NewValueBetting(), races, payoffs, 100000)

	for _, position := range betRepo.Positions() {
		if position.Combination[0] != "h1" {
			t.Errorf("backed %s without an edge", position.Combination[0])
		}
	}
	if len(betRepo.Positions()) == 0 {
		t.Error("no bets placed despite a clear edge")
	}
}
