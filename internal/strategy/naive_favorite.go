package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/yourusername/keiba-engine/internal/engine"
	"github.com/yourusername/keiba-engine/internal/models"
)

func init() {
	Register("naive_favorite", func() engine.Strategy { return NewNaiveFavorite() })
}

// NaiveFavorite backs the market favorite of every race with a win bet,
// staking a fixed fraction of available cash.
type NaiveFavorite struct {
	Base
	StakeFraction decimal.Decimal
	MinStake      decimal.Decimal
}

// NewNaiveFavorite creates the strategy with a 1% stake fraction
func NewNaiveFavorite() *NaiveFavorite {
	return &NaiveFavorite{
		Base:          NewBase("naive_favorite"),
		StakeFraction: decimal.NewFromFloat(0.01),
		MinStake:      decimal.NewFromInt(100),
	}
}

// OnRaceData bets on the horse with the shortest win odds
func (s *NaiveFavorite) OnRaceData(race *models.Race) {
	var favorite *models.HorseEntry
	bestOdds := 0.0
	for i := range race.Horses {
		odds, ok := race.Horses[i].WinOdds()
		if !ok || odds <= 1.0 {
			continue
		}
		if favorite == nil || odds < bestOdds {
			favorite = &race.Horses[i]
			bestOdds = odds
		}
	}
	if favorite == nil {
		return
	}

	stake := s.Balance().Mul(s.StakeFraction).Round(0)
	if stake.LessThan(s.MinStake) {
		stake = s.MinStake
	}
	s.PlaceBet(race.RaceID, "win", []string{favorite.HorseID}, stake)
}
