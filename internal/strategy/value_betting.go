package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/yourusername/keiba-engine/internal/engine"
	"github.com/yourusername/keiba-engine/internal/models"
)

func init() {
	Register("value_betting", func() engine.Strategy { return NewValueBetting() })
}

// ValueBetting compares each runner's historical win rate against the win
// odds on offer and backs runners whose expected value clears a threshold.
type ValueBetting struct {
	Base
	EdgeThreshold float64
	MinStarts     int
	StakeFraction decimal.Decimal
	MinStake      decimal.Decimal
}

// NewValueBetting creates the strategy with a 10% edge threshold
func NewValueBetting() *ValueBetting {
	return &ValueBetting{
		Base:          NewBase("value_betting"),
		EdgeThreshold: 1.10,
		MinStarts:     5,
		StakeFraction: decimal.NewFromFloat(0.02),
		MinStake:      decimal.NewFromInt(100),
	}
}

// OnRaceData backs every runner whose win-rate-implied value beats the odds
func (s *ValueBetting) OnRaceData(race *models.Race) {
	for i := range race.Horses {
		horse := &race.Horses[i]
		odds, ok := horse.WinOdds()
		if !ok || odds <= 1.0 {
			continue
		}
		stat := s.Historical(horse.HorseID)
		if stat.Starts < s.MinStarts {
			continue
		}
		if stat.WinRate*odds < s.EdgeThreshold {
			continue
		}

		stake := s.Balance().Mul(s.StakeFraction).Round(0)
		if stake.LessThan(s.MinStake) {
			stake = s.MinStake
		}
		s.PlaceBet(race.RaceID, "win", []string{horse.HorseID}, stake)
	}
}
