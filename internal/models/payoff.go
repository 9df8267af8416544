package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Payoff represents the settled price for one bet-type/combination in a race
type Payoff struct {
	RaceID      string          `json:"race_id" validate:"required"`
	BetType     string          `json:"bet_type" validate:"required"`
	Combination []string        `json:"combination" validate:"min=1"`
	Odds        float64         `json:"odds" validate:"required,gt=0"`
	Payout      decimal.Decimal `json:"payout"`
}

// CombinationKey returns the hyphen-joined wire form of the combination
func (p *Payoff) CombinationKey() string {
	return strings.Join(p.Combination, "-")
}

// SplitCombination parses a hyphen-joined combination string, dropping empty parts
func SplitCombination(raw string) []string {
	parts := strings.Split(raw, "-")
	combination := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			combination = append(combination, part)
		}
	}
	return combination
}
