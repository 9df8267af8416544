package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BetStatus represents the status of a bet position
type BetStatus string

const (
	BetStatusOpen      BetStatus = "open"
	BetStatusSubmitted BetStatus = "submitted"
	BetStatusSettled   BetStatus = "settled"
)

// BetPosition represents an accepted bet held by the portfolio until settlement
type BetPosition struct {
	BetID       string          `json:"bet_id" validate:"required"`
	RaceID      string          `json:"race_id" validate:"required"`
	BetType     string          `json:"bet_type" validate:"required"`
	Combination []string        `json:"combination" validate:"min=1"`
	Stake       decimal.Decimal `json:"stake"`
	PlacedAt    time.Time       `json:"placed_at" validate:"required"`
	Status      BetStatus       `json:"status" validate:"required,oneof=open submitted settled"`
	Payout      decimal.Decimal `json:"payout"`
}

// IsSettled checks if the position has been settled
func (p *BetPosition) IsSettled() bool {
	return p.Status == BetStatusSettled
}

// Profit returns payout minus stake for settled positions, zero otherwise
func (p *BetPosition) Profit() decimal.Decimal {
	if !p.IsSettled() {
		return decimal.Zero
	}
	return p.Payout.Sub(p.Stake)
}

// ROI returns the return on investment for a settled position
func (p *BetPosition) ROI() float64 {
	if p.Stake.IsZero() {
		return 0
	}
	roi, _ := p.Profit().Div(p.Stake).Float64()
	return roi
}

// PendingBet is an accepted request that has reserved cash but has not yet
// been confirmed into the portfolio.
type PendingBet struct {
	BetID       string
	RaceID      string
	BetType     string
	Combination []string
	Stake       decimal.Decimal
	PlacedAt    time.Time
}

// HistoricalStat aggregates a horse's past performance
type HistoricalStat struct {
	Starts  int     `json:"starts"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"win_rate"`
}
