// Package portfolio tracks the bankroll and bet positions for a run.
package portfolio

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/keiba-engine/internal/models"
)

// Portfolio is the cash ledger and position store. Cash never goes negative:
// stakes are reserved up front and payouts released on settlement.
type Portfolio struct {
	initialBankroll decimal.Decimal
	cash            decimal.Decimal
	positions       map[string]*models.BetPosition
	order           []string
}

// New creates a portfolio seeded with the given bankroll
func New(bankroll decimal.Decimal) *Portfolio {
	return &Portfolio{
		initialBankroll: bankroll,
		cash:            bankroll,
		positions:       make(map[string]*models.BetPosition),
	}
}

// PlaceBet reserves the stake and records an open position.
// Fails with ErrInvalidStake for non-positive stakes and ErrInsufficientCash
// when the stake exceeds available cash.
func (p *Portfolio) PlaceBet(betID, raceID, betType string, combination []string, stake decimal.Decimal, placedAt time.Time) (*models.BetPosition, error) {
	if !stake.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", models.ErrInvalidStake, stake)
	}
	if stake.GreaterThan(p.cash) {
		return nil, fmt.Errorf("%w: stake %s exceeds cash %s", models.ErrInsufficientCash, stake, p.cash)
	}
	position := &models.BetPosition{
		BetID:       betID,
		RaceID:      raceID,
		BetType:     betType,
		Combination: append([]string(nil), combination...),
		Stake:       stake,
		PlacedAt:    placedAt.UTC(),
		Status:      models.BetStatusOpen,
	}
	p.cash = p.cash.Sub(stake)
	p.positions[betID] = position
	p.order = append(p.order, betID)
	return position, nil
}

// SettleBet releases the payout for a position and marks it settled.
// Fails with ErrUnknownBet or ErrAlreadySettled.
func (p *Portfolio) SettleBet(betID string, payout decimal.Decimal) (*models.BetPosition, error) {
	position, ok := p.positions[betID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownBet, betID)
	}
	if position.Status == models.BetStatusSettled {
		return nil, fmt.Errorf("%w: %s", models.ErrAlreadySettled, betID)
	}
	position.Status = models.BetStatusSettled
	position.Payout = payout
	p.cash = p.cash.Add(payout)
	return position, nil
}

// Bankroll returns the current cash balance
func (p *Portfolio) Bankroll() decimal.Decimal {
	return p.cash
}

// InitialBankroll returns the bankroll the portfolio started with
func (p *Portfolio) InitialBankroll() decimal.Decimal {
	return p.initialBankroll
}

// Position returns the position for a bet id if present
func (p *Portfolio) Position(betID string) (*models.BetPosition, bool) {
	position, ok := p.positions[betID]
	return position, ok
}

// Positions returns all recorded positions in placement order
func (p *Portfolio) Positions() []*models.BetPosition {
	positions := make([]*models.BetPosition, 0, len(p.positions))
	for _, betID := range p.order {
		positions = append(positions, p.positions[betID])
	}
	return positions
}

// OpenPositions returns positions that have not yet settled
func (p *Portfolio) OpenPositions() []*models.BetPosition {
	return p.filter(func(pos *models.BetPosition) bool { return !pos.IsSettled() })
}

// SettledPositions returns positions that have settled
func (p *Portfolio) SettledPositions() []*models.BetPosition {
	return p.filter(func(pos *models.BetPosition) bool { return pos.IsSettled() })
}

// TotalProfit returns realized profit minus stakes still at risk
func (p *Portfolio) TotalProfit() decimal.Decimal {
	total := decimal.Zero
	for _, pos := range p.positions {
		if pos.IsSettled() {
			total = total.Add(pos.Payout.Sub(pos.Stake))
		} else {
			total = total.Sub(pos.Stake)
		}
	}
	return total
}

func (p *Portfolio) filter(keep func(*models.BetPosition) bool) []*models.BetPosition {
	var out []*models.BetPosition
	for _, betID := range p.order {
		if pos := p.positions[betID]; keep(pos) {
			out = append(out, pos)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].PlacedAt.Before(out[b].PlacedAt) })
	return out
}
