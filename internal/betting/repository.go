// Package betting implements the bet lifecycle: request validation, cash
// reservation, confirmation into the portfolio, and settlement.
package betting

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-engine/internal/events"
	"github.com/yourusername/keiba-engine/internal/models"
	"github.com/yourusername/keiba-engine/internal/portfolio"
)

// Repository is the bet-execution surface the engine drives. PlaceBet never
// returns an error: rejections come back as unaccepted confirmations so a
// strategy's bad request cannot abort a run.
type Repository interface {
	// PlaceBet validates a request and reserves cash for accepted bets
	PlaceBet(req *events.BetRequestEvent) *events.BetConfirmationEvent

	// ConfirmBet promotes an accepted request into a portfolio position
	ConfirmBet(confirmation *events.BetConfirmationEvent) (*models.BetPosition, error)

	// SettleRace settles all open positions on a race against its payoffs
	SettleRace(raceID string, payoffs []models.Payoff, settledAt time.Time) ([]*models.BetPosition, error)

	// Balance returns cash net of pending reservations
	Balance() decimal.Decimal

	// Positions returns all portfolio positions in placement order
	Positions() []*models.BetPosition

	// Portfolio exposes the underlying ledger for reporting
	Portfolio() *portfolio.Portfolio
}

// book holds the state shared by the simulation and live repositories:
// the portfolio ledger, pending reservations, and the bet id counter.
type book struct {
	portfolio *portfolio.Portfolio
	pending   map[string]*models.PendingBet
	reserved  decimal.Decimal
	counter   int
	log       *logrus.Logger
}

func newBook(bankroll decimal.Decimal, log *logrus.Logger) book {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return book{
		portfolio: portfolio.New(bankroll),
		pending:   make(map[string]*models.PendingBet),
		reserved:  decimal.Zero,
		log:       log,
	}
}

func (b *book) nextBetID() string {
	b.counter++
	return fmt.Sprintf("bet-%d", b.counter)
}

// Balance returns portfolio cash minus stakes reserved by pending bets
func (b *book) Balance() decimal.Decimal {
	return b.portfolio.Bankroll().Sub(b.reserved)
}

// Positions returns all portfolio positions in placement order
func (b *book) Positions() []*models.BetPosition {
	return b.portfolio.Positions()
}

// Portfolio exposes the underlying ledger
func (b *book) Portfolio() *portfolio.Portfolio {
	return b.portfolio
}

// PlaceBet validates the request and, when accepted, records a pending bet
// holding the stake until confirmation.
func (b *book) PlaceBet(req *events.BetRequestEvent) *events.BetConfirmationEvent {
	betType := CanonicalBetType(req.BetType)
	confirmation := &events.BetConfirmationEvent{
		RaceID:      req.RaceID,
		BetType:     betType,
		Combination: append([]string(nil), req.Combination...),
		Stake:       req.Stake,
		PlacedAt:    req.PlacedAt.UTC(),
	}
	if !req.Stake.IsPositive() {
		confirmation.Message = fmt.Sprintf("stake must be positive, got %s", req.Stake)
		return confirmation
	}
	if available := b.Balance(); req.Stake.GreaterThan(available) {
		confirmation.Message = fmt.Sprintf("stake %s exceeds available cash %s", req.Stake, available)
		return confirmation
	}

	betID := b.nextBetID()
	b.pending[betID] = &models.PendingBet{
		BetID:       betID,
		RaceID:      req.RaceID,
		BetType:     betType,
		Combination: confirmation.Combination,
		Stake:       req.Stake,
		PlacedAt:    confirmation.PlacedAt,
	}
	b.reserved = b.reserved.Add(req.Stake)

	confirmation.BetID = betID
	confirmation.Accepted = true
	b.log.WithFields(logrus.Fields{
		"bet_id":   betID,
		"race_id":  req.RaceID,
		"bet_type": betType,
		"stake":    req.Stake.String(),
	}).Debug("Bet accepted")
	return confirmation
}

// confirmPending releases the reservation and opens the portfolio position
func (b *book) confirmPending(confirmation *events.BetConfirmationEvent) (*models.BetPosition, error) {
	if !confirmation.Accepted {
		return nil, fmt.Errorf("cannot confirm rejected bet for race %s: %s", confirmation.RaceID, confirmation.Message)
	}
	bet, ok := b.pending[confirmation.BetID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownPendingBet, confirmation.BetID)
	}
	delete(b.pending, confirmation.BetID)
	b.reserved = b.reserved.Sub(bet.Stake)

	position, err := b.portfolio.PlaceBet(bet.BetID, bet.RaceID, bet.BetType, bet.Combination, bet.Stake, bet.PlacedAt)
	if err != nil {
		return nil, err
	}
	return position, nil
}
