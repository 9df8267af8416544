package betting

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-engine/internal/events"
	"github.com/yourusername/keiba-engine/internal/models"
)

// LiveBettingRepository forwards confirmed bets to an external broker and
// settles individual positions as the feed reports results. SettleRace is a
// no-op because live settlement arrives per bet, not per race.
type LiveBettingRepository struct {
	book
	brokerRefs map[string]string
}

// NewLive creates a live betting repository with the given bankroll
func NewLive(bankroll decimal.Decimal, log *logrus.Logger) *LiveBettingRepository {
	return &LiveBettingRepository{
		book:       newBook(bankroll, log),
		brokerRefs: make(map[string]string),
	}
}

// ConfirmBet opens the position as submitted and assigns a broker reference
func (r *LiveBettingRepository) ConfirmBet(confirmation *events.BetConfirmationEvent) (*models.BetPosition, error) {
	position, err := r.confirmPending(confirmation)
	if err != nil {
		return nil, err
	}
	position.Status = models.BetStatusSubmitted
	ref := uuid.New().String()
	r.brokerRefs[position.BetID] = ref
	confirmation.Position = position
	r.log.WithFields(logrus.Fields{
		"bet_id":     position.BetID,
		"broker_ref": ref,
	}).Info("Bet submitted to broker")
	return position, nil
}

// SettleRace does nothing for live runs; use SettlePosition on feed notices
func (r *LiveBettingRepository) SettleRace(string, []models.Payoff, time.Time) ([]*models.BetPosition, error) {
	return nil, nil
}

// SettlePosition settles a single submitted position with the reported payout
func (r *LiveBettingRepository) SettlePosition(betID string, payout decimal.Decimal) (*models.BetPosition, error) {
	position, err := r.portfolio.SettleBet(betID, payout)
	if err != nil {
		return nil, err
	}
	delete(r.brokerRefs, betID)
	return position, nil
}

// BrokerRef returns the broker order reference for a submitted bet
func (r *LiveBettingRepository) BrokerRef(betID string) (string, error) {
	ref, ok := r.brokerRefs[betID]
	if !ok {
		return "", fmt.Errorf("%w: %s", models.ErrUnknownBet, betID)
	}
	return ref, nil
}

var _ Repository = (*LiveBettingRepository)(nil)
var _ Repository = (*SimulationBettingRepository)(nil)
