package betting

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-engine/internal/events"
	"github.com/yourusername/keiba-engine/internal/models"
)

// SimulationBettingRepository fills confirmed bets instantly and settles them
// from historical payoffs when the engine replays a race result.
type SimulationBettingRepository struct {
	book
	openByRace map[string][]string
}

// NewSimulation creates a simulation betting repository with the given bankroll
func NewSimulation(bankroll decimal.Decimal, log *logrus.Logger) *SimulationBettingRepository {
	return &SimulationBettingRepository{
		book:       newBook(bankroll, log),
		openByRace: make(map[string][]string),
	}
}

// ConfirmBet opens the position immediately; simulated fills never lag
func (r *SimulationBettingRepository) ConfirmBet(confirmation *events.BetConfirmationEvent) (*models.BetPosition, error) {
	position, err := r.confirmPending(confirmation)
	if err != nil {
		return nil, err
	}
	r.openByRace[position.RaceID] = append(r.openByRace[position.RaceID], position.BetID)
	confirmation.Position = position
	return position, nil
}

// SettleRace settles every open position on the race. Positions that match a
// payoff of the same type receive stake times odds; the rest pay zero.
func (r *SimulationBettingRepository) SettleRace(raceID string, payoffs []models.Payoff, settledAt time.Time) ([]*models.BetPosition, error) {
	betIDs := r.openByRace[raceID]
	if len(betIDs) == 0 {
		return nil, nil
	}
	delete(r.openByRace, raceID)

	settled := make([]*models.BetPosition, 0, len(betIDs))
	for _, betID := range betIDs {
		position, ok := r.portfolio.Position(betID)
		if !ok || position.IsSettled() {
			continue
		}
		payout := CalculatePayout(position, payoffs)
		if _, err := r.portfolio.SettleBet(betID, payout); err != nil {
			return settled, err
		}
		r.log.WithFields(logrus.Fields{
			"bet_id":  betID,
			"race_id": raceID,
			"stake":   position.Stake.String(),
			"payout":  payout.String(),
		}).Debug("Bet settled")
		settled = append(settled, position)
	}
	return settled, nil
}
