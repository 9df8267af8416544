package betting

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/keiba-engine/internal/models"
)

func TestCanonicalBetType(t *testing.T) {
	cases := map[string]string{
		"win":            "win",
		"単勝":             "win",
		"複勝":             "place",
		"枠連":             "bracket_quinella",
		"馬連":             "quinella",
		"馬単":             "exacta",
		"ワイド":            "quinella_place",
		"wide":           "quinella_place",
		"三連複":            "trifecta_box",
		"三連単":            "trifecta_exact",
		"WIN":            "win",
		"something_else": "something_else",
	}
	for raw, want := range cases {
		if got := CanonicalBetType(raw); got != want {
			t.Errorf("CanonicalBetType(%q) = %q, want %q", raw, got, want)
		}
	}
}

func position(betType string, combination ...string) *models.BetPosition {
	return &models.BetPosition{
		BetID:       "bet-1",
		RaceID:      "r1",
		BetType:     betType,
		Combination: combination,
		Stake:       decimal.NewFromInt(100),
		PlacedAt:    time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		Status:      models.BetStatusOpen,
	}
}

func payoff(betType string, odds float64, combination ...string) models.Payoff {
	return models.Payoff{RaceID: "r1", BetType: betType, Combination: combination, Odds: odds}
}

func TestCalculatePayoutWin(t *testing.T) {
	pos := position("win", "h1")
	payoffs := []models.Payoff{payoff("単勝", 2.5, "h1")}

	if got := CalculatePayout(pos, payoffs); !got.Equal(decimal.NewFromInt(250)) {
		t.Errorf("payout = %s, want 250", got)
	}

	losing := position("win", "h9")
	if got := CalculatePayout(losing, payoffs); !got.IsZero() {
		t.Errorf("losing payout = %s, want 0", got)
	}
}

func TestCalculatePayoutPlaceIsSubset(t *testing.T) {
	payoffs := []models.Payoff{payoff("place", 1.4, "h1", "h3", "h5")}

	if got := CalculatePayout(position("place", "h3"), payoffs); got.IsZero() {
		t.Error("placed horse should pay")
	}
	if got := CalculatePayout(position("place", "h2"), payoffs); !got.IsZero() {
		t.Errorf("unplaced horse paid %s", got)
	}
}

func TestCalculatePayoutOrderSensitive(t *testing.T) {
	payoffs := []models.Payoff{payoff("exacta", 12.0, "h1", "h2")}

	if got := CalculatePayout(position("exacta", "h1", "h2"), payoffs); got.IsZero() {
		t.Error("exact order should pay")
	}
	if got := CalculatePayout(position("exacta", "h2", "h1"), payoffs); !got.IsZero() {
		t.Errorf("reversed exacta paid %s", got)
	}

	trifecta := []models.Payoff{payoff("三連単", 300.0, "h1", "h2", "h3")}
	if got := CalculatePayout(position("trifecta_exact", "h1", "h2", "h3"), trifecta); got.IsZero() {
		t.Error("exact trifecta should pay")
	}
	if got := CalculatePayout(position("trifecta_exact", "h3", "h2", "h1"), trifecta); !got.IsZero() {
		t.Errorf("shuffled trifecta paid %s", got)
	}
}

func TestCalculatePayoutSetEquality(t *testing.T) {
	payoffs := []models.Payoff{payoff("quinella", 8.0, "h1", "h2")}

	if got := CalculatePayout(position("quinella", "h2", "h1"), payoffs); got.IsZero() {
		t.Error("quinella order should not matter")
	}
	if got := CalculatePayout(position("quinella", "h1", "h3"), payoffs); !got.IsZero() {
		t.Errorf("wrong pair paid %s", got)
	}

	box := []models.Payoff{payoff("trifecta_box", 50.0, "h1", "h2", "h3")}
	if got := CalculatePayout(position("trifecta_box", "h3", "h1", "h2"), box); got.IsZero() {
		t.Error("box order should not matter")
	}
}

func TestCalculatePayoutIgnoresOtherTypes(t *testing.T) {
	payoffs := []models.Payoff{payoff("place", 1.5, "h1")}
	if got := CalculatePayout(position("win", "h1"), payoffs); !got.IsZero() {
		t.Errorf("win bet paid from place payoff: %s", got)
	}
}

func TestCalculatePayoutFirstMatchWins(t *testing.T) {
	payoffs := []models.Payoff{
		payoff("win", 2.0, "h1"),
		payoff("win", 3.0, "h1"),
	}
	if got := CalculatePayout(position("win", "h1"), payoffs); !got.Equal(decimal.NewFromInt(200)) {
		t.Errorf("payout = %s, want 200 from first match", got)
	}
}
