package betting

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yourusername/keiba-engine/internal/models"
)

// canonicalBetTypes maps each canonical bet type to its known aliases,
// covering the English and Japanese wire labels.
var canonicalBetTypes = map[string][]string{
	"win":              {"win", "単勝"},
	"place":            {"place", "複勝"},
	"bracket_quinella": {"bracket_quinella", "枠連"},
	"quinella":         {"quinella", "馬連"},
	"exacta":           {"exacta", "馬単"},
	"quinella_place":   {"quinella_place", "ワイド", "wide"},
	"trifecta_box":     {"trifecta_box", "三連複"},
	"trifecta_exact":   {"trifecta_exact", "三連単"},
}

// orderSensitive lists bet types where runner ordering matters
var orderSensitive = map[string]bool{
	"exacta":         true,
	"trifecta_exact": true,
}

// CanonicalBetType normalises user- or feed-supplied bet type labels.
// Unknown labels pass through lower-cased.
func CanonicalBetType(betType string) string {
	normalized := strings.ToLower(betType)
	for canonical, aliases := range canonicalBetTypes {
		for _, alias := range aliases {
			if normalized == strings.ToLower(alias) {
				return canonical
			}
		}
	}
	return normalized
}

// CalculatePayout returns stake times odds for the first matching payoff of
// the same canonical type, or zero when nothing matches.
func CalculatePayout(position *models.BetPosition, payoffs []models.Payoff) decimal.Decimal {
	canonical := CanonicalBetType(position.BetType)
	for i := range payoffs {
		if CanonicalBetType(payoffs[i].BetType) != canonical {
			continue
		}
		if combinationsMatch(position.Combination, payoffs[i].Combination, canonical) {
			return position.Stake.Mul(decimal.NewFromFloat(payoffs[i].Odds))
		}
	}
	return decimal.Zero
}

func combinationsMatch(bet, result []string, canonical string) bool {
	if orderSensitive[canonical] {
		if len(bet) != len(result) {
			return false
		}
		for i := range bet {
			if bet[i] != result[i] {
				return false
			}
		}
		return true
	}
	switch canonical {
	case "win":
		return len(bet) > 0 && len(result) > 0 && bet[0] == result[0]
	case "place":
		// Every runner in the bet must appear in the payoff combination.
		for _, horse := range bet {
			if !contains(result, horse) {
				return false
			}
		}
		return len(bet) > 0
	default:
		// quinella, quinella_place, bracket_quinella, trifecta_box, and
		// anything unrecognised settle on set equality.
		return setEqual(bet, result)
	}
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func setEqual(a, b []string) bool {
	setA := make(map[string]struct{}, len(a))
	for _, id := range a {
		setA[id] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, id := range b {
		setB[id] = struct{}{}
	}
	if len(setA) != len(setB) {
		return false
	}
	for id := range setA {
		if _, ok := setB[id]; !ok {
			return false
		}
	}
	return true
}
