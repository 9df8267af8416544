package models

import (
	"time"
)

// HorseEntry represents a horse participating in a race
type HorseEntry struct {
	RaceID  string             `json:"race_id" validate:"required"`
	HorseID string             `json:"horse_id" validate:"required"`
	Name    string             `json:"name" validate:"required"`
	Jockey  string             `json:"jockey"`
	Trainer string             `json:"trainer"`
	Draw    int                `json:"draw" validate:"required,gte=1"`
	Odds    map[string]float64 `json:"odds"`
}

// WinOdds returns the win-market price for the horse, accepting both the
// canonical label and the Japanese alias used in raw payoff feeds.
func (h *HorseEntry) WinOdds() (float64, bool) {
	if odds, ok := h.Odds["win"]; ok {
		return odds, true
	}
	odds, ok := h.Odds["単勝"]
	return odds, ok
}

// Race represents a race card entry in the system
type Race struct {
	RaceID      string       `json:"race_id" validate:"required"`
	ScheduledAt time.Time    `json:"scheduled_at" validate:"required"`
	Course      string       `json:"course" validate:"required"`
	Distance    int          `json:"distance" validate:"required,gt=0"`
	Ground      string       `json:"ground"`
	Weather     string       `json:"weather"`
	Horses      []HorseEntry `json:"horses" validate:"min=1,dive"`
}

// GetHorse returns the horse with the given identifier if present
func (r *Race) GetHorse(horseID string) *HorseEntry {
	for i := range r.Horses {
		if r.Horses[i].HorseID == horseID {
			return &r.Horses[i]
		}
	}
	return nil
}

// EnsureUTC normalises a timestamp to UTC, interpreting naive values as UTC
func EnsureUTC(t time.Time) time.Time {
	return t.UTC()
}
