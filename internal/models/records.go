package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// RaceRecord is a raw race row produced by a data adaptor before validation
type RaceRecord struct {
	RaceID   string `json:"race_id" validate:"required"`
	Date     string `json:"date" validate:"required"`
	Course   string `json:"course" validate:"required"`
	Distance int    `json:"distance" validate:"required,gt=0"`
	Ground   string `json:"ground"`
	Weather  string `json:"weather"`
}

// HorseRecord is a raw horse row produced by a data adaptor before validation
type HorseRecord struct {
	RaceID  string `json:"race_id" validate:"required"`
	HorseID string `json:"horse_id" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Jockey  string `json:"jockey"`
	Trainer string `json:"trainer"`
	Draw    int    `json:"draw" validate:"required,gte=1"`
	// Odds maps bet type to a positive price. Some sources deliver the
	// mapping as a JSON string; see ParseOddsJSON.
	Odds map[string]float64 `json:"odds"`
}

// PayoffRecord is a raw payoff row produced by a data adaptor before validation
type PayoffRecord struct {
	RaceID      string  `json:"race_id" validate:"required"`
	BetType     string  `json:"bet_type" validate:"required"`
	Combination string  `json:"combination" validate:"required"`
	Odds        float64 `json:"odds" validate:"required,gt=0"`
	Payout      string  `json:"payout"`
}

// DataValidationError aggregates every row-level problem found while building
// a dataset so ingestion failures are reported together.
type DataValidationError struct {
	Problems []string
}

// Error formats all collected problems as a single message
func (e *DataValidationError) Error() string {
	return fmt.Sprintf("data validation failed with %d problem(s):\n- %s",
		len(e.Problems), strings.Join(e.Problems, "\n- "))
}

// ParseOddsJSON decodes an odds mapping that arrived as a JSON string
func ParseOddsJSON(raw string) (map[string]float64, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]float64{}, nil
	}
	odds := map[string]float64{}
	if err := json.Unmarshal([]byte(raw), &odds); err != nil {
		return nil, fmt.Errorf("malformed odds mapping: %w", err)
	}
	return odds, nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseRecordTime parses an ISO datetime string, interpreting naive values as UTC
func ParseRecordTime(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable datetime %q", raw)
}

// BuildDataset validates raw records and assembles domain races and payoffs.
// All row-level errors are collected and returned as one DataValidationError.
func BuildDataset(races []RaceRecord, horses []HorseRecord, payoffs []PayoffRecord) ([]Race, []Payoff, error) {
	v := validator.New()
	var problems []string

	horsesByRace := make(map[string][]HorseEntry)
	for i, rec := range horses {
		if err := v.Struct(rec); err != nil {
			problems = append(problems, describeRecordError("horse", i, rec.RaceID, err))
			continue
		}
		entry := HorseEntry{
			RaceID:  rec.RaceID,
			HorseID: rec.HorseID,
			Name:    rec.Name,
			Jockey:  rec.Jockey,
			Trainer: rec.Trainer,
			Draw:    rec.Draw,
			Odds:    rec.Odds,
		}
		valid := true
		for betType, price := range rec.Odds {
			if price <= 0 {
				problems = append(problems, fmt.Sprintf("horse row %d (%s): odds for %s must be positive, got %v", i, rec.HorseID, betType, price))
				valid = false
			}
		}
		if valid {
			horsesByRace[rec.RaceID] = append(horsesByRace[rec.RaceID], entry)
		}
	}

	var builtRaces []Race
	for i, rec := range races {
		if err := v.Struct(rec); err != nil {
			problems = append(problems, describeRecordError("race", i, rec.RaceID, err))
			continue
		}
		scheduledAt, err := ParseRecordTime(rec.Date)
		if err != nil {
			problems = append(problems, fmt.Sprintf("race row %d (%s): %v", i, rec.RaceID, err))
			continue
		}
		entries := horsesByRace[rec.RaceID]
		if len(entries) == 0 {
			problems = append(problems, fmt.Sprintf("race row %d (%s): no horses", i, rec.RaceID))
			continue
		}
		sort.SliceStable(entries, func(a, b int) bool { return entries[a].Draw < entries[b].Draw })
		builtRaces = append(builtRaces, Race{
			RaceID:      rec.RaceID,
			ScheduledAt: scheduledAt,
			Course:      rec.Course,
			Distance:    rec.Distance,
			Ground:      rec.Ground,
			Weather:     rec.Weather,
			Horses:      entries,
		})
	}

	var builtPayoffs []Payoff
	for i, rec := range payoffs {
		if err := v.Struct(rec); err != nil {
			problems = append(problems, describeRecordError("payoff", i, rec.RaceID, err))
			continue
		}
		combination := SplitCombination(rec.Combination)
		if len(combination) == 0 {
			problems = append(problems, fmt.Sprintf("payoff row %d (%s): empty combination", i, rec.RaceID))
			continue
		}
		payout := decimal.Zero
		if strings.TrimSpace(rec.Payout) != "" {
			parsed, err := decimal.NewFromString(rec.Payout)
			if err != nil {
				problems = append(problems, fmt.Sprintf("payoff row %d (%s): invalid payout %q", i, rec.RaceID, rec.Payout))
				continue
			}
			payout = parsed
		}
		if payout.IsNegative() {
			problems = append(problems, fmt.Sprintf("payoff row %d (%s): payout must be non-negative, got %s", i, rec.RaceID, payout))
			continue
		}
		builtPayoffs = append(builtPayoffs, Payoff{
			RaceID:      rec.RaceID,
			BetType:     rec.BetType,
			Combination: combination,
			Odds:        rec.Odds,
			Payout:      payout,
		})
	}

	if len(problems) > 0 {
		return nil, nil, &DataValidationError{Problems: problems}
	}
	return builtRaces, builtPayoffs, nil
}

func describeRecordError(kind string, row int, raceID string, err error) string {
	if fieldErrors, ok := err.(validator.ValidationErrors); ok {
		var parts []string
		for _, fe := range fieldErrors {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
		return fmt.Sprintf("%s row %d (%s): %s", kind, row, raceID, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s row %d (%s): %v", kind, row, raceID, err)
}
