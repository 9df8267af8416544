package analytics

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/keiba-engine/internal/models"
)

var historyHeader = []string{"bet_id", "race_id", "bet_type", "combination", "stake", "payout", "status", "placed_at"}

// WriteHistory persists the bet positions to a CSV file. Combinations are
// hyphen-joined, matching the payoff wire format.
func WriteHistory(path string, positions []*models.BetPosition) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating history file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(historyHeader); err != nil {
		return err
	}
	for _, position := range positions {
		record := []string{
			position.BetID,
			position.RaceID,
			position.BetType,
			strings.Join(position.Combination, "-"),
			position.Stake.String(),
			position.Payout.String(),
			string(position.Status),
			position.PlacedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadHistory loads bet positions from a CSV file written by WriteHistory
func ReadHistory(path string) ([]*models.BetPosition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening history file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading history file: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	index := make(map[string]int, len(records[0]))
	for i, column := range records[0] {
		index[column] = i
	}
	field := func(record []string, column string) string {
		i, ok := index[column]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	positions := make([]*models.BetPosition, 0, len(records)-1)
	for n, record := range records[1:] {
		stake, err := decimal.NewFromString(field(record, "stake"))
		if err != nil {
			return nil, fmt.Errorf("history row %d: invalid stake: %w", n+1, err)
		}
		payout := decimal.Zero
		if raw := field(record, "payout"); raw != "" {
			payout, err = decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("history row %d: invalid payout: %w", n+1, err)
			}
		}
		placedAt, err := models.ParseRecordTime(field(record, "placed_at"))
		if err != nil {
			return nil, fmt.Errorf("history row %d: %w", n+1, err)
		}
		positions = append(positions, &models.BetPosition{
			BetID:       field(record, "bet_id"),
			RaceID:      field(record, "race_id"),
			BetType:     field(record, "bet_type"),
			Combination: models.SplitCombination(field(record, "combination")),
			Stake:       stake,
			Payout:      payout,
			Status:      models.BetStatus(field(record, "status")),
			PlacedAt:    placedAt,
		})
	}
	return positions, nil
}
