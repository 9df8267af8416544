package datasource

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/yourusername/keiba-engine/internal/models"
)

// CSV file names expected inside the dataset directory
const (
	racesFile   = "races.csv"
	horsesFile  = "horses.csv"
	payoffsFile = "payoffs.csv"
)

// CSVLoader reads a dataset from a directory of three CSV files:
// races.csv, horses.csv, and payoffs.csv. Columns are matched by header
// name, so column order does not matter.
type CSVLoader struct {
	dir string
}

// NewCSVLoader creates a loader over the given dataset directory
func NewCSVLoader(dir string) *CSVLoader {
	return &CSVLoader{dir: dir}
}

// Name returns the name of the data source
func (l *CSVLoader) Name() string { return "csv" }

// Load reads all three files; payoffs.csv may be absent for ante-post data
func (l *CSVLoader) Load(ctx context.Context) (*Dataset, error) {
	dataset := &Dataset{}

	raceRows, err := l.readFile(ctx, racesFile)
	if err != nil {
		return nil, err
	}
	for i, row := range raceRows {
		rec, err := raceFromRow(row)
		if err != nil {
			return nil, NewDataSourceError(l.Name(), ErrCodeInvalidData, fmt.Sprintf("%s row %d", racesFile, i+1), err)
		}
		dataset.Races = append(dataset.Races, rec)
	}

	horseRows, err := l.readFile(ctx, horsesFile)
	if err != nil {
		return nil, err
	}
	for i, row := range horseRows {
		rec, err := horseFromRow(row)
		if err != nil {
			return nil, NewDataSourceError(l.Name(), ErrCodeInvalidData, fmt.Sprintf("%s row %d", horsesFile, i+1), err)
		}
		dataset.Horses = append(dataset.Horses, rec)
	}

	payoffRows, err := l.readFile(ctx, payoffsFile)
	if err != nil {
		if dsErr, ok := err.(DataSourceError); ok && dsErr.Code == ErrCodeNotFound {
			return dataset, nil
		}
		return nil, err
	}
	for i, row := range payoffRows {
		rec, err := payoffFromRow(row)
		if err != nil {
			return nil, NewDataSourceError(l.Name(), ErrCodeInvalidData, fmt.Sprintf("%s row %d", payoffsFile, i+1), err)
		}
		dataset.Payoffs = append(dataset.Payoffs, rec)
	}
	return dataset, nil
}

// row is a header-indexed CSV record
type row map[string]string

func (r row) get(column string) string { return r[column] }

func (r row) getInt(column string) (int, error) {
	raw := r[column]
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", column, err)
	}
	return value, nil
}

func (r row) getFloat(column string) (float64, error) {
	raw := r[column]
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", column, err)
	}
	return value, nil
}

func (l *CSVLoader) readFile(ctx context.Context, name string) ([]row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(l.dir, name)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewDataSourceError(l.Name(), ErrCodeNotFound, path, ErrNotFound)
		}
		return nil, NewDataSourceError(l.Name(), ErrCodeInvalidData, path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, NewDataSourceError(l.Name(), ErrCodeInvalidData, path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	rows := make([]row, 0, len(records)-1)
	for _, record := range records[1:] {
		r := make(row, len(header))
		for i, column := range header {
			if i < len(record) {
				r[column] = record[i]
			}
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func raceFromRow(r row) (models.RaceRecord, error) {
	distance, err := r.getInt("distance")
	if err != nil {
		return models.RaceRecord{}, err
	}
	return models.RaceRecord{
		RaceID:   r.get("race_id"),
		Date:     r.get("date"),
		Course:   r.get("course"),
		Distance: distance,
		Ground:   r.get("ground"),
		Weather:  r.get("weather"),
	}, nil
}

func horseFromRow(r row) (models.HorseRecord, error) {
	draw, err := r.getInt("draw")
	if err != nil {
		return models.HorseRecord{}, err
	}
	odds, err := models.ParseOddsJSON(r.get("odds"))
	if err != nil {
		return models.HorseRecord{}, err
	}
	return models.HorseRecord{
		RaceID:  r.get("race_id"),
		HorseID: r.get("horse_id"),
		Name:    r.get("name"),
		Jockey:  r.get("jockey"),
		Trainer: r.get("trainer"),
		Draw:    draw,
		Odds:    odds,
	}, nil
}

func payoffFromRow(r row) (models.PayoffRecord, error) {
	odds, err := r.getFloat("odds")
	if err != nil {
		return models.PayoffRecord{}, err
	}
	return models.PayoffRecord{
		RaceID:      r.get("race_id"),
		BetType:     r.get("bet_type"),
		Combination: r.get("combination"),
		Odds:        odds,
		Payout:      r.get("payout"),
	}, nil
}
