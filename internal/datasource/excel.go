package datasource

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Excel sheet names expected inside a workbook
const (
	racesSheet   = "races"
	horsesSheet  = "horses"
	payoffsSheet = "payoffs"
)

// ExcelLoader reads a dataset from a single xlsx workbook with three sheets:
// races, horses, and payoffs. Each sheet carries the same header row as the
// corresponding CSV file.
type ExcelLoader struct {
	path string
}

// NewExcelLoader creates a loader over the given workbook path
func NewExcelLoader(path string) *ExcelLoader {
	return &ExcelLoader{path: path}
}

// Name returns the name of the data source
func (l *ExcelLoader) Name() string { return "excel" }

// Load opens the workbook and reads all three sheets; the payoffs sheet is
// optional.
func (l *ExcelLoader) Load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	book, err := excelize.OpenFile(l.path)
	if err != nil {
		return nil, NewDataSourceError(l.Name(), ErrCodeNotFound, l.path, err)
	}
	defer book.Close()

	dataset := &Dataset{}

	raceRows, err := l.readSheet(book, racesSheet, true)
	if err != nil {
		return nil, err
	}
	for i, row := range raceRows {
		rec, err := raceFromRow(row)
		if err != nil {
			return nil, NewDataSourceError(l.Name(), ErrCodeInvalidData, fmt.Sprintf("%s row %d", racesSheet, i+1), err)
		}
		dataset.Races = append(dataset.Races, rec)
	}

	horseRows, err := l.readSheet(book, horsesSheet, true)
	if err != nil {
		return nil, err
	}
	for i, row := range horseRows {
		rec, err := horseFromRow(row)
		if err != nil {
			return nil, NewDataSourceError(l.Name(), ErrCodeInvalidData, fmt.Sprintf("%s row %d", horsesSheet, i+1), err)
		}
		dataset.Horses = append(dataset.Horses, rec)
	}

	payoffRows, err := l.readSheet(book, payoffsSheet, false)
	if err != nil {
		return nil, err
	}
	for i, row := range payoffRows {
		rec, err := payoffFromRow(row)
		if err != nil {
			return nil, NewDataSourceError(l.Name(), ErrCodeInvalidData, fmt.Sprintf("%s row %d", payoffsSheet, i+1), err)
		}
		dataset.Payoffs = append(dataset.Payoffs, rec)
	}
	return dataset, nil
}

func (l *ExcelLoader) readSheet(book *excelize.File, sheet string, required bool) ([]row, error) {
	records, err := book.GetRows(sheet)
	if err != nil {
		if required {
			return nil, NewDataSourceError(l.Name(), ErrCodeNotFound, fmt.Sprintf("sheet %s", sheet), err)
		}
		return nil, nil
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
