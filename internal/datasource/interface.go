// Package datasource loads historical racing data from files, databases, and
// remote providers into raw records for validation.
package datasource

import (
	"context"
	"errors"

	"github.com/yourusername/keiba-engine/internal/models"
)

// Loader reads a raw dataset from a backing store. Rows come back
// unvalidated; Dataset.Build runs the validation pass.
type Loader interface {
	// Load reads every race, horse, and payoff row from the source
	Load(ctx context.Context) (*Dataset, error)

	// Name returns the name of the data source
	Name() string
}

// Dataset holds raw rows as loaded, before validation
type Dataset struct {
	Races   []models.RaceRecord
	Horses  []models.HorseRecord
	Payoffs []models.PayoffRecord
}

// Build validates the raw rows and assembles domain races and payoffs
func (d *Dataset) Build() ([]models.Race, []models.Payoff, error) {
	return models.BuildDataset(d.Races, d.Horses, d.Payoffs)
}

// DataSourceError wraps a failure from a specific source with an error code
type DataSourceError struct {
	Source  string
	Code    string
	Message string
	Err     error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

func (e DataSourceError) Unwrap() error { return e.Err }

// Common error codes
const (
	ErrCodeNotFound     = "not_found"
	ErrCodeInvalidData  = "invalid_data"
	ErrCodeNetworkError = "network_error"
	ErrCodeServerError  = "server_error"
)

var (
	// ErrNotFound is returned when the backing store has no such dataset
	ErrNotFound = errors.New("data not found")
)

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{Source: source, Code: code, Message: message, Err: err}
}
