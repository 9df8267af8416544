package datasource

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yourusername/keiba-engine/internal/models"
)

// DatabaseLoader reads a dataset from PostgreSQL. The schema mirrors the
// file formats: races, horses, and payoffs tables with the same columns as
// the CSV headers.
type DatabaseLoader struct {
	pool *pgxpool.Pool
}

// NewDatabaseLoader connects a pool to the given DSN
func NewDatabaseLoader(ctx context.Context, dsn string) (*DatabaseLoader, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, NewDataSourceError("database", ErrCodeNetworkError, "connecting pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, NewDataSourceError("database", ErrCodeNetworkError, "pinging database", err)
	}
	return &DatabaseLoader{pool: pool}, nil
}

// Name returns the name of the data source
func (l *DatabaseLoader) Name() string { return "database" }

// Close releases the connection pool
func (l *DatabaseLoader) Close() {
	l.pool.Close()
}

// Load reads every race, horse, and payoff row
func (l *DatabaseLoader) Load(ctx context.Context) (*Dataset, error) {
	dataset := &Dataset{}

	rows, err := l.pool.Query(ctx,
		`SELECT race_id, date::text, course, distance, COALESCE(ground, ''), COALESCE(weather, '') FROM races ORDER BY date`)
	if err != nil {
		return nil, NewDataSourceError(l.Name(), ErrCodeServerError, "querying races", err)
	}
	for rows.Next() {
		var rec models.RaceRecord
		if err := rows.Scan(&rec.RaceID, &rec.Date, &rec.Course, &rec.Distance, &rec.Ground, &rec.Weather); err != nil {
			rows.Close()
			return nil, NewDataSourceError(l.Name(), ErrCodeInvalidData, "scanning race row", err)
		}
		dataset.Races = append(dataset.Races, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, NewDataSourceError(l.Name(), ErrCodeServerError, "reading races", err)
	}

	rows, err = l.pool.Query(ctx,
		`SELECT race_id, horse_id, name, COALESCE(jockey, ''), COALESCE(trainer, ''), draw, COALESCE(odds::text, '') FROM horses ORDER BY race_id, draw`)
	if err != nil {
		return nil, NewDataSourceError(l.Name(), ErrCodeServerError, "querying horses", err)
	}
	for rows.Next() {
		var rec models.HorseRecord
		var rawOdds string
		if err := rows.Scan(&rec.RaceID, &rec.HorseID, &rec.Name, &rec.Jockey, &rec.Trainer, &rec.Draw, &rawOdds); err != nil {
			rows.Close()
			return nil, NewDataSourceError(l.Name(), ErrCodeInvalidData, "scanning horse row", err)
		}
		odds, err := models.ParseOddsJSON(rawOdds)
		if err != nil {
			rows.Close()
			return nil, NewDataSourceError(l.Name(), ErrCodeInvalidData, "decoding odds for "+rec.HorseID, err)
		}
		rec.Odds = odds
		dataset.Horses = append(dataset.Horses, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, NewDataSourceError(l.Name(), ErrCodeServerError, "reading horses", err)
	}

	rows, err = l.pool.Query(ctx,
		`SELECT race_id, bet_type, combination, odds, COALESCE(payout::text, '') FROM payoffs ORDER BY race_id`)
	if err != nil {
		return nil, NewDataSourceError(l.Name(), ErrCodeServerError, "querying payoffs", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rec models.PayoffRecord
		if err := rows.Scan(&rec.RaceID, &rec.BetType, &rec.Combination, &rec.Odds, &rec.Payout); err != nil {
			return nil, NewDataSourceError(l.Name(), ErrCodeInvalidData, "scanning payoff row", err)
		}
		dataset.Payoffs = append(dataset.Payoffs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, NewDataSourceError(l.Name(), ErrCodeServerError, "reading payoffs", err)
	}

	return dataset, nil
}
