package e2e

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-engine/internal/analytics"
	"github.com/yourusername/keiba-engine/internal/betting"
	"github.com/yourusername/keiba-engine/internal/clock"
	"github.com/yourusername/keiba-engine/internal/datasource"
	"github.com/yourusername/keiba-engine/internal/engine"
	"github.com/yourusername/keiba-engine/internal/repository"
	"github.com/yourusername/keiba-engine/internal/strategy"
)

const racesCSV = `race_id,date,course,distance,ground,weather
r1,2024-06-01T10:00:00Z,Tokyo,1600,turf,sunny
r2,2024-06-01T12:00:00Z,Tokyo,2000,turf,sunny
`

const horsesCSV = `race_id,horse_id,name,jockey,trainer,draw,odds
r1,h1,Alpha,Take,Fujisawa,1,"{""win"": 2.0}"
r1,h2,Beta,Luger,Kato,2,"{""win"": 8.0}"
r2,h1,Alpha,Take,Fujisawa,3,"{""win"": 3.0}"
r2,h3,Gamma,Demuro,Kato,5,"{""win"": 1.5}"
`

const payoffsCSV = `race_id,bet_type,combination,odds,payout
r1,win,h1,2.0,200
r2,win,h1,3.0,300
`

func writeDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "races.csv"), []byte(racesCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "horses.csv"), []byte(horsesCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "payoffs.csv"), []byte(payoffsCSV), 0o644))
	return dir
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// TestBacktestPipeline replays a small dataset end to end: CSV files are
// loaded and validated, the naive favorite strategy runs against them, and
// the resulting report and history file are checked.
func TestBacktestPipeline(t *testing.T) {
	dir := writeDataset(t)
	ctx := context.Background()

	dataset, err := datasource.NewCSVLoader(dir).Load(ctx)
	require.NoError(t, err)
	races, payoffs, err := dataset.Build()
	require.NoError(t, err)
	require.Len(t, races, 2)
	require.Len(t, payoffs, 2)

	dataRepo := repository.NewSimulation(races, payoffs)
	betRepo := betting.NewSimulation(decimal.NewFromInt(10000), quietLogger())
	eng := engine.New(dataRepo, betRepo, clock.NewSimulatedClock(time.Time{}), engine.WithLogger(quietLogger()))

	strat, err := strategy.Create("naive_favorite")
	require.NoError(t, err)
	eng.SetStrategy(strat)
	require.NoError(t, eng.Run(ctx))

	// The favorite wins r1 (h1 at 2.0) and loses r2 (h3 beaten by h1)
	positions := betRepo.Positions()
	require.Len(t, positions, 2)
	assert.Equal(t, "h1", positions[0].Combination[0])
	assert.Equal(t, "h3", positions[1].Combination[0])
	for _, position := range positions {
		assert.True(t, position.IsSettled())
	}
	assert.True(t, positions[0].Payout.IsPositive())
	assert.True(t, positions[1].Payout.IsZero())

	report := analytics.BuildReport(strat.Name(), eng.RunID(), betRepo.Portfolio(), eng.Now())
	assert.Equal(t, 2, report.TotalBets)
	assert.Equal(t, 2, report.SettledBets)
	assert.Equal(t, 1, report.WinningBets)
	assert.InDelta(t, 0.5, report.WinRate, 1e-9)
	assert.True(t, report.Initial.Equal(decimal.NewFromInt(10000)))
	assert.True(t, report.Final.Equal(report.Initial.Add(report.TotalProfit)))

	historyPath := filepath.Join(dir, "bets.csv")
	require.NoError(t, analytics.WriteHistory(historyPath, positions))
	loaded, err := analytics.ReadHistory(historyPath)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	rebuilt := analytics.ReportFromHistory(strat.Name(), loaded)
	assert.Equal(t, report.WinningBets, rebuilt.WinningBets)
	assert.True(t, report.TotalProfit.Equal(rebuilt.TotalProfit))
}

// TestBacktestWithoutPayoffs runs a dataset that has no settled results; bets
// stay open and the report reflects zero settled positions.
func TestBacktestWithoutPayoffs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "races.csv"), []byte(racesCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "horses.csv"), []byte(horsesCSV), 0o644))

	dataset, err := datasource.NewCSVLoader(dir).Load(context.Background())
	require.NoError(t, err)
	races, payoffs, err := dataset.Build()
	require.NoError(t, err)
	require.Empty(t, payoffs)

	dataRepo := repository.NewSimulation(races, payoffs)
	betRepo := betting.NewSimulation(decimal.NewFromInt(10000), quietLogger())
	eng := engine.New(dataRepo, betRepo, clock.NewSimulatedClock(time.Time{}), engine.WithLogger(quietLogger()))

	strat, err := strategy.Create("naive_favorite")
	require.NoError(t, err)
	eng.SetStrategy(strat)
	require.NoError(t, eng.Run(context.Background()))

	report := analytics.BuildReport(strat.Name(), eng.RunID(), betRepo.Portfolio(), eng.Now())
	assert.Equal(t, 2, report.TotalBets)
	assert.Equal(t, 0, report.SettledBets)
	// Open stakes count against profit until they settle
	assert.True(t, report.TotalProfit.IsNegative())
}
