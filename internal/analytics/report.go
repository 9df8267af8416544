// Package analytics computes run-level performance figures and persists bet
// history for later inspection.
package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/keiba-engine/internal/models"
	"github.com/yourusername/keiba-engine/internal/portfolio"
)

// Report summarises a finished run
type Report struct {
	Strategy    string          `json:"strategy"`
	RunID       string          `json:"run_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Initial     decimal.Decimal `json:"initial_bankroll"`
	Final       decimal.Decimal `json:"final_bankroll"`
	TotalProfit decimal.Decimal `json:"total_profit"`

	TotalBets   int `json:"total_bets"`
	SettledBets int `json:"settled_bets"`
	WinningBets int `json:"winning_bets"`

	WinRate     float64         `json:"win_rate"`
	ROI         float64         `json:"roi"`
	AvgPayout   decimal.Decimal `json:"avg_payout"`
	MaxDrawdown decimal.Decimal `json:"max_drawdown"`

	LongestWinStreak  int `json:"longest_win_streak"`
	LongestLoseStreak int `json:"longest_lose_streak"`
}

// BuildReport derives the report from the portfolio's positions
func BuildReport(strategy, runID string, p *portfolio.Portfolio, generatedAt time.Time) *Report {
	report := fromPositions(p.Positions())
	report.Strategy = strategy
	report.RunID = runID
	report.GeneratedAt = generatedAt.UTC()
	report.Initial = p.InitialBankroll()
	report.Final = p.Bankroll()
	report.TotalProfit = p.TotalProfit()
	return report
}

// ReportFromHistory rebuilds a report from persisted bet positions when the
// run's portfolio is no longer available. Bankroll figures stay zero because
// history files do not carry the starting balance.
func ReportFromHistory(strategy string, positions []*models.BetPosition) *Report {
	report := fromPositions(positions)
	report.Strategy = strategy
	report.GeneratedAt = time.Now().UTC()
	return report
}

func fromPositions(positions []*models.BetPosition) *Report {
	report := &Report{TotalBets: len(positions)}

	totalStaked := decimal.Zero
	totalPayout := decimal.Zero
	equity := decimal.Zero
	peak := decimal.Zero
	winStreak, loseStreak := 0, 0

	for _, position := range positions {
		if !position.IsSettled() {
			continue
		}
		report.SettledBets++
		totalStaked = totalStaked.Add(position.Stake)
		totalPayout = totalPayout.Add(position.Payout)

		if position.Payout.GreaterThan(decimal.Zero) {
			report.WinningBets++
			winStreak++
			loseStreak = 0
		} else {
			loseStreak++
			winStreak = 0
		}
		if winStreak > report.LongestWinStreak {
			report.LongestWinStreak = winStreak
		}
		if loseStreak > report.LongestLoseStreak {
			report.LongestLoseStreak = loseStreak
		}

		equity = equity.Add(position.Profit())
		if equity.GreaterThan(peak) {
			peak = equity
		}
		if drawdown := peak.Sub(equity); drawdown.GreaterThan(report.MaxDrawdown) {
			report.MaxDrawdown = drawdown
		}
	}

	report.TotalProfit = totalPayout.Sub(totalStaked)
	if report.SettledBets > 0 {
		report.WinRate = float64(report.WinningBets) / float64(report.SettledBets)
		report.AvgPayout = totalPayout.Div(decimal.NewFromInt(int64(report.SettledBets))).Round(2)
	}
	if totalStaked.IsPositive() {
		report.ROI, _ = totalPayout.Sub(totalStaked).Div(totalStaked).Float64()
	}
	return report
}

// Summary renders the report as an aligned text block for the CLI
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Strategy:          %s\n", r.Strategy)
	if r.RunID != "" {
		fmt.Fprintf(&b, "Run:               %s\n", r.RunID)
	}
	fmt.Fprintf(&b, "Initial bankroll:  %s\n", r.Initial)
	fmt.Fprintf(&b, "Final bankroll:    %s\n", r.Final)
	fmt.Fprintf(&b, "Total profit:      %s\n", r.TotalProfit)
	fmt.Fprintf(&b, "Bets (settled):    %d (%d)\n", r.TotalBets, r.SettledBets)
	fmt.Fprintf(&b, "Win rate:          %.2f%%\n", r.WinRate*100)
	fmt.Fprintf(&b, "ROI:               %.2f%%\n", r.ROI*100)
	fmt.Fprintf(&b, "Avg payout:        %s\n", r.AvgPayout)
	fmt.Fprintf(&b, "Max drawdown:      %s\n", r.MaxDrawdown)
	fmt.Fprintf(&b, "Best win streak:   %d\n", r.LongestWinStreak)
	fmt.Fprintf(&b, "Worst lose streak: %d\n", r.LongestLoseStreak)
	return b.String()
}
