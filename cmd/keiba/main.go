// Package main provides the keiba command line interface.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/keiba-engine/internal/analytics"
	"github.com/yourusername/keiba-engine/internal/betting"
	"github.com/yourusername/keiba-engine/internal/clock"
	"github.com/yourusername/keiba-engine/internal/config"
	"github.com/yourusername/keiba-engine/internal/datasource"
	"github.com/yourusername/keiba-engine/internal/engine"
	"github.com/yourusername/keiba-engine/internal/livefeed"
	"github.com/yourusername/keiba-engine/internal/logger"
	"github.com/yourusername/keiba-engine/internal/metrics"
	"github.com/yourusername/keiba-engine/internal/repository"
	"github.com/yourusername/keiba-engine/internal/strategy"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile   string
	strategyName string
	sourceType   string
	dataPath     string
	bankroll     float64
	liveMode     bool
	outputPath   string
	historyPath  string
)

var rootCmd = &cobra.Command{
	Use:   "keiba",
	Short: "Event-driven backtesting engine for horse racing strategies",
	Long: `keiba replays historical race cards and payoffs through a betting
strategy on a virtual clock, or drives the same strategy live from a feed.`,
	Version: fmt.Sprintf("%s (%s, %s)", Version, GitCommit, BuildDate),
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a strategy over a dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStrategy(cmd.Context())
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarise a saved bet history file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config/config.yaml", "Path to configuration file")

	runCmd.Flags().StringVarP(&strategyName, "strategy", "s", "naive_favorite", "Strategy to run")
	runCmd.Flags().StringVar(&sourceType, "data-source", "", "Data source type: csv, excel, db, remote")
	runCmd.Flags().StringVar(&dataPath, "data", "", "Dataset location: CSV directory, xlsx file, or remote base URL")
	runCmd.Flags().Float64Var(&bankroll, "bankroll", 0, "Override the initial bankroll")
	runCmd.Flags().BoolVar(&liveMode, "live", false, "Run against the live feed instead of replaying")
	runCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write bet history CSV to this path")

	reportCmd.Flags().StringVar(&historyPath, "bets", "", "Bet history CSV written by a previous run")
	reportCmd.Flags().StringVarP(&strategyName, "strategy", "s", "", "Strategy label for the report")
	_ = reportCmd.MarkFlagRequired("bets")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.LoadWithDefaults(configFile)
	if err != nil {
		return nil, err
	}

	// Flag overrides
	if sourceType != "" {
		cfg.DataSource.Type = sourceType
	}
	if dataPath != "" {
		switch cfg.DataSource.Type {
		case "remote":
			cfg.DataSource.BaseURL = dataPath
		default:
			cfg.DataSource.Path = dataPath
		}
	}
	if bankroll > 0 {
		cfg.Engine.InitialBankroll = bankroll
	}
	if liveMode {
		cfg.Engine.Live = true
	}
	if outputPath != "" {
		cfg.Engine.OutputPath = outputPath
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return nil, fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(ctx, cfg, region, secretName); err != nil {
			return nil, fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runStrategy(ctx context.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	log := logger.NewLogger(cfg.App.LogLevel)

	loader, cleanup, err := newLoader(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	dataset, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}
	races, payoffs, err := dataset.Build()
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"source":  loader.Name(),
		"races":   len(races),
		"payoffs": len(payoffs),
	}).Info("Dataset loaded")

	initialBankroll := decimal.NewFromFloat(cfg.Engine.InitialBankroll)
	simRepo := repository.NewSimulation(races, payoffs, repository.WithPayoffDelay(cfg.PayoffDelay()))

	var (
		dataRepo repository.DataRepository = simRepo
		betRepo  betting.Repository
		clk      clock.Clock
		feed     *livefeed.StreamClient
	)
	if cfg.Engine.Live {
		liveRepo := repository.NewLive()
		if err := liveRepo.Prime(simRepo); err != nil {
			return fmt.Errorf("priming live repository: %w", err)
		}
		liveBets := betting.NewLive(initialBankroll, log)

		feed = livefeed.NewStreamClient(cfg.Feed.URL, cfg.Feed.APIKey, liveRepo, log)
		feed.OnSettlement(func(betID string, payout decimal.Decimal) error {
			_, err := liveBets.SettlePosition(betID, payout)
			return err
		})
		if err := feed.Connect(ctx); err != nil {
			return err
		}
		defer feed.Close()

		dataRepo = liveRepo
		betRepo = liveBets
		clk = clock.NewRealClock()
	} else {
		betRepo = betting.NewSimulation(initialBankroll, log)
		clk = clock.NewSimulatedClock(time.Time{})
	}

	opts := []engine.Option{
		engine.WithLogger(log),
		engine.WithTickInterval(cfg.TickInterval()),
		engine.WithLiveMode(cfg.Engine.Live),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, engine.WithMetrics(metrics.Default()))
		go serveMetrics(cfg, log)
	}

	eng := engine.New(dataRepo, betRepo, clk, opts...)

	strat, err := strategy.Create(strategyName)
	if err != nil {
		return err
	}
	eng.SetStrategy(strat)

	if err := eng.Run(ctx); err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	report := analytics.BuildReport(strat.Name(), eng.RunID(), betRepo.Portfolio(), eng.Now())
	fmt.Print(report.Summary())

	if cfg.Engine.OutputPath != "" {
		if err := analytics.WriteHistory(cfg.Engine.OutputPath, betRepo.Positions()); err != nil {
			return err
		}
		log.WithField("path", cfg.Engine.OutputPath).Info("Bet history written")
	}
	return nil
}

func newLoader(ctx context.Context, cfg *config.Config, log *logrus.Logger) (datasource.Loader, func(), error) {
	httpCfg := datasource.DefaultHTTPClientConfig()
	if cfg.DataSource.RateLimit > 0 {
		httpCfg.RateLimit = cfg.DataSource.RateLimit
	}
	if cfg.DataSource.MaxRetries > 0 {
		httpCfg.MaxRetries = cfg.DataSource.MaxRetries
	}

	opts := datasource.Options{
		Path:    cfg.DataSource.Path,
		DSN:     cfg.GetDatabaseDSN(),
		BaseURL: cfg.DataSource.BaseURL,
		APIKey:  cfg.DataSource.APIKey,
		HTTP:    httpCfg,
	}
	return datasource.New(ctx, datasource.SourceType(cfg.DataSource.Type), opts, log)
}

func serveMetrics(cfg *config.Config, log *logrus.Logger) {
	addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, metrics.Handler())
	log.WithField("addr", addr).Info("Serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithError(err).Warn("Metrics server stopped")
	}
}

func runReport() error {
	positions, err := analytics.ReadHistory(historyPath)
	if err != nil {
		return err
	}
	label := strategyName
	if label == "" {
		label = "unknown"
	}
	report := analytics.ReportFromHistory(label, positions)
	fmt.Print(report.Summary())
	return nil
}
