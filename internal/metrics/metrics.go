// Package metrics provides Prometheus instrumentation for engine runs.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourusername/keiba-engine/internal/events"
	"github.com/yourusername/keiba-engine/internal/models"
	"github.com/yourusername/keiba-engine/internal/portfolio"
)

const namespace = "keiba"

// Global registry instance
var (
	registry       *prometheus.Registry
	defaultMetrics *Metrics
	once           sync.Once
)

// Metrics records engine activity on a Prometheus registry
type Metrics struct {
	eventsProcessed *prometheus.CounterVec
	betsPlaced      prometheus.Counter
	betsAccepted    prometheus.Counter
	betsRejected    prometheus.Counter
	betsSettled     prometheus.Counter
	payoutTotal     prometheus.Counter
	bankroll        prometheus.Gauge
	openPositions   prometheus.Gauge
}

// New creates the metric set and registers it on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		eventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Total number of events processed by the engine loop",
		}, []string{"type"}),
		betsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bets_placed_total",
			Help:      "Total number of bet requests received",
		}),
		betsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bets_accepted_total",
			Help:      "Total number of bet requests that passed validation",
		}),
		betsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bets_rejected_total",
			Help:      "Total number of bet requests rejected by validation",
		}),
		betsSettled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bets_settled_total",
			Help:      "Total number of positions settled against payoffs",
		}),
		payoutTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payout_total",
			Help:      "Cumulative payout released to the portfolio",
		}),
		bankroll: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_bankroll",
			Help:      "Current portfolio cash in currency units",
		}),
		openPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_positions",
			Help:      "Number of positions awaiting settlement",
		}),
	}
	reg.MustRegister(
		m.eventsProcessed,
		m.betsPlaced,
		m.betsAccepted,
		m.betsRejected,
		m.betsSettled,
		m.payoutTotal,
		m.bankroll,
		m.openPositions,
	)
	return m
}

// Default returns the process-wide metric set on the global registry
func Default() *Metrics {
	once.Do(func() {
		registry = prometheus.NewRegistry()
		defaultMetrics = New(registry)
	})
	return defaultMetrics
}

// Handler returns the Prometheus HTTP handler for the global registry
func Handler() http.Handler {
	Default()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveEvent counts a processed event by its variant
func (m *Metrics) ObserveEvent(event events.Event) {
	m.eventsProcessed.WithLabelValues(eventLabel(event)).Inc()
}

// ObserveBetRequest counts a validated request and its outcome
func (m *Metrics) ObserveBetRequest(confirmation *events.BetConfirmationEvent) {
	m.betsPlaced.Inc()
	if confirmation.Accepted {
		m.betsAccepted.Inc()
	} else {
		m.betsRejected.Inc()
	}
}

// ObserveSettlement counts settled positions and refreshes portfolio gauges
func (m *Metrics) ObserveSettlement(settled []*models.BetPosition, p *portfolio.Portfolio) {
	m.betsSettled.Add(float64(len(settled)))
	for _, position := range settled {
		m.payoutTotal.Add(position.Payout.InexactFloat64())
	}
	m.ObservePortfolio(p)
}

// ObservePortfolio refreshes the bankroll and open-position gauges
func (m *Metrics) ObservePortfolio(p *portfolio.Portfolio) {
	m.bankroll.Set(p.Bankroll().InexactFloat64())
	m.openPositions.Set(float64(len(p.OpenPositions())))
}

func eventLabel(event events.Event) string {
	switch event.(type) {
	case *events.TimeEvent:
		return "time"
	case *events.DataEvent:
		return "data"
	case *events.BetRequestEvent:
		return "bet_request"
	case *events.BetConfirmationEvent:
		return "bet_confirmation"
	case *events.ResultEvent:
		return "result"
	default:
		return "unknown"
	}
}
