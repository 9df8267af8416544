// Package livefeed maintains the WebSocket connection to a live racing data
// provider and registers incoming races, payoffs, and settlement notices.
package livefeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-engine/internal/events"
	"github.com/yourusername/keiba-engine/internal/models"
	"github.com/yourusername/keiba-engine/internal/repository"
)

// SettlementHandler is invoked when the feed reports a settled bet
type SettlementHandler func(betID string, payout decimal.Decimal) error

// StreamMessage is the wire envelope for feed messages
type StreamMessage struct {
	Op          string                `json:"op"`
	Race        *models.RaceRecord    `json:"race,omitempty"`
	Horses      []models.HorseRecord  `json:"horses,omitempty"`
	Payoffs     []models.PayoffRecord `json:"payoffs,omitempty"`
	Settlement  *SettlementNotice     `json:"settlement,omitempty"`
	PublishedAt string                `json:"published_at,omitempty"`
}

// SettlementNotice reports one settled bet from the broker
type SettlementNotice struct {
	BetID  string `json:"bet_id"`
	RaceID string `json:"race_id"`
	Payout string `json:"payout"`
}

// ReconnectConfig controls reconnection behavior
type ReconnectConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultReconnectConfig returns default reconnection configuration
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:        10,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 1.5,
	}
}

// StreamClient handles the WebSocket connection to the live feed. Incoming
// races and payoffs land in the live repository; settlements go to the
// registered handler.
type StreamClient struct {
	url       string
	apiKey    string
	repo      *repository.LiveDataRepository
	onSettle  SettlementHandler
	reconnect ReconnectConfig

	mu              sync.RWMutex
	conn            *websocket.Conn
	isConnected     bool
	lastMessageTime time.Time

	log *logrus.Logger
}

// NewStreamClient creates a stream client feeding the given repository
func NewStreamClient(url, apiKey string, repo *repository.LiveDataRepository, log *logrus.Logger) *StreamClient {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StreamClient{
		url:       url,
		apiKey:    apiKey,
		repo:      repo,
		reconnect: DefaultReconnectConfig(),
		log:       log,
	}
}

// OnSettlement registers the handler invoked for settlement notices
func (s *StreamClient) OnSettlement(handler SettlementHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSettle = handler
}

// Connect dials the feed and starts the read loop
func (s *StreamClient) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isConnected {
		return fmt.Errorf("already connected")
	}

	s.log.WithField("url", s.url).Info("Connecting to live feed")

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to feed: %w", err)
	}

	s.conn = conn
	s.isConnected = true
	s.lastMessageTime = time.Now()

	if err := conn.WriteJSON(map[string]any{"op": "auth", "api_key": s.apiKey}); err != nil {
		conn.Close()
		s.isConnected = false
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	go s.readMessages()
	return nil
}

// IsConnected returns whether the stream is connected
func (s *StreamClient) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isConnected
}

// LastMessageTime returns the time of the last received message
func (s *StreamClient) LastMessageTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastMessageTime
}

// Close closes the stream connection
func (s *StreamClient) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	s.isConnected = false
	return s.conn.Close()
}

func (s *StreamClient) readMessages() {
	defer s.Close()

	for {
		var msg StreamMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			s.log.WithError(err).Warn("Feed read failed")
			s.mu.Lock()
			s.isConnected = false
			s.mu.Unlock()
			return
		}

		s.mu.Lock()
		s.lastMessageTime = time.Now()
		s.mu.Unlock()

		if err := s.apply(msg); err != nil {
			s.log.WithError(err).WithField("op", msg.Op).Warn("Dropping feed message")
		}
	}
}

// apply routes one feed message into the repository or settlement handler
func (s *StreamClient) apply(msg StreamMessage) error {
	switch msg.Op {
	case "race":
		return s.applyRace(msg)
	case "payoff":
		return s.applyPayoffs(msg)
	case "settlement":
		return s.applySettlement(msg)
	case "heartbeat", "auth":
		return nil
	default:
		return fmt.Errorf("unknown op %q", msg.Op)
	}
}

func (s *StreamClient) applyRace(msg StreamMessage) error {
	if msg.Race == nil {
		return fmt.Errorf("race message missing payload")
	}
	races, _, err := models.BuildDataset([]models.RaceRecord{*msg.Race}, msg.Horses, nil)
	if err != nil {
		return err
	}
	if len(races) != 1 {
		return fmt.Errorf("race message built %d races", len(races))
	}
	race := races[0]
	s.repo.RegisterRace(race)

	publishedAt, err := s.publishTime(msg, race.ScheduledAt)
	if err != nil {
		return err
	}
	s.repo.RegisterPublishTime(race.RaceID, events.DataKindRace, publishedAt)
	return nil
}

func (s *StreamClient) applyPayoffs(msg StreamMessage) error {
	if len(msg.Payoffs) == 0 {
		return fmt.Errorf("payoff message missing payload")
	}
	raceID := msg.Payoffs[0].RaceID
	race := s.repo.GetRace(raceID)
	if race == nil {
		return fmt.Errorf("%w: %s", models.ErrRaceNotFound, raceID)
	}

	_, payoffs, err := models.BuildDataset(nil, nil, msg.Payoffs)
	if err != nil {
		return err
	}
	for _, payoff := range payoffs {
		s.repo.RegisterPayoff(payoff)
	}

	publishedAt, err := s.publishTime(msg, race.ScheduledAt)
	if err != nil {
		return err
	}
	s.repo.RegisterPublishTime(raceID, events.DataKindPayoff, publishedAt)
	return nil
}

func (s *StreamClient) applySettlement(msg StreamMessage) error {
	if msg.Settlement == nil {
		return fmt.Errorf("settlement message missing payload")
	}
	s.mu.RLock()
	handler := s.onSettle
	s.mu.RUnlock()
	if handler == nil {
		return fmt.Errorf("no settlement handler registered")
	}
	payout, err := decimal.NewFromString(msg.Settlement.Payout)
	if err != nil {
		return fmt.Errorf("invalid payout %q: %w", msg.Settlement.Payout, err)
	}
	return handler(msg.Settlement.BetID, payout)
}

func (s *StreamClient) publishTime(msg StreamMessage, fallback time.Time) (time.Time, error) {
	if msg.PublishedAt == "" {
		return fallback, nil
	}
	return models.ParseRecordTime(msg.PublishedAt)
}
