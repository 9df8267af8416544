package livefeed

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-engine/internal/events"
	"github.com/yourusername/keiba-engine/internal/models"
	"github.com/yourusername/keiba-engine/internal/repository"
)

func newTestClient() (*StreamClient, *repository.LiveDataRepository) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	repo := repository.NewLive()
	return NewStreamClient("ws://feed.example.com/v1", "key", repo, log), repo
}

func raceMessage() StreamMessage {
	return StreamMessage{
		Op:   "race",
		Race: &models.RaceRecord{RaceID: "r1", Date: "2024-06-01T10:00:00Z", Course: "Tokyo", Distance: 1600},
		Horses: []models.HorseRecord{
			{RaceID: "r1", HorseID: "h1", Name: "Alpha", Draw: 1, Odds: map[string]float64{"win": 2.0}},
		},
	}
}

func TestApplyRaceRegistersRaceAndPublishTime(t *testing.T) {
	client, repo := newTestClient()

	if err := client.apply(raceMessage()); err != nil {
		t.Fatalf("apply: %v", err)
	}

	race := repo.GetRace("r1")
	if race == nil || len(race.Horses) != 1 {
		t.Fatalf("race: %+v", race)
	}
	at, err := repo.GetPublishTime("r1", events.DataKindRace)
	if err != nil || at == nil || !at.Equal(race.ScheduledAt) {
		t.Errorf("publish defaults to the off: %v, %v", at, err)
	}
}

func TestApplyRaceHonorsPublishedAt(t *testing.T) {
	client, repo := newTestClient()
	msg := raceMessage()
	msg.PublishedAt = "2024-06-01T08:30:00Z"

	if err := client.apply(msg); err != nil {
		t.Fatal(err)
	}
	at, _ := repo.GetPublishTime("r1", events.DataKindRace)
	want := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	if at == nil || !at.Equal(want) {
		t.Errorf("publish = %v, want %v", at, want)
	}
}

func TestApplyPayoffsRequiresKnownRace(t *testing.T) {
	client, repo := newTestClient()
	msg := StreamMessage{
		Op: "payoff",
		Payoffs: []models.PayoffRecord{
			{RaceID: "r1", BetType: "win", Combination: "h1", Odds: 2.0},
		},
	}

	if err := client.apply(msg); !errors.Is(err, models.ErrRaceNotFound) {
		t.Fatalf("payoff before race: %v", err)
	}

	if err := client.apply(raceMessage()); err != nil {
		t.Fatal(err)
	}
	if err := client.apply(msg); err != nil {
		t.Fatalf("apply payoff: %v", err)
	}
	if payoffs := repo.GetPayoffs("r1"); len(payoffs) != 1 || payoffs[0].BetType != "win" {
		t.Errorf("payoffs: %+v", payoffs)
	}
}

func TestApplySettlementRoutesToHandler(t *testing.T) {
	client, _ := newTestClient()
	msg := StreamMessage{
		Op:         "settlement",
		Settlement: &SettlementNotice{BetID: "bet-1", RaceID: "r1", Payout: "420.5"},
	}

	// Without a handler the notice cannot be delivered
	if err := client.apply(msg); err == nil {
		t.Fatal("expected error without handler")
	}

	var gotBet string
	var gotPayout decimal.Decimal
	client.OnSettlement(func(betID string, payout decimal.Decimal) error {
		gotBet = betID
		gotPayout = payout
		return nil
	})
	if err := client.apply(msg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if gotBet != "bet-1" || !gotPayout.Equal(decimal.NewFromFloat(420.5)) {
		t.Errorf("handler got %s / %s", gotBet, gotPayout)
	}

	msg.Settlement.Payout = "not a number"
	if err := client.apply(msg); err == nil {
		t.Error("expected error for malformed payout")
	}
}

func TestApplyControlMessages(t *testing.T) {
	client, _ := newTestClient()
	if err := client.apply(StreamMessage{Op: "heartbeat"}); err != nil {
		t.Errorf("heartbeat: %v", err)
	}
	if err := client.apply(StreamMessage{Op: "auth"}); err != nil {
		t.Errorf("auth ack: %v", err)
	}
	if err := client.apply(StreamMessage{Op: "quote"}); err == nil {
		t.Error("unknown op accepted")
	}
	if err := client.apply(StreamMessage{Op: "race"}); err == nil {
		t.Error("race without payload accepted")
	}
}
