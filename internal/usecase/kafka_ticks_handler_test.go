package usecase

import (
	"context"
	"testing"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
)

type captureProc struct {
	ticks []*models.MarketTick
}

func (c *captureProc) Process(_ context.Context, t *models.MarketTick) error {
	c.ticks = append(c.ticks, t)
	return nil
}

func TestTicksHandlerDecodesMessage(t *testing.T) {
	proc := &captureProc{}
	h := NewKafkaTicksHandler("tape.ticks", proc, newMemMetrics())

	if h.Topic() != "tape.ticks" {
		t.Fatalf("topic = %q", h.Topic())
	}

	msg := []byte(`{
		"symbol": "WINZ25",
		"t": 1741946400000,
		"price": 128350.0,
		"volume": 25,
		"side": "buyer",
		"large": true,
		"dominant": true,
		"absorption": true,
		"spread": 5,
		"liquidity": "high",
		"phase": "open",
		"bids": [{"price": 128345, "size": 40, "orders": 8}],
		"asks": [{"price": 128350, "size": 30, "orders": 6}],
		"profile": [{"price": 128340, "volume": 120}],
		"decision": {"risk_level": 0.3, "entry_price": 128350, "stop_loss": 128300, "target": 128500, "risk_reward": 3.0, "recommendation": "enter"},
		"flow": {"absorption": 0.4, "direction": "buying", "hidden_buy": 0.2, "hidden_sell": 0.1}
	}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(proc.ticks) != 1 {
		t.Fatalf("forwarded = %d, want 1", len(proc.ticks))
	}

	tick := proc.ticks[0]
	if tick.Entry.Symbol != "WINZ25" || tick.Entry.Price != 128350.0 {
		t.Fatalf("entry = %+v", tick.Entry)
	}
	if tick.Entry.Aggressor != models.AggressorBuyer || !tick.Entry.IsLarge {
		t.Fatalf("aggressor/large = %v/%v", tick.Entry.Aggressor, tick.Entry.IsLarge)
	}
	if !tick.Entry.IsDominant || !tick.Entry.Absorption {
		t.Fatalf("dominant/absorption = %v/%v", tick.Entry.IsDominant, tick.Entry.Absorption)
	}
	if tick.Entry.Timestamp.UnixMilli() != 1741946400000 {
		t.Fatalf("timestamp = %v", tick.Entry.Timestamp)
	}
	if tick.Book == nil || len(tick.Book.Bids) != 1 || tick.Book.Asks[0].Orders != 6 {
		t.Fatalf("book = %+v", tick.Book)
	}
	if len(tick.Profile) != 1 || tick.Profile[0].Volume != 120 {
		t.Fatalf("profile = %+v", tick.Profile)
	}
	if tick.Decision == nil || tick.Decision.RiskRewardRatio != 3.0 || tick.Decision.Recommendation != "enter" {
		t.Fatalf("decision = %+v", tick.Decision)
	}
	if tick.Flow == nil || tick.Flow.FlowDirection != "buying" {
		t.Fatalf("flow = %+v", tick.Flow)
	}
	if tick.Liquidity != models.LiquidityHigh {
		t.Fatalf("liquidity = %q", tick.Liquidity)
	}
}

func TestTicksHandlerAggressorMapping(t *testing.T) {
	cases := map[string]models.AggressorSide{
		"buyer":   models.AggressorBuyer,
		"buy":     models.AggressorBuyer,
		"seller":  models.AggressorSeller,
		"sell":    models.AggressorSeller,
		"":        models.AggressorUnknown,
		"unknown": models.AggressorUnknown,
	}
	for side, want := range cases {
		if got := aggressor(side); got != want {
			t.Fatalf("aggressor(%q) = %v, want %v", side, got, want)
		}
	}
}

func TestTicksHandlerBadPayload(t *testing.T) {
	m := newMemMetrics()
	h := NewKafkaTicksHandler("tape.ticks", &captureProc{}, m)

	if err := h.Handle(context.Background(), []byte("###")); err == nil {
		t.Fatal("expected unmarshal error")
	}
	if m.errorCount("consumer_unmarshal") != 1 {
		t.Fatalf("consumer_unmarshal errors = %d, want 1", m.errorCount("consumer_unmarshal"))
	}
}
