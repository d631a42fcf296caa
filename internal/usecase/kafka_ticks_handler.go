package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
	domrepo "github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/repository"
	mid "github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/middleware"
	pkgkafka "github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/kafka"
)

// KafkaTicksHandler consumes tick messages and feeds the scoring pipeline.
type KafkaTicksHandler struct {
	topic   string
	pipe    mid.Proc
	metrics domrepo.Metrics
}

func NewKafkaTicksHandler(topic string, pipe mid.Proc, metrics domrepo.Metrics) *KafkaTicksHandler {
	return &KafkaTicksHandler{topic: topic, pipe: pipe, metrics: metrics}
}

func (h *KafkaTicksHandler) Topic() string { return h.topic }

type bookLevelMsg struct {
	Price  float64 `json:"price"`
	Size   float64 `json:"size"`
	Orders int     `json:"orders"`
}

// incoming message schema; book, profile, decision and flow are optional
type tickMsg struct {
	Symbol     string  `json:"symbol"`
	T          int64   `json:"t"` // unix ms
	Price      float64 `json:"price"`
	Volume     float64 `json:"volume"`
	Side       string  `json:"side"` // buyer, seller, unknown
	Large      bool    `json:"large"`
	Dominant   bool    `json:"dominant"`
	Absorption bool    `json:"absorption"`
	AvgVolume  float64 `json:"avg_volume"`
	Spread     float64 `json:"spread"`
	Vol        float64 `json:"volatility"`
	Liquidity  string  `json:"liquidity"`
	Phase      string  `json:"phase"`

	Bids    []bookLevelMsg `json:"bids"`
	Asks    []bookLevelMsg `json:"asks"`
	Profile []struct {
		Price  float64 `json:"price"`
		Volume float64 `json:"volume"`
	} `json:"profile"`

	Decision *struct {
		RiskLevel      float64 `json:"risk_level"`
		EntryPrice     float64 `json:"entry_price"`
		StopLoss       float64 `json:"stop_loss"`
		Target         float64 `json:"target"`
		RiskReward     float64 `json:"risk_reward"`
		Recommendation string  `json:"recommendation"`
	} `json:"decision"`
	Flow *struct {
		Absorption float64 `json:"absorption"`
		Direction  string  `json:"direction"`
		HiddenBuy  float64 `json:"hidden_buy"`
		HiddenSell float64 `json:"hidden_sell"`
	} `json:"flow"`
}

func (h *KafkaTicksHandler) Handle(ctx context.Context, b []byte) error {
	var m tickMsg
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	ts := time.UnixMilli(m.T)
	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(ts).Seconds())

	tick := &models.MarketTick{
		Entry: models.TapeEntry{
			Timestamp:  ts,
			Symbol:     m.Symbol,
			Price:      m.Price,
			Volume:     m.Volume,
			Aggressor:  aggressor(m.Side),
			IsLarge:    m.Large,
			IsDominant: m.Dominant,
			Absorption: m.Absorption,
		},
		AvgVolume:  m.AvgVolume,
		Spread:     m.Spread,
		Volatility: m.Vol,
		Liquidity:  models.LiquidityLevel(m.Liquidity),
		Phase:      models.MarketPhase(m.Phase),
	}
	if len(m.Bids) > 0 || len(m.Asks) > 0 {
		book := &models.OrderBookSnapshot{Timestamp: ts, Symbol: m.Symbol}
		for _, l := range m.Bids {
			book.Bids = append(book.Bids, models.BookLevel{Price: l.Price, Size: l.Size, Orders: l.Orders})
		}
		for _, l := range m.Asks {
			book.Asks = append(book.Asks, models.BookLevel{Price: l.Price, Size: l.Size, Orders: l.Orders})
		}
		tick.Book = book
	}
	for _, bkt := range m.Profile {
		tick.Profile = append(tick.Profile, models.VolumeProfileBucket{Price: bkt.Price, Volume: bkt.Volume})
	}
	if m.Decision != nil {
		tick.Decision = &models.DecisionAnalysis{
			RiskLevel:       m.Decision.RiskLevel,
			EntryPrice:      m.Decision.EntryPrice,
			StopLoss:        m.Decision.StopLoss,
			Target:          m.Decision.Target,
			RiskRewardRatio: m.Decision.RiskReward,
			Recommendation:  m.Decision.Recommendation,
		}
	}
	if m.Flow != nil {
		tick.Flow = &models.LiquidityAnalysis{
			AbsorptionLevel:     m.Flow.Absorption,
			FlowDirection:       m.Flow.Direction,
			HiddenBuyLiquidity:  m.Flow.HiddenBuy,
			HiddenSellLiquidity: m.Flow.HiddenSell,
		}
	}

	if err := h.pipe.Process(ctx, tick); err != nil {
		h.metrics.RecordError("consumer_process")
		return err
	}
	return nil
}

func aggressor(side string) models.AggressorSide {
	switch side {
	case "buyer", "buy":
		return models.AggressorBuyer
	case "seller", "sell":
		return models.AggressorSeller
	default:
		return models.AggressorUnknown
	}
}

var _ pkgkafka.MessageHandler = (*KafkaTicksHandler)(nil)
