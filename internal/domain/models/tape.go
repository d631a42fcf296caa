package models

import "time"

// AggressorSide identifies which side initiated a trade print.
type AggressorSide string

const (
	AggressorBuyer   AggressorSide = "buyer"
	AggressorSeller  AggressorSide = "seller"
	AggressorUnknown AggressorSide = "unknown"
)

// TapeEntry is a single executed trade print from the time-and-sales feed.
// Entries are immutable; the caller owns the rolling window they live in.
type TapeEntry struct {
	Timestamp  time.Time
	Symbol     string
	Price      float64
	Volume     float64
	Aggressor  AggressorSide
	IsLarge    bool
	IsDominant bool
	Absorption bool
}

// BookLevel is one price level of an order book side.
type BookLevel struct {
	Price  float64
	Size   float64
	Orders int
}

// OrderBookSnapshot is the book state at one instant. Immutable per update.
type OrderBookSnapshot struct {
	Timestamp time.Time
	Symbol    string
	Bids      []BookLevel // best bid first
	Asks      []BookLevel // best ask first
}

// VolumeProfileBucket aggregates traded volume at one price level.
type VolumeProfileBucket struct {
	Price  float64
	Volume float64
}

// LiquidityLevel is a coarse liquidity classification of the current market.
type LiquidityLevel string

const (
	LiquidityHigh   LiquidityLevel = "high"
	LiquidityMedium LiquidityLevel = "medium"
	LiquidityLow    LiquidityLevel = "low"
)

// MarketPhase labels where in the trading day the reading was taken.
type MarketPhase string

const (
	PhaseOpen       MarketPhase = "open"
	PhaseClose      MarketPhase = "close"
	PhasePreMarket  MarketPhase = "pre-market"
	PhaseAfterHours MarketPhase = "after-hours"
)

// MarketReading is the current market state handed in on every update.
type MarketReading struct {
	Symbol        string
	Timestamp     time.Time
	Price         float64
	Volume        float64
	AvgVolume     float64 // trailing average volume, used for spike detection
	Spread        float64
	Volatility    float64
	Liquidity     LiquidityLevel
	BookImbalance float64 // (bid-ask)/(bid+ask) depth imbalance in [-1,1]
	Phase         MarketPhase
}

// VolumeSpike reports whether current volume exceeds 1.5x the trailing average.
func (r MarketReading) VolumeSpike() bool {
	return r.AvgVolume > 0 && r.Volume > 1.5*r.AvgVolume
}

// DecisionAnalysis is the upstream risk module's view of a candidate trade.
type DecisionAnalysis struct {
	RiskLevel       float64 // 0..1, higher is riskier
	EntryPrice      float64
	StopLoss        float64
	Target          float64
	RiskRewardRatio float64
	Recommendation  string // "buy", "sell", "wait"
}

// LiquidityAnalysis is the upstream liquidity module's assessment.
type LiquidityAnalysis struct {
	AbsorptionLevel     float64 // 0..1
	FlowDirection       string  // "buy", "sell", "neutral"
	HiddenBuyLiquidity  float64
	HiddenSellLiquidity float64
}
