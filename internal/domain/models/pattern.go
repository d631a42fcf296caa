package models

import "time"

// FeatureCategory names one group of engineered features.
type FeatureCategory string

const (
	CategoryPriceAction   FeatureCategory = "price_action"
	CategoryVolumeProfile FeatureCategory = "volume_profile"
	CategoryOrderFlow     FeatureCategory = "order_flow"
	CategoryTimeSignature FeatureCategory = "time_signature"
	CategoryMarketContext FeatureCategory = "market_context"
	CategoryTechnical     FeatureCategory = "technical"
)

// FeatureCategories lists all categories in canonical order.
var FeatureCategories = []FeatureCategory{
	CategoryPriceAction,
	CategoryVolumeProfile,
	CategoryOrderFlow,
	CategoryTimeSignature,
	CategoryMarketContext,
	CategoryTechnical,
}

// FeatureSet holds the fixed-length feature vectors for one market update,
// grouped by category.
type FeatureSet struct {
	PriceAction   []float64
	VolumeProfile []float64
	OrderFlow     []float64
	TimeSignature []float64
	MarketContext []float64
	Technical     []float64
}

// ByCategory returns the vectors keyed by category name.
func (fs FeatureSet) ByCategory() map[FeatureCategory][]float64 {
	return map[FeatureCategory][]float64{
		CategoryPriceAction:   fs.PriceAction,
		CategoryVolumeProfile: fs.VolumeProfile,
		CategoryOrderFlow:     fs.OrderFlow,
		CategoryTimeSignature: fs.TimeSignature,
		CategoryMarketContext: fs.MarketContext,
		CategoryTechnical:     fs.Technical,
	}
}

// PatternCategory classifies which data source a template draws on.
type PatternCategory string

const (
	PatternTape      PatternCategory = "tape"
	PatternOrderBook PatternCategory = "orderbook"
	PatternVolume    PatternCategory = "volume"
	PatternFlow      PatternCategory = "flow"
	PatternHybrid    PatternCategory = "hybrid"
)

// PatternTemplate is one catalog entry. Templates are built once at startup
// and never mutated afterwards.
type PatternTemplate struct {
	ID                 string
	Name               string
	Category           PatternCategory
	Timeframe          time.Duration
	MinDataPoints      int
	Params             map[string]float64 // includes "confidence_required"
	Weights            map[FeatureCategory]float64
	Reference          map[FeatureCategory][]float64
	HistoricalAccuracy float64 // 0..1
}

// ConfidenceRequired returns the template's own similarity threshold,
// defaulting to 0.7 when unset.
func (t PatternTemplate) ConfidenceRequired() float64 {
	if v, ok := t.Params["confidence_required"]; ok && v > 0 {
		return v
	}
	return 0.7
}

// PatternMatch is one scored, time-bounded detection. Never mutated after
// creation; callers filter expired matches themselves.
type PatternMatch struct {
	ID                string
	Name              string
	Confidence        float64 // 0..1
	Probability       float64 // Confidence x HistoricalSuccess
	HistoricalSuccess float64
	Timeframe         time.Duration
	Features          map[FeatureCategory][]float64
	Params            map[string]float64
	DetectedAt        time.Time
	ExpiresAt         time.Time
}

// Expired reports whether the match's validity window has passed.
func (m PatternMatch) Expired(now time.Time) bool {
	return now.After(m.ExpiresAt)
}
