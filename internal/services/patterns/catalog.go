package patterns

import (
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
)

// DefaultCatalog returns the built-in pattern templates. The catalog is
// constructed once at startup and injected into the matcher; templates are
// never mutated afterwards.
func DefaultCatalog() []models.PatternTemplate {
	return []models.PatternTemplate{
		{
			ID:            "tpl-absorption-reversal",
			Name:          "absorption_reversal",
			Category:      models.PatternTape,
			Timeframe:     2 * time.Minute,
			MinDataPoints: 30,
			Params:        map[string]float64{"confidence_required": 0.72},
			Weights: map[models.FeatureCategory]float64{
				models.CategoryOrderFlow:     0.45,
				models.CategoryVolumeProfile: 0.35,
				models.CategoryPriceAction:   0.20,
			},
			Reference: map[models.FeatureCategory][]float64{
				// heavy one-sided flow into large absorbed prints, flat price
				models.CategoryOrderFlow:     {0.6, 0.7, 0.3, 0.4, 0.3, 0.5, 0.7, 0.3},
				models.CategoryVolumeProfile: {2.0, 1.4, 0.25, 0.1, 0.4, 0.1},
				models.CategoryPriceAction:   {0.001, 0.002, 0.002, 0.003, 0.5, 0.6, 0, 0},
			},
			HistoricalAccuracy: 0.74,
		},
		{
			ID:            "tpl-iceberg-accumulation",
			Name:          "iceberg_accumulation",
			Category:      models.PatternTape,
			Timeframe:     5 * time.Minute,
			MinDataPoints: 40,
			Params:        map[string]float64{"confidence_required": 0.75},
			Weights: map[models.FeatureCategory]float64{
				models.CategoryOrderFlow:     0.50,
				models.CategoryVolumeProfile: 0.30,
				models.CategoryTechnical:     0.20,
			},
			Reference: map[models.FeatureCategory][]float64{
				models.CategoryOrderFlow:     {0.3, 0.55, 0.45, 0.05, 0.1, 0.2, 0.55, 0.45},
				models.CategoryVolumeProfile: {1.2, 1.1, 0.05, 0.0, 0.2, 0.3},
				models.CategoryTechnical:     {1, 0.45, 0.55, 0.002},
			},
			HistoricalAccuracy: 0.68,
		},
		{
			ID:            "tpl-volume-breakout",
			Name:          "volume_breakout",
			Category:      models.PatternVolume,
			Timeframe:     3 * time.Minute,
			MinDataPoints: 25,
			Params:        map[string]float64{"confidence_required": 0.70},
			Weights: map[models.FeatureCategory]float64{
				models.CategoryVolumeProfile: 0.45,
				models.CategoryPriceAction:   0.35,
				models.CategoryTechnical:     0.20,
			},
			Reference: map[models.FeatureCategory][]float64{
				models.CategoryVolumeProfile: {2.5, 1.6, 0.3, 0.15, 0.5, 0.6},
				models.CategoryPriceAction:   {0.01, 0.015, 0.004, 0.005, 0.95, 0.3, 1, 1},
				models.CategoryTechnical:     {1, 0.95, 0.75, 0.01},
			},
			HistoricalAccuracy: 0.71,
		},
		{
			ID:            "tpl-flow-momentum",
			Name:          "flow_momentum_continuation",
			Category:      models.PatternFlow,
			Timeframe:     90 * time.Second,
			MinDataPoints: 20,
			Params:        map[string]float64{"confidence_required": 0.70},
			Weights: map[models.FeatureCategory]float64{
				models.CategoryOrderFlow:   0.60,
				models.CategoryPriceAction: 0.25,
				models.CategoryTechnical:   0.15,
			},
			Reference: map[models.FeatureCategory][]float64{
				models.CategoryOrderFlow:   {0.7, 0.75, 0.25, 0.3, 0.4, 0.1, 0.8, 0.2},
				models.CategoryPriceAction: {0.008, 0.012, 0.003, 0.004, 0.85, 0.2, 1, 0},
				models.CategoryTechnical:   {1, 0.85, 0.8, 0.008},
			},
			HistoricalAccuracy: 0.66,
		},
		{
			ID:            "tpl-book-pressure",
			Name:          "book_pressure_drive",
			Category:      models.PatternOrderBook,
			Timeframe:     time.Minute,
			MinDataPoints: 15,
			Params:        map[string]float64{"confidence_required": 0.73},
			Weights: map[models.FeatureCategory]float64{
				models.CategoryMarketContext: 0.55,
				models.CategoryOrderFlow:     0.45,
			},
			Reference: map[models.FeatureCategory][]float64{
				models.CategoryMarketContext: {0.01, 1.0, 0.1, 0.6},
				models.CategoryOrderFlow:     {0.5, 0.65, 0.35, 0.2, 0.3, 0.1, 0.7, 0.3},
			},
			HistoricalAccuracy: 0.69,
		},
		{
			ID:            "tpl-session-squeeze",
			Name:          "session_open_squeeze",
			Category:      models.PatternHybrid,
			Timeframe:     4 * time.Minute,
			MinDataPoints: 35,
			Params:        map[string]float64{"confidence_required": 0.76},
			Weights: map[models.FeatureCategory]float64{
				models.CategoryTimeSignature: 0.25,
				models.CategoryPriceAction:   0.30,
				models.CategoryVolumeProfile: 0.25,
				models.CategoryOrderFlow:     0.20,
			},
			Reference: map[models.FeatureCategory][]float64{
				models.CategoryTimeSignature: {0.4, 1.0, 3.0},
				models.CategoryPriceAction:   {0.012, 0.02, 0.006, 0.008, 0.9, 0.25, 1, 1},
				models.CategoryVolumeProfile: {2.2, 1.5, 0.28, 0.12, 0.45, 0.5},
				models.CategoryOrderFlow:     {0.6, 0.7, 0.3, 0.35, 0.45, 0.15, 0.75, 0.25},
			},
			HistoricalAccuracy: 0.72,
		},
	}
}
