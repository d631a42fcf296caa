package regime

import (
	"math"
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/util"
)

const historySize = 50

// Detector classifies the short-term market into one regime from recent
// price range, trend, volatility and volume-spike evidence. It keeps a
// bounded rolling history of classifications for diagnostics only.
type Detector struct {
	history []models.MarketRegime
}

// NewDetector creates a regime detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect returns exactly one regime for the given trailing prices and the
// current reading. Fewer than 10 price points yields the default quiet
// regime at 0.5 confidence. Evaluation order is fixed; the first matching
// branch wins.
func (d *Detector) Detect(prices []float64, reading models.MarketReading) models.MarketRegime {
	now := reading.Timestamp
	if len(prices) < 10 {
		return d.record(models.MarketRegime{
			Type:       models.RegimeQuiet,
			Strength:   0.5,
			Duration:   5 * time.Minute,
			Confidence: 0.5,
			DetectedAt: now,
		})
	}

	r := classify(
		relativeRange(prices),
		util.StdDev(returns(prices)),
		trendStrength(prices),
		reading.VolumeSpike(),
	)
	r.DetectedAt = now
	return d.record(r)
}

// classify applies the fixed decision order to the evidence values.
func classify(relRange, vol, trend float64, spike bool) models.MarketRegime {
	switch {
	case relRange < 0.002 && vol < 0.01:
		return models.MarketRegime{Type: models.RegimeQuiet, Strength: 0.6, Duration: 15 * time.Minute, Confidence: 0.8}
	case math.Abs(trend) > 0.005 && !spike:
		return models.MarketRegime{Type: models.RegimeTrending, Strength: util.Clamp01(math.Abs(trend) * 100), Duration: 10 * time.Minute, Confidence: 0.75}
	case relRange > 0.008 || vol > 0.03:
		return models.MarketRegime{Type: models.RegimeVolatile, Strength: util.Clamp01(vol * 20), Duration: 5 * time.Minute, Confidence: 0.7}
	case spike && math.Abs(trend) > 0.003:
		return models.MarketRegime{Type: models.RegimeBreakout, Strength: 0.8, Duration: 3 * time.Minute, Confidence: 0.8}
	default:
		return models.MarketRegime{Type: models.RegimeRanging, Strength: 0.5, Duration: 10 * time.Minute, Confidence: 0.6}
	}
}

// History returns a copy of the recent classifications.
func (d *Detector) History() []models.MarketRegime {
	out := make([]models.MarketRegime, len(d.history))
	copy(out, d.history)
	return out
}

func (d *Detector) record(r models.MarketRegime) models.MarketRegime {
	d.history = append(d.history, r)
	if len(d.history) > historySize {
		d.history = d.history[len(d.history)-historySize:]
	}
	return r
}

// relativeRange is (max-min)/mean of the price window.
func relativeRange(prices []float64) float64 {
	lo, hi := prices[0], prices[0]
	for _, p := range prices[1:] {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	mean := util.Mean(prices)
	if mean <= 0 {
		return 0
	}
	return (hi - lo) / mean
}

// trendStrength compares the first-half and second-half averages relative to
// the overall average. Positive values mean an uptrend.
func trendStrength(prices []float64) float64 {
	half := len(prices) / 2
	first := util.Mean(prices[:half])
	second := util.Mean(prices[half:])
	overall := util.Mean(prices)
	if overall <= 0 {
		return 0
	}
	return (second - first) / overall
}

func returns(prices []float64) []float64 {
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (prices[i]-prices[i-1])/prices[i-1])
	}
	return out
}
