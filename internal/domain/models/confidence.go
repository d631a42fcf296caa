package models

import (
	"fmt"
	"math"
	"time"
)

// Factor names, used as weight keys and in recalibration attribution.
const (
	FactorPatternStrength     = "pattern_strength"
	FactorVolumeConfidence    = "volume_confidence"
	FactorLiquidityScore      = "liquidity_score"
	FactorMarketConditions    = "market_conditions"
	FactorRiskAssessment      = "risk_assessment"
	FactorHistoricalAccuracy  = "historical_accuracy"
	FactorTimeFactors         = "time_factors"
	FactorOrderFlowStrength   = "order_flow_strength"
	FactorVolatilityStability = "volatility_stability"
	FactorMomentumAlignment   = "momentum_alignment"
)

// FactorNames lists all confidence factors in canonical order.
var FactorNames = []string{
	FactorPatternStrength,
	FactorVolumeConfidence,
	FactorLiquidityScore,
	FactorMarketConditions,
	FactorRiskAssessment,
	FactorHistoricalAccuracy,
	FactorTimeFactors,
	FactorOrderFlowStrength,
	FactorVolatilityStability,
	FactorMomentumAlignment,
}

// ConfidenceFactors is the fixed record of ten factor values, each in [0,1].
// Recomputed fresh on every scoring call.
type ConfidenceFactors struct {
	PatternStrength     float64
	VolumeConfidence    float64
	LiquidityScore      float64
	MarketConditions    float64
	RiskAssessment      float64
	HistoricalAccuracy  float64
	TimeFactors         float64
	OrderFlowStrength   float64
	VolatilityStability float64
	MomentumAlignment   float64
}

// Slice returns the factor values in canonical order.
func (f ConfidenceFactors) Slice() []float64 {
	return []float64{
		f.PatternStrength,
		f.VolumeConfidence,
		f.LiquidityScore,
		f.MarketConditions,
		f.RiskAssessment,
		f.HistoricalAccuracy,
		f.TimeFactors,
		f.OrderFlowStrength,
		f.VolatilityStability,
		f.MomentumAlignment,
	}
}

// Map returns the factor values keyed by factor name.
func (f ConfidenceFactors) Map() map[string]float64 {
	m := make(map[string]float64, len(FactorNames))
	for i, v := range f.Slice() {
		m[FactorNames[i]] = v
	}
	return m
}

// AdaptiveWeights is one weight per confidence factor. The constructor and
// every mutation renormalize so the weights always sum to 1.
type AdaptiveWeights struct {
	w map[string]float64
}

// NewAdaptiveWeights builds a weight set from raw values. All factors must be
// present and non-negative; the values are renormalized to sum to 1.
func NewAdaptiveWeights(raw map[string]float64) (AdaptiveWeights, error) {
	w := make(map[string]float64, len(FactorNames))
	sum := 0.0
	for _, name := range FactorNames {
		v, ok := raw[name]
		if !ok {
			return AdaptiveWeights{}, fmt.Errorf("missing weight for factor %q", name)
		}
		if v < 0 || math.IsNaN(v) {
			return AdaptiveWeights{}, fmt.Errorf("invalid weight %v for factor %q", v, name)
		}
		w[name] = v
		sum += v
	}
	if sum <= 0 {
		return AdaptiveWeights{}, fmt.Errorf("weights sum to zero")
	}
	for name := range w {
		w[name] /= sum
	}
	return AdaptiveWeights{w: w}, nil
}

// DefaultWeights returns the starting weight distribution.
func DefaultWeights() AdaptiveWeights {
	aw, _ := NewAdaptiveWeights(map[string]float64{
		FactorPatternStrength:     0.20,
		FactorVolumeConfidence:    0.12,
		FactorLiquidityScore:      0.08,
		FactorMarketConditions:    0.10,
		FactorRiskAssessment:      0.12,
		FactorHistoricalAccuracy:  0.10,
		FactorTimeFactors:         0.05,
		FactorOrderFlowStrength:   0.12,
		FactorVolatilityStability: 0.05,
		FactorMomentumAlignment:   0.06,
	})
	return aw
}

// Get returns the weight for a factor name (0 for unknown names).
func (aw AdaptiveWeights) Get(name string) float64 { return aw.w[name] }

// Map returns a copy of the weights.
func (aw AdaptiveWeights) Map() map[string]float64 {
	out := make(map[string]float64, len(aw.w))
	for k, v := range aw.w {
		out[k] = v
	}
	return out
}

// Scaled returns a new weight set with the named factors multiplied by the
// given factors and the whole vector renormalized. The receiver is unchanged.
func (aw AdaptiveWeights) Scaled(mults map[string]float64) AdaptiveWeights {
	raw := aw.Map()
	for name, m := range mults {
		if _, ok := raw[name]; ok && m > 0 {
			raw[name] *= m
		}
	}
	out, err := NewAdaptiveWeights(raw)
	if err != nil {
		return aw
	}
	return out
}

// WeightedSum computes the dot product of factors and weights, clamped to [0,1].
func (aw AdaptiveWeights) WeightedSum(f ConfidenceFactors) float64 {
	sum := 0.0
	fm := f.Map()
	for name, w := range aw.w {
		sum += w * fm[name]
	}
	if sum < 0 {
		return 0
	}
	if sum > 1 {
		return 1
	}
	return sum
}

// Sum returns the weight total. Always 1 within floating tolerance.
func (aw AdaptiveWeights) Sum() float64 {
	s := 0.0
	for _, v := range aw.w {
		s += v
	}
	return s
}

// RegimeType classifies short-term market behavior.
type RegimeType string

const (
	RegimeTrending RegimeType = "trending"
	RegimeRanging  RegimeType = "ranging"
	RegimeVolatile RegimeType = "volatile"
	RegimeQuiet    RegimeType = "quiet"
	RegimeBreakout RegimeType = "breakout"
)

// MarketRegime is one classification of the current market state.
type MarketRegime struct {
	Type       RegimeType
	Strength   float64
	Duration   time.Duration // expected persistence
	Confidence float64       // confidence in the classification itself
	DetectedAt time.Time
}

// BayesianPrior is a Beta-distributed success prior: alpha counts wins,
// beta counts losses. Counts grow without decay unless a decay factor is
// configured on the tracker.
type BayesianPrior struct {
	Alpha float64
	Beta  float64
}

// SuccessRate returns alpha/(alpha+beta), or 0.5 when no evidence exists.
func (p BayesianPrior) SuccessRate() float64 {
	total := p.Alpha + p.Beta
	if total <= 0 {
		return 0.5
	}
	return p.Alpha / total
}

// QualityMetrics scores how trustworthy a single confidence computation is.
type QualityMetrics struct {
	SignalClarity       float64
	DataCompleteness    float64
	FactorAgreement     float64
	TemporalConsistency float64
	CrossValidation     float64
}

// WeightedScore folds the five quality metrics into one value.
func (q QualityMetrics) WeightedScore() float64 {
	return 0.30*q.SignalClarity +
		0.20*q.DataCompleteness +
		0.20*q.FactorAgreement +
		0.15*q.TemporalConsistency +
		0.15*q.CrossValidation
}

// ConfidenceResult is the engine's output for one market update. Immutable
// once returned; ownership transfers to the caller.
type ConfidenceResult struct {
	Symbol             string
	Timestamp          time.Time
	FinalConfidence    float64
	Factors            ConfidenceFactors
	Weights            map[string]float64 // the regime-adjusted weights used
	Regime             MarketRegime
	BayesianConfidence float64
	UncertaintyLower   float64
	UncertaintyUpper   float64
	Quality            QualityMetrics
	Matches            []PatternMatch
	CalculationTime    time.Duration
	Recommendations    []string
	Warnings           []string
}

// Outcome is the realized result of a trade acted on a confidence signal.
type Outcome string

const (
	OutcomeWin       Outcome = "win"
	OutcomeLoss      Outcome = "loss"
	OutcomeBreakeven Outcome = "breakeven"
)

// Valid reports whether o is a known outcome label.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeWin, OutcomeLoss, OutcomeBreakeven:
		return true
	}
	return false
}

// SignalOutcome pairs an acted-on confidence with its realized outcome.
type SignalOutcome struct {
	Symbol     string
	Confidence float64
	Outcome    Outcome
	RecordedAt time.Time
}

// PerformanceSnapshot is a point-in-time view of tracker state.
type PerformanceSnapshot struct {
	TotalSignals      int
	Correct           int
	FalsePositives    int
	FalseNegatives    int
	AvgWinConfidence  float64
	AvgLossConfidence float64
	CalibrationError  float64
	RollingAccuracy   float64
	Prior             BayesianPrior
	LastUpdated       time.Time
}
