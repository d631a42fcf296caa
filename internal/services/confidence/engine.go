package confidence

import (
	"fmt"
	"sync"
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
	domrepo "github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/repository"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/service"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/services/regime"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/logger"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/util"
)

const (
	// soft scoring latency budget; exceeding it logs a warning
	defaultLatencyBudget = 8 * time.Millisecond
	// bounded rolling history of final confidences
	confidenceHistorySize = 100
	// quality defaults when history is thin
	temporalConsistencyDefault = 0.5
	crossValidationDefault     = 0.6
	crossValidationMinSamples  = 20
)

// regimeAdjustments are the per-regime multiplicative weight tweaks applied
// to a transient copy of the persistent weights on each call.
var regimeAdjustments = map[models.RegimeType]map[string]float64{
	models.RegimeTrending: {
		models.FactorMomentumAlignment: 1.3,
		models.FactorPatternStrength:   1.2,
		models.FactorOrderFlowStrength: 0.9,
	},
	models.RegimeVolatile: {
		models.FactorRiskAssessment:      1.3,
		models.FactorVolatilityStability: 1.3,
		models.FactorPatternStrength:     0.8,
	},
	models.RegimeQuiet: {
		models.FactorVolumeConfidence: 0.8,
		models.FactorTimeFactors:      1.2,
		models.FactorLiquidityScore:   1.1,
	},
	models.RegimeBreakout: {
		models.FactorPatternStrength:   1.3,
		models.FactorOrderFlowStrength: 1.2,
		models.FactorVolumeConfidence:  1.2,
	},
	models.RegimeRanging: {
		models.FactorMarketConditions:   1.1,
		models.FactorHistoricalAccuracy: 1.1,
	},
}

// Config tunes the engine.
type Config struct {
	LatencyBudget time.Duration
}

// Engine fuses pattern matches with volume, liquidity, risk and timing
// signals into one calibrated confidence. One Engine serves one instrument.
// Score and UpdatePerformance (via the shared Tracker) are both safe to call
// from the shell's workers; the engine serializes internally.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	tracker *Tracker
	regimes service.RegimeDetector
	metrics domrepo.Metrics
	log     *logger.Logger
	history []float64
	ready   bool
}

// NewEngine creates a ready engine. metrics may be nil (observations are
// dropped); log may be nil.
func NewEngine(cfg Config, tracker *Tracker, regimes service.RegimeDetector, metrics domrepo.Metrics, log *logger.Logger) *Engine {
	if cfg.LatencyBudget <= 0 {
		cfg.LatencyBudget = defaultLatencyBudget
	}
	if regimes == nil {
		regimes = regime.NewDetector()
	}
	return &Engine{
		cfg:     cfg,
		tracker: tracker,
		regimes: regimes,
		metrics: metrics,
		log:     log,
		ready:   tracker != nil,
	}
}

// Tracker exposes the shared performance tracker.
func (e *Engine) Tracker() *Tracker { return e.tracker }

// Score computes the calibrated confidence for one market update. Any
// unexpected failure is counted and surfaced as a *CalculationError; partial
// results are never returned.
func (e *Engine) Score(reading models.MarketReading, tape []models.TapeEntry, matches []models.PatternMatch, decision models.DecisionAnalysis, liquidity models.LiquidityAnalysis) (result *models.ConfidenceResult, err error) {
	if e == nil || !e.ready {
		return nil, ErrModelsNotReady
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &CalculationError{Elapsed: time.Since(start), Cause: fmt.Errorf("%v", r)}
			if e.metrics != nil {
				e.metrics.RecordError("confidence_score")
			}
			if e.log != nil {
				e.log.Error("confidence scoring failed", logger.Error(err))
			}
		}
	}()

	e.mu.Lock()
	defer e.mu.Unlock()

	// 1. factors
	factors := computeFactors(reading, tape, matches, decision, liquidity)
	e.tracker.ObserveFactors(factors)

	// 2. regime
	prices := make([]float64, len(tape))
	for i, t := range tape {
		prices[i] = t.Price
	}
	reg := e.regimes.Detect(prices, reading)

	// 3. transient regime-adjusted weight copy; persistent weights untouched
	weights := e.tracker.Weights()
	if adj, ok := regimeAdjustments[reg.Type]; ok {
		weights = weights.Scaled(adj)
	}

	// 4. weighted base
	base := weights.WeightedSum(factors)

	// 5. Bayesian update against the success prior
	evidence := (factors.PatternStrength + factors.HistoricalAccuracy) / 2
	prior := e.tracker.Prior()
	posterior := util.Clamp01(base*evidence + prior.SuccessRate()*(1-evidence))

	// 6. uncertainty bounds
	sd := util.StdDev(factors.Slice())
	lower := util.Clamp01(posterior - 0.5*sd)
	upper := util.Clamp01(posterior + 0.5*sd)

	// 7. quality metrics
	quality := e.qualityMetrics(factors, sd, len(tape))

	// 8. quality- and regime-scaled final confidence
	final := util.Clamp01(posterior * (0.7 + 0.3*quality.WeightedScore()) * reg.Confidence)

	elapsed := time.Since(start)

	// 9. recommendations and warnings
	recommendations := recommendations(final, factors, matches, reg)
	warnings := e.warnings(elapsed, factors, quality)

	// 10. bounded history append
	e.history = append(e.history, final)
	if len(e.history) > confidenceHistorySize {
		e.history = e.history[len(e.history)-confidenceHistorySize:]
	}

	if e.metrics != nil {
		e.metrics.RecordConfidence(reading.Symbol, final)
		e.metrics.RecordQuality(reading.Symbol, quality.WeightedScore())
		e.metrics.RecordLatency("confidence_score", elapsed.Seconds())
		for _, m := range matches {
			e.metrics.RecordPatternMatch(reading.Symbol, m.Name)
		}
	}
	if elapsed > e.cfg.LatencyBudget && e.log != nil {
		e.log.Warn("confidence scoring exceeded latency budget",
			logger.Duration("elapsed", elapsed),
			logger.Duration("budget", e.cfg.LatencyBudget),
		)
	}

	return &models.ConfidenceResult{
		Symbol:             reading.Symbol,
		Timestamp:          reading.Timestamp,
		FinalConfidence:    final,
		Factors:            factors,
		Weights:            weights.Map(),
		Regime:             reg,
		BayesianConfidence: posterior,
		UncertaintyLower:   lower,
		UncertaintyUpper:   upper,
		Quality:            quality,
		Matches:            matches,
		CalculationTime:    elapsed,
		Recommendations:    recommendations,
		Warnings:           warnings,
	}, nil
}

func (e *Engine) qualityMetrics(factors models.ConfidenceFactors, sd float64, tapeLen int) models.QualityMetrics {
	clarity := util.Clamp01(1 - sd)

	completeness := float64(tapeLen) / 50
	if completeness > 1 {
		completeness = 1
	}

	high, low := 0, 0
	for _, v := range factors.Slice() {
		if v > 0.7 {
			high++
		}
		if v < 0.3 {
			low++
		}
	}
	agreement := float64(high)
	if float64(low) > agreement {
		agreement = float64(low)
	}
	agreement /= 10

	temporal := temporalConsistencyDefault
	if len(e.history) >= 5 {
		temporal = util.Clamp01(1 - util.Variance(e.history[len(e.history)-5:]))
	}

	cross := crossValidationDefault
	if acc, n := e.tracker.RollingAccuracy(); n >= crossValidationMinSamples {
		cross = acc
	}

	return models.QualityMetrics{
		SignalClarity:       clarity,
		DataCompleteness:    completeness,
		FactorAgreement:     agreement,
		TemporalConsistency: temporal,
		CrossValidation:     cross,
	}
}

// recommendations renders the fixed confidence bands plus factor-specific
// advisories.
func recommendations(final float64, factors models.ConfidenceFactors, matches []models.PatternMatch, reg models.MarketRegime) []string {
	var out []string
	switch {
	case final >= 0.9:
		out = append(out, "very strong signal: full position size justified")
	case final >= 0.7:
		out = append(out, "good signal: standard entry")
	case final >= 0.5:
		out = append(out, "weak signal: reduce size or wait for confirmation")
	default:
		out = append(out, "no entry: wait for a better setup")
	}
	if len(matches) == 0 {
		out = append(out, "no pattern detected: hold off until a setup forms")
	}
	if factors.LiquidityScore < 0.4 {
		out = append(out, "low liquidity: widen stops or reduce size")
	}
	if factors.RiskAssessment < 0.4 {
		out = append(out, "unfavorable risk profile: tighten risk controls")
	}
	if reg.Type == models.RegimeVolatile {
		out = append(out, "volatile regime: expect slippage on entries")
	}
	if factors.TimeFactors < 0.3 {
		out = append(out, "poor session timing: avoid fresh entries")
	}
	return out
}

func (e *Engine) warnings(elapsed time.Duration, factors models.ConfidenceFactors, quality models.QualityMetrics) []string {
	var out []string
	if elapsed > e.cfg.LatencyBudget {
		out = append(out, fmt.Sprintf("scoring took %s, over the %s budget", elapsed, e.cfg.LatencyBudget))
	}
	if quality.DataCompleteness < 0.5 {
		out = append(out, "thin tape window: confidence computed on incomplete data")
	}
	if quality.FactorAgreement < 0.3 {
		out = append(out, "factors disagree: signal is ambiguous")
	}
	if factors.MarketConditions < 0.3 {
		out = append(out, "poor market conditions")
	}
	if quality.CrossValidation < 0.5 {
		out = append(out, "recent live accuracy is low")
	}
	return out
}
