package confidence

import (
	"math"
	"testing"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/services/patterns"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/services/regime"
)

func newTestEngine() *Engine {
	return NewEngine(Config{}, newTestTracker(), regime.NewDetector(), nil, nil)
}

func neutralReading() models.MarketReading {
	return models.MarketReading{
		Symbol:     "WINFUT",
		Timestamp:  testNow,
		Price:      100,
		Volume:     10,
		AvgVolume:  10,
		Spread:     0.5,
		Volatility: 0.02,
		Liquidity:  models.LiquidityMedium,
	}
}

func TestScoreNotReady(t *testing.T) {
	var e *Engine
	if _, err := e.Score(neutralReading(), nil, nil, models.DecisionAnalysis{}, models.LiquidityAnalysis{}); err != ErrModelsNotReady {
		t.Fatalf("nil engine: err = %v, want ErrModelsNotReady", err)
	}
	e = NewEngine(Config{}, nil, nil, nil, nil)
	if _, err := e.Score(neutralReading(), nil, nil, models.DecisionAnalysis{}, models.LiquidityAnalysis{}); err != ErrModelsNotReady {
		t.Fatalf("trackerless engine: err = %v, want ErrModelsNotReady", err)
	}
}

func TestScoreBoundsAndWeights(t *testing.T) {
	e := newTestEngine()
	matches := []models.PatternMatch{{Name: "absorption", Confidence: 0.85, Probability: 0.6, HistoricalSuccess: 0.72}}
	res, err := e.Score(neutralReading(), neutralTape(60), matches, models.DecisionAnalysis{RiskLevel: 0.3, RiskRewardRatio: 2, Recommendation: "buy"}, models.LiquidityAnalysis{AbsorptionLevel: 0.6})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if res.FinalConfidence < 0 || res.FinalConfidence > 1 {
		t.Fatalf("final confidence out of bounds: %v", res.FinalConfidence)
	}
	for i, v := range res.Factors.Slice() {
		if v < 0 || v > 1 {
			t.Fatalf("factor %s out of bounds: %v", models.FactorNames[i], v)
		}
	}
	sum := 0.0
	for _, w := range res.Weights {
		sum += w
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("adjusted weights must sum to 1, got %v", sum)
	}
	if res.UncertaintyLower > res.BayesianConfidence || res.UncertaintyUpper < res.BayesianConfidence {
		t.Fatalf("uncertainty interval [%v,%v] must bracket %v", res.UncertaintyLower, res.UncertaintyUpper, res.BayesianConfidence)
	}
	if len(res.Recommendations) == 0 {
		t.Fatalf("expected at least the confidence-band recommendation")
	}
}

func TestScoreZeroMatches(t *testing.T) {
	e := newTestEngine()
	res, err := e.Score(neutralReading(), neutralTape(60), nil, models.DecisionAnalysis{}, models.LiquidityAnalysis{})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if res.Factors.PatternStrength != 0 {
		t.Fatalf("pattern strength = %v, want 0 with no matches", res.Factors.PatternStrength)
	}
	found := false
	for _, r := range res.Recommendations {
		if r == "no pattern detected: hold off until a setup forms" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected no-pattern recommendation, got %v", res.Recommendations)
	}
	if res.FinalConfidence > 0.5 {
		t.Fatalf("no-pattern confidence = %v, want <= 0.5 under default weights", res.FinalConfidence)
	}
}

func TestScoreDeterministicWithoutUpdates(t *testing.T) {
	e := newTestEngine()
	reading := neutralReading()
	tape := neutralTape(60)
	decision := models.DecisionAnalysis{RiskLevel: 0.3, RiskRewardRatio: 2, Recommendation: "buy"}
	liq := models.LiquidityAnalysis{AbsorptionLevel: 0.4}

	a, err := e.Score(reading, tape, nil, decision, liq)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	b, err := e.Score(reading, tape, nil, decision, liq)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if a.FinalConfidence != b.FinalConfidence || a.BayesianConfidence != b.BayesianConfidence {
		t.Fatalf("identical inputs must score identically: %v vs %v", a.FinalConfidence, b.FinalConfidence)
	}
	if a.Factors != b.Factors {
		t.Fatalf("factors differ between identical calls")
	}
}

func TestScoreUsesBayesianPrior(t *testing.T) {
	optimist := NewTracker(models.DefaultWeights(), models.BayesianPrior{Alpha: 90, Beta: 10}, 0, nil)
	pessimist := NewTracker(models.DefaultWeights(), models.BayesianPrior{Alpha: 10, Beta: 90}, 0, nil)
	eOpt := NewEngine(Config{}, optimist, regime.NewDetector(), nil, nil)
	ePes := NewEngine(Config{}, pessimist, regime.NewDetector(), nil, nil)

	reading := neutralReading()
	tape := neutralTape(60)
	a, err := eOpt.Score(reading, tape, nil, models.DecisionAnalysis{}, models.LiquidityAnalysis{})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	b, err := ePes.Score(reading, tape, nil, models.DecisionAnalysis{}, models.LiquidityAnalysis{})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if a.BayesianConfidence <= b.BayesianConfidence {
		t.Fatalf("winning prior must lift the posterior: %v vs %v", a.BayesianConfidence, b.BayesianConfidence)
	}
}

// End-to-end: an absorption scenario must both produce an absorption match
// and score strictly higher than the same scenario without the cluster.
func TestAbsorptionScenarioEndToEnd(t *testing.T) {
	matcher := patterns.NewMatcher(patterns.DefaultCatalog(), nil)

	clustered := neutralTape(60)
	for i := 50; i < 60; i++ {
		clustered[i].Volume = 20
	}
	flat := neutralTape(60)

	reading := neutralReading()
	decision := models.DecisionAnalysis{RiskLevel: 0.3, RiskRewardRatio: 2, Recommendation: "buy"}
	liq := models.LiquidityAnalysis{AbsorptionLevel: 0.5}

	withCluster := matcher.Match(models.FeatureSet{}, clustered, nil, nil, nil, testNow)
	var absorption bool
	for _, m := range withCluster {
		if m.Name == "absorption" && m.Confidence >= 0.7 {
			absorption = true
		}
	}
	if !absorption {
		t.Fatalf("expected absorption match >= 0.7 in clustered scenario")
	}

	withoutCluster := patterns.NewMatcher(patterns.DefaultCatalog(), nil).Match(models.FeatureSet{}, flat, nil, nil, nil, testNow)
	for _, m := range withoutCluster {
		if m.Name == "absorption" {
			t.Fatalf("flat tape must not produce an absorption match")
		}
	}

	a, err := newTestEngine().Score(reading, clustered, withCluster, decision, liq)
	if err != nil {
		t.Fatalf("score clustered: %v", err)
	}
	b, err := newTestEngine().Score(reading, flat, withoutCluster, decision, liq)
	if err != nil {
		t.Fatalf("score flat: %v", err)
	}
	if a.FinalConfidence <= b.FinalConfidence {
		t.Fatalf("absorption cluster must raise confidence: %v <= %v", a.FinalConfidence, b.FinalConfidence)
	}
}

func TestThinTapeWarning(t *testing.T) {
	e := newTestEngine()
	res, err := e.Score(neutralReading(), neutralTape(10), nil, models.DecisionAnalysis{}, models.LiquidityAnalysis{})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if res.Quality.DataCompleteness != 0.2 {
		t.Fatalf("completeness = %v, want 0.2 for 10/50 entries", res.Quality.DataCompleteness)
	}
	found := false
	for _, w := range res.Warnings {
		if w == "thin tape window: confidence computed on incomplete data" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected thin-tape warning, got %v", res.Warnings)
	}
}
