package confidence

import (
	"math"
	"testing"
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
)

var testNow = time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)

// neutralTape builds a balanced window: both sides trade the same volume and
// print sizes vary enough that no structural detector fires on it.
func neutralTape(n int) []models.TapeEntry {
	out := make([]models.TapeEntry, 0, n)
	for i := 0; i < n; i++ {
		side := models.AggressorBuyer
		if i%2 == 1 {
			side = models.AggressorSeller
		}
		vol := 15.0
		if i%4 == 0 || i%4 == 3 {
			vol = 5.0
		}
		out = append(out, models.TapeEntry{
			Timestamp: testNow.Add(time.Duration(i-n) * time.Second),
			Price:     100,
			Volume:    vol,
			Aggressor: side,
		})
	}
	return out
}

func TestPatternStrengthZeroWithoutMatches(t *testing.T) {
	if got := patternStrength(nil); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestPatternStrengthMultiPatternBonusCapped(t *testing.T) {
	match := models.PatternMatch{Confidence: 1, Probability: 0.5, HistoricalSuccess: 0.5}
	many := make([]models.PatternMatch, 10)
	for i := range many {
		many[i] = match
	}
	single := patternStrength([]models.PatternMatch{match})
	crowd := patternStrength(many)
	if got := crowd - single; math.Abs(got-0.2) > 1e-9 {
		t.Fatalf("bonus = %v, want capped at 0.2", got)
	}
}

func TestAllFactorsBounded(t *testing.T) {
	readings := []models.MarketReading{
		{},
		{Price: 100, Volume: 1000, AvgVolume: 1, Spread: 50, Volatility: 5, Liquidity: models.LiquidityLow, Phase: models.PhaseOpen},
		{Price: 0.01, Volume: 0, Spread: -1, Volatility: -3},
	}
	decisions := []models.DecisionAnalysis{
		{},
		{RiskLevel: 5, RiskRewardRatio: 100, EntryPrice: 100, StopLoss: 1, Recommendation: "buy"},
		{RiskLevel: -2, RiskRewardRatio: -5, Recommendation: "sell"},
	}
	matches := [][]models.PatternMatch{
		nil,
		{{Confidence: 1, Probability: 1, HistoricalSuccess: 1}},
	}
	for _, r := range readings {
		for _, d := range decisions {
			for _, m := range matches {
				f := computeFactors(r, neutralTape(20), m, d, models.LiquidityAnalysis{AbsorptionLevel: 2})
				for i, v := range f.Slice() {
					if v < 0 || v > 1 || math.IsNaN(v) {
						t.Fatalf("factor %s = %v out of [0,1]", models.FactorNames[i], v)
					}
				}
			}
		}
	}
}

func TestRiskAssessmentBuckets(t *testing.T) {
	low := riskAssessment(models.DecisionAnalysis{RiskLevel: 0.9, RiskRewardRatio: 0.5})
	high := riskAssessment(models.DecisionAnalysis{RiskLevel: 0.1, RiskRewardRatio: 3})
	if high <= low {
		t.Fatalf("better risk profile must score higher: %v vs %v", high, low)
	}
}

func TestMomentumAlignment(t *testing.T) {
	tape := neutralTape(20)
	for i := range tape {
		tape[i].Aggressor = models.AggressorBuyer
	}
	buy := momentumAlignment(tape, models.DecisionAnalysis{Recommendation: "buy"})
	sell := momentumAlignment(tape, models.DecisionAnalysis{Recommendation: "sell"})
	wait := momentumAlignment(tape, models.DecisionAnalysis{Recommendation: "wait"})
	if buy != 1 {
		t.Fatalf("aligned buy flow = %v, want 1", buy)
	}
	if sell != 0 {
		t.Fatalf("opposed sell flow = %v, want 0", sell)
	}
	if wait != 0.5 {
		t.Fatalf("wait must be neutral, got %v", wait)
	}
}

func TestHistoricalAccuracyDefault(t *testing.T) {
	if got := historicalAccuracy(nil); got != 0.5 {
		t.Fatalf("expected 0.5 default, got %v", got)
	}
}
