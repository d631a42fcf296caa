package confidence

import (
	"math"
	"testing"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
)

func newTestTracker() *Tracker {
	return NewTracker(models.DefaultWeights(), models.BayesianPrior{Alpha: 1, Beta: 1}, 0, nil)
}

func TestWinIncrementsAlphaOnly(t *testing.T) {
	tr := newTestTracker()
	before := tr.Prior()
	rateBefore := before.SuccessRate()

	if err := tr.UpdatePerformance(0.8, models.OutcomeWin); err != nil {
		t.Fatalf("update: %v", err)
	}
	after := tr.Prior()
	if after.Alpha != before.Alpha+1 {
		t.Fatalf("alpha = %v, want %v", after.Alpha, before.Alpha+1)
	}
	if after.Beta != before.Beta {
		t.Fatalf("beta changed: %v -> %v", before.Beta, after.Beta)
	}
	if after.SuccessRate() <= rateBefore {
		t.Fatalf("success rate must strictly increase: %v -> %v", rateBefore, after.SuccessRate())
	}
}

func TestLossIncrementsBetaOnly(t *testing.T) {
	tr := newTestTracker()
	before := tr.Prior()
	if err := tr.UpdatePerformance(0.8, models.OutcomeLoss); err != nil {
		t.Fatalf("update: %v", err)
	}
	after := tr.Prior()
	if after.Beta != before.Beta+1 || after.Alpha != before.Alpha {
		t.Fatalf("prior = %+v, want only beta incremented from %+v", after, before)
	}
	snap := tr.Snapshot()
	if snap.FalsePositives != 1 {
		t.Fatalf("high-confidence loss should count as false positive, got %d", snap.FalsePositives)
	}
}

func TestBreakevenTouchesNeitherCount(t *testing.T) {
	tr := newTestTracker()
	before := tr.Prior()
	if err := tr.UpdatePerformance(0.6, models.OutcomeBreakeven); err != nil {
		t.Fatalf("update: %v", err)
	}
	after := tr.Prior()
	if after != before {
		t.Fatalf("breakeven must not move the prior: %+v -> %+v", before, after)
	}
	if tr.Snapshot().TotalSignals != 1 {
		t.Fatalf("breakeven still counts as a signal")
	}
}

func TestInvalidOutcomeRejected(t *testing.T) {
	tr := newTestTracker()
	if err := tr.UpdatePerformance(0.5, models.Outcome("draw")); err == nil {
		t.Fatalf("expected error for unknown outcome")
	}
}

func TestRecalibrationDecaysWeakFactorsAndRenormalizes(t *testing.T) {
	tr := newTestTracker()

	// every signal argued from a strong pattern factor, and mostly lost
	losing := models.ConfidenceFactors{PatternStrength: 0.9, HistoricalAccuracy: 0.8}
	for i := 0; i < recalibrateEvery; i++ {
		tr.ObserveFactors(losing)
		outcome := models.OutcomeLoss
		if i%4 == 0 {
			outcome = models.OutcomeWin
		}
		if err := tr.UpdatePerformance(0.8, outcome); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	w := tr.Weights()
	if math.Abs(w.Sum()-1) > 1e-9 {
		t.Fatalf("weights must sum to 1 after recalibration, got %v", w.Sum())
	}
	def := models.DefaultWeights()
	if w.Get(models.FactorPatternStrength) >= def.Get(models.FactorPatternStrength) {
		t.Fatalf("underperforming factor weight should shrink: %v >= %v",
			w.Get(models.FactorPatternStrength), def.Get(models.FactorPatternStrength))
	}
	if tr.Snapshot().CalibrationError <= 0 {
		t.Fatalf("calibration error should be computed")
	}
}

func TestNoRecalibrationWhenAccuracyIsGood(t *testing.T) {
	tr := newTestTracker()
	strong := models.ConfidenceFactors{PatternStrength: 0.9}
	for i := 0; i < recalibrateEvery; i++ {
		tr.ObserveFactors(strong)
		if err := tr.UpdatePerformance(0.8, models.OutcomeWin); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	w := tr.Weights()
	def := models.DefaultWeights()
	if w.Get(models.FactorPatternStrength) != def.Get(models.FactorPatternStrength) {
		t.Fatalf("weights must be untouched when rolling accuracy is healthy")
	}
}

func TestPriorDecayOption(t *testing.T) {
	tr := NewTracker(models.DefaultWeights(), models.BayesianPrior{Alpha: 100, Beta: 100}, 0.9, nil)
	if err := tr.UpdatePerformance(0.8, models.OutcomeWin); err != nil {
		t.Fatalf("update: %v", err)
	}
	p := tr.Prior()
	if math.Abs(p.Alpha-91) > 1e-9 { // 100*0.9 + 1
		t.Fatalf("alpha = %v, want 91", p.Alpha)
	}
	if math.Abs(p.Beta-90) > 1e-9 {
		t.Fatalf("beta = %v, want 90", p.Beta)
	}
}

func TestAvgWinConfidenceTwoTermAverage(t *testing.T) {
	tr := newTestTracker()
	_ = tr.UpdatePerformance(0.8, models.OutcomeWin)
	_ = tr.UpdatePerformance(0.6, models.OutcomeWin)
	snap := tr.Snapshot()
	if math.Abs(snap.AvgWinConfidence-0.7) > 1e-9 {
		t.Fatalf("avg win confidence = %v, want 0.7", snap.AvgWinConfidence)
	}
}
