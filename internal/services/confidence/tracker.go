package confidence

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/logger"
)

const (
	// recalibration runs on every Nth outcome
	recalibrateEvery = 50
	// calibration error is computed over this many recent pairs
	calibrationWindow = 100
	// bounded outcome history
	outcomeHistorySize = 200
	// weights of factors underperforming this accuracy get decayed
	factorAccuracyFloor = 0.6
	weightDecay         = 0.95
)

type factorRecord struct {
	wins   int
	losses int
}

func (r factorRecord) accuracy() float64 {
	total := r.wins + r.losses
	if total == 0 {
		return 1 // no evidence, leave the weight alone
	}
	return float64(r.wins) / float64(total)
}

// Tracker records trade outcomes against past confidence values, owns the
// persistent Bayesian prior and adaptive weights, and periodically
// recalibrates the weights from realized performance.
type Tracker struct {
	mu sync.Mutex

	weights models.AdaptiveWeights
	prior   models.BayesianPrior
	decay   float64 // optional alpha/beta decay per update; 0 disables

	totalSignals   int
	correct        int
	falsePositives int
	falseNegatives int

	avgWinConfidence  float64
	avgLossConfidence float64
	calibrationError  float64
	lastUpdated       time.Time

	history     []models.SignalOutcome
	lastFactors map[string]float64 // most recent factor snapshot, for attribution
	factorPerf  map[string]*factorRecord

	log *logger.Logger
}

// NewTracker creates a Tracker starting from the given weights and prior.
// priorDecay in (0,1) applies multiplicative decay to alpha/beta before each
// update; 0 preserves the source behavior of unbounded counts.
func NewTracker(weights models.AdaptiveWeights, prior models.BayesianPrior, priorDecay float64, log *logger.Logger) *Tracker {
	perf := make(map[string]*factorRecord, len(models.FactorNames))
	for _, name := range models.FactorNames {
		perf[name] = &factorRecord{}
	}
	if priorDecay < 0 || priorDecay >= 1 {
		priorDecay = 0
	}
	return &Tracker{
		weights:    weights,
		prior:      prior,
		decay:      priorDecay,
		factorPerf: perf,
		log:        log,
	}
}

// Weights returns a copy of the current persistent weights.
func (t *Tracker) Weights() models.AdaptiveWeights {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.weights
}

// Prior returns the current Bayesian prior.
func (t *Tracker) Prior() models.BayesianPrior {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.prior
}

// ObserveFactors records the factor snapshot scoring is about to act on, so
// later outcomes can be attributed to the factors that argued for the trade.
func (t *Tracker) ObserveFactors(f models.ConfidenceFactors) {
	t.mu.Lock()
	t.lastFactors = f.Map()
	t.mu.Unlock()
}

// RollingAccuracy returns wins/(wins+losses) over the bounded history and
// the number of decided samples it covers.
func (t *Tracker) RollingAccuracy() (float64, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rollingAccuracyLocked()
}

func (t *Tracker) rollingAccuracyLocked() (float64, int) {
	wins, losses := 0, 0
	for _, o := range t.history {
		switch o.Outcome {
		case models.OutcomeWin:
			wins++
		case models.OutcomeLoss:
			losses++
		}
	}
	if wins+losses == 0 {
		return 0, 0
	}
	return float64(wins) / float64(wins+losses), wins + losses
}

// UpdatePerformance records one realized outcome for a confidence value that
// was acted on. A win increments alpha, a loss increments beta, breakeven
// affects neither. Every 50th call triggers recalibration.
func (t *Tracker) UpdatePerformance(conf float64, outcome models.Outcome) error {
	if !outcome.Valid() {
		return fmt.Errorf("unknown outcome %q", outcome)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.decay > 0 {
		t.prior.Alpha *= t.decay
		t.prior.Beta *= t.decay
	}

	t.totalSignals++
	switch outcome {
	case models.OutcomeWin:
		t.correct++
		if conf < 0.5 {
			t.falseNegatives++
		}
		// two-term moving average, intentional lightweight smoothing
		if t.avgWinConfidence == 0 {
			t.avgWinConfidence = conf
		} else {
			t.avgWinConfidence = (t.avgWinConfidence + conf) / 2
		}
		t.prior.Alpha++
		t.attribute(true)
	case models.OutcomeLoss:
		if conf >= 0.5 {
			t.falsePositives++
		}
		if t.avgLossConfidence == 0 {
			t.avgLossConfidence = conf
		} else {
			t.avgLossConfidence = (t.avgLossConfidence + conf) / 2
		}
		t.prior.Beta++
		t.attribute(false)
	}

	t.history = append(t.history, models.SignalOutcome{Confidence: conf, Outcome: outcome, RecordedAt: time.Now()})
	if len(t.history) > outcomeHistorySize {
		t.history = t.history[len(t.history)-outcomeHistorySize:]
	}
	t.lastUpdated = time.Now()

	if t.totalSignals%recalibrateEvery == 0 {
		t.recalibrateLocked()
	}
	return nil
}

// attribute credits or debits every factor that was above 0.5 in the last
// observed snapshot.
func (t *Tracker) attribute(win bool) {
	for name, v := range t.lastFactors {
		if v <= 0.5 {
			continue
		}
		rec := t.factorPerf[name]
		if rec == nil {
			continue
		}
		if win {
			rec.wins++
		} else {
			rec.losses++
		}
	}
}

// recalibrateLocked computes RMS calibration error over the recent window
// and, when rolling accuracy is poor, decays the weights of factors whose
// own tracked performance is also poor, then renormalizes.
func (t *Tracker) recalibrateLocked() {
	t.calibrationError = t.calibrationErrorLocked()

	acc, n := t.rollingAccuracyLocked()
	if n == 0 || acc >= factorAccuracyFloor {
		return
	}

	raw := t.weights.Map()
	touched := false
	for name, rec := range t.factorPerf {
		if rec.accuracy() < factorAccuracyFloor {
			raw[name] *= weightDecay
			touched = true
		}
	}
	if !touched {
		return
	}
	w, err := models.NewAdaptiveWeights(raw)
	if err != nil {
		if t.log != nil {
			t.log.Warn("weight recalibration rejected", logger.Error(err))
		}
		return
	}
	t.weights = w
	if t.log != nil {
		t.log.Info("factor weights recalibrated",
			logger.Any("rolling_accuracy", acc),
			logger.Any("calibration_error", t.calibrationError),
		)
	}
}

func (t *Tracker) calibrationErrorLocked() float64 {
	window := t.history
	if len(window) > calibrationWindow {
		window = window[len(window)-calibrationWindow:]
	}
	if len(window) == 0 {
		return 0
	}
	sum2 := 0.0
	for _, o := range window {
		target := 0.5
		switch o.Outcome {
		case models.OutcomeWin:
			target = 1
		case models.OutcomeLoss:
			target = 0
		}
		d := o.Confidence - target
		sum2 += d * d
	}
	return math.Sqrt(sum2 / float64(len(window)))
}

// Snapshot returns a point-in-time view of tracker state.
func (t *Tracker) Snapshot() models.PerformanceSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	acc, _ := t.rollingAccuracyLocked()
	return models.PerformanceSnapshot{
		TotalSignals:      t.totalSignals,
		Correct:           t.correct,
		FalsePositives:    t.falsePositives,
		FalseNegatives:    t.falseNegatives,
		AvgWinConfidence:  t.avgWinConfidence,
		AvgLossConfidence: t.avgLossConfidence,
		CalibrationError:  t.calibrationError,
		RollingAccuracy:   acc,
		Prior:             t.prior,
		LastUpdated:       t.lastUpdated,
	}
}
