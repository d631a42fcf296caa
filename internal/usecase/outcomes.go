package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
	domrepo "github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/repository"
)

// OutcomeUseCase records realized trade outcomes: it feeds the per-symbol
// performance tracker and persists the outcome row. Reached from both the
// outcomes topic and the HTTP endpoint.
type OutcomeUseCase struct {
	proc    *TickProcessor
	store   domrepo.SignalStore
	metrics domrepo.Metrics
}

func NewOutcomeUseCase(proc *TickProcessor, store domrepo.SignalStore, metrics domrepo.Metrics) *OutcomeUseCase {
	return &OutcomeUseCase{proc: proc, store: store, metrics: metrics}
}

// Record applies one realized outcome.
func (uc *OutcomeUseCase) Record(ctx context.Context, o *models.SignalOutcome) error {
	if o == nil {
		return fmt.Errorf("outcome is nil")
	}
	if o.Symbol == "" {
		return fmt.Errorf("symbol required")
	}
	if !o.Outcome.Valid() {
		return fmt.Errorf("unknown outcome %q", o.Outcome)
	}
	if o.RecordedAt.IsZero() {
		o.RecordedAt = time.Now()
	}

	if err := uc.proc.Tracker(o.Symbol).UpdatePerformance(o.Confidence, o.Outcome); err != nil {
		uc.metrics.RecordError("outcome_update")
		return fmt.Errorf("update performance: %w", err)
	}

	if uc.store != nil {
		if err := uc.store.StoreOutcome(ctx, o); err != nil {
			uc.metrics.RecordError("outcome_store")
			return fmt.Errorf("store outcome: %w", err)
		}
	}
	return nil
}

// Performance returns the tracker snapshot for one symbol.
func (uc *OutcomeUseCase) Performance(symbol string) models.PerformanceSnapshot {
	return uc.proc.Tracker(symbol).Snapshot()
}
