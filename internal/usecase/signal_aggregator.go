package usecase

import (
	"context"
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
	domrepo "github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/repository"
	xhttp "github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/http"
)

// SignalAggregator serves API reads over the live processor state, falling
// back to the store for symbols this instance has not seen since start.
type SignalAggregator struct {
	proc  *TickProcessor
	store domrepo.SignalStore
}

func NewSignalAggregator(proc *TickProcessor, store domrepo.SignalStore) *SignalAggregator {
	return &SignalAggregator{proc: proc, store: store}
}

// LatestConfidence returns the newest scored signal for a symbol.
func (a *SignalAggregator) LatestConfidence(ctx context.Context, symbol string) (*models.ConfidenceResult, error) {
	if res := a.proc.Latest(symbol); res != nil {
		return res, nil
	}
	if a.store != nil {
		rs, err := a.store.QueryResults(ctx, symbol, time.Time{}, time.Now(), 1)
		if err != nil {
			return nil, err
		}
		if len(rs) > 0 {
			return rs[0], nil
		}
	}
	return nil, xhttp.NotFoundErrorf("no signal for symbol %s", symbol)
}

// ActivePatterns returns the unexpired pattern matches of the latest signal.
func (a *SignalAggregator) ActivePatterns(ctx context.Context, symbol string) ([]models.PatternMatch, error) {
	res, err := a.LatestConfidence(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return a.proc.ActivePatterns(res.Symbol, time.Now()), nil
}

// CurrentRegime returns the regime of the latest signal.
func (a *SignalAggregator) CurrentRegime(ctx context.Context, symbol string) (models.MarketRegime, error) {
	res, err := a.LatestConfidence(ctx, symbol)
	if err != nil {
		return models.MarketRegime{}, err
	}
	return res.Regime, nil
}

// Performance returns the tracker snapshot for a symbol.
func (a *SignalAggregator) Performance(symbol string) models.PerformanceSnapshot {
	return a.proc.Tracker(symbol).Snapshot()
}
