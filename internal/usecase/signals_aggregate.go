package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
)

// SnapshotUseCase consolidates confidence, patterns, regime and performance
// into one response using SignalAggregator.
type SnapshotUseCase struct {
	agg     *SignalAggregator
	timeout time.Duration
}

func NewSnapshotUseCase(agg *SignalAggregator) *SnapshotUseCase {
	return &SnapshotUseCase{agg: agg, timeout: 10 * time.Second}
}

func (uc *SnapshotUseCase) GetSnapshot(ctx context.Context, symbol string) (*models.SignalSnapshot, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}

	// Overall timeout
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	res := &models.SignalSnapshot{
		Symbol:    symbol,
		Timestamp: time.Now(),
		Errors:    map[string]string{},
	}

	type item struct {
		name string
		val  interface{}
		err  error
	}
	ch := make(chan item, 4)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.agg.LatestConfidence(ctx, symbol)
		ch <- item{"confidence", v, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.agg.ActivePatterns(ctx, symbol)
		ch <- item{"patterns", v, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.agg.CurrentRegime(ctx, symbol)
		ch <- item{"regime", v, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		v := uc.agg.Performance(symbol)
		ch <- item{"performance", v, nil}
	}()

	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			res.Errors[it.name] = it.err.Error()
			continue
		}
		switch it.name {
		case "confidence":
			res.Confidence = it.val.(*models.ConfidenceResult)
		case "patterns":
			res.Patterns = it.val.([]models.PatternMatch)
		case "regime":
			v := it.val.(models.MarketRegime)
			res.Regime = &v
		case "performance":
			v := it.val.(models.PerformanceSnapshot)
			res.Performance = &v
		}
	}

	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res, nil
}
