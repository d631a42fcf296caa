package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
	domrepo "github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/repository"
)

// HistoryUseCase provides business logic for retrieving stored signals.
type HistoryUseCase struct {
	store domrepo.SignalStore
}

func NewHistoryUseCase(store domrepo.SignalStore) *HistoryUseCase {
	return &HistoryUseCase{store: store}
}

type GetHistoryParams struct {
	Symbol string
	From   time.Time
	To     time.Time
	Limit  int
}

type GetHistoryResult struct {
	Symbol  string
	From    time.Time
	To      time.Time
	Count   int
	Signals []*models.ConfidenceResult
}

func (uc *HistoryUseCase) GetHistory(ctx context.Context, p GetHistoryParams) (*GetHistoryResult, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if p.To.IsZero() {
		p.To = time.Now()
	}
	if p.From.After(p.To) {
		return nil, fmt.Errorf("from must be <= to")
	}
	if p.Limit <= 0 {
		p.Limit = 100
	}
	if p.Limit > 5000 {
		p.Limit = 5000
	}

	signals, err := uc.store.QueryResults(ctx, p.Symbol, p.From, p.To, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}

	return &GetHistoryResult{
		Symbol:  p.Symbol,
		From:    p.From,
		To:      p.To,
		Count:   len(signals),
		Signals: signals,
	}, nil
}
