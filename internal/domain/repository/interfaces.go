package repository

import (
	"context"
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
)

// Metrics is the fire-and-forget observation sink. Implementations must
// never block or fail the scoring path.
type Metrics interface {
	RecordConfidence(symbol string, value float64)
	RecordQuality(symbol string, score float64)
	RecordPatternMatch(symbol, pattern string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

// SignalStore persists confidence results and realized outcomes.
type SignalStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	StoreResult(ctx context.Context, r *models.ConfidenceResult) error
	StoreOutcome(ctx context.Context, o *models.SignalOutcome) error
	QueryResults(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.ConfidenceResult, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// ResultPublisher pushes freshly computed results downstream (Kafka, sockets).
type ResultPublisher interface {
	Publish(ctx context.Context, r *models.ConfidenceResult) error
	Close() error
}
