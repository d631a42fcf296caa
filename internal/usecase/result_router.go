package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
	drepo "github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/repository"
)

// Broadcaster fans scored results out to live subscribers. Delivery is
// best-effort and must not block routing.
type Broadcaster interface {
	Broadcast(res *models.ConfidenceResult)
}

// RetryQueue defers results whose backend delivery failed.
type RetryQueue interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
}

// ResultRouter routes scored signals to the configured backend.
type ResultRouter struct {
	pub     drepo.ResultPublisher
	store   drepo.SignalStore
	metrics drepo.Metrics
	backend string
	bc      Broadcaster
	retry   RetryQueue
}

// NewResultRouter creates a new ResultRouter instance.
func NewResultRouter(
	pub drepo.ResultPublisher,
	store drepo.SignalStore,
	metrics drepo.Metrics,
	backend string,
) *ResultRouter {
	return &ResultRouter{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

// SetBroadcaster attaches a live fan-out sink, e.g. the websocket hub.
func (r *ResultRouter) SetBroadcaster(b Broadcaster) { r.bc = b }

// SetRetryQueue attaches a queue that replays failed deliveries.
func (r *ResultRouter) SetRetryQueue(q RetryQueue) { r.retry = q }

// Route delivers a single scored result to the configured backend.
func (r *ResultRouter) Route(ctx context.Context, res *models.ConfidenceResult) error {
	if res == nil {
		return fmt.Errorf("result is nil")
	}

	if r.bc != nil {
		r.bc.Broadcast(res)
	}

	start := time.Now()

	if err := r.deliver(ctx, res); err != nil {
		r.metrics.RecordError("route_result")
		if r.retry != nil {
			if qerr := r.retry.Enqueue(ctx, routeRetryType, res); qerr == nil {
				return nil
			}
			r.metrics.RecordError("route_retry_enqueue")
		}
		return fmt.Errorf("route result: %w", err)
	}

	r.metrics.RecordLatency("route_result", time.Since(start).Seconds())

	return nil
}

// deliver writes the result to the configured backend.
func (r *ResultRouter) deliver(ctx context.Context, res *models.ConfidenceResult) error {
	switch r.backend {
	case "kafka":
		return r.pub.Publish(ctx, res)
	case "clickhouse":
		return r.store.StoreResult(ctx, res)
	case "both":
		if err := r.store.StoreResult(ctx, res); err != nil {
			return err
		}
		return r.pub.Publish(ctx, res)
	default:
		return fmt.Errorf("unknown backend: %s", r.backend)
	}
}

// Close closes underlying resources if available.
func (r *ResultRouter) Close() {
	if r.pub != nil {
		_ = r.pub.Close()
	}
	if r.store != nil {
		_ = r.store.Close()
	}
}
