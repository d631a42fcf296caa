package usecase

import (
	"context"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/queue"
)

const routeRetryType = "signal.route_retry"

// RouteRetryJob replays results whose backend delivery failed. The queue's
// own backoff and dead-letter handling apply when delivery keeps failing.
type RouteRetryJob struct {
	router *ResultRouter
}

func NewRouteRetryJob(router *ResultRouter) *RouteRetryJob {
	return &RouteRetryJob{router: router}
}

func (j *RouteRetryJob) Name() string { return "route-retry" }

func (j *RouteRetryJob) Type() string { return routeRetryType }

func (j *RouteRetryJob) Handle(ctx context.Context, payload interface{}) error {
	res, err := queue.ParsePayload[models.ConfidenceResult](payload)
	if err != nil {
		return err
	}
	return j.router.deliver(ctx, res)
}

var _ queue.Job = (*RouteRetryJob)(nil)
