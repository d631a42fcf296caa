package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	models "github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
	icache "github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/service/cache"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/service/metrics"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/service/ratelimit"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/usecase"
	xhttp "github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/http"
	xlogger "github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Per-endpoint token bucket budgets. Reads of live signals refill
// faster than the heavier performance aggregation.
const (
	readBurst  = 10
	readRefill = 5
	perfBurst  = 5
	perfRefill = 2
)

// SignalsEchoHandler implements the Echo-based HTTP surface over the signal
// use cases. Hot reads (confidence, patterns, regime) are rate limited per
// client and served from a short-TTL byte cache of the serialized envelope.
type SignalsEchoHandler struct {
	logger   *xlogger.Logger
	agg      *usecase.SignalAggregator
	snapshot *usecase.SnapshotUseCase
	history  *usecase.HistoryUseCase
	outcomes *usecase.OutcomeUseCase
	limiter  *ratelimit.Limiter
	cache    icache.BytesCache
}

func NewSignalsEchoHandler(
	logger *xlogger.Logger,
	agg *usecase.SignalAggregator,
	snapshot *usecase.SnapshotUseCase,
	history *usecase.HistoryUseCase,
	outcomes *usecase.OutcomeUseCase,
) *SignalsEchoHandler {
	metrics.Register()
	return &SignalsEchoHandler{
		logger:   logger,
		agg:      agg,
		snapshot: snapshot,
		history:  history,
		outcomes: outcomes,
		limiter:  ratelimit.New(),
	}
}

// SetCache installs the response byte cache. Without one every request
// goes through the aggregator.
func (h *SignalsEchoHandler) SetCache(c icache.BytesCache) { h.cache = c }

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/confidence", h.Confidence)
	g.GET("/patterns", h.Patterns)
	g.GET("/regime", h.Regime)
	g.GET("/performance", h.Performance)
	g.GET("/history", h.History)
	g.GET("/snapshot", h.Snapshot)
	g.POST("/outcomes", h.Outcome)
}

func (h *SignalsEchoHandler) Confidence(c echo.Context) error {
	req := &models.ConfidenceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.serveCached(c, "confidence", req.Symbol, time.Second, func() (interface{}, error) {
		return h.agg.LatestConfidence(c.Request().Context(), req.Symbol)
	})
}

func (h *SignalsEchoHandler) Patterns(c echo.Context) error {
	req := &models.PatternsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.serveCached(c, "patterns", req.Symbol, time.Second, func() (interface{}, error) {
		return h.agg.ActivePatterns(c.Request().Context(), req.Symbol)
	})
}

func (h *SignalsEchoHandler) Regime(c echo.Context) error {
	req := &models.RegimeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.serveCached(c, "regime", req.Symbol, time.Second, func() (interface{}, error) {
		return h.agg.CurrentRegime(c.Request().Context(), req.Symbol)
	})
}

func (h *SignalsEchoHandler) Performance(c echo.Context) error {
	endpoint := "performance"
	defer h.observe(endpoint, time.Now())

	req := &models.ConfidenceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.limiter.Allow(c.RealIP()+":"+endpoint, perfBurst, perfRefill) {
		return h.rateLimited(c, endpoint)
	}
	return xhttp.SuccessResponse(c, h.agg.Performance(req.Symbol))
}

func (h *SignalsEchoHandler) History(c echo.Context) error {
	defer h.observe("history", time.Now())

	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to, err := parseTimeRange(req.From, req.To)
	if err != nil {
		return xhttp.BadRequestResponse(c, err)
	}

	res, err := h.history.GetHistory(c.Request().Context(), usecase.GetHistoryParams{
		Symbol: req.Symbol,
		From:   from,
		To:     to,
		Limit:  req.Limit,
	})
	if err != nil {
		metrics.SignalsErrors.WithLabelValues("history").Inc()
		h.logger.Error("history usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) Snapshot(c echo.Context) error {
	defer h.observe("snapshot", time.Now())

	req := &models.ConfidenceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.snapshot.GetSnapshot(c.Request().Context(), req.Symbol)
	if err != nil {
		metrics.SignalsErrors.WithLabelValues("snapshot").Inc()
		h.logger.Error("snapshot usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) Outcome(c echo.Context) error {
	defer h.observe("outcome", time.Now())

	req := &models.OutcomeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	o := &models.SignalOutcome{
		Symbol:     req.Symbol,
		Confidence: req.Confidence,
		Outcome:    models.Outcome(req.Outcome),
		RecordedAt: time.Now(),
	}
	if err := h.outcomes.Record(c.Request().Context(), o); err != nil {
		metrics.SignalsErrors.WithLabelValues("outcome").Inc()
		h.logger.Error("outcome usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, o)
}

// serveCached is the shared path for the hot per-symbol reads: rate
// limit, cache lookup, fetch, cache fill. The cached bytes are the full
// response envelope so a hit skips marshaling too.
func (h *SignalsEchoHandler) serveCached(c echo.Context, endpoint, symbol string, ttl time.Duration, fetch func() (interface{}, error)) error {
	defer h.observe(endpoint, time.Now())

	if !h.limiter.Allow(c.RealIP()+":"+endpoint, readBurst, readRefill) {
		return h.rateLimited(c, endpoint)
	}

	key := endpoint + ":" + symbol
	if b, ok := h.cachedBytes(key, endpoint); ok {
		c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=1")
		return c.JSONBlob(http.StatusOK, b)
	}

	res, err := fetch()
	if err != nil {
		metrics.SignalsErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error(endpoint+" usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	envelope := xhttp.APIResponse{
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    res,
	}
	b, err := json.Marshal(envelope)
	if err != nil {
		h.logger.Error(endpoint+" marshal error", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	if h.cache != nil {
		if cerr := h.cache.SetBytes(key, b, ttl); cerr != nil {
			h.logger.Warn(endpoint+" cache set error", xlogger.Error(cerr))
		}
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=1")
	return c.JSONBlob(http.StatusOK, b)
}

// cachedBytes treats cache errors as misses so a broken cache degrades
// to slower reads, not failures.
func (h *SignalsEchoHandler) cachedBytes(key, endpoint string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	b, ok, err := h.cache.GetBytes(key)
	if err != nil {
		h.logger.Warn(endpoint+" cache get error", xlogger.Error(err))
		return nil, false
	}
	return b, ok
}

func (h *SignalsEchoHandler) rateLimited(c echo.Context, endpoint string) error {
	h.logger.Warn(endpoint+" rate limited", xlogger.String("remote", c.RealIP()))
	return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
}

func (h *SignalsEchoHandler) observe(endpoint string, start time.Time) {
	metrics.SignalsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// parseTimeRange accepts RFC3339 or unix-second bounds; both are optional.
func parseTimeRange(from, to string) (time.Time, time.Time, error) {
	var f, t time.Time
	if from != "" {
		v, ok := xhttp.ParseTime(from)
		if !ok {
			return f, t, fmt.Errorf("bad from %q, want RFC3339 or unix seconds", from)
		}
		f = v
	}
	if to != "" {
		v, ok := xhttp.ParseTime(to)
		if !ok {
			return f, t, fmt.Errorf("bad to %q, want RFC3339 or unix seconds", to)
		}
		t = v
	}
	return f, t, nil
}
