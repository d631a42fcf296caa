package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
	domrepo "github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/repository"
)

// Proc is the downstream the pipeline feeds, normally the tick
// processor.
type Proc interface {
	Process(ctx context.Context, t *models.MarketTick) error
}

// RealtimePipeline sits between the ingestion consumer and the scoring
// processor. Ticks are validated, throttled per symbol, and buffered
// when the downstream is temporarily failing so a ClickHouse or scoring
// hiccup does not drop the tape.
type RealtimePipeline struct {
	downstream Proc
	metrics    domrepo.Metrics

	maxRPS int
	buffer chan *models.MarketTick

	mu         sync.Mutex
	started    bool
	done       chan struct{}
	lastAccept map[string]time.Time
}

type PipelineOption func(*RealtimePipeline)

// WithMaxRPS caps accepted ticks per second for each symbol. Excess
// ticks are dropped, not queued.
func WithMaxRPS(n int) PipelineOption {
	return func(p *RealtimePipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets how many ticks can wait for a recovering
// downstream before drops begin.
func WithBufferSize(n int) PipelineOption {
	return func(p *RealtimePipeline) {
		if n > 0 {
			p.buffer = make(chan *models.MarketTick, n)
		}
	}
}

func NewRealtimePipeline(downstream Proc, metrics domrepo.Metrics, opts ...PipelineOption) *RealtimePipeline {
	p := &RealtimePipeline{
		downstream: downstream,
		metrics:    metrics,
		maxRPS:     50,
		buffer:     make(chan *models.MarketTick, 1000),
		done:       make(chan struct{}),
		lastAccept: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the background drain of buffered ticks. Safe to call
// once; later calls are no-ops.
func (p *RealtimePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	go p.drain(ctx)
}

// Stop halts the background drain. Ticks still in the buffer are
// abandoned.
func (p *RealtimePipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.started = false
	close(p.done)
}

// drain retries buffered ticks against the downstream, backing off
// while it keeps failing.
func (p *RealtimePipeline) drain(ctx context.Context) {
	const (
		baseBackoff = 50 * time.Millisecond
		maxBackoff  = 2 * time.Second
	)
	backoff := baseBackoff

	for {
		select {
		case <-p.done:
			return
		case t := <-p.buffer:
			if t == nil {
				continue
			}
			if err := p.downstream.Process(ctx, t); err != nil {
				p.metrics.RecordError("pipeline_flush")
				if backoff < maxBackoff {
					backoff *= 2
				}
				time.Sleep(backoff)
				p.requeue(t)
				continue
			}
			backoff = baseBackoff
		}
	}
}

func (p *RealtimePipeline) requeue(t *models.MarketTick) {
	select {
	case p.buffer <- t:
	default:
		p.metrics.RecordError("pipeline_buffer_drop")
	}
}

// Process validates and throttles a tick, then hands it downstream.
// A throttled tick is dropped without error; a downstream failure
// buffers the tick for the drain loop and returns the error.
func (p *RealtimePipeline) Process(ctx context.Context, t *models.MarketTick) error {
	start := time.Now()

	if err := validateTick(t); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.accept(t.Entry.Symbol, start) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.downstream.Process(ctx, t); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.buffer <- t:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}

	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateTick(t *models.MarketTick) error {
	switch {
	case t == nil:
		return fmt.Errorf("tick nil")
	case t.Entry.Symbol == "":
		return fmt.Errorf("symbol empty")
	case t.Entry.Timestamp.IsZero():
		return fmt.Errorf("timestamp invalid")
	case t.Entry.Price < 0 || t.Entry.Volume < 0:
		return fmt.Errorf("negative price/volume")
	}
	return nil
}

// accept enforces the per-symbol rate cap. The first tick for a symbol
// is always accepted.
func (p *RealtimePipeline) accept(symbol string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	minGap := time.Second / time.Duration(p.maxRPS)

	p.mu.Lock()
	defer p.mu.Unlock()

	last, seen := p.lastAccept[symbol]
	if seen && now.Sub(last) < minGap {
		return false
	}
	p.lastAccept[symbol] = now
	return true
}
