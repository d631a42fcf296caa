package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
	drepo "github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/repository"
	domsvc "github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/service"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/services/confidence"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/services/features"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/services/patterns"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/services/regime"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/cache"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/logger"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/util"
)

// TickProcessorConfig sizes the per-symbol rolling windows and configures
// the engines created for each symbol.
type TickProcessorConfig struct {
	TapeWindow    int           // trade prints kept per symbol
	PriceHistory  int           // prices kept for regime/volatility estimation
	LatencyBudget time.Duration // engine soft budget per score
	PriorDecay    float64       // 0 disables Bayesian counter decay
	Weights       map[string]float64
	CacheTTL      time.Duration
}

func (c *TickProcessorConfig) fill() {
	if c.TapeWindow <= 0 {
		c.TapeWindow = 100
	}
	if c.PriceHistory <= 0 {
		c.PriceHistory = 200
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Second
	}
}

// symbolState is everything one instrument needs: the rolling windows and
// its own matcher/regime/engine chain. Detectors and the engine keep state
// per instrument, so none of it is shared across symbols.
type symbolState struct {
	mu       sync.Mutex
	tape     []models.TapeEntry
	volumes  []float64
	book     *models.OrderBookSnapshot
	prevBook *models.OrderBookSnapshot
	profile  []models.VolumeProfileBucket
	matcher  domsvc.PatternMatcher
	engine   domsvc.ConfidenceScorer
	tracker  *confidence.Tracker
	last     *models.ConfidenceResult
}

// TickProcessor turns inbound market ticks into scored signals. It owns the
// per-symbol state and drives extract -> match -> score -> route.
type TickProcessor struct {
	mu        sync.RWMutex
	states    map[string]*symbolState
	cfg       TickProcessorConfig
	extractor domsvc.FeatureExtractor
	router    *ResultRouter
	metrics   drepo.Metrics
	cache     cache.Service
	log       *logger.Logger
}

// NewTickProcessor creates a processor. cache may be nil (scoring is cheap
// enough to always run); router must not be nil.
func NewTickProcessor(cfg TickProcessorConfig, router *ResultRouter, metrics drepo.Metrics, c cache.Service, log *logger.Logger) *TickProcessor {
	cfg.fill()
	return &TickProcessor{
		states:    make(map[string]*symbolState),
		cfg:       cfg,
		extractor: features.NewExtractor(features.DefaultConfig()),
		router:    router,
		metrics:   metrics,
		cache:     c,
		log:       log,
	}
}

// Process scores one tick and routes the result downstream.
func (p *TickProcessor) Process(ctx context.Context, t *models.MarketTick) error {
	if t == nil {
		return fmt.Errorf("tick is nil")
	}
	st := p.state(t.Entry.Symbol)

	st.mu.Lock()
	defer st.mu.Unlock()

	// A feed replay of the same print returns the cached signal untouched.
	// Checked before the windows are mutated so a duplicate never enters
	// the tape.
	key := cache.GenerateKeyWithParams("signal", t.Entry.Symbol, t.Entry.Timestamp.UnixNano())
	if p.cache != nil {
		var cached models.ConfidenceResult
		if err := p.cache.Get(ctx, key, &cached); err == nil {
			st.last = &cached
			return nil
		}
	}

	st.append(t, p.cfg.TapeWindow)

	reading := st.reading(t)
	fs := p.extractor.Extract(reading, st.tape, st.book, st.profile)
	matches := st.matcher.Match(fs, st.tape, st.book, st.prevBook, st.profile, t.Entry.Timestamp)

	decision := models.DecisionAnalysis{Recommendation: "wait"}
	if t.Decision != nil {
		decision = *t.Decision
	}
	var flow models.LiquidityAnalysis
	if t.Flow != nil {
		flow = *t.Flow
	}

	res, err := st.engine.Score(reading, st.tape, matches, decision, flow)
	if err != nil {
		return fmt.Errorf("score %s: %w", t.Entry.Symbol, err)
	}
	st.last = res

	if p.cache != nil {
		if cerr := p.cache.Set(ctx, key, res, p.cfg.CacheTTL); cerr != nil && p.log != nil {
			p.log.Warn("signal cache set failed", logger.Error(cerr))
		}
	}

	return p.router.Route(ctx, res)
}

// Latest returns the most recent scored result for a symbol, or nil.
func (p *TickProcessor) Latest(symbol string) *models.ConfidenceResult {
	p.mu.RLock()
	st, ok := p.states[symbol]
	p.mu.RUnlock()
	if !ok {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.last
}

// ActivePatterns returns the unexpired matches of the latest signal.
func (p *TickProcessor) ActivePatterns(symbol string, now time.Time) []models.PatternMatch {
	res := p.Latest(symbol)
	if res == nil {
		return nil
	}
	return patterns.ActiveOnly(res.Matches, now)
}

// Tracker returns the performance tracker for a symbol, creating the
// symbol's state if it does not exist yet.
func (p *TickProcessor) Tracker(symbol string) *confidence.Tracker {
	return p.state(symbol).tracker
}

// Symbols lists the symbols seen so far.
func (p *TickProcessor) Symbols() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.states))
	for s := range p.states {
		out = append(out, s)
	}
	return out
}

func (p *TickProcessor) state(symbol string) *symbolState {
	p.mu.RLock()
	st, ok := p.states[symbol]
	p.mu.RUnlock()
	if ok {
		return st
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if st, ok = p.states[symbol]; ok {
		return st
	}

	weights := models.DefaultWeights()
	if len(p.cfg.Weights) > 0 {
		if w, err := models.NewAdaptiveWeights(p.cfg.Weights); err == nil {
			weights = w
		} else if p.log != nil {
			p.log.Warn("invalid initial weights, using defaults", logger.Error(err))
		}
	}
	tracker := confidence.NewTracker(weights, models.BayesianPrior{}, p.cfg.PriorDecay, p.log)
	st = &symbolState{
		matcher: patterns.NewMatcher(patterns.DefaultCatalog(), p.log),
		tracker: tracker,
		engine: confidence.NewEngine(
			confidence.Config{LatencyBudget: p.cfg.LatencyBudget},
			tracker,
			regime.NewDetector(),
			p.metrics,
			p.log,
		),
	}
	p.states[symbol] = st
	return st
}

// append pushes the tick into the rolling windows, oldest out first.
func (s *symbolState) append(t *models.MarketTick, window int) {
	s.tape = append(s.tape, t.Entry)
	if len(s.tape) > window {
		s.tape = s.tape[len(s.tape)-window:]
	}
	s.volumes = append(s.volumes, t.Entry.Volume)
	if len(s.volumes) > window {
		s.volumes = s.volumes[len(s.volumes)-window:]
	}
	if t.Book != nil {
		s.prevBook = s.book
		s.book = t.Book
	}
	if len(t.Profile) > 0 {
		s.profile = t.Profile
	}
}

// reading assembles the current market state, deriving what the feed did
// not provide from the rolling windows.
func (s *symbolState) reading(t *models.MarketTick) models.MarketReading {
	r := models.MarketReading{
		Symbol:     t.Entry.Symbol,
		Timestamp:  t.Entry.Timestamp,
		Price:      t.Entry.Price,
		Volume:     t.Entry.Volume,
		AvgVolume:  t.AvgVolume,
		Spread:     t.Spread,
		Volatility: t.Volatility,
		Liquidity:  t.Liquidity,
		Phase:      t.Phase,
	}
	if r.AvgVolume <= 0 && len(s.volumes) > 0 {
		r.AvgVolume = util.Mean(s.volumes)
	}
	if r.Volatility <= 0 && len(s.tape) >= 2 {
		rets := make([]float64, 0, len(s.tape)-1)
		for i := 1; i < len(s.tape); i++ {
			if prev := s.tape[i-1].Price; prev != 0 {
				rets = append(rets, (s.tape[i].Price-prev)/prev)
			}
		}
		r.Volatility = util.StdDev(rets)
	}
	if s.book != nil {
		if r.Spread <= 0 && len(s.book.Bids) > 0 && len(s.book.Asks) > 0 {
			r.Spread = s.book.Asks[0].Price - s.book.Bids[0].Price
		}
		r.BookImbalance = depthImbalance(s.book)
	}
	if r.Liquidity == "" {
		r.Liquidity = models.LiquidityMedium
	}
	return r
}

func depthImbalance(book *models.OrderBookSnapshot) float64 {
	var bid, ask float64
	for _, l := range book.Bids {
		bid += l.Size
	}
	for _, l := range book.Asks {
		ask += l.Size
	}
	if bid+ask == 0 {
		return 0
	}
	return (bid - ask) / (bid + ask)
}
