package features

import (
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/util"
)

// Config holds the rolling window sizes used by the extractor.
type Config struct {
	ShortWindow  int // momentum/velocity window
	MediumWindow int // trend/volatility window
	VolumeShort  int // recent volume window
	VolumeLong   int // trailing volume baseline window
}

// DefaultConfig returns the standard extraction windows.
func DefaultConfig() Config {
	return Config{ShortWindow: 5, MediumWindow: 20, VolumeShort: 10, VolumeLong: 30}
}

// Extractor turns a tape window, the latest order book, and a volume profile
// into fixed-length feature vectors grouped by category. It is a pure
// function of its inputs; missing inputs yield neutral defaults.
type Extractor struct {
	cfg Config
}

// NewExtractor creates an Extractor, filling zero config fields with defaults.
func NewExtractor(cfg Config) *Extractor {
	def := DefaultConfig()
	if cfg.ShortWindow <= 0 {
		cfg.ShortWindow = def.ShortWindow
	}
	if cfg.MediumWindow <= 0 {
		cfg.MediumWindow = def.MediumWindow
	}
	if cfg.VolumeShort <= 0 {
		cfg.VolumeShort = def.VolumeShort
	}
	if cfg.VolumeLong <= 0 {
		cfg.VolumeLong = def.VolumeLong
	}
	return &Extractor{cfg: cfg}
}

// Extract computes all six feature categories for one market update.
// Tape entries are expected oldest-first (most recent last).
func (e *Extractor) Extract(reading models.MarketReading, tape []models.TapeEntry, book *models.OrderBookSnapshot, profile []models.VolumeProfileBucket) models.FeatureSet {
	prices := make([]float64, len(tape))
	volumes := make([]float64, len(tape))
	for i, t := range tape {
		prices[i] = t.Price
		volumes[i] = t.Volume
	}
	return models.FeatureSet{
		PriceAction:   e.priceAction(prices),
		VolumeProfile: e.volumeProfile(prices, volumes),
		OrderFlow:     e.orderFlow(tape),
		TimeSignature: e.timeSignature(reading, tape),
		MarketContext: e.marketContext(reading, book),
		Technical:     e.technical(prices),
	}
}

// priceAction: short/medium momentum, two-window volatility, position in
// range, support/resistance touch density, discretized velocity and
// acceleration. Length 8.
func (e *Extractor) priceAction(prices []float64) []float64 {
	rets := returns(prices)
	shortMom := sumTail(rets, e.cfg.ShortWindow)
	medMom := sumTail(rets, e.cfg.MediumWindow)
	volShort := util.StdDev(tail(rets, e.cfg.ShortWindow))
	volMed := util.StdDev(tail(rets, e.cfg.MediumWindow))

	pos := 0.5
	if len(prices) > 0 {
		lo, hi := minMax(tail(prices, e.cfg.MediumWindow))
		if hi > lo {
			pos = (prices[len(prices)-1] - lo) / (hi - lo)
		}
	}

	touch := touchDensity(tail(prices, e.cfg.MediumWindow))

	vel, acc := 0.0, 0.0
	if n := len(prices); n >= 2 {
		vel = discretize(prices[n-1] - prices[n-2])
		if n >= 3 {
			acc = discretize((prices[n-1] - prices[n-2]) - (prices[n-2] - prices[n-3]))
		}
	}

	return []float64{shortMom, medMom, volShort, volMed, pos, touch, vel, acc}
}

// volumeProfile: recent-vs-trailing volume ratios at two windows, 2x/3x spike
// fractions, quartile dispersion, price/volume Pearson correlation. Length 6.
func (e *Extractor) volumeProfile(prices, volumes []float64) []float64 {
	if len(volumes) == 0 {
		return []float64{1, 1, 0, 0, 0, 0}
	}
	base := util.Mean(tail(volumes, e.cfg.VolumeLong))
	ratioShort := 1.0
	ratioLong := 1.0
	if base > 0 {
		ratioShort = util.Mean(tail(volumes, e.cfg.VolumeShort)) / base
		ratioLong = util.Mean(volumes) / base
	}

	avg := util.Mean(volumes)
	var over2, over3 int
	for _, v := range volumes {
		if avg > 0 && v > 2*avg {
			over2++
		}
		if avg > 0 && v > 3*avg {
			over3++
		}
	}
	n := float64(len(volumes))
	spike2 := float64(over2) / n
	spike3 := float64(over3) / n

	disp := quartileDispersion(volumes)
	corr := util.Pearson(tail(prices, e.cfg.VolumeLong), tail(volumes, e.cfg.VolumeLong))

	return []float64{ratioShort, ratioLong, spike2, spike3, disp, corr}
}

// orderFlow: signed volume imbalance, aggressor ratios, large/dominant/
// absorption fractions, exponentially decayed buy/sell momentum. Length 8.
func (e *Extractor) orderFlow(tape []models.TapeEntry) []float64 {
	if len(tape) == 0 {
		return []float64{0, 0.5, 0.5, 0, 0, 0, 0, 0}
	}
	var buyVol, sellVol float64
	var buyN, sellN, large, dominant, absorb int
	for _, t := range tape {
		switch t.Aggressor {
		case models.AggressorBuyer:
			buyVol += t.Volume
			buyN++
		case models.AggressorSeller:
			sellVol += t.Volume
			sellN++
		}
		if t.IsLarge {
			large++
		}
		if t.IsDominant {
			dominant++
		}
		if t.Absorption {
			absorb++
		}
	}
	n := float64(len(tape))
	imbalance := 0.0
	if buyVol+sellVol > 0 {
		imbalance = (buyVol - sellVol) / (buyVol + sellVol)
	}
	buyRatio := float64(buyN) / n
	sellRatio := float64(sellN) / n

	// Exponentially decayed momentum, most recent weighted highest.
	const decay = 0.9
	var buyMom, sellMom, wsum float64
	w := 1.0
	for i := len(tape) - 1; i >= 0; i-- {
		t := tape[i]
		switch t.Aggressor {
		case models.AggressorBuyer:
			buyMom += w * t.Volume
		case models.AggressorSeller:
			sellMom += w * t.Volume
		}
		wsum += w
		w *= decay
	}
	if wsum > 0 {
		buyMom /= wsum
		sellMom /= wsum
	}
	total := buyMom + sellMom
	if total > 0 {
		buyMom /= total
		sellMom /= total
	}

	return []float64{
		imbalance,
		buyRatio,
		sellRatio,
		float64(large) / n,
		float64(dominant) / n,
		float64(absorb) / n,
		buyMom,
		sellMom,
	}
}

// timeSignature: normalized time of day, market-phase score, tick arrival
// frequency. Length 3.
func (e *Extractor) timeSignature(reading models.MarketReading, tape []models.TapeEntry) []float64 {
	ts := reading.Timestamp
	secs := float64(ts.Hour()*3600 + ts.Minute()*60 + ts.Second())
	timeOfDay := secs / 86400

	phase := 0.5
	switch reading.Phase {
	case models.PhaseOpen:
		phase = 1.0
	case models.PhaseClose:
		phase = 0.7
	case models.PhasePreMarket:
		phase = 0.3
	case models.PhaseAfterHours:
		phase = 0.1
	}

	freq := 0.0
	if len(tape) >= 2 {
		span := tape[len(tape)-1].Timestamp.Sub(tape[0].Timestamp).Seconds()
		if span > 0 {
			freq = float64(len(tape)) / span
		}
	}

	return []float64{timeOfDay, phase, freq}
}

// marketContext: volatility, liquidity score, normalized spread, book
// imbalance. Length 4.
func (e *Extractor) marketContext(reading models.MarketReading, book *models.OrderBookSnapshot) []float64 {
	liq := 0.6
	switch reading.Liquidity {
	case models.LiquidityHigh:
		liq = 1.0
	case models.LiquidityMedium:
		liq = 0.6
	case models.LiquidityLow:
		liq = 0.2
	}

	spread := 0.0
	if reading.Price > 0 {
		spread = util.Clamp01(reading.Spread / reading.Price * 100)
	}

	imbalance := reading.BookImbalance
	if book != nil {
		if v, ok := bookImbalance(book); ok {
			imbalance = v
		}
	}

	return []float64{reading.Volatility, liq, spread, imbalance}
}

// technical: price vs short SMA (binary), position in recent high/low range,
// normalized relative strength, short momentum oscillator. Length 4.
func (e *Extractor) technical(prices []float64) []float64 {
	if len(prices) == 0 {
		return []float64{0, 0.5, 0.5, 0}
	}
	last := prices[len(prices)-1]

	aboveSMA := 0.0
	if sma := util.Mean(tail(prices, e.cfg.ShortWindow)); last > sma {
		aboveSMA = 1.0
	}

	pos := 0.5
	lo, hi := minMax(tail(prices, e.cfg.MediumWindow))
	if hi > lo {
		pos = (last - lo) / (hi - lo)
	}

	rets := tail(returns(prices), e.cfg.MediumWindow)
	var gains, losses float64
	for _, r := range rets {
		if r > 0 {
			gains += r
		} else {
			losses -= r
		}
	}
	rs := 0.5
	if gains+losses > 0 {
		rs = gains / (gains + losses)
	}

	osc := 0.0
	if len(prices) > e.cfg.ShortWindow {
		ref := prices[len(prices)-1-e.cfg.ShortWindow]
		if ref > 0 {
			osc = (last - ref) / ref
		}
	}

	return []float64{aboveSMA, pos, rs, osc}
}

// --- helpers ---

func returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1]
		if prev <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (prices[i]-prev)/prev)
	}
	return out
}

func tail(xs []float64, n int) []float64 {
	if n <= 0 || len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

func sumTail(xs []float64, n int) float64 {
	sum := 0.0
	for _, x := range tail(xs, n) {
		sum += x
	}
	return sum
}

func minMax(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi
}

// touchDensity scores how often prices revisit the edges of their range:
// the fraction of points within 10bps of the window min or max.
func touchDensity(prices []float64) float64 {
	if len(prices) < 3 {
		return 0
	}
	lo, hi := minMax(prices)
	if hi <= lo {
		return 0
	}
	band := hi * 0.001
	touches := 0
	for _, p := range prices {
		if p-lo <= band || hi-p <= band {
			touches++
		}
	}
	return float64(touches) / float64(len(prices))
}

// discretize maps a difference to {-1, 0, 1}.
func discretize(d float64) float64 {
	switch {
	case d > 0:
		return 1
	case d < 0:
		return -1
	default:
		return 0
	}
}

// quartileDispersion returns the interquartile range relative to the median,
// clipped to [0,1].
func quartileDispersion(xs []float64) float64 {
	if len(xs) < 4 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sortFloats(sorted)
	q1 := sorted[len(sorted)/4]
	q2 := sorted[len(sorted)/2]
	q3 := sorted[3*len(sorted)/4]
	if q2 <= 0 {
		return 0
	}
	return util.Clamp01((q3 - q1) / q2)
}

func sortFloats(xs []float64) {
	// insertion sort; windows here are small
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}

// bookImbalance computes depth imbalance from the top levels of a snapshot.
func bookImbalance(book *models.OrderBookSnapshot) (float64, bool) {
	var bid, ask float64
	for _, l := range book.Bids {
		bid += l.Size
	}
	for _, l := range book.Asks {
		ask += l.Size
	}
	if bid+ask == 0 {
		return 0, false
	}
	return (bid - ask) / (bid + ask), true
}
