package patterns

import (
	"math"
	"sort"
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/util"
)

// Structural detectors. Each one is an independent, hand-specified check
// with its own threshold and expiry window. Detectors never fail for
// insufficient data: they return nil.

// detectAbsorption looks for large volume traded with minimal resulting
// price movement, implying a resting counter-order absorbing flow.
// Score = 0.6*volume concentration + 0.4*price stability.
func detectAbsorption(tape []models.TapeEntry, now time.Time) *models.PatternMatch {
	if len(tape) < 20 {
		return nil
	}
	recent := tape[len(tape)-10:]

	var totalVol, recentVol float64
	for _, t := range tape {
		totalVol += t.Volume
	}
	for _, t := range recent {
		recentVol += t.Volume
	}
	overallAvg := totalVol / float64(len(tape))
	if overallAvg <= 0 {
		return nil
	}
	ratio := (recentVol / float64(len(recent))) / overallAvg
	concentration := util.Clamp01(ratio - 1)

	lo, hi := recent[0].Price, recent[0].Price
	for _, t := range recent[1:] {
		if t.Price < lo {
			lo = t.Price
		}
		if t.Price > hi {
			hi = t.Price
		}
	}
	mid := (lo + hi) / 2
	stability := 0.0
	if mid > 0 {
		stability = util.Clamp01(1 - (hi-lo)/mid*200)
	}

	score := 0.6*concentration + 0.4*stability
	if score < 0.7 {
		return nil
	}
	return newStructuralMatch("absorption", score, 0.72, 2*time.Minute, now, map[string]float64{
		"volume_ratio":    ratio,
		"price_stability": stability,
	})
}

// detectIceberg looks for a large order disguised as many small, similarly
// sized executions clustered at similar prices. Requires at least 15 prints,
// >=5 repeats of the modal size bucket and >=3 price buckets with >=3
// touches. Score = 0.6*size consistency + 0.4*price clustering.
func detectIceberg(tape []models.TapeEntry, now time.Time) *models.PatternMatch {
	if len(tape) < 15 {
		return nil
	}

	sizeBuckets := make(map[float64]int)
	priceBuckets := make(map[float64]int)
	for _, t := range tape {
		sizeBuckets[math.Round(t.Volume)]++
		priceBuckets[math.Round(t.Price)]++
	}

	modal := 0
	for _, n := range sizeBuckets {
		if n > modal {
			modal = n
		}
	}
	if modal < 5 {
		return nil
	}

	clustered := 0
	for _, n := range priceBuckets {
		if n >= 3 {
			clustered++
		}
	}
	if clustered < 3 {
		return nil
	}

	sizeConsistency := util.Clamp01(float64(modal) / float64(len(tape)) / 0.33)
	priceClustering := util.Clamp01(float64(clustered) / 3)
	score := 0.6*sizeConsistency + 0.4*priceClustering
	if score < 0.7 {
		return nil
	}
	return newStructuralMatch("iceberg", score, 0.68, 5*time.Minute, now, map[string]float64{
		"modal_size_repeats": float64(modal),
		"clustered_prices":   float64(clustered),
	})
}

// detectAggressiveEntry looks for a burst of large/dominant orders with a
// directional skew. Score = 0.4*aggression + 0.3*frequency + 0.3*bias.
func detectAggressiveEntry(tape []models.TapeEntry, now time.Time) *models.PatternMatch {
	if len(tape) < 10 {
		return nil
	}
	window := tape
	if len(window) > 15 {
		window = window[len(window)-15:]
	}

	var aggressive, buys, sells int
	for _, t := range window {
		if t.IsLarge || t.IsDominant {
			aggressive++
		}
		switch t.Aggressor {
		case models.AggressorBuyer:
			buys++
		case models.AggressorSeller:
			sells++
		}
	}
	n := float64(len(window))
	aggression := float64(aggressive) / n

	freq := 0.0
	span := window[len(window)-1].Timestamp.Sub(window[0].Timestamp).Seconds()
	if span > 0 {
		freq = util.Clamp01(n / span / 5)
	}

	bias := 0.0
	if buys+sells > 0 {
		bias = math.Abs(float64(buys-sells)) / float64(buys+sells)
	}

	score := 0.4*aggression + 0.3*freq + 0.3*bias
	if score < 0.7 {
		return nil
	}
	direction := 1.0
	if sells > buys {
		direction = -1.0
	}
	return newStructuralMatch("aggressive_entry", score, 0.65, time.Minute, now, map[string]float64{
		"aggression_ratio": aggression,
		"direction":        direction,
	})
}

// detectHiddenOrders looks for small consistent trade sizes suggesting
// concealed orders feeding the market. Lower threshold (0.6) than the other
// tape detectors. Score = 0.6*size consistency + 0.4*small-print fraction.
func detectHiddenOrders(tape []models.TapeEntry, now time.Time) *models.PatternMatch {
	if len(tape) < 15 {
		return nil
	}
	sizes := make([]float64, len(tape))
	for i, t := range tape {
		sizes[i] = t.Volume
	}
	mean := util.Mean(sizes)
	if mean <= 0 {
		return nil
	}
	cv := util.StdDev(sizes) / mean
	consistency := util.Clamp01(1 - cv)

	small := 0
	for _, t := range tape {
		if !t.IsLarge && t.Volume <= mean {
			small++
		}
	}
	smallFrac := float64(small) / float64(len(tape))

	score := 0.6*consistency + 0.4*smallFrac
	if score < 0.6 {
		return nil
	}
	return newStructuralMatch("hidden_orders", score, 0.62, 3*time.Minute, now, map[string]float64{
		"size_cv":        cv,
		"small_fraction": smallFrac,
	})
}

// detectVolumeCluster fires when the top-3 price buckets of the profile hold
// at least 30% of the traded volume.
func detectVolumeCluster(profile []models.VolumeProfileBucket, now time.Time) *models.PatternMatch {
	if len(profile) < 3 {
		return nil
	}
	sorted := make([]models.VolumeProfileBucket, len(profile))
	copy(sorted, profile)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Volume > sorted[j].Volume })

	var total, top3 float64
	for _, b := range sorted {
		total += b.Volume
	}
	for _, b := range sorted[:3] {
		top3 += b.Volume
	}
	if total <= 0 {
		return nil
	}
	concentration := top3 / total
	if concentration < 0.30 {
		return nil
	}
	conf := util.Clamp01(0.4 + concentration)
	return newStructuralMatch("volume_cluster", conf, 0.66, 5*time.Minute, now, map[string]float64{
		"concentration": concentration,
		"cluster_price": sorted[0].Price,
	})
}

// detectVolumeGap fires on gaps of more than 2 points between adjacent
// non-empty profile buckets.
func detectVolumeGap(profile []models.VolumeProfileBucket, now time.Time) *models.PatternMatch {
	if len(profile) < 2 {
		return nil
	}
	prices := make([]float64, 0, len(profile))
	for _, b := range profile {
		if b.Volume > 0 {
			prices = append(prices, b.Price)
		}
	}
	if len(prices) < 2 {
		return nil
	}
	sort.Float64s(prices)

	gaps := 0
	widest := 0.0
	for i := 1; i < len(prices); i++ {
		gap := prices[i] - prices[i-1]
		if gap > 2.0 {
			gaps++
			if gap > widest {
				widest = gap
			}
		}
	}
	if gaps == 0 {
		return nil
	}
	conf := util.Clamp01(0.7 + 0.1*float64(gaps-1))
	return newStructuralMatch("volume_gap", conf, 0.60, 10*time.Minute, now, map[string]float64{
		"gap_count":   float64(gaps),
		"widest_gap":  widest,
		"lower_bound": prices[0],
	})
}

// detectSpoofing counts large levels (size above 0.8x the side's biggest)
// that disappeared between two consecutive snapshots.
func detectSpoofing(book, prevBook *models.OrderBookSnapshot, now time.Time) *models.PatternMatch {
	if book == nil || prevBook == nil {
		return nil
	}
	events := vanishedLargeLevels(prevBook.Bids, book.Bids) + vanishedLargeLevels(prevBook.Asks, book.Asks)
	if events == 0 {
		return nil
	}
	conf := util.Clamp01(0.5 + 0.15*float64(events))
	if conf < 0.7 {
		return nil
	}
	return newStructuralMatch("spoofing", conf, 0.58, 30*time.Second, now, map[string]float64{
		"vanished_levels": float64(events),
	})
}

func vanishedLargeLevels(prev, cur []models.BookLevel) int {
	if len(prev) == 0 {
		return 0
	}
	maxSize := 0.0
	for _, l := range prev {
		if l.Size > maxSize {
			maxSize = l.Size
		}
	}
	if maxSize <= 0 {
		return 0
	}
	present := make(map[float64]bool, len(cur))
	for _, l := range cur {
		present[l.Price] = true
	}
	events := 0
	for _, l := range prev {
		if l.Size > 0.8*maxSize && !present[l.Price] {
			events++
		}
	}
	return events
}

// detectLayering looks for clusters of levels whose size exceeds 1.5x the
// top-5 average on one side of the book.
func detectLayering(book *models.OrderBookSnapshot, now time.Time) *models.PatternMatch {
	if book == nil {
		return nil
	}
	check := func(levels []models.BookLevel) int {
		avg := topNAverage(levels, 5)
		if avg <= 0 {
			return 0
		}
		count := 0
		for _, l := range levels {
			if l.Size > 1.5*avg {
				count++
			}
		}
		return count
	}
	bidCount := check(book.Bids)
	askCount := check(book.Asks)
	count := bidCount
	side := 1.0
	if askCount > count {
		count = askCount
		side = -1.0
	}
	if count < 3 {
		return nil
	}
	conf := util.Clamp01(0.55 + 0.05*float64(count))
	return newStructuralMatch("layering", conf, 0.57, time.Minute, now, map[string]float64{
		"layered_levels": float64(count),
		"side":           side,
	})
}

// detectWallFormation looks for a single level exceeding 3x the top-5
// average size.
func detectWallFormation(book *models.OrderBookSnapshot, now time.Time) *models.PatternMatch {
	if book == nil {
		return nil
	}
	var wallPrice, wallRatio, side float64
	check := func(levels []models.BookLevel, s float64) {
		avg := topNAverage(levels, 5)
		if avg <= 0 {
			return
		}
		for _, l := range levels {
			if r := l.Size / avg; r > 3 && r > wallRatio {
				wallRatio = r
				wallPrice = l.Price
				side = s
			}
		}
	}
	check(book.Bids, 1.0)
	check(book.Asks, -1.0)
	if wallRatio == 0 {
		return nil
	}
	conf := util.Clamp01(0.65 + 0.1*(wallRatio-3))
	return newStructuralMatch("wall_formation", conf, 0.63, 2*time.Minute, now, map[string]float64{
		"wall_price": wallPrice,
		"size_ratio": wallRatio,
		"side":       side,
	})
}

func topNAverage(levels []models.BookLevel, n int) float64 {
	if len(levels) == 0 {
		return 0
	}
	if len(levels) < n {
		n = len(levels)
	}
	sum := 0.0
	for _, l := range levels[:n] {
		sum += l.Size
	}
	return sum / float64(n)
}
