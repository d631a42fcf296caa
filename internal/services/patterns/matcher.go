package patterns

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/logger"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/util"
)

const (
	// minimum confidence for catalog matches to be emitted
	defaultMinConfidence = 0.70
	// cap on catalog matches per call, best first
	defaultTopN = 5
	// bounded trailing history of point-of-control prices
	pocHistorySize = 20
)

// Matcher scores the current market state against the template catalog and a
// set of structural detectors. One Matcher serves one instrument; it keeps a
// small trailing POC history for the shift detector but is otherwise
// stateless between calls.
type Matcher struct {
	catalog       []models.PatternTemplate
	log           *logger.Logger
	minConfidence float64
	topN          int
	pocHistory    []float64
}

// NewMatcher creates a Matcher over an injected template catalog.
func NewMatcher(catalog []models.PatternTemplate, log *logger.Logger) *Matcher {
	return &Matcher{
		catalog:       catalog,
		log:           log,
		minConfidence: defaultMinConfidence,
		topN:          defaultTopN,
	}
}

// Match returns zero or more scored pattern matches for the current update.
// Tape entries are oldest-first. prevBook may be nil when no prior snapshot
// exists; profile may be nil. Matches below the minimum confidence are
// dropped and catalog matches are capped to the top N by confidence.
func (m *Matcher) Match(features models.FeatureSet, tape []models.TapeEntry, book, prevBook *models.OrderBookSnapshot, profile []models.VolumeProfileBucket, now time.Time) []models.PatternMatch {
	matches := m.matchCatalog(features, tape, now)

	for _, d := range []struct {
		name string
		fn   func() *models.PatternMatch
	}{
		{"absorption", func() *models.PatternMatch { return detectAbsorption(tape, now) }},
		{"iceberg", func() *models.PatternMatch { return detectIceberg(tape, now) }},
		{"aggressive_entry", func() *models.PatternMatch { return detectAggressiveEntry(tape, now) }},
		{"hidden_orders", func() *models.PatternMatch { return detectHiddenOrders(tape, now) }},
		{"volume_cluster", func() *models.PatternMatch { return detectVolumeCluster(profile, now) }},
		{"poc_shift", func() *models.PatternMatch { return m.detectPOCShift(profile, now) }},
		{"volume_gap", func() *models.PatternMatch { return detectVolumeGap(profile, now) }},
		{"spoofing", func() *models.PatternMatch { return detectSpoofing(book, prevBook, now) }},
		{"layering", func() *models.PatternMatch { return detectLayering(book, now) }},
		{"wall_formation", func() *models.PatternMatch { return detectWallFormation(book, now) }},
	} {
		match, err := m.runDetector(d.name, d.fn)
		if err != nil {
			if m.log != nil {
				m.log.Warn("pattern detector failed", logger.Error(err))
			}
			continue
		}
		if match != nil {
			matches = append(matches, *match)
		}
	}

	return matches
}

// PatternAnalysisError is a detector-level failure that could not be locally
// absorbed. Rare: detectors are designed to fail closed.
type PatternAnalysisError struct {
	Detector string
	Cause    error
}

func (e *PatternAnalysisError) Error() string {
	return fmt.Sprintf("pattern analysis %q failed: %v", e.Detector, e.Cause)
}

func (e *PatternAnalysisError) Unwrap() error { return e.Cause }

// runDetector isolates a single detector: a panic becomes a typed error and
// "no match" so one failing detector cannot block the others.
func (m *Matcher) runDetector(name string, fn func() *models.PatternMatch) (match *models.PatternMatch, err error) {
	defer func() {
		if r := recover(); r != nil {
			match = nil
			err = &PatternAnalysisError{Detector: name, Cause: fmt.Errorf("%v", r)}
		}
	}()
	return fn(), nil
}

// matchCatalog computes a category-weighted cosine similarity between the
// current features and each template's reference vectors. A template matches
// only when enough data points are available and the similarity meets the
// template's own required confidence.
func (m *Matcher) matchCatalog(features models.FeatureSet, tape []models.TapeEntry, now time.Time) []models.PatternMatch {
	current := features.ByCategory()
	var out []models.PatternMatch

	for _, tpl := range m.catalog {
		if len(tape) < tpl.MinDataPoints {
			continue
		}
		sim, ok := templateSimilarity(tpl, current)
		if !ok {
			continue
		}
		if sim < tpl.ConfidenceRequired() || sim < m.minConfidence {
			continue
		}
		out = append(out, models.PatternMatch{
			ID:                uuid.NewString(),
			Name:              tpl.Name,
			Confidence:        sim,
			Probability:       sim * tpl.HistoricalAccuracy,
			HistoricalSuccess: tpl.HistoricalAccuracy,
			Timeframe:         tpl.Timeframe,
			Features:          current,
			Params:            map[string]float64{"similarity": sim},
			DetectedAt:        now,
			ExpiresAt:         now.Add(tpl.Timeframe),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > m.topN {
		out = out[:m.topN]
	}
	return out
}

// templateSimilarity is the weight-normalized sum of per-category cosine
// similarities over the categories present in both the template reference and
// the current features. Returns ok=false when no category overlaps.
func templateSimilarity(tpl models.PatternTemplate, current map[models.FeatureCategory][]float64) (float64, bool) {
	var sum, wsum float64
	for cat, ref := range tpl.Reference {
		cur, ok := current[cat]
		if !ok || len(cur) == 0 || len(ref) == 0 {
			continue
		}
		w := tpl.Weights[cat]
		if w <= 0 {
			continue
		}
		sum += w * util.CosineSimilarity(cur, ref)
		wsum += w
	}
	if wsum == 0 {
		return 0, false
	}
	return util.Clamp01(sum / wsum), true
}

// detectPOCShift reports a >=1 point move of the point of control versus the
// trailing profile history. Stateful: it records the current POC each call.
func (m *Matcher) detectPOCShift(profile []models.VolumeProfileBucket, now time.Time) *models.PatternMatch {
	if len(profile) == 0 {
		return nil
	}
	poc := pointOfControl(profile)
	defer func() {
		m.pocHistory = append(m.pocHistory, poc)
		if len(m.pocHistory) > pocHistorySize {
			m.pocHistory = m.pocHistory[len(m.pocHistory)-pocHistorySize:]
		}
	}()
	if len(m.pocHistory) == 0 {
		return nil
	}
	prev := m.pocHistory[len(m.pocHistory)-1]
	shift := poc - prev
	if shift < 0 {
		shift = -shift
	}
	if shift < 1.0 {
		return nil
	}
	conf := util.Clamp01(0.7 + (shift-1.0)*0.05)
	return newStructuralMatch("poc_shift", conf, 0.64, 10*time.Minute, now, map[string]float64{
		"poc":      poc,
		"prev_poc": prev,
		"shift":    shift,
	})
}

// newStructuralMatch builds a self-contained match for a structural detector.
func newStructuralMatch(name string, confidence, accuracy float64, window time.Duration, now time.Time, params map[string]float64) *models.PatternMatch {
	return &models.PatternMatch{
		ID:                uuid.NewString(),
		Name:              name,
		Confidence:        confidence,
		Probability:       confidence * accuracy,
		HistoricalSuccess: accuracy,
		Timeframe:         window,
		Params:            params,
		DetectedAt:        now,
		ExpiresAt:         now.Add(window),
	}
}

// pointOfControl returns the profile price with the highest traded volume.
func pointOfControl(profile []models.VolumeProfileBucket) float64 {
	best := profile[0]
	for _, b := range profile[1:] {
		if b.Volume > best.Volume {
			best = b
		}
	}
	return best.Price
}

// ActiveOnly filters out matches whose expiry has passed.
func ActiveOnly(matches []models.PatternMatch, now time.Time) []models.PatternMatch {
	out := matches[:0:0]
	for _, m := range matches {
		if !m.Expired(now) {
			out = append(out, m)
		}
	}
	return out
}
