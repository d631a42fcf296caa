package patterns

import (
	"errors"
	"testing"
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
)

// syntheticCatalog builds templates whose reference vectors can be matched
// exactly by handing the same vectors back as current features.
func syntheticCatalog() []models.PatternTemplate {
	ref := map[models.FeatureCategory][]float64{
		models.CategoryPriceAction: {0.5, 0.5, 0.1, 0.1, 0.5, 0.2, 1, 0},
		models.CategoryOrderFlow:   {0.4, 0.6, 0.4, 0.2, 0.2, 0.1, 0.6, 0.4},
	}
	return []models.PatternTemplate{
		{
			ID: "tpl-a", Name: "exact_match", Category: models.PatternTape,
			Timeframe: time.Minute, MinDataPoints: 5,
			Params:  map[string]float64{"confidence_required": 0.9},
			Weights: map[models.FeatureCategory]float64{models.CategoryPriceAction: 0.5, models.CategoryOrderFlow: 0.5},
			Reference: ref, HistoricalAccuracy: 0.8,
		},
		{
			ID: "tpl-b", Name: "needs_more_data", Category: models.PatternTape,
			Timeframe: time.Minute, MinDataPoints: 500,
			Params:  map[string]float64{"confidence_required": 0.1},
			Weights: map[models.FeatureCategory]float64{models.CategoryPriceAction: 1},
			Reference: ref, HistoricalAccuracy: 0.9,
		},
	}
}

func TestCatalogExactMatch(t *testing.T) {
	m := NewMatcher(syntheticCatalog(), nil)
	fs := models.FeatureSet{
		PriceAction: []float64{0.5, 0.5, 0.1, 0.1, 0.5, 0.2, 1, 0},
		OrderFlow:   []float64{0.4, 0.6, 0.4, 0.2, 0.2, 0.1, 0.6, 0.4},
	}
	matches := m.matchCatalog(fs, flatTape(10, 100, 10), testNow)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	got := matches[0]
	if got.Name != "exact_match" {
		t.Fatalf("name = %s", got.Name)
	}
	if got.Confidence < 0.99 {
		t.Fatalf("identical vectors should score ~1, got %v", got.Confidence)
	}
	if got.Probability < 0.79 || got.Probability > 0.81 {
		t.Fatalf("probability = confidence x accuracy, got %v", got.Probability)
	}
	if got.ID == "" {
		t.Fatalf("match must carry an id")
	}
}

func TestCatalogMinDataPointsGate(t *testing.T) {
	m := NewMatcher(syntheticCatalog(), nil)
	fs := models.FeatureSet{PriceAction: []float64{0.5, 0.5, 0.1, 0.1, 0.5, 0.2, 1, 0}}
	matches := m.matchCatalog(fs, flatTape(3, 100, 10), testNow)
	if len(matches) != 0 {
		t.Fatalf("short tape should match nothing, got %d", len(matches))
	}
}

func TestCatalogTopNCap(t *testing.T) {
	catalog := make([]models.PatternTemplate, 0, 8)
	ref := map[models.FeatureCategory][]float64{models.CategoryTechnical: {1, 0.5, 0.5, 0}}
	for i := 0; i < 8; i++ {
		catalog = append(catalog, models.PatternTemplate{
			ID: string(rune('a' + i)), Name: "tpl", Category: models.PatternTape,
			Timeframe: time.Minute, MinDataPoints: 1,
			Params:  map[string]float64{"confidence_required": 0.5},
			Weights: map[models.FeatureCategory]float64{models.CategoryTechnical: 1},
			Reference: ref, HistoricalAccuracy: 0.5,
		})
	}
	m := NewMatcher(catalog, nil)
	fs := models.FeatureSet{Technical: []float64{1, 0.5, 0.5, 0}}
	matches := m.matchCatalog(fs, flatTape(5, 100, 10), testNow)
	if len(matches) != 5 {
		t.Fatalf("expected top-5 cap, got %d", len(matches))
	}
}

func TestDetectorPanicFailsClosed(t *testing.T) {
	m := NewMatcher(nil, nil)
	got, err := m.runDetector("boom", func() *models.PatternMatch {
		panic("detector bug")
	})
	if got != nil {
		t.Fatalf("panicking detector must yield no match")
	}

	var pae *PatternAnalysisError
	if !errors.As(err, &pae) {
		t.Fatalf("err = %v, want PatternAnalysisError", err)
	}
	if pae.Detector != "boom" {
		t.Fatalf("detector = %q", pae.Detector)
	}
	if errors.Unwrap(pae) == nil {
		t.Fatal("cause not preserved")
	}
}

func TestPOCShiftRequiresHistory(t *testing.T) {
	m := NewMatcher(nil, nil)
	profile := []models.VolumeProfileBucket{{Price: 100, Volume: 50}, {Price: 101, Volume: 10}}
	if got := m.detectPOCShift(profile, testNow); got != nil {
		t.Fatalf("first call has no history, want nil")
	}
	shifted := []models.VolumeProfileBucket{{Price: 100, Volume: 10}, {Price: 103, Volume: 50}}
	got := m.detectPOCShift(shifted, testNow)
	if got == nil {
		t.Fatalf("expected POC shift match")
	}
	if got.Params["shift"] != 3 {
		t.Fatalf("shift = %v", got.Params["shift"])
	}
}

func TestMatchEndToEndAbsorptionScenario(t *testing.T) {
	m := NewMatcher(DefaultCatalog(), nil)
	tape := flatTape(60, 100, 10)
	for i := 50; i < 60; i++ {
		tape[i].Volume = 20
	}
	book := &models.OrderBookSnapshot{
		Bids: []models.BookLevel{{Price: 99.5, Size: 10}, {Price: 99, Size: 10}},
		Asks: []models.BookLevel{{Price: 100.5, Size: 10}, {Price: 101, Size: 10}},
	}
	matches := m.Match(models.FeatureSet{}, tape, book, nil, nil, testNow)

	var absorption *models.PatternMatch
	for i := range matches {
		if matches[i].Name == "absorption" {
			absorption = &matches[i]
		}
	}
	if absorption == nil {
		t.Fatalf("expected an absorption match, got %v", names(matches))
	}
	if absorption.Confidence < 0.7 {
		t.Fatalf("absorption confidence = %v", absorption.Confidence)
	}
}

func TestActiveOnlyFiltersExpired(t *testing.T) {
	matches := []models.PatternMatch{
		{Name: "fresh", ExpiresAt: testNow.Add(time.Minute)},
		{Name: "stale", ExpiresAt: testNow.Add(-time.Second)},
	}
	got := ActiveOnly(matches, testNow)
	if len(got) != 1 || got[0].Name != "fresh" {
		t.Fatalf("expected only the fresh match, got %v", names(got))
	}
}

func names(ms []models.PatternMatch) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Name
	}
	return out
}
