package regime

import (
	"testing"
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
)

var testNow = time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)

func TestDefaultRegimeWithShortSeries(t *testing.T) {
	d := NewDetector()
	r := d.Detect([]float64{100, 100.1, 100.2}, models.MarketReading{Timestamp: testNow})
	if r.Type != models.RegimeQuiet {
		t.Fatalf("regime = %s, want quiet default", r.Type)
	}
	if r.Confidence != 0.5 {
		t.Fatalf("confidence = %v, want 0.5 default", r.Confidence)
	}
}

func TestClassifyQuietVolatileBoundary(t *testing.T) {
	// relative range 0.0015 + volatility 0.008 -> quiet
	r := classify(0.0015, 0.008, 0, false)
	if r.Type != models.RegimeQuiet {
		t.Fatalf("regime = %s, want quiet", r.Type)
	}
	if r.Confidence != 0.8 {
		t.Fatalf("quiet confidence = %v", r.Confidence)
	}

	// same range, volatility raised to 0.035 -> volatile
	r = classify(0.0015, 0.035, 0, false)
	if r.Type != models.RegimeVolatile {
		t.Fatalf("regime = %s, want volatile", r.Type)
	}
	if r.Confidence != 0.7 {
		t.Fatalf("volatile confidence = %v", r.Confidence)
	}
}

func TestClassifyTrendingSuppressedBySpike(t *testing.T) {
	r := classify(0.004, 0.02, 0.006, false)
	if r.Type != models.RegimeTrending {
		t.Fatalf("regime = %s, want trending", r.Type)
	}
	// same trend with a volume spike skips the trending branch
	r = classify(0.004, 0.02, 0.006, true)
	if r.Type == models.RegimeTrending {
		t.Fatalf("volume spike must suppress trending")
	}
}

func TestClassifyBreakout(t *testing.T) {
	r := classify(0.005, 0.02, 0.004, true)
	if r.Type != models.RegimeBreakout {
		t.Fatalf("regime = %s, want breakout", r.Type)
	}
	if r.Confidence != 0.8 {
		t.Fatalf("breakout confidence = %v", r.Confidence)
	}
}

func TestClassifyRangingFallback(t *testing.T) {
	r := classify(0.004, 0.02, 0.001, false)
	if r.Type != models.RegimeRanging {
		t.Fatalf("regime = %s, want ranging", r.Type)
	}
	if r.Confidence != 0.6 {
		t.Fatalf("ranging confidence = %v", r.Confidence)
	}
}

func TestTrendingFromRealSeries(t *testing.T) {
	d := NewDetector()
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100 + float64(i)*0.1 // steady climb, ~3% total
	}
	r := d.Detect(prices, models.MarketReading{Timestamp: testNow})
	if r.Type != models.RegimeTrending {
		t.Fatalf("regime = %s, want trending", r.Type)
	}
}

func TestHistoryIsBounded(t *testing.T) {
	d := NewDetector()
	for i := 0; i < historySize+20; i++ {
		d.Detect(nil, models.MarketReading{Timestamp: testNow})
	}
	if got := len(d.History()); got != historySize {
		t.Fatalf("history length = %d, want %d", got, historySize)
	}
}
