package patterns

import (
	"testing"
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
)

var testNow = time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)

func flatTape(n int, price, vol float64) []models.TapeEntry {
	out := make([]models.TapeEntry, 0, n)
	for i := 0; i < n; i++ {
		side := models.AggressorBuyer
		if i%2 == 1 {
			side = models.AggressorSeller
		}
		out = append(out, models.TapeEntry{
			Timestamp: testNow.Add(time.Duration(i-n) * time.Second),
			Price:     price,
			Volume:    vol,
			Aggressor: side,
		})
	}
	return out
}

func TestAbsorptionDetectedOnVolumeClusterAtStablePrice(t *testing.T) {
	tape := flatTape(60, 100, 10)
	for i := 50; i < 60; i++ {
		tape[i].Volume = 20 // 2x average burst, price unchanged
	}
	m := detectAbsorption(tape, testNow)
	if m == nil {
		t.Fatalf("expected absorption match")
	}
	if m.Name != "absorption" {
		t.Fatalf("name = %s", m.Name)
	}
	if m.Confidence < 0.7 {
		t.Fatalf("confidence = %v, want >= 0.7", m.Confidence)
	}
	if !m.ExpiresAt.Equal(testNow.Add(2 * time.Minute)) {
		t.Fatalf("expiry = %v", m.ExpiresAt)
	}
}

func TestAbsorptionNoMatchWithoutCluster(t *testing.T) {
	if m := detectAbsorption(flatTape(60, 100, 10), testNow); m != nil {
		t.Fatalf("uniform volume should not match, got confidence %v", m.Confidence)
	}
}

func TestAbsorptionInsufficientData(t *testing.T) {
	if m := detectAbsorption(flatTape(19, 100, 10), testNow); m != nil {
		t.Fatalf("expected nil for short tape")
	}
}

func icebergTape(n int) []models.TapeEntry {
	tape := flatTape(n, 100, 7) // same rounded size bucket throughout
	for i := range tape {
		tape[i].Price = 100 + float64(i%3) // three price buckets, n/3 touches each
	}
	return tape
}

func TestIcebergDetected(t *testing.T) {
	m := detectIceberg(icebergTape(15), testNow)
	if m == nil {
		t.Fatalf("expected iceberg match")
	}
	if m.Confidence < 0.7 {
		t.Fatalf("confidence = %v", m.Confidence)
	}
	if m.Params["modal_size_repeats"] < 5 {
		t.Fatalf("modal repeats = %v", m.Params["modal_size_repeats"])
	}
}

func TestIcebergRequiresFifteenEntries(t *testing.T) {
	if m := detectIceberg(icebergTape(14), testNow); m != nil {
		t.Fatalf("14 entries must return nil regardless of content")
	}
}

func TestIcebergRequiresModalRepeats(t *testing.T) {
	tape := icebergTape(15)
	for i := range tape {
		tape[i].Volume = float64(10 + i) // all distinct size buckets
	}
	if m := detectIceberg(tape, testNow); m != nil {
		t.Fatalf("scattered sizes should not match")
	}
}

func TestAggressiveEntryDetected(t *testing.T) {
	tape := flatTape(15, 100, 10)
	for i := range tape {
		tape[i].Timestamp = testNow.Add(time.Duration(i-15) * 200 * time.Millisecond)
		tape[i].IsLarge = true
		tape[i].Aggressor = models.AggressorBuyer
	}
	m := detectAggressiveEntry(tape, testNow)
	if m == nil {
		t.Fatalf("expected aggressive entry match")
	}
	if m.Params["direction"] != 1 {
		t.Fatalf("direction = %v, want buy side", m.Params["direction"])
	}
}

func TestHiddenOrdersDetected(t *testing.T) {
	tape := flatTape(30, 100, 2) // small, perfectly consistent prints
	m := detectHiddenOrders(tape, testNow)
	if m == nil {
		t.Fatalf("expected hidden orders match")
	}
	if m.Confidence < 0.6 {
		t.Fatalf("confidence = %v", m.Confidence)
	}
}

func TestVolumeClusterConcentration(t *testing.T) {
	profile := []models.VolumeProfileBucket{
		{Price: 100, Volume: 50},
		{Price: 101, Volume: 40},
		{Price: 102, Volume: 30},
		{Price: 103, Volume: 10},
		{Price: 104, Volume: 10},
	}
	m := detectVolumeCluster(profile, testNow)
	if m == nil {
		t.Fatalf("expected volume cluster match")
	}
	if m.Params["cluster_price"] != 100 {
		t.Fatalf("cluster price = %v", m.Params["cluster_price"])
	}

	// spread volume evenly: top-3 share drops below 30%... with even volume
	// the share is 3/n, so use 11 buckets
	even := make([]models.VolumeProfileBucket, 11)
	for i := range even {
		even[i] = models.VolumeProfileBucket{Price: 100 + float64(i), Volume: 10}
	}
	if m := detectVolumeCluster(even, testNow); m != nil {
		t.Fatalf("even profile should not cluster")
	}
}

func TestVolumeGapDetected(t *testing.T) {
	profile := []models.VolumeProfileBucket{
		{Price: 100, Volume: 10},
		{Price: 101, Volume: 10},
		{Price: 106, Volume: 10}, // 5 point hole
	}
	m := detectVolumeGap(profile, testNow)
	if m == nil {
		t.Fatalf("expected volume gap match")
	}
	if m.Params["widest_gap"] != 5 {
		t.Fatalf("widest gap = %v", m.Params["widest_gap"])
	}
}

func TestSpoofingVanishedLevels(t *testing.T) {
	prev := &models.OrderBookSnapshot{
		Bids: []models.BookLevel{{Price: 99, Size: 100}, {Price: 98, Size: 95}, {Price: 97, Size: 10}},
		Asks: []models.BookLevel{{Price: 101, Size: 10}},
	}
	cur := &models.OrderBookSnapshot{
		Bids: []models.BookLevel{{Price: 97, Size: 10}},
		Asks: []models.BookLevel{{Price: 101, Size: 10}},
	}
	m := detectSpoofing(cur, prev, testNow)
	if m == nil {
		t.Fatalf("expected spoofing match")
	}
	if m.Params["vanished_levels"] != 2 {
		t.Fatalf("vanished levels = %v", m.Params["vanished_levels"])
	}
	if m.Timeframe != 30*time.Second {
		t.Fatalf("timeframe = %v", m.Timeframe)
	}
}

func TestSpoofingNeedsPriorSnapshot(t *testing.T) {
	if m := detectSpoofing(&models.OrderBookSnapshot{}, nil, testNow); m != nil {
		t.Fatalf("no prior snapshot should yield nil")
	}
}

func TestLayeringDetected(t *testing.T) {
	bids := []models.BookLevel{
		{Price: 100, Size: 10}, {Price: 99, Size: 10}, {Price: 98, Size: 10},
		{Price: 97, Size: 10}, {Price: 96, Size: 10},
		{Price: 95, Size: 20}, {Price: 94, Size: 20}, {Price: 93, Size: 20},
	}
	m := detectLayering(&models.OrderBookSnapshot{Bids: bids}, testNow)
	if m == nil {
		t.Fatalf("expected layering match")
	}
	if m.Params["layered_levels"] != 3 {
		t.Fatalf("layered levels = %v", m.Params["layered_levels"])
	}
	if m.Params["side"] != 1 {
		t.Fatalf("side = %v, want bid side", m.Params["side"])
	}
}

func TestWallFormationDetected(t *testing.T) {
	asks := []models.BookLevel{
		{Price: 101, Size: 10}, {Price: 102, Size: 10}, {Price: 103, Size: 10},
		{Price: 104, Size: 10}, {Price: 105, Size: 100},
	}
	m := detectWallFormation(&models.OrderBookSnapshot{Asks: asks}, testNow)
	if m == nil {
		t.Fatalf("expected wall match")
	}
	if m.Params["wall_price"] != 105 {
		t.Fatalf("wall price = %v", m.Params["wall_price"])
	}
	if m.Params["side"] != -1 {
		t.Fatalf("side = %v, want ask side", m.Params["side"])
	}
}

func TestWallNoMatchOnBalancedBook(t *testing.T) {
	asks := []models.BookLevel{{Price: 101, Size: 10}, {Price: 102, Size: 12}, {Price: 103, Size: 11}}
	if m := detectWallFormation(&models.OrderBookSnapshot{Asks: asks}, testNow); m != nil {
		t.Fatalf("balanced book should not form a wall")
	}
}
