package usecase

import (
	"context"
	"testing"
	"time"
)

func TestGetHistory(t *testing.T) {
	store := &memStore{}
	for i := 0; i < 3; i++ {
		_ = store.StoreResult(context.Background(), testResult("WINZ25"))
	}
	_ = store.StoreResult(context.Background(), testResult("WDOZ25"))

	uc := NewHistoryUseCase(store)
	res, err := uc.GetHistory(context.Background(), GetHistoryParams{Symbol: "WINZ25"})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if res.Count != 3 || len(res.Signals) != 3 {
		t.Fatalf("count = %d signals = %d, want 3", res.Count, len(res.Signals))
	}
	for _, s := range res.Signals {
		if s.Symbol != "WINZ25" {
			t.Fatalf("foreign symbol %q in history", s.Symbol)
		}
	}
	if res.To.IsZero() {
		t.Fatal("To not defaulted")
	}
}

func TestGetHistoryValidation(t *testing.T) {
	uc := NewHistoryUseCase(&memStore{})

	if _, err := uc.GetHistory(context.Background(), GetHistoryParams{}); err == nil {
		t.Fatal("expected error for missing symbol")
	}

	now := time.Now()
	_, err := uc.GetHistory(context.Background(), GetHistoryParams{
		Symbol: "WINZ25",
		From:   now,
		To:     now.Add(-time.Hour),
	})
	if err == nil {
		t.Fatal("expected error for inverted range")
	}
}

func TestGetHistoryLimitBounds(t *testing.T) {
	store := &memStore{}
	uc := NewHistoryUseCase(store)

	if _, err := uc.GetHistory(context.Background(), GetHistoryParams{Symbol: "WINZ25"}); err != nil {
		t.Fatalf("history: %v", err)
	}
	if store.lastLimit != 100 {
		t.Fatalf("default limit = %d, want 100", store.lastLimit)
	}

	if _, err := uc.GetHistory(context.Background(), GetHistoryParams{Symbol: "WINZ25", Limit: 99999}); err != nil {
		t.Fatalf("history: %v", err)
	}
	if store.lastLimit != 5000 {
		t.Fatalf("capped limit = %d, want 5000", store.lastLimit)
	}
}

func TestAggregatorFallsBackToStore(t *testing.T) {
	store := &memStore{}
	want := testResult("WINZ25")
	_ = store.StoreResult(context.Background(), want)

	proc := newTestProcessor("clickhouse", &memStore{}, &memPublisher{})
	agg := NewSignalAggregator(proc, store)

	got, err := agg.LatestConfidence(context.Background(), "WINZ25")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got != want {
		t.Fatal("expected stored result")
	}

	if _, err := agg.LatestConfidence(context.Background(), "UNKNOWN"); err == nil {
		t.Fatal("expected error for unseen symbol")
	}
}

func TestAggregatorPrefersLiveState(t *testing.T) {
	store := &memStore{}
	proc := newTestProcessor("clickhouse", store, &memPublisher{})
	for i := 0; i < 5; i++ {
		if err := proc.Process(context.Background(), testTick("WINZ25", i)); err != nil {
			t.Fatalf("process: %v", err)
		}
	}

	agg := NewSignalAggregator(proc, &memStore{}) // empty store on purpose
	res, err := agg.LatestConfidence(context.Background(), "WINZ25")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if res != proc.Latest("WINZ25") {
		t.Fatal("expected the live result, not a store read")
	}
}

func TestSnapshotAggregation(t *testing.T) {
	store := &memStore{}
	proc := newTestProcessor("clickhouse", store, &memPublisher{})
	for i := 0; i < 5; i++ {
		if err := proc.Process(context.Background(), testTick("WINZ25", i)); err != nil {
			t.Fatalf("process: %v", err)
		}
	}

	uc := NewSnapshotUseCase(NewSignalAggregator(proc, store))
	snap, err := uc.GetSnapshot(context.Background(), "WINZ25")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Confidence == nil {
		t.Fatal("snapshot missing confidence")
	}
	if snap.Regime == nil {
		t.Fatal("snapshot missing regime")
	}
	if snap.Performance == nil {
		t.Fatal("snapshot missing performance")
	}
	if snap.Errors != nil {
		t.Fatalf("unexpected partial errors: %v", snap.Errors)
	}
}

func TestSnapshotRequiresSymbol(t *testing.T) {
	uc := NewSnapshotUseCase(NewSignalAggregator(newTestProcessor("clickhouse", &memStore{}, &memPublisher{}), &memStore{}))
	if _, err := uc.GetSnapshot(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty symbol")
	}
}

func TestSnapshotPartialErrors(t *testing.T) {
	proc := newTestProcessor("clickhouse", &memStore{}, &memPublisher{})
	uc := NewSnapshotUseCase(NewSignalAggregator(proc, &memStore{}))

	snap, err := uc.GetSnapshot(context.Background(), "COLD")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Errors == nil {
		t.Fatal("expected partial errors for a symbol with no signals")
	}
	if snap.Performance == nil {
		t.Fatal("performance should still be present")
	}
}
