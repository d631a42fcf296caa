package usecase

import (
	"context"
	"testing"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
)

func newOutcomeFixture() (*OutcomeUseCase, *memStore) {
	store := &memStore{}
	proc := newTestProcessor("clickhouse", store, &memPublisher{})
	return NewOutcomeUseCase(proc, store, newMemMetrics()), store
}

func TestRecordOutcome(t *testing.T) {
	uc, store := newOutcomeFixture()

	o := &models.SignalOutcome{Symbol: "WINZ25", Confidence: 0.7, Outcome: models.OutcomeWin}
	if err := uc.Record(context.Background(), o); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(store.outcomes) != 1 {
		t.Fatalf("stored outcomes = %d, want 1", len(store.outcomes))
	}
	if o.RecordedAt.IsZero() {
		t.Fatal("RecordedAt not defaulted")
	}

	snap := uc.Performance("WINZ25")
	if snap.TotalSignals != 1 || snap.Correct != 1 {
		t.Fatalf("snapshot total=%d correct=%d, want 1/1", snap.TotalSignals, snap.Correct)
	}
}

func TestRecordOutcomeValidation(t *testing.T) {
	uc, _ := newOutcomeFixture()

	if err := uc.Record(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil outcome")
	}
	if err := uc.Record(context.Background(), &models.SignalOutcome{Outcome: models.OutcomeWin}); err == nil {
		t.Fatal("expected error for missing symbol")
	}
	err := uc.Record(context.Background(), &models.SignalOutcome{Symbol: "WINZ25", Outcome: "draw"})
	if err == nil {
		t.Fatal("expected error for unknown outcome label")
	}
}

func TestOutcomesKafkaHandler(t *testing.T) {
	uc, store := newOutcomeFixture()
	h := NewKafkaOutcomesHandler("tape.outcomes", uc, newMemMetrics())

	if h.Topic() != "tape.outcomes" {
		t.Fatalf("topic = %q", h.Topic())
	}

	msg := []byte(`{"symbol":"WINZ25","confidence":0.65,"outcome":"loss","t":1741946400000}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(store.outcomes) != 1 {
		t.Fatalf("stored outcomes = %d, want 1", len(store.outcomes))
	}
	got := store.outcomes[0]
	if got.Outcome != models.OutcomeLoss || got.Confidence != 0.65 {
		t.Fatalf("outcome = %+v", got)
	}
	if got.RecordedAt.UnixMilli() != 1741946400000 {
		t.Fatalf("recorded at = %v", got.RecordedAt)
	}
}

func TestOutcomesKafkaHandlerBadPayload(t *testing.T) {
	uc, _ := newOutcomeFixture()
	m := newMemMetrics()
	h := NewKafkaOutcomesHandler("tape.outcomes", uc, m)

	if err := h.Handle(context.Background(), []byte("{not json")); err == nil {
		t.Fatal("expected unmarshal error")
	}
	if m.errorCount("outcome_unmarshal") != 1 {
		t.Fatalf("outcome_unmarshal errors = %d, want 1", m.errorCount("outcome_unmarshal"))
	}
}
