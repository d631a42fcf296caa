package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
)

type stubProc struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubProc) Process(context.Context, *models.MarketTick) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

func (s *stubProc) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubProc) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

type stubMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newStubMetrics() *stubMetrics { return &stubMetrics{errors: map[string]int{}} }

func (m *stubMetrics) RecordConfidence(string, float64)  {}
func (m *stubMetrics) RecordQuality(string, float64)     {}
func (m *stubMetrics) RecordPatternMatch(string, string) {}
func (m *stubMetrics) RecordLatency(string, float64)     {}
func (m *stubMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *stubMetrics) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func tick(symbol string) *models.MarketTick {
	return &models.MarketTick{Entry: models.TapeEntry{
		Timestamp: time.Now(),
		Symbol:    symbol,
		Price:     100,
		Volume:    10,
	}}
}

func TestPipelineRejectsInvalidTicks(t *testing.T) {
	m := newStubMetrics()
	p := NewRealtimePipeline(&stubProc{}, m)

	cases := []*models.MarketTick{
		nil,
		{Entry: models.TapeEntry{Timestamp: time.Now(), Price: 100}},                               // no symbol
		{Entry: models.TapeEntry{Symbol: "WINZ25", Price: 100}},                                    // no timestamp
		{Entry: models.TapeEntry{Timestamp: time.Now(), Symbol: "WINZ25", Price: -1}},              // negative price
		{Entry: models.TapeEntry{Timestamp: time.Now(), Symbol: "WINZ25", Price: 1, Volume: -0.5}}, // negative volume
	}
	for i, tc := range cases {
		if err := p.Process(context.Background(), tc); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if m.count("pipeline_validate") != len(cases) {
		t.Fatalf("pipeline_validate = %d, want %d", m.count("pipeline_validate"), len(cases))
	}
}

func TestPipelineThrottlesPerSymbol(t *testing.T) {
	proc := &stubProc{}
	m := newStubMetrics()
	p := NewRealtimePipeline(proc, m, WithMaxRPS(1))

	if err := p.Process(context.Background(), tick("WINZ25")); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	// immediate second tick on the same symbol is dropped without error
	if err := p.Process(context.Background(), tick("WINZ25")); err != nil {
		t.Fatalf("throttled tick should not error: %v", err)
	}
	if proc.count() != 1 {
		t.Fatalf("downstream calls = %d, want 1", proc.count())
	}
	if m.count("pipeline_throttle") != 1 {
		t.Fatalf("pipeline_throttle = %d, want 1", m.count("pipeline_throttle"))
	}

	// a different symbol has its own budget
	if err := p.Process(context.Background(), tick("WDOZ25")); err != nil {
		t.Fatalf("other symbol: %v", err)
	}
	if proc.count() != 2 {
		t.Fatalf("downstream calls = %d, want 2", proc.count())
	}
}

func TestPipelineBuffersAndFlushes(t *testing.T) {
	proc := &stubProc{err: errors.New("downstream down")}
	m := newStubMetrics()
	p := NewRealtimePipeline(proc, m, WithBufferSize(10))

	if err := p.Process(context.Background(), tick("WINZ25")); err == nil {
		t.Fatal("expected downstream error")
	}
	if m.count("pipeline_process") != 1 {
		t.Fatalf("pipeline_process = %d, want 1", m.count("pipeline_process"))
	}

	// downstream recovers; the buffered tick is flushed in the background
	proc.setErr(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for proc.count() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("buffered tick never flushed, calls = %d", proc.count())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
