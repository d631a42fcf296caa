package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
)

// in-memory fakes shared by the usecase tests

type memMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newMemMetrics() *memMetrics { return &memMetrics{errors: map[string]int{}} }

func (m *memMetrics) RecordConfidence(string, float64) {}
func (m *memMetrics) RecordQuality(string, float64)    {}
func (m *memMetrics) RecordPatternMatch(string, string) {}
func (m *memMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}
func (m *memMetrics) RecordLatency(string, float64) {}

func (m *memMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

type memStore struct {
	mu        sync.Mutex
	results   []*models.ConfidenceResult
	outcomes  []*models.SignalOutcome
	lastLimit int
	failStore bool
}

func (s *memStore) Init(context.Context) error { return nil }

func (s *memStore) StoreResult(_ context.Context, r *models.ConfidenceResult) error {
	if s.failStore {
		return errors.New("store down")
	}
	s.mu.Lock()
	s.results = append(s.results, r)
	s.mu.Unlock()
	return nil
}

func (s *memStore) StoreOutcome(_ context.Context, o *models.SignalOutcome) error {
	s.mu.Lock()
	s.outcomes = append(s.outcomes, o)
	s.mu.Unlock()
	return nil
}

func (s *memStore) QueryResults(_ context.Context, symbol string, _, _ time.Time, limit int) ([]*models.ConfidenceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLimit = limit
	var out []*models.ConfidenceResult
	for _, r := range s.results {
		if r.Symbol == symbol {
			out = append(out, r)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) Health(context.Context) error { return nil }
func (s *memStore) Close() error                 { return nil }

func (s *memStore) resultCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

type memPublisher struct {
	mu        sync.Mutex
	published []*models.ConfidenceResult
	fail      bool
}

func (p *memPublisher) Publish(_ context.Context, r *models.ConfidenceResult) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.mu.Lock()
	p.published = append(p.published, r)
	p.mu.Unlock()
	return nil
}

func (p *memPublisher) Close() error { return nil }

type memRetryQueue struct {
	mu       sync.Mutex
	enqueued []interface{}
	fail     bool
}

func (q *memRetryQueue) Enqueue(_ context.Context, _ string, payload interface{}) error {
	if q.fail {
		return errors.New("queue down")
	}
	q.mu.Lock()
	q.enqueued = append(q.enqueued, payload)
	q.mu.Unlock()
	return nil
}

func testResult(symbol string) *models.ConfidenceResult {
	return &models.ConfidenceResult{
		Symbol:          symbol,
		Timestamp:       time.Now(),
		FinalConfidence: 0.6,
	}
}

func TestRouteToKafkaBackend(t *testing.T) {
	pub := &memPublisher{}
	store := &memStore{}
	r := NewResultRouter(pub, store, newMemMetrics(), "kafka")

	if err := r.Route(context.Background(), testResult("WINZ25")); err != nil {
		t.Fatalf("route: %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("published = %d, want 1", len(pub.published))
	}
	if store.resultCount() != 0 {
		t.Fatalf("store received %d results, want 0", store.resultCount())
	}
}

func TestRouteToClickHouseBackend(t *testing.T) {
	pub := &memPublisher{}
	store := &memStore{}
	r := NewResultRouter(pub, store, newMemMetrics(), "clickhouse")

	if err := r.Route(context.Background(), testResult("WINZ25")); err != nil {
		t.Fatalf("route: %v", err)
	}
	if store.resultCount() != 1 {
		t.Fatalf("stored = %d, want 1", store.resultCount())
	}
	if len(pub.published) != 0 {
		t.Fatalf("published = %d, want 0", len(pub.published))
	}
}

func TestRouteToBothBackends(t *testing.T) {
	pub := &memPublisher{}
	store := &memStore{}
	r := NewResultRouter(pub, store, newMemMetrics(), "both")

	if err := r.Route(context.Background(), testResult("WDOZ25")); err != nil {
		t.Fatalf("route: %v", err)
	}
	if store.resultCount() != 1 || len(pub.published) != 1 {
		t.Fatalf("stored=%d published=%d, want 1/1", store.resultCount(), len(pub.published))
	}
}

func TestRouteUnknownBackend(t *testing.T) {
	r := NewResultRouter(&memPublisher{}, &memStore{}, newMemMetrics(), "carrier-pigeon")
	if err := r.Route(context.Background(), testResult("WINZ25")); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestRouteNilResult(t *testing.T) {
	r := NewResultRouter(&memPublisher{}, &memStore{}, newMemMetrics(), "kafka")
	if err := r.Route(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil result")
	}
}

func TestRouteDefersToRetryQueueOnFailure(t *testing.T) {
	store := &memStore{failStore: true}
	m := newMemMetrics()
	q := &memRetryQueue{}
	r := NewResultRouter(&memPublisher{}, store, m, "clickhouse")
	r.SetRetryQueue(q)

	if err := r.Route(context.Background(), testResult("WINZ25")); err != nil {
		t.Fatalf("route with retry queue should swallow delivery error, got %v", err)
	}
	if len(q.enqueued) != 1 {
		t.Fatalf("enqueued = %d, want 1", len(q.enqueued))
	}
	if m.errorCount("route_result") != 1 {
		t.Fatalf("route_result errors = %d, want 1", m.errorCount("route_result"))
	}
}

func TestRouteFailsWhenRetryQueueRejects(t *testing.T) {
	store := &memStore{failStore: true}
	m := newMemMetrics()
	r := NewResultRouter(&memPublisher{}, store, m, "clickhouse")
	r.SetRetryQueue(&memRetryQueue{fail: true})

	if err := r.Route(context.Background(), testResult("WINZ25")); err == nil {
		t.Fatal("expected error when delivery and retry enqueue both fail")
	}
	if m.errorCount("route_retry_enqueue") != 1 {
		t.Fatalf("route_retry_enqueue errors = %d, want 1", m.errorCount("route_retry_enqueue"))
	}
}

type countingBroadcaster struct {
	mu sync.Mutex
	n  int
}

func (b *countingBroadcaster) Broadcast(*models.ConfidenceResult) {
	b.mu.Lock()
	b.n++
	b.mu.Unlock()
}

func TestRouteBroadcastsBeforeDelivery(t *testing.T) {
	bc := &countingBroadcaster{}
	r := NewResultRouter(&memPublisher{}, &memStore{failStore: true}, newMemMetrics(), "clickhouse")
	r.SetBroadcaster(bc)

	// live subscribers still see the result even when the backend is down
	_ = r.Route(context.Background(), testResult("WINZ25"))
	if bc.n != 1 {
		t.Fatalf("broadcasts = %d, want 1", bc.n)
	}
}
