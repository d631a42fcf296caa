package ratelimit

import (
	"sync"
	"time"
)

// Limiter implements per-key token buckets. The signals API keys buckets
// by remote address and endpoint so a single chatty client cannot starve
// the read path for everyone else.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

func New() *Limiter {
	return &Limiter{buckets: make(map[string]*bucket)}
}

// Allow consumes one token for key, creating the bucket full on first use.
// Capacity and refill rate are passed per call so endpoints can carry
// different budgets over a shared limiter.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &bucket{
			tokens:     capacity - 1,
			capacity:   capacity,
			refillRate: refillPerSec,
			last:       now,
		}
		return true
	}

	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * b.refillRate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.last = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
