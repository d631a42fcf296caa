package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memoryItem struct {
	value    interface{}
	expireAt time.Time
}

func (it *memoryItem) expired(now time.Time) bool {
	return now.After(it.expireAt)
}

// MemoryCache implements Service in-process with LRU eviction. It is the
// default backend for single-instance deployments, where the working set
// is a handful of short-lived dedupe keys and cached results per symbol.
type MemoryCache struct {
	mu      sync.RWMutex
	items   map[string]*memoryItem
	touched map[string]time.Time
	maxSize int
	sweeper *time.Ticker
}

// NewMemoryCache creates an in-memory cache and starts its expiry sweeper.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         4096,
		CleanupInterval: time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		items:   make(map[string]*memoryItem),
		touched: make(map[string]time.Time),
		maxSize: cfg.MaxSize,
		sweeper: time.NewTicker(cfg.CleanupInterval),
	}
	go mc.sweep()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	now := time.Now()
	expireAt := now.Add(expiration)
	if expiration <= 0 {
		expireAt = now.Add(24 * time.Hour)
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if len(mc.items) >= mc.maxSize {
		mc.evictOldest()
	}
	mc.items[key] = &memoryItem{value: value, expireAt: expireAt}
	mc.touched[key] = now
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	now := time.Now()

	mc.mu.Lock()
	defer mc.mu.Unlock()

	it, ok := mc.items[key]
	if !ok || it.expired(now) {
		if ok {
			delete(mc.items, key)
			delete(mc.touched, key)
		}
		return ErrCacheMiss
	}
	mc.touched[key] = now

	switch d := dest.(type) {
	case *string:
		if s, ok := it.value.(string); ok {
			*d = s
			return nil
		}
	case *interface{}:
		*d = it.value
		return nil
	}

	// Struct destinations go through JSON, matching the Redis tier, so
	// callers see one decode behavior regardless of backend.
	b, err := json.Marshal(it.value)
	if err != nil {
		return fmt.Errorf("cache: unsupported destination type %T", dest)
	}
	return json.Unmarshal(b, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for _, key := range keys {
		delete(mc.items, key)
		delete(mc.touched, key)
	}
	return nil
}

// DeleteByPattern drops everything. The in-memory backend has no key
// scanning, and the only caller uses it to invalidate a whole namespace.
func (mc *MemoryCache) DeleteByPattern(_ context.Context, _ string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.items = make(map[string]*memoryItem)
	mc.touched = make(map[string]time.Time)
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	now := time.Now()

	mc.mu.RLock()
	defer mc.mu.RUnlock()

	for _, key := range keys {
		if it, ok := mc.items[key]; ok && !it.expired(now) {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) Increment(_ context.Context, key string) (int64, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	it, ok := mc.items[key]
	if !ok {
		mc.items[key] = &memoryItem{value: int64(1), expireAt: time.Now().Add(24 * time.Hour)}
		return 1, nil
	}
	v, ok := it.value.(int64)
	if !ok {
		return 0, fmt.Errorf("cache: value at %q is not a counter", key)
	}
	it.value = v + 1
	return v + 1, nil
}

func (mc *MemoryCache) Expire(_ context.Context, key string, expiration time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if it, ok := mc.items[key]; ok {
		it.expireAt = time.Now().Add(expiration)
		return true, nil
	}
	return false, nil
}

func (mc *MemoryCache) MSet(ctx context.Context, values map[string]interface{}, expiration time.Duration) error {
	for key, value := range values {
		if err := mc.Set(ctx, key, value, expiration); err != nil {
			return err
		}
	}
	return nil
}

func (mc *MemoryCache) MGet(_ context.Context, keys ...string) (map[string]string, error) {
	now := time.Now()

	mc.mu.RLock()
	defer mc.mu.RUnlock()

	results := make(map[string]string)
	for _, key := range keys {
		if it, ok := mc.items[key]; ok && !it.expired(now) {
			if s, ok := it.value.(string); ok {
				results[key] = s
			}
		}
	}
	return results, nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now()

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if it, ok := mc.items[key]; ok && !it.expired(now) {
		return false, nil
	}
	mc.items[key] = &memoryItem{value: "locked", expireAt: now.Add(ttl)}
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

// evictOldest drops the least recently touched key. Caller holds mu.
func (mc *MemoryCache) evictOldest() {
	var oldestKey string
	oldestTime := time.Now()

	for key, at := range mc.touched {
		if at.Before(oldestTime) {
			oldestTime = at
			oldestKey = key
		}
	}
	if oldestKey != "" {
		delete(mc.items, oldestKey)
		delete(mc.touched, oldestKey)
	}
}

func (mc *MemoryCache) sweep() {
	for range mc.sweeper.C {
		now := time.Now()

		mc.mu.Lock()
		for key, it := range mc.items {
			if it.expired(now) {
				delete(mc.items, key)
				delete(mc.touched, key)
			}
		}
		mc.mu.Unlock()
	}
}

// Close stops the expiry sweeper.
func (mc *MemoryCache) Close() error {
	if mc.sweeper != nil {
		mc.sweeper.Stop()
	}
	return nil
}
