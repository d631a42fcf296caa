package cache

import "time"

// BytesCache stores pre-serialized API responses keyed by endpoint and
// symbol. Entries are raw bytes so a hit skips JSON marshaling entirely.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
