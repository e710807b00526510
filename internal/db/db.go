// Package db defines the key-value store contract used for the embedding
// cache and budget counters. Clustering results themselves are never
// persisted; only derived, re-creatable data lives behind this interface.
package db

import (
	"context"
	"time"
)

// Store is the database facade. Consumers should depend on the narrow
// sub-interfaces (Pinger, KVStore) rather than the facade.
type Store interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}
