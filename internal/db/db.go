// Package db declares the key-value contract shared by the quota counters and the embedding cache.
package db

import (
	"context"
	"time"
)

// Store is everything a backend provides. Consumers declare the narrow subset they use.
type Store interface {
	Pinger
	KVStore
	CounterStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore holds opaque byte values.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Put overwrites key. ttl <= 0 stores without expiry.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CounterStore provides integer counters with period TTLs.
type CounterStore interface {
	// Counter returns the value of an integer key, 0 when missing.
	Counter(ctx context.Context, key string) (int64, error)
	// AddCounter adds delta to key and returns the new value. A key without expiry gets ttl;
	// an existing expiry is never pushed back.
	AddCounter(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
	// ReserveCounter increments key by one only when its value is below limit (limit < 0 = unbounded),
	// setting ttl when the key has none. It returns the value after the call and whether it was incremented.
	ReserveCounter(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error)
	// ReleaseCounter decrements key by one, never below zero.
	ReleaseCounter(ctx context.Context, key string) error
}
