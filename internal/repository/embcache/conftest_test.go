package embcache

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/regassist/internal/db"
	"github.com/kailas-cloud/regassist/internal/domain"
)

type mockEmbedder struct {
	mu     sync.Mutex
	result domain.EmbeddingResult
	err    error
	calls  int
	gate   chan struct{} // when set, Embed blocks until it is closed
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.gate != nil {
		<-m.gate
	}
	return m.result, m.err
}

// mockKVStore records keys and the last TTL it was given.
type mockKVStore struct {
	getFn   func(ctx context.Context, key string) ([]byte, error)
	putFn   func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	keys    []string
	lastTTL time.Duration
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.keys = append(m.keys, key)
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.lastTTL = ttl
	if m.putFn != nil {
		return m.putFn(ctx, key, value, ttl)
	}
	return nil
}

func newTestCachedEmbedder(t *testing.T, inner *mockEmbedder, ttl time.Duration) (*CachedEmbedder, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	ce := New(inner, ms, Config{Model: "test-model", TTL: ttl}, zap.NewNop())
	return ce, ms
}
