package quota

import (
	"context"
	"sync"
	"time"

	domquota "github.com/kailas-cloud/regassist/internal/domain/quota"
)

// --- Mock: CounterStore ---

type mockStore struct {
	mu       sync.Mutex
	counters map[string]int64
	err      error
	reserves int
	releases int
	periods  map[string]domquota.Period
	// honorCtx fails calls on a done context, like a network client does.
	honorCtx bool
}

func newMockStore() *mockStore {
	return &mockStore{counters: make(map[string]int64), periods: make(map[string]domquota.Period)}
}

func (m *mockStore) Reserve(_ context.Context, key string, period domquota.Period, limit int64) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reserves++
	m.periods[key] = period
	if m.err != nil {
		return 0, false, m.err
	}
	if limit >= 0 && m.counters[key] >= limit {
		return m.counters[key], false, nil
	}
	m.counters[key]++
	return m.counters[key], true, nil
}

func (m *mockStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases++
	if m.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	if m.err != nil {
		return m.err
	}
	if m.counters[key] > 0 {
		m.counters[key]--
	}
	return nil
}

func (m *mockStore) IncrBy(_ context.Context, key string, period domquota.Period, val int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.periods[key] = period
	if m.err != nil {
		return m.err
	}
	m.counters[key] += val
	return nil
}

func (m *mockStore) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return m.counters[key], nil
}

type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }
