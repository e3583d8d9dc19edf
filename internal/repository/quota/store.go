package quota

import (
	"context"
	"fmt"
	"time"

	domquota "github.com/kailas-cloud/regassist/internal/domain/quota"
)

// store is the consumer interface for quota operations (ISP).
type store interface {
	Counter(ctx context.Context, key string) (int64, error)
	ReserveCounter(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error)
	ReleaseCounter(ctx context.Context, key string) error
	AddCounter(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
}

// Store persists per-user period counters on top of the DB.
// Daily and monthly keys carry their own TTL, so an expired period simply reads as zero.
type Store struct {
	store    store
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New creates a quota store.
// dailyTTL is the TTL for daily keys (recommended: 48h).
// monthTTL is the TTL for monthly keys (recommended: 62 days).
func New(s store, dailyTTL, monthTTL time.Duration) *Store {
	return &Store{
		store:    s,
		dailyTTL: dailyTTL,
		monthTTL: monthTTL,
	}
}

// Reserve takes one unit of key when it is below limit. The check and the increment are atomic.
func (s *Store) Reserve(ctx context.Context, key string, period domquota.Period, limit int64) (int64, bool, error) {
	n, ok, err := s.store.ReserveCounter(ctx, key, limit, s.ttl(period))
	if err != nil {
		return 0, false, fmt.Errorf("quota reserve %s: %w", key, err)
	}
	return n, ok, nil
}

// Release gives one unit of key back.
func (s *Store) Release(ctx context.Context, key string) error {
	if err := s.store.ReleaseCounter(ctx, key); err != nil {
		return fmt.Errorf("quota release %s: %w", key, err)
	}
	return nil
}

// IncrBy adds val to key. The period TTL is set on first write and never pushed back.
func (s *Store) IncrBy(ctx context.Context, key string, period domquota.Period, val int64) error {
	if _, err := s.store.AddCounter(ctx, key, val, s.ttl(period)); err != nil {
		return fmt.Errorf("quota add %s: %w", key, err)
	}
	return nil
}

// Get returns the current counter value. Returns 0 if the key does not exist.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	n, err := s.store.Counter(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("quota get %s: %w", key, err)
	}
	return n, nil
}

func (s *Store) ttl(p domquota.Period) time.Duration {
	if p == domquota.Daily {
		return s.dailyTTL
	}
	return s.monthTTL
}
