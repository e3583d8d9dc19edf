// Package memory is a process-local db.Store for single-instance deployments and tests.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/kailas-cloud/regassist/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

type entry struct {
	value     []byte
	expiresAt time.Time // zero = no expiry
}

// Store keeps keys in a map guarded by one mutex. Expired keys are dropped lazily on access.
type Store struct {
	mu   sync.Mutex
	data map[string]entry
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{data: make(map[string]entry), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(context.Context, time.Duration) error { return nil }

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(key)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), e.value...), nil
}

// Put overwrites key. ttl <= 0 stores without expiry.
func (s *Store) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.data[key] = e
	return nil
}

// AddCounter adds delta under the lock and sets ttl on a key that has no expiry.
func (s *Store) AddCounter(_ context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.add(key, delta)
	if err != nil {
		return 0, err
	}
	s.expireNX(key, ttl)
	return n, nil
}

// Counter returns the integer value of key, 0 when missing.
func (s *Store) Counter(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intValue(key)
}

// ReserveCounter increments key when below limit. The check and the increment share one lock.
func (s *Store) ReserveCounter(_ context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.intValue(key)
	if err != nil {
		return 0, false, err
	}
	if limit >= 0 && current >= limit {
		return current, false, nil
	}
	n, err := s.add(key, 1)
	if err != nil {
		return 0, false, err
	}
	s.expireNX(key, ttl)
	return n, true, nil
}

// ReleaseCounter decrements key, never below zero.
func (s *Store) ReleaseCounter(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.intValue(key)
	if err != nil || current <= 0 {
		return err
	}
	_, err = s.add(key, -1)
	return err
}

func (s *Store) lookup(key string) (entry, bool) {
	e, ok := s.data[key]
	if !ok {
		return entry{}, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.data, key)
		return entry{}, false
	}
	return e, true
}

func (s *Store) intValue(key string) (int64, error) {
	e, ok := s.lookup(key)
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(string(e.value), 10, 64)
	if err != nil {
		return 0, &db.Error{Op: db.OpGet, Key: key, Err: db.ErrNotInteger}
	}
	return n, nil
}

func (s *Store) expireNX(key string, ttl time.Duration) {
	if e := s.data[key]; e.expiresAt.IsZero() && ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
		s.data[key] = e
	}
}

func (s *Store) add(key string, delta int64) (int64, error) {
	e, _ := s.lookup(key)
	current, err := s.intValue(key)
	if err != nil {
		return 0, err
	}
	e.value = []byte(strconv.FormatInt(current+delta, 10))
	s.data[key] = e
	return current + delta, nil
}
