package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/regassist/internal/db"
)

// Get reads a value. A missing key is db.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).AsBytes()
	switch {
	case rueidis.IsRedisNil(err):
		return nil, db.ErrKeyNotFound
	case err != nil:
		return nil, &db.Error{Op: db.OpGet, Key: key, Err: err}
	}
	return data, nil
}

// Put writes value with SET, adding EX when ttl is positive.
func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	set := s.client.B().Set().Key(key).Value(rueidis.BinaryString(value))
	cmd := set.Build()
	if ttl > 0 {
		cmd = set.Ex(ttl).Build()
	}
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpPut, Key: key, Err: err}
	}
	return nil
}

// AddCounter pipelines INCRBY with EXPIRE NX in one round trip.
func (s *Store) AddCounter(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	cmds := rueidis.Commands{s.client.B().Incrby().Key(key).Increment(delta).Build()}
	if ttl > 0 {
		cmds = append(cmds, s.client.B().Expire().Key(key).Seconds(int64(ttl.Seconds())).Nx().Build())
	}

	results := s.client.DoMulti(ctx, cmds...)
	n, err := results[0].AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpAdd, Key: key, Err: err}
	}
	for _, r := range results[1:] {
		if err := r.Error(); err != nil {
			return n, &db.Error{Op: db.OpAdd, Key: key, Err: err}
		}
	}
	return n, nil
}
