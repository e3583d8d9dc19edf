package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/regassist/internal/db"
)

// reserveScript increments KEYS[1] only while it is below ARGV[1] (negative = unbounded)
// and sets the ARGV[2] second TTL when the key has none. Replies {reserved, value}.
var reserveScript = rueidis.NewLuaScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if limit >= 0 and current >= limit then
  return {0, current}
end
current = redis.call('INCR', KEYS[1])
if redis.call('TTL', KEYS[1]) < 0 then
  redis.call('EXPIRE', KEYS[1], ARGV[2])
end
return {1, current}
`)

// releaseScript decrements KEYS[1] without going below zero.
var releaseScript = rueidis.NewLuaScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current > 0 then
  return redis.call('DECR', KEYS[1])
end
return 0
`)

// Counter returns the integer value of key, 0 when missing.
func (s *Store) Counter(ctx context.Context, key string) (int64, error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, &db.Error{Op: db.OpGet, Key: key, Err: db.ErrNotInteger}
	}
	return n, nil
}

// ReserveCounter runs the reserve script atomically on the server.
func (s *Store) ReserveCounter(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	args := []string{strconv.FormatInt(limit, 10), strconv.FormatInt(int64(ttl.Seconds()), 10)}
	reply, err := reserveScript.Exec(ctx, s.client, []string{key}, args).ToArray()
	if err != nil {
		return 0, false, &db.Error{Op: db.OpReserve, Key: key, Err: err}
	}
	if len(reply) != 2 {
		return 0, false, &db.Error{Op: db.OpReserve, Key: key, Err: fmt.Errorf("unexpected reply length %d", len(reply))}
	}
	reserved, err := reply[0].AsInt64()
	if err != nil {
		return 0, false, &db.Error{Op: db.OpReserve, Key: key, Err: err}
	}
	value, err := reply[1].AsInt64()
	if err != nil {
		return 0, false, &db.Error{Op: db.OpReserve, Key: key, Err: err}
	}
	return value, reserved == 1, nil
}

// ReleaseCounter gives one unit back.
func (s *Store) ReleaseCounter(ctx context.Context, key string) error {
	if err := releaseScript.Exec(ctx, s.client, []string{key}, nil).Error(); err != nil {
		return &db.Error{Op: db.OpRelease, Key: key, Err: err}
	}
	return nil
}
