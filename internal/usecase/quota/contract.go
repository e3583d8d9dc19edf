package quota

import (
	"context"

	domquota "github.com/kailas-cloud/regassist/internal/domain/quota"
)

// CounterStore persists period counters. Reserve must be atomic.
type CounterStore interface {
	Reserve(ctx context.Context, key string, period domquota.Period, limit int64) (int64, bool, error)
	Release(ctx context.Context, key string) error
	IncrBy(ctx context.Context, key string, period domquota.Period, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}
