package quota

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/regassist/internal/domain"
	domquota "github.com/kailas-cloud/regassist/internal/domain/quota"
	"github.com/kailas-cloud/regassist/internal/metrics"
)

// FailurePolicy decides what happens when the counter store is unreachable.
type FailurePolicy string

const (
	// FailOpen allows the request and logs a warning.
	FailOpen FailurePolicy = "open"
	// FailClosed rejects the request with domain.ErrQuotaUnavailable.
	FailClosed FailurePolicy = "closed"
)

// Guard meters messages per UTC day and tokens per calendar month, per user.
type Guard struct {
	store  CounterStore
	limits domain.RoleLimits
	policy FailurePolicy
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock overrides the time source used for period keys.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// NewGuard creates a quota guard.
func NewGuard(
	store CounterStore, limits domain.RoleLimits, policy FailurePolicy,
	logger *zap.Logger, opts ...Option,
) *Guard {
	g := &Guard{
		store:  store,
		limits: limits,
		policy: policy,
		now:    time.Now,
		logger: logger,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Reservation is one reserved message slot. Commit keeps it; Release refunds it.
// Whichever is called first wins; the zero and nil values are no-ops.
type Reservation struct {
	guard *Guard
	key   string
	done  atomic.Bool
}

// Commit finalizes the reservation after a successful send.
func (r *Reservation) Commit() {
	if r == nil {
		return
	}
	r.done.Store(true)
}

// releaseTimeout bounds a refund that outlives the request.
const releaseTimeout = 2 * time.Second

// Release refunds the slot after a failed send. Failures are logged, never returned.
// The refund ignores cancellation of ctx: a client that went away still gets its slot back.
func (r *Reservation) Release(ctx context.Context) {
	if r == nil || r.guard == nil || !r.done.CompareAndSwap(false, true) {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := r.guard.store.Release(ctx, r.key); err != nil {
		r.guard.logger.Warn("Failed to release quota reservation", zap.String("key", r.key), zap.Error(err))
	}
}

// CheckAndReserve atomically checks the caller's allowance and reserves one message.
// A denied decision never mutates a counter. Anonymous callers are not metered.
func (g *Guard) CheckAndReserve(
	ctx context.Context, userID string, role domain.Role,
) (domquota.Decision, *Reservation, error) {
	unmetered := domquota.Decision{Allowed: true, Kind: domquota.KindMessages, Limit: domain.Unlimited, Remaining: domain.Unlimited}
	if userID == "" {
		return unmetered, nil, nil
	}

	limit := g.limits.For(role)
	now := g.now().UTC()

	if limit.MonthlyTokens >= 0 {
		used, err := g.store.Get(ctx, g.tokensKey(userID, now))
		if err != nil {
			return g.onStoreError(role, limit, err)
		}
		if used >= int64(limit.MonthlyTokens) {
			g.observe(role, "denied_tokens")
			return domquota.Decision{
				Kind:         domquota.KindTokens,
				CurrentCount: int(used),
				Limit:        limit.MonthlyTokens,
				Remaining:    0,
			}, nil, nil
		}
	}

	if limit.DailyMessages < 0 {
		g.observe(role, "allowed")
		return unmetered, nil, nil
	}

	key := g.messagesKey(userID, now)
	count, ok, err := g.store.Reserve(ctx, key, domquota.Daily, int64(limit.DailyMessages))
	if err != nil {
		return g.onStoreError(role, limit, err)
	}
	if !ok {
		g.observe(role, "denied_messages")
		return domquota.Decision{
			Kind:         domquota.KindMessages,
			CurrentCount: int(count),
			Limit:        limit.DailyMessages,
			Remaining:    0,
		}, nil, nil
	}

	g.observe(role, "allowed")
	return domquota.Decision{
		Allowed:      true,
		Kind:         domquota.KindMessages,
		CurrentCount: int(count),
		Limit:        limit.DailyMessages,
		Remaining:    max(limit.DailyMessages-int(count), 0),
	}, &Reservation{guard: g, key: key}, nil
}

// RecordTokens adds model tokens to the caller's monthly counter.
func (g *Guard) RecordTokens(ctx context.Context, userID string, tokens int) error {
	if userID == "" || tokens <= 0 {
		return nil
	}
	if err := g.store.IncrBy(ctx, g.tokensKey(userID, g.now().UTC()), domquota.Monthly, int64(tokens)); err != nil {
		return fmt.Errorf("record tokens: %w", err)
	}
	return nil
}

// Status reports the caller's current usage in both periods.
func (g *Guard) Status(ctx context.Context, userID string, role domain.Role) (domquota.Usage, error) {
	limit := g.limits.For(role)
	now := g.now().UTC()
	dayEnd := truncateToDay(now).AddDate(0, 0, 1)
	monthEnd := truncateToMonth(now).AddDate(0, 1, 0)

	usage := domquota.Usage{
		Role:     string(role),
		Messages: domquota.NewCounter(0, limit.DailyMessages, dayEnd),
		Tokens:   domquota.NewCounter(0, limit.MonthlyTokens, monthEnd),
	}
	if userID == "" {
		return usage, nil
	}

	messages, err := g.store.Get(ctx, g.messagesKey(userID, now))
	if err != nil {
		return domquota.Usage{}, fmt.Errorf("%w: %w", domain.ErrQuotaUnavailable, err)
	}
	tokens, err := g.store.Get(ctx, g.tokensKey(userID, now))
	if err != nil {
		return domquota.Usage{}, fmt.Errorf("%w: %w", domain.ErrQuotaUnavailable, err)
	}
	usage.Messages = domquota.NewCounter(int(messages), limit.DailyMessages, dayEnd)
	usage.Tokens = domquota.NewCounter(int(tokens), limit.MonthlyTokens, monthEnd)
	return usage, nil
}

func (g *Guard) onStoreError(
	role domain.Role, limit domain.RoleLimit, err error,
) (domquota.Decision, *Reservation, error) {
	if g.policy == FailClosed {
		g.observe(role, "unavailable")
		return domquota.Decision{}, nil, fmt.Errorf("%w: %w", domain.ErrQuotaUnavailable, err)
	}
	g.observe(role, "degraded")
	g.logger.Warn("Quota store unavailable, allowing request",
		zap.String("role", string(role)),
		zap.Error(err),
	)
	return domquota.Decision{
		Allowed:   true,
		Kind:      domquota.KindMessages,
		Limit:     limit.DailyMessages,
		Remaining: domain.Unlimited,
		Degraded:  true,
	}, nil, nil
}

func (g *Guard) observe(role domain.Role, result string) {
	metrics.QuotaDecisionsTotal.WithLabelValues(string(role), result).Inc()
}

func (g *Guard) messagesKey(userID string, t time.Time) string {
	return fmt.Sprintf("%squota:%s:messages:daily:%s", domain.KeyPrefix, userID, t.Format("2006-01-02"))
}

func (g *Guard) tokensKey(userID string, t time.Time) string {
	return fmt.Sprintf("%squota:%s:tokens:monthly:%s", domain.KeyPrefix, userID, t.Format("2006-01"))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
