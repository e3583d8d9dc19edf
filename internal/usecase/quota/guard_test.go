package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/regassist/internal/domain"
	domquota "github.com/kailas-cloud/regassist/internal/domain/quota"
)

var march1 = time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)

const (
	dailyKey   = "regassist:quota:u1:messages:daily:2026-03-01"
	monthlyKey = "regassist:quota:u1:tokens:monthly:2026-03"
)

func newTestGuard(store CounterStore, policy FailurePolicy, clock *fixedClock) *Guard {
	limits := domain.RoleLimits{
		domain.RoleFree:    {DailyMessages: 20, MonthlyTokens: 1000},
		domain.RolePremium: {DailyMessages: 30, MonthlyTokens: 4000},
		domain.RoleAdmin:   {DailyMessages: domain.Unlimited, MonthlyTokens: domain.Unlimited},
	}
	return NewGuard(store, limits, policy, zap.NewNop(), WithClock(clock.now))
}

func TestCheckAndReserve_Allowed(t *testing.T) {
	store := newMockStore()
	store.counters[dailyKey] = 4
	g := newTestGuard(store, FailOpen, &fixedClock{march1})

	d, res, err := g.CheckAndReserve(context.Background(), "u1", domain.RoleFree)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed || d.CurrentCount != 5 || d.Limit != 20 || d.Remaining != 15 {
		t.Errorf("unexpected decision %+v", d)
	}
	if res == nil {
		t.Fatal("expected a reservation")
	}
	if store.counters[dailyKey] != 5 {
		t.Errorf("counter = %d, want 5", store.counters[dailyKey])
	}
}

func TestCheckAndReserve_AtLimitDoesNotIncrement(t *testing.T) {
	store := newMockStore()
	store.counters[dailyKey] = 20
	g := newTestGuard(store, FailOpen, &fixedClock{march1})

	d, res, err := g.CheckAndReserve(context.Background(), "u1", domain.RoleFree)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed || d.Remaining != 0 || d.CurrentCount != 20 || d.Kind != domquota.KindMessages {
		t.Errorf("unexpected decision %+v", d)
	}
	if res != nil {
		t.Error("denied decision must not carry a reservation")
	}
	if store.counters[dailyKey] != 20 {
		t.Errorf("counter mutated to %d", store.counters[dailyKey])
	}
}

func TestCheckAndReserve_TokensExhausted(t *testing.T) {
	store := newMockStore()
	store.counters[monthlyKey] = 1000
	g := newTestGuard(store, FailOpen, &fixedClock{march1})

	d, _, err := g.CheckAndReserve(context.Background(), "u1", domain.RoleFree)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed || d.Kind != domquota.KindTokens || d.Limit != 1000 {
		t.Errorf("unexpected decision %+v", d)
	}
	if store.reserves != 0 {
		t.Error("message counter must not be touched when tokens are exhausted")
	}
}

func TestCheckAndReserve_UnlimitedAndAnonymous(t *testing.T) {
	store := newMockStore()
	g := newTestGuard(store, FailOpen, &fixedClock{march1})

	for _, tc := range []struct {
		user string
		role domain.Role
	}{
		{"admin1", domain.RoleAdmin},
		{"", domain.RoleFree},
	} {
		d, res, err := g.CheckAndReserve(context.Background(), tc.user, tc.role)
		if err != nil || !d.Allowed || d.Remaining != domain.Unlimited || res != nil {
			t.Errorf("%q/%s: decision=%+v res=%v err=%v", tc.user, tc.role, d, res, err)
		}
	}
	if store.reserves != 0 {
		t.Errorf("reserves = %d, want 0", store.reserves)
	}
}

func TestCheckAndReserve_StoreErrorPolicy(t *testing.T) {
	cause := errors.New("connection refused")

	t.Run("open", func(t *testing.T) {
		store := newMockStore()
		store.err = cause
		g := newTestGuard(store, FailOpen, &fixedClock{march1})

		d, res, err := g.CheckAndReserve(context.Background(), "u1", domain.RoleFree)
		if err != nil {
			t.Fatalf("fail-open must not error: %v", err)
		}
		if !d.Allowed || !d.Degraded || res != nil {
			t.Errorf("unexpected decision %+v", d)
		}
	})

	t.Run("closed", func(t *testing.T) {
		store := newMockStore()
		store.err = cause
		g := newTestGuard(store, FailClosed, &fixedClock{march1})

		_, _, err := g.CheckAndReserve(context.Background(), "u1", domain.RoleFree)
		if !errors.Is(err, domain.ErrQuotaUnavailable) || !errors.Is(err, cause) {
			t.Fatalf("expected ErrQuotaUnavailable wrapping cause, got %v", err)
		}
	})
}

func TestReservation_ReleaseRefunds(t *testing.T) {
	store := newMockStore()
	g := newTestGuard(store, FailOpen, &fixedClock{march1})

	_, res, _ := g.CheckAndReserve(context.Background(), "u1", domain.RoleFree)
	res.Release(context.Background())
	res.Release(context.Background())

	if store.counters[dailyKey] != 0 {
		t.Errorf("counter = %d, want 0", store.counters[dailyKey])
	}
	if store.releases != 1 {
		t.Errorf("releases = %d, want 1", store.releases)
	}
}

func TestReservation_ReleaseOutlivesCanceledRequest(t *testing.T) {
	store := newMockStore()
	store.honorCtx = true
	g := newTestGuard(store, FailOpen, &fixedClock{march1})

	ctx, cancel := context.WithCancel(context.Background())
	_, res, _ := g.CheckAndReserve(ctx, "u1", domain.RoleFree)
	cancel()
	res.Release(ctx)

	if store.counters[dailyKey] != 0 {
		t.Errorf("counter = %d, a canceled request must still get its slot back", store.counters[dailyKey])
	}
}

func TestReservation_CommitThenReleaseIsNoop(t *testing.T) {
	store := newMockStore()
	g := newTestGuard(store, FailOpen, &fixedClock{march1})

	_, res, _ := g.CheckAndReserve(context.Background(), "u1", domain.RoleFree)
	res.Commit()
	res.Release(context.Background())

	if store.counters[dailyKey] != 1 || store.releases != 0 {
		t.Errorf("counter=%d releases=%d", store.counters[dailyKey], store.releases)
	}

	var nilRes *Reservation
	nilRes.Commit()
	nilRes.Release(context.Background())
}

func TestCheckAndReserve_PeriodRollover(t *testing.T) {
	store := newMockStore()
	store.counters[dailyKey] = 20
	clock := &fixedClock{march1}
	g := newTestGuard(store, FailOpen, clock)

	if d, _, _ := g.CheckAndReserve(context.Background(), "u1", domain.RoleFree); d.Allowed {
		t.Fatal("expected denial on exhausted day")
	}
	clock.t = march1.Add(9 * time.Hour) // 00:30 UTC next day
	d, _, _ := g.CheckAndReserve(context.Background(), "u1", domain.RoleFree)
	if !d.Allowed || d.CurrentCount != 1 {
		t.Errorf("expected fresh period, got %+v", d)
	}
}

func TestRecordTokens(t *testing.T) {
	store := newMockStore()
	g := newTestGuard(store, FailOpen, &fixedClock{march1})

	if err := g.RecordTokens(context.Background(), "u1", 350); err != nil {
		t.Fatalf("RecordTokens: %v", err)
	}
	_ = g.RecordTokens(context.Background(), "", 999)
	_ = g.RecordTokens(context.Background(), "u1", 0)

	if store.counters[monthlyKey] != 350 {
		t.Errorf("monthly = %d, want 350", store.counters[monthlyKey])
	}
	if store.periods[monthlyKey] != domquota.Monthly {
		t.Errorf("tokens counter period = %v, want monthly", store.periods[monthlyKey])
	}
}

func TestCheckAndReserve_PeriodIsExplicit(t *testing.T) {
	store := newMockStore()
	g := newTestGuard(store, FailOpen, &fixedClock{march1})

	_, _, _ = g.CheckAndReserve(context.Background(), "evil:tokens:monthly:x", domain.RoleFree)
	_ = g.RecordTokens(context.Background(), "evil:messages:daily:x", 10)

	for key, p := range store.periods {
		want := domquota.Monthly
		if key == "regassist:quota:evil:tokens:monthly:x:messages:daily:2026-03-01" {
			want = domquota.Daily
		}
		if p != want {
			t.Errorf("period for %s = %v, want %v", key, p, want)
		}
	}
	if len(store.periods) != 2 {
		t.Errorf("periods = %v", store.periods)
	}
}

func TestStatus(t *testing.T) {
	store := newMockStore()
	store.counters[dailyKey] = 7
	store.counters[monthlyKey] = 2500
	g := newTestGuard(store, FailOpen, &fixedClock{march1})

	u, err := g.Status(context.Background(), "u1", domain.RolePremium)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if u.Messages.Used != 7 || u.Messages.Remaining != 23 {
		t.Errorf("messages = %+v", u.Messages)
	}
	if u.Tokens.Used != 2500 || u.Tokens.Remaining != 1500 {
		t.Errorf("tokens = %+v", u.Tokens)
	}
	if want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC); !u.Messages.ResetsAt.Equal(want) {
		t.Errorf("messages reset = %v", u.Messages.ResetsAt)
	}
	if want := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC); !u.Tokens.ResetsAt.Equal(want) {
		t.Errorf("tokens reset = %v", u.Tokens.ResetsAt)
	}
}

func TestStatus_StoreError(t *testing.T) {
	store := newMockStore()
	store.err = errors.New("down")
	g := newTestGuard(store, FailOpen, &fixedClock{march1})

	if _, err := g.Status(context.Background(), "u1", domain.RoleFree); !errors.Is(err, domain.ErrQuotaUnavailable) {
		t.Fatalf("expected ErrQuotaUnavailable, got %v", err)
	}
}
