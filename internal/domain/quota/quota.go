package quota

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/regassist/internal/domain"
)

// Kind names the counter that produced a decision.
type Kind string

// Counter kinds.
const (
	KindMessages Kind = "messages"
	KindTokens   Kind = "tokens"
)

// Period is the window a counter covers. It decides how long the counter key lives.
type Period int

// Counter periods.
const (
	Daily Period = iota
	Monthly
)

// Decision is the outcome of an atomic check-and-reserve.
type Decision struct {
	Allowed      bool
	Kind         Kind
	CurrentCount int
	Limit        int // -1 when unlimited
	Remaining    int // -1 when unlimited
	Degraded     bool // store unreachable, allowed by the fail-open policy
}

// Counter is the state of one period counter.
type Counter struct {
	Used      int
	Limit     int
	Remaining int
	ResetsAt  time.Time
}

// NewCounter derives Remaining from used and limit. A negative limit is unlimited.
func NewCounter(used, limit int, resetsAt time.Time) Counter {
	remaining := -1
	if limit >= 0 {
		remaining = max(limit-used, 0)
	}
	return Counter{Used: used, Limit: limit, Remaining: remaining, ResetsAt: resetsAt}
}

// Exhausted reports whether a limited counter has no room left.
func (c Counter) Exhausted() bool { return c.Limit >= 0 && c.Used >= c.Limit }

// Usage is the caller-facing quota snapshot.
type Usage struct {
	Role     string
	Messages Counter
	Tokens   Counter
}

// ExceededError carries a negative decision to the caller. It matches domain.ErrQuotaExceeded.
type ExceededError struct {
	Decision Decision
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("%s quota exceeded: %d/%d", e.Decision.Kind, e.Decision.CurrentCount, e.Decision.Limit)
}

func (e *ExceededError) Unwrap() error { return domain.ErrQuotaExceeded }
