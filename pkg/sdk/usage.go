package sdk

import (
	"context"
	"net/http"
	"time"
)

// Counter is one quota window.
type Counter struct {
	Used      int       `json:"used"`
	Limit     int       `json:"limit"` // -1 when unlimited
	Remaining int       `json:"remaining"`
	ResetsAt  time.Time `json:"resetsAt"`
}

// Unlimited reports whether the counter has no cap.
func (c Counter) Unlimited() bool { return c.Limit < 0 }

// UsageReport is the caller's quota state: daily messages and monthly tokens.
type UsageReport struct {
	Role     Role    `json:"role"`
	Messages Counter `json:"messages"`
	Tokens   Counter `json:"tokens"`
}

// Usage returns the quota state of the configured user.
func (c *Client) Usage(ctx context.Context) (UsageReport, error) {
	var rep UsageReport
	if err := c.do(ctx, "usage", http.MethodGet, "/api/usage", nil, &rep); err != nil {
		return UsageReport{}, err
	}
	return rep, nil
}
