package domain

import (
	"context"
	"sync"
)

type requestUsageKey struct{}

// RequestUsage collects token usage for a single HTTP request.
// The handler puts a pointer into the context; the embedding decorators and the pipeline add to it;
// the handler reads it back for response headers and the canonical log line.
type RequestUsage struct {
	mu              sync.Mutex
	EmbeddingTokens int
	ModelTokens     int
	Embedded        bool // true if embedding was called, even on a cache hit with 0 tokens
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *RequestUsage) {
	u := &RequestUsage{}
	return context.WithValue(ctx, requestUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *RequestUsage {
	u, _ := ctx.Value(requestUsageKey{}).(*RequestUsage)
	return u
}

// AddEmbeddingTokens records tokens consumed by query embedding.
func (u *RequestUsage) AddEmbeddingTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.EmbeddingTokens += n
	u.Embedded = true
	u.mu.Unlock()
}

// AddModelTokens records tokens consumed by the model call.
func (u *RequestUsage) AddModelTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.ModelTokens += n
	u.mu.Unlock()
}

// Total returns all tokens recorded so far.
func (u *RequestUsage) Total() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.EmbeddingTokens + u.ModelTokens
}
