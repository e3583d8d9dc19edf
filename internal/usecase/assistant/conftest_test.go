package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/regassist/internal/db/memory"
	"github.com/kailas-cloud/regassist/internal/domain"
	"github.com/kailas-cloud/regassist/internal/domain/intent"
	"github.com/kailas-cloud/regassist/internal/domain/sanitize"
	repoquota "github.com/kailas-cloud/regassist/internal/repository/quota"
	"github.com/kailas-cloud/regassist/internal/usecase/quota"
	"github.com/kailas-cloud/regassist/internal/usecase/retrieval"
)

// --- Mock: Retriever ---

type mockRetriever struct {
	result retrieval.Result
	calls  int
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, cls intent.Result) retrieval.Result {
	m.calls++
	if cls.IsSocial {
		return retrieval.Result{Decision: retrieval.DecisionSkippedSocial}
	}
	return m.result
}

// --- Mock: Model ---

// modelCall is one scripted answer. deltas are streamed before err or the completion.
type modelCall struct {
	text   string
	deltas []string
	usage  domain.TokenUsage
	err    error
	before func() // runs when the call starts
}

type mockModel struct {
	mu       sync.Mutex
	key      bool
	script   []modelCall
	requests []domain.CompletionRequest
}

func newMockModel(script ...modelCall) *mockModel {
	return &mockModel{key: true, script: script}
}

func (m *mockModel) Configured() bool { return m.key }
func (m *mockModel) Model() string    { return "gpt-test" }

func (m *mockModel) next(req domain.CompletionRequest) modelCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.script) == 0 {
		return modelCall{err: errors.New("unexpected model call")}
	}
	c := m.script[0]
	m.script = m.script[1:]
	if c.before != nil {
		c.before()
	}
	return c
}

func (m *mockModel) Complete(_ context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	c := m.next(req)
	if c.err != nil {
		return domain.Completion{}, c.err
	}
	return domain.Completion{Text: c.text, Model: "gpt-test", Usage: c.usage}, nil
}

func (m *mockModel) Stream(
	_ context.Context, req domain.CompletionRequest, onDelta func(string) error,
) (domain.Completion, error) {
	c := m.next(req)
	for _, d := range c.deltas {
		if err := onDelta(d); err != nil {
			return domain.Completion{}, err
		}
	}
	if c.err != nil {
		return domain.Completion{}, c.err
	}
	return domain.Completion{Text: c.text, Model: "gpt-test", Usage: c.usage}, nil
}

func (m *mockModel) calls() []domain.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CompletionRequest(nil), m.requests...)
}

// --- Mock: SourceObserver ---

type mockSources struct {
	mu      sync.Mutex
	answers []string
}

func (m *mockSources) Observe(answer, _ string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers = append(m.answers, answer)
	return 0
}

func (m *mockSources) observed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.answers...)
}

// --- Counters that honor cancellation ---

// ctxCounters fails refunds on a done context, the way a network-backed store does.
type ctxCounters struct {
	*repoquota.Store
}

func (c ctxCounters) Release(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Store.Release(ctx, key)
}

// --- Fixture ---

type fixture struct {
	svc     *Service
	model   *mockModel
	rag     *mockRetriever
	sources *mockSources
	guard   *quota.Guard
}

func newFixture(t *testing.T, model *mockModel, opts ...func(*Options)) *fixture {
	t.Helper()
	return newFixtureWithLimits(t, model, domain.DefaultRoleLimits(), opts...)
}

func newFixtureWithLimits(t *testing.T, model *mockModel, limits domain.RoleLimits, opts ...func(*Options)) *fixture {
	t.Helper()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := ctxCounters{repoquota.New(memory.New(memory.WithClock(clock)), 48*time.Hour, 62*24*time.Hour)}
	guard := quota.NewGuard(store, limits, quota.FailOpen, zap.NewNop(), quota.WithClock(clock))

	f := &fixture{
		model:   model,
		rag:     &mockRetriever{result: retrieval.Result{Decision: retrieval.DecisionBelowThreshold}},
		sources: &mockSources{},
		guard:   guard,
	}
	o := Options{Policy: "POLICY"}
	for _, fn := range opts {
		fn(&o)
	}
	f.svc = New(Deps{
		Classifier: intent.Default(),
		Retriever:  f.rag,
		Model:      model,
		Quota:      guard,
		Sanitizer:  sanitize.Default(),
		Sources:    f.sources,
	}, o)
	t.Cleanup(f.svc.Wait)
	return f
}

func (f *fixture) messagesUsed(t *testing.T, userID string) int {
	t.Helper()
	f.svc.Wait()
	u, err := f.guard.Status(context.Background(), userID, domain.RoleFree)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	return u.Messages.Used
}

func (f *fixture) tokensUsed(t *testing.T, userID string) int {
	t.Helper()
	f.svc.Wait()
	u, err := f.guard.Status(context.Background(), userID, domain.RoleFree)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	return u.Tokens.Used
}

var toolFailure = errors.New("model API error 400: Tool 'web_search' is not supported with this model: provider error")
