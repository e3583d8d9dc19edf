package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/regassist/internal/domain"
	domquota "github.com/kailas-cloud/regassist/internal/domain/quota"
	"github.com/kailas-cloud/regassist/internal/usecase/assistant"
	healthuc "github.com/kailas-cloud/regassist/internal/usecase/health"
)

// --- Mock: Assistant ---

type mockAssistant struct {
	answer    assistant.Answer
	err       error
	events    []domain.StreamEvent // sent before streamErr is returned
	streamErr error
	lastReq   assistant.Request
}

func (m *mockAssistant) Ask(ctx context.Context, req assistant.Request) (assistant.Answer, error) {
	m.lastReq = req
	if m.err != nil {
		return assistant.Answer{}, m.err
	}
	domain.UsageFromContext(ctx).AddModelTokens(m.answer.Usage.TotalTokens)
	return m.answer, nil
}

func (m *mockAssistant) Stream(_ context.Context, req assistant.Request, sink assistant.Sink) error {
	m.lastReq = req
	for _, ev := range m.events {
		if err := sink(ev); err != nil {
			return err
		}
	}
	return m.streamErr
}

// --- Mock: UsageReader ---

type mockUsage struct {
	usage  domquota.Usage
	err    error
	userID string
	role   domain.Role
}

func (m *mockUsage) Status(_ context.Context, userID string, role domain.Role) (domquota.Usage, error) {
	m.userID, m.role = userID, role
	return m.usage, m.err
}

// --- Mock: SourceAdmin ---

type mockSources struct {
	records []domain.SourceRecord
	err     error
	calls   []string
}

func (m *mockSources) List(status string) ([]domain.SourceRecord, error) {
	m.calls = append(m.calls, "list:"+status)
	return m.records, m.err
}

func (m *mockSources) Approve(_ context.Context, id string) (domain.SourceRecord, error) {
	m.calls = append(m.calls, "approve:"+id)
	return domain.SourceRecord{ID: id, Status: domain.StatusApproved}, m.err
}

func (m *mockSources) Reject(_ context.Context, id string) (domain.SourceRecord, error) {
	m.calls = append(m.calls, "reject:"+id)
	return domain.SourceRecord{ID: id, Status: domain.StatusRejected}, m.err
}

func (m *mockSources) Delete(_ context.Context, id string) error {
	m.calls = append(m.calls, "delete:"+id)
	return m.err
}

func (m *mockSources) Clear(_ context.Context) error {
	m.calls = append(m.calls, "clear")
	return m.err
}

// --- Mock: HealthChecker ---

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// --- Fixture ---

type fixture struct {
	assistant *mockAssistant
	usage     *mockUsage
	sources   *mockSources
	health    *mockHealth
	handler   http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		assistant: &mockAssistant{},
		usage:     &mockUsage{},
		sources:   &mockSources{},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
		}},
	}
	srv := NewServer(f.assistant, f.usage, f.sources, f.health, zap.NewNop())
	f.handler = srv.Router(AuthConfig{})
	return f
}

func (f *fixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

var adminHeaders = map[string]string{HeaderUserID: "admin-1", HeaderUserRole: "admin"}
