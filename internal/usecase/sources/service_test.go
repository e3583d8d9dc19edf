package sources

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/regassist/internal/domain"
	"github.com/kailas-cloud/regassist/internal/domain/sanitize"
)

type mockRegistry struct {
	recorded  []domain.DetectedLink
	question  string
	listedFor domain.SourceStatus
	statusErr error
}

func (m *mockRegistry) Record(links []domain.DetectedLink, question string) {
	m.recorded = append(m.recorded, links...)
	m.question = question
}

func (m *mockRegistry) List(status domain.SourceStatus) []domain.SourceRecord {
	m.listedFor = status
	return []domain.SourceRecord{{ID: "src_1", Status: domain.StatusPending}}
}

func (m *mockRegistry) SetStatus(_ context.Context, id string, status domain.SourceStatus) (domain.SourceRecord, error) {
	if m.statusErr != nil {
		return domain.SourceRecord{}, m.statusErr
	}
	return domain.SourceRecord{ID: id, Status: status}, nil
}

func (m *mockRegistry) Delete(context.Context, string) error { return m.statusErr }
func (m *mockRegistry) Clear(context.Context) error          { return nil }

func TestObserve_RecordsOnlyNonOfficialLinks(t *testing.T) {
	reg := &mockRegistry{}
	svc := New(reg, sanitize.Default())

	answer := "Voir [Légifrance](https://www.legifrance.gouv.fr/loda/id/X) et [un blog](https://blog.example.com/article)."
	n := svc.Observe(answer, "question")

	if n != 1 || len(reg.recorded) != 1 {
		t.Fatalf("recorded %v", reg.recorded)
	}
	if reg.recorded[0].URL != "https://blog.example.com/article" {
		t.Errorf("url = %s", reg.recorded[0].URL)
	}
	if reg.question != "question" {
		t.Errorf("question = %q", reg.question)
	}
}

func TestList_StatusFilter(t *testing.T) {
	reg := &mockRegistry{}
	svc := New(reg, sanitize.Default())

	if _, err := svc.List("approved"); err != nil || reg.listedFor != domain.StatusApproved {
		t.Errorf("err = %v, filter = %q", err, reg.listedFor)
	}
	if _, err := svc.List(""); err != nil || reg.listedFor != "" {
		t.Errorf("err = %v, filter = %q", err, reg.listedFor)
	}
	if _, err := svc.List("archived"); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestModeration(t *testing.T) {
	reg := &mockRegistry{}
	svc := New(reg, sanitize.Default())
	ctx := context.Background()

	rec, err := svc.Approve(ctx, "src_1")
	if err != nil || rec.Status != domain.StatusApproved {
		t.Errorf("approve: %+v, %v", rec, err)
	}
	rec, err = svc.Reject(ctx, "src_1")
	if err != nil || rec.Status != domain.StatusRejected {
		t.Errorf("reject: %+v, %v", rec, err)
	}

	reg.statusErr = domain.ErrSourceNotFound
	if _, err := svc.Approve(ctx, "src_x"); !errors.Is(err, domain.ErrSourceNotFound) {
		t.Errorf("expected ErrSourceNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, "src_x"); !errors.Is(err, domain.ErrSourceNotFound) {
		t.Errorf("expected ErrSourceNotFound, got %v", err)
	}
}
