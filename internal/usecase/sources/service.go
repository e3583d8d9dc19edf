package sources

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/regassist/internal/domain"
)

// Service records non-official links seen in answers and serves the moderation operations.
type Service struct {
	registry Registry
	finder   LinkFinder
}

// New creates a source service.
func New(registry Registry, finder LinkFinder) *Service {
	return &Service{registry: registry, finder: finder}
}

// Observe queues every non-official link of answer for moderation. It never blocks and never fails.
func (s *Service) Observe(answer, question string) int {
	links := s.finder.NonOfficialLinks(answer)
	s.registry.Record(links, question)
	return len(links)
}

// List returns entries, optionally filtered by status ("" for all).
func (s *Service) List(status string) ([]domain.SourceRecord, error) {
	if status == "" {
		return s.registry.List(""), nil
	}
	st, err := domain.ParseSourceStatus(status)
	if err != nil {
		return nil, fmt.Errorf("status %q: %w", status, err)
	}
	return s.registry.List(st), nil
}

// Approve marks an entry approved.
func (s *Service) Approve(ctx context.Context, id string) (domain.SourceRecord, error) {
	return s.setStatus(ctx, id, domain.StatusApproved)
}

// Reject marks an entry rejected.
func (s *Service) Reject(ctx context.Context, id string) (domain.SourceRecord, error) {
	return s.setStatus(ctx, id, domain.StatusRejected)
}

func (s *Service) setStatus(ctx context.Context, id string, status domain.SourceStatus) (domain.SourceRecord, error) {
	rec, err := s.registry.SetStatus(ctx, id, status)
	if err != nil {
		return domain.SourceRecord{}, fmt.Errorf("set status of %s: %w", id, err)
	}
	return rec, nil
}

// Delete removes an entry.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.registry.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

// Clear removes every entry.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.registry.Clear(ctx); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}
