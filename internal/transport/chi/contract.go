package chi

import (
	"context"

	"github.com/kailas-cloud/regassist/internal/domain"
	domquota "github.com/kailas-cloud/regassist/internal/domain/quota"
	"github.com/kailas-cloud/regassist/internal/usecase/assistant"
	healthuc "github.com/kailas-cloud/regassist/internal/usecase/health"
)

// Assistant answers questions.
type Assistant interface {
	Ask(ctx context.Context, req assistant.Request) (assistant.Answer, error)
	Stream(ctx context.Context, req assistant.Request, sink assistant.Sink) error
}

// UsageReader reports the caller's quota.
type UsageReader interface {
	Status(ctx context.Context, userID string, role domain.Role) (domquota.Usage, error)
}

// SourceAdmin moderates detected sources.
type SourceAdmin interface {
	List(status string) ([]domain.SourceRecord, error)
	Approve(ctx context.Context, id string) (domain.SourceRecord, error)
	Reject(ctx context.Context, id string) (domain.SourceRecord, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
