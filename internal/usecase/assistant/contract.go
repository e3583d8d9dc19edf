package assistant

import (
	"context"

	"github.com/kailas-cloud/regassist/internal/domain"
	"github.com/kailas-cloud/regassist/internal/domain/intent"
	domquota "github.com/kailas-cloud/regassist/internal/domain/quota"
	"github.com/kailas-cloud/regassist/internal/usecase/quota"
	"github.com/kailas-cloud/regassist/internal/usecase/retrieval"
)

// Classifier detects social turns and purchase intent.
type Classifier interface {
	Classify(message string) intent.Result
}

// Retriever runs the gated product retrieval.
type Retriever interface {
	Retrieve(ctx context.Context, query string, cls intent.Result) retrieval.Result
}

// Model is the model gateway.
type Model interface {
	Configured() bool
	Model() string
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
	Stream(ctx context.Context, req domain.CompletionRequest, onDelta func(text string) error) (domain.Completion, error)
}

// QuotaGuard meters users.
type QuotaGuard interface {
	CheckAndReserve(ctx context.Context, userID string, role domain.Role) (domquota.Decision, *quota.Reservation, error)
	RecordTokens(ctx context.Context, userID string, tokens int) error
}

// Sanitizer cleans model output.
type Sanitizer interface {
	Clean(raw string) string
}

// SourceObserver records non-official links of an answer. It must not block.
type SourceObserver interface {
	Observe(answer, question string) int
}
