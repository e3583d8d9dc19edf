package sources

import (
	"context"

	"github.com/kailas-cloud/regassist/internal/domain"
)

// Registry is the consumer interface for the detected source log (ISP).
type Registry interface {
	Record(links []domain.DetectedLink, question string)
	List(status domain.SourceStatus) []domain.SourceRecord
	SetStatus(ctx context.Context, id string, status domain.SourceStatus) (domain.SourceRecord, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// LinkFinder extracts links that are not on the official allow-list.
type LinkFinder interface {
	NonOfficialLinks(text string) []domain.DetectedLink
}
