package retrieval

import (
	"context"

	"github.com/kailas-cloud/regassist/internal/domain"
)

// IndexSource is the consumer interface for the product index (ISP).
type IndexSource interface {
	Load(ctx context.Context) domain.IndexFile
}
