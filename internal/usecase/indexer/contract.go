package indexer

import (
	"context"

	"github.com/kailas-cloud/regassist/internal/domain"
)

// Store is the consumer interface for the index file (ISP).
type Store interface {
	Read(model string) (domain.IndexFile, error)
	Write(idx domain.IndexFile) error
}

// Embedder vectorizes chunk texts in provider-sized batches.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
