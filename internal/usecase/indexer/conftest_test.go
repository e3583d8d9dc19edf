package indexer

import (
	"context"
	"errors"

	"github.com/kailas-cloud/regassist/internal/domain"
)

type memStore struct {
	idx      domain.IndexFile
	exists   bool
	writes   int
	readErr  error
	writeErr error
}

func (m *memStore) Read(model string) (domain.IndexFile, error) {
	if m.readErr != nil {
		return domain.IndexFile{}, m.readErr
	}
	if !m.exists {
		return domain.IndexFile{Model: model}, nil
	}
	out := m.idx
	out.Index = append([]domain.EmbeddingRecord(nil), m.idx.Index...)
	return out, nil
}

func (m *memStore) Write(idx domain.IndexFile) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.idx = idx
	m.exists = true
	m.writes++
	return nil
}

// countingEmbedder returns one vector per text and records the batch sizes it saw.
type countingEmbedder struct {
	batches []int
	err     error
}

func (e *countingEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if e.err != nil {
		return domain.BatchEmbeddingResult{}, e.err
	}
	e.batches = append(e.batches, len(texts))
	out := domain.BatchEmbeddingResult{Tokens: 3 * len(texts)}
	for i := range texts {
		out.Vectors = append(out.Vectors, []float32{float32(i), 1})
	}
	return out, nil
}

var errDisk = errors.New("disk full")
