package retrieval

import (
	"context"
	"errors"

	"github.com/kailas-cloud/regassist/internal/domain"
)

// mapEmbedder returns a fixed vector per query text.
type mapEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (m *mapEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	vec, ok := m.vectors[text]
	if !ok {
		return domain.EmbeddingResult{}, errors.New("unknown query")
	}
	return domain.EmbeddingResult{Embedding: vec, Tokens: 3}, nil
}

type staticIndex struct {
	idx domain.IndexFile
}

func (s staticIndex) Load(context.Context) domain.IndexFile { return s.idx }

func productIndex() staticIndex {
	return staticIndex{idx: domain.IndexFile{
		Model: "emb",
		Index: []domain.EmbeddingRecord{
			{Source: "rfid.pdf", Text: "Lecteur RFID 13,56 MHz", Embedding: []float32{1, 0, 0}},
			{Source: "badge.pdf", Text: "Badge MIFARE", Embedding: []float32{0.8, 0.6, 0}},
			{Source: "cable.pdf", Text: "Câble", Embedding: []float32{0, 0, 1}},
			{Source: "old.pdf", Text: "Ancien format", Embedding: []float32{1, 0}},
		},
	}}
}
