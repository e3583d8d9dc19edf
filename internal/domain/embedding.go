package domain

import (
	"context"
	"errors"
	"fmt"
)

// KeyPrefix namespaces every key written to the shared store.
const KeyPrefix = "regassist:"

// ErrDimensionMismatch means two vectors that must be compared have different lengths.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Embedder turns one text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder embeds many texts in one provider call. Vectors come back in input order.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// EmbeddingResult is a vector and the tokens billed for it. A cache hit bills nothing.
type EmbeddingResult struct {
	Embedding []float32
	Tokens    int
}

// BatchEmbeddingResult holds one vector per input text.
type BatchEmbeddingResult struct {
	Vectors [][]float32
	Tokens  int
}

// Dimensions returns the shared vector length. Zero vectors yield 0.
func (r BatchEmbeddingResult) Dimensions() (int, error) {
	if len(r.Vectors) == 0 {
		return 0, nil
	}
	dims := len(r.Vectors[0])
	for i, v := range r.Vectors[1:] {
		if len(v) != dims {
			return 0, fmt.Errorf("vector %d has %d dimensions, vector 0 has %d: %w", i+1, len(v), dims, ErrDimensionMismatch)
		}
	}
	return dims, nil
}

// BatchEmbed uses the batch endpoint when e has one and embeds text by text otherwise.
func BatchEmbed(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	if be, ok := e.(BatchEmbedder); ok {
		res, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}
		return res, nil
	}

	out := BatchEmbeddingResult{Vectors: make([][]float32, 0, len(texts))}
	for i, text := range texts {
		res, err := e.Embed(ctx, text)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("embed text %d of %d: %w", i+1, len(texts), err)
		}
		out.Vectors = append(out.Vectors, res.Embedding)
		out.Tokens += res.Tokens
	}
	return out, nil
}
