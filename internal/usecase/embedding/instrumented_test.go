package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/regassist/internal/domain"
)

type mockEmbedder struct {
	result     domain.EmbeddingResult
	err        error
	batchErr   error
	batchSizes []int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return m.result, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{Vectors: vectors, Tokens: m.result.Tokens * len(texts)}, nil
}

// plainMockEmbedder implements only Embedder, not BatchEmbedder.
type plainMockEmbedder struct {
	result domain.EmbeddingResult
	calls  int
}

func (m *plainMockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return m.result, nil
}

func TestInstrumentedEmbedder_RecordsRequestUsage(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, Tokens: 100}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	ctx, usage := domain.NewContextWithUsage(context.Background())
	result, err := p.Embed(ctx, "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 2 {
		t.Fatalf("expected 2 dimensions, got %d", len(result.Embedding))
	}
	if usage.EmbeddingTokens != 100 || !usage.Embedded {
		t.Errorf("usage = %+v", usage)
	}
}

func TestInstrumentedEmbedder_NoUsageInContext(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}, Tokens: 5}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	if _, err := p.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInstrumentedEmbedder_Error(t *testing.T) {
	sentinel := errors.New("api error")
	p := NewInstrumentedEmbedder(&mockEmbedder{err: sentinel}, "test", "test-model", zap.NewNop())

	_, err := p.Embed(context.Background(), "hello")
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped api error, got %v", err)
	}
}

func TestInstrumentedEmbedder_BatchEmbed_SplitsBatches(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}, Tokens: 2}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())
	p.batchSize = 2

	texts := []string{"a", "b", "c", "d", "e"}
	ctx, usage := domain.NewContextWithUsage(context.Background())
	res, err := p.BatchEmbed(ctx, texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Vectors) != len(texts) {
		t.Fatalf("expected %d embeddings, got %d", len(texts), len(res.Vectors))
	}
	if fmt.Sprint(inner.batchSizes) != "[2 2 1]" {
		t.Errorf("batch sizes = %v", inner.batchSizes)
	}
	if res.Tokens != 10 || usage.EmbeddingTokens != 10 {
		t.Errorf("tokens = %d, usage = %d, want 10", res.Tokens, usage.EmbeddingTokens)
	}
}

func TestInstrumentedEmbedder_BatchEmbed_Empty(t *testing.T) {
	p := NewInstrumentedEmbedder(&mockEmbedder{}, "test", "test-model", zap.NewNop())

	res, err := p.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Vectors != nil {
		t.Errorf("expected nil for empty input")
	}
}

func TestInstrumentedEmbedder_BatchEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{batchErr: fmt.Errorf("api error")}
	p := NewInstrumentedEmbedder(inner, "test", "model", zap.NewNop())

	if _, err := p.BatchEmbed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestInstrumentedEmbedder_BatchEmbed_FallbackToSingle(t *testing.T) {
	inner := &plainMockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}, Tokens: 5}}
	p := NewInstrumentedEmbedder(inner, "test", "model", zap.NewNop())

	res, err := p.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Vectors) != 2 || inner.calls != 2 {
		t.Errorf("embeddings = %d, calls = %d", len(res.Vectors), inner.calls)
	}
}
