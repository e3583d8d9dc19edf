package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/regassist/internal/domain"
	"github.com/kailas-cloud/regassist/internal/domain/intent"
	"github.com/kailas-cloud/regassist/internal/logger"
	"github.com/kailas-cloud/regassist/internal/metrics"
)

// Retrieval gate outcomes.
const (
	DecisionSkippedSocial  = "skipped_social"
	DecisionIntent         = "intent"
	DecisionScore          = "score"
	DecisionBelowThreshold = "below_threshold"
	DecisionEmpty          = "empty"
	DecisionError          = "error"
)

// Result is the gated retrieval outcome for one question.
type Result struct {
	Chunks   []domain.ScoredChunk // empty unless the gate opened
	TopScore float64
	Decision string
}

// Used reports whether chunks go into the prompt.
func (r Result) Used() bool { return len(r.Chunks) > 0 }

// Service searches the product index and decides whether the hits may reach the prompt.
type Service struct {
	embedder  domain.Embedder
	index     IndexSource
	model     string
	k         int
	threshold float64
}

// New creates a retrieval service. model is the embedding model queries are embedded with;
// an index built with another model is ignored.
func New(embedder domain.Embedder, index IndexSource, model string, k int, threshold float64) *Service {
	return &Service{
		embedder:  embedder,
		index:     index,
		model:     model,
		k:         k,
		threshold: threshold,
	}
}

// Search embeds query and returns at most k chunks by descending cosine similarity.
// An empty or incompatible index returns no chunks and no error.
func (s *Service) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	idx := s.index.Load(ctx)
	if len(idx.Index) == 0 {
		return nil, nil
	}
	if idx.Model != "" && s.model != "" && idx.Model != s.model {
		logger.FromContext(ctx).Warn("product index built with another embedding model",
			zap.String("index_model", idx.Model),
			zap.String("model", s.model),
		)
		return nil, nil
	}

	res, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return TopK(res.Embedding, idx.Index, k), nil
}

// Retrieve runs the gate: social turns never search; otherwise chunks are kept when the question
// shows purchase intent or the best score reaches the threshold. Failures degrade to no context.
func (s *Service) Retrieve(ctx context.Context, query string, cls intent.Result) Result {
	res := s.retrieve(ctx, query, cls)
	metrics.RAGDecisionsTotal.WithLabelValues(res.Decision).Inc()
	return res
}

func (s *Service) retrieve(ctx context.Context, query string, cls intent.Result) Result {
	if cls.IsSocial {
		return Result{Decision: DecisionSkippedSocial}
	}

	chunks, err := s.Search(ctx, query, s.k)
	if err != nil {
		logger.FromContext(ctx).Warn("product retrieval failed, answering without context", zap.Error(err))
		return Result{Decision: DecisionError}
	}
	if len(chunks) == 0 {
		return Result{Decision: DecisionEmpty}
	}

	top := chunks[0].Score
	switch {
	case cls.IsProductIntent:
		return Result{Chunks: chunks, TopScore: top, Decision: DecisionIntent}
	case top >= s.threshold:
		return Result{Chunks: chunks, TopScore: top, Decision: DecisionScore}
	default:
		return Result{TopScore: top, Decision: DecisionBelowThreshold}
	}
}
