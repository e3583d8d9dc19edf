package retrieval

import (
	"cmp"
	"math"
	"slices"

	"github.com/kailas-cloud/regassist/internal/domain"
)

const epsilon = 1e-8

// Cosine returns dot(a,b) / (|a|*|b| + epsilon), accumulated in float64.
// Vectors of different length are not comparable and score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	return dot / (math.Sqrt(na)*math.Sqrt(nb) + epsilon)
}

// TopK scores every record against query and keeps the k best, highest first.
// Records with a different dimension are skipped. Ties keep index order.
func TopK(query []float32, records []domain.EmbeddingRecord, k int) []domain.ScoredChunk {
	if k <= 0 || len(query) == 0 {
		return nil
	}
	scored := make([]domain.ScoredChunk, 0, len(records))
	for _, r := range records {
		if len(r.Embedding) != len(query) {
			continue
		}
		scored = append(scored, domain.ScoredChunk{
			Source: r.Source,
			Text:   r.Text,
			Score:  Cosine(query, r.Embedding),
		})
	}
	slices.SortStableFunc(scored, func(x, y domain.ScoredChunk) int {
		return cmp.Compare(y.Score, x.Score)
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
