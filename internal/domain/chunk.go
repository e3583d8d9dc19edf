package domain

// EmbeddingRecord is one precomputed entry of the product document index.
type EmbeddingRecord struct {
	ID        string    `json:"id,omitempty"`
	Source    string    `json:"source"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// IndexFile is the on-disk layout of the product document index.
type IndexFile struct {
	Model string            `json:"model"`
	Index []EmbeddingRecord `json:"index"`
}

// ScoredChunk is a retrieval hit, ordered by descending Score.
type ScoredChunk struct {
	Source string  `json:"source"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
}
