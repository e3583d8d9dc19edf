package indexer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/regassist/internal/domain"
)

var (
	// ErrNoChunks signals a document with no chunk long enough to index.
	ErrNoChunks = errors.New("no valid chunks could be created from the text")
	// ErrSourceExists signals an add under an ID that is already indexed.
	ErrSourceExists = errors.New("source already indexed")
	// ErrSourceNotIndexed signals a remove for an unknown source ID.
	ErrSourceNotIndexed = errors.New("source not indexed")
	// ErrModelMismatch signals an index built with another embedding model.
	ErrModelMismatch = errors.New("index embedding model mismatch")
)

const idSeparator = "::"

// AddInput describes one document to index.
type AddInput struct {
	SourceID string // generated when empty
	Name     string // shown to the model as the chunk source
	Text     string
	Replace  bool // drop existing chunks of SourceID first
}

// AddResult reports what an add wrote.
type AddResult struct {
	SourceID string
	ChunkIDs []string
	Tokens   int
}

// SourceSummary is one source of the index with its chunk count.
type SourceSummary struct {
	ID     string
	Name   string
	Chunks int
}

// Service maintains the product document index.
type Service struct {
	store    Store
	embedder Embedder
	model    string
	logger   *zap.Logger
}

// New creates an index builder that embeds with model.
func New(store Store, embedder Embedder, model string, logger *zap.Logger) *Service {
	return &Service{store: store, embedder: embedder, model: model, logger: logger}
}

// Add chunks, embeds and appends a document. The index file is rewritten atomically.
func (s *Service) Add(ctx context.Context, in AddInput) (AddResult, error) {
	chunks := Chunk(in.Text, ChunkSize, ChunkOverlap)
	if len(chunks) == 0 {
		return AddResult{}, ErrNoChunks
	}

	idx, err := s.read()
	if err != nil {
		return AddResult{}, err
	}

	sourceID := in.SourceID
	if sourceID == "" {
		sourceID = uuid.NewString()
	}
	if n := countSource(idx, sourceID); n > 0 {
		if !in.Replace {
			return AddResult{}, fmt.Errorf("%s (%d chunks): %w", sourceID, n, ErrSourceExists)
		}
		idx.Index = withoutSource(idx.Index, sourceID)
	}

	emb, err := s.embedder.BatchEmbed(ctx, chunks)
	if err != nil {
		return AddResult{}, fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}
	if len(emb.Vectors) != len(chunks) {
		return AddResult{}, fmt.Errorf("embed: got %d vectors for %d chunks", len(emb.Vectors), len(chunks))
	}
	dims, err := emb.Dimensions()
	if err != nil {
		return AddResult{}, fmt.Errorf("embed: %w", err)
	}
	if len(idx.Index) > 0 && len(idx.Index[0].Embedding) != dims {
		return AddResult{}, fmt.Errorf("index has %d-dimension vectors, new chunks have %d: %w",
			len(idx.Index[0].Embedding), dims, domain.ErrDimensionMismatch)
	}

	ids := make([]string, len(chunks))
	for i, text := range chunks {
		ids[i] = sourceID + idSeparator + strconv.Itoa(i)
		idx.Index = append(idx.Index, domain.EmbeddingRecord{
			ID:        ids[i],
			Source:    in.Name,
			Text:      text,
			Embedding: emb.Vectors[i],
		})
	}

	if err := s.store.Write(idx); err != nil {
		return AddResult{}, fmt.Errorf("save index: %w", err)
	}

	s.logger.Info("source indexed",
		zap.String("source_id", sourceID),
		zap.String("name", in.Name),
		zap.Int("chunks", len(ids)),
		zap.Int("dimensions", dims),
		zap.Int("tokens", emb.Tokens),
	)
	return AddResult{SourceID: sourceID, ChunkIDs: ids, Tokens: emb.Tokens}, nil
}

// Remove deletes every chunk of a source and returns how many were dropped.
func (s *Service) Remove(sourceID string) (int, error) {
	idx, err := s.read()
	if err != nil {
		return 0, err
	}
	n := countSource(idx, sourceID)
	if n == 0 {
		return 0, fmt.Errorf("%s: %w", sourceID, ErrSourceNotIndexed)
	}
	idx.Index = withoutSource(idx.Index, sourceID)
	if err := s.store.Write(idx); err != nil {
		return 0, fmt.Errorf("save index: %w", err)
	}
	s.logger.Info("source removed", zap.String("source_id", sourceID), zap.Int("chunks", n))
	return n, nil
}

// List summarizes the index by source, sorted by ID. Records without a "::" ID are grouped under their name.
func (s *Service) List() (string, []SourceSummary, error) {
	idx, err := s.store.Read(s.model)
	if err != nil {
		return "", nil, fmt.Errorf("read index: %w", err)
	}

	byID := map[string]*SourceSummary{}
	for _, rec := range idx.Index {
		id := sourceOf(rec)
		sum, ok := byID[id]
		if !ok {
			sum = &SourceSummary{ID: id, Name: rec.Source}
			byID[id] = sum
		}
		sum.Chunks++
	}

	out := make([]SourceSummary, 0, len(byID))
	for _, sum := range byID {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return idx.Model, out, nil
}

// read loads the index and refuses to mix vectors of different models.
func (s *Service) read() (domain.IndexFile, error) {
	idx, err := s.store.Read(s.model)
	if err != nil {
		return domain.IndexFile{}, fmt.Errorf("read index: %w", err)
	}
	if idx.Model == "" {
		idx.Model = s.model
	}
	if idx.Model != s.model {
		return domain.IndexFile{}, fmt.Errorf("index uses %q, configured %q: %w", idx.Model, s.model, ErrModelMismatch)
	}
	return idx, nil
}

func sourceOf(rec domain.EmbeddingRecord) string {
	if id, _, ok := strings.Cut(rec.ID, idSeparator); ok {
		return id
	}
	return rec.Source
}

func countSource(idx domain.IndexFile, sourceID string) int {
	n := 0
	for _, rec := range idx.Index {
		if strings.HasPrefix(rec.ID, sourceID+idSeparator) {
			n++
		}
	}
	return n
}

func withoutSource(records []domain.EmbeddingRecord, sourceID string) []domain.EmbeddingRecord {
	prefix := sourceID + idSeparator
	kept := make([]domain.EmbeddingRecord, 0, len(records))
	for _, rec := range records {
		if !strings.HasPrefix(rec.ID, prefix) {
			kept = append(kept, rec)
		}
	}
	return kept
}
