// Package embcache memoizes question embeddings in the shared key-value store.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/regassist/internal/db"
	"github.com/kailas-cloud/regassist/internal/domain"
)

const keyPrefix = domain.KeyPrefix + "emb:"

// store is the consumer interface for the cache backend.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Config describes what the cached vectors are and how long they live.
type Config struct {
	Model      string
	Dimensions int           // 0 accepts whatever the provider returns
	TTL        time.Duration // <= 0 keeps entries until the store evicts them
	Lookups    *prometheus.CounterVec
}

// CachedEmbedder serves repeated questions from the store. Concurrent misses on the same
// question share one provider call.
type CachedEmbedder struct {
	inner   domain.Embedder
	store   store
	cfg     Config
	flights singleflight.Group
	logger  *zap.Logger
}

// New wraps inner with a cache in s.
func New(inner domain.Embedder, s store, cfg Config, logger *zap.Logger) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, store: s, cfg: cfg, logger: logger}
}

// Embed returns the cached vector for text or asks the provider. Store failures degrade to a miss.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.key(text)

	if vec, ok := c.lookup(ctx, key); ok {
		c.count("hit")
		domain.UsageFromContext(ctx).AddEmbeddingTokens(0)
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	c.count("miss")

	v, err, _ := c.flights.Do(key, func() (any, error) {
		res, err := c.inner.Embed(ctx, text)
		if err != nil {
			return domain.EmbeddingResult{}, err
		}
		c.save(ctx, key, res.Embedding)
		return res, nil
	})
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed question: %w", err)
	}
	return v.(domain.EmbeddingResult), nil
}

func (c *CachedEmbedder) count(result string) {
	if c.cfg.Lookups != nil {
		c.cfg.Lookups.WithLabelValues(result).Inc()
	}
}

// key folds case and whitespace, so "Badge  RFID" and "badge rfid" share an entry.
// The model is part of the key; vectors from different models are never mixed.
func (c *CachedEmbedder) key(text string) string {
	norm := strings.ToLower(strings.Join(strings.Fields(text), " "))
	sum := sha256.Sum256([]byte(norm))
	return keyPrefix + c.cfg.Model + ":" + hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("embedding cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	vec, err := decodeVector(data, c.cfg.Dimensions)
	if err != nil {
		c.logger.Warn("discarding cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) save(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := c.store.Put(ctx, key, encodeVector(vec), c.cfg.TTL); err != nil {
		c.logger.Warn("embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Entries are a little-endian uint32 dimension count followed by that many float32 values.

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4+4*len(v))
	binary.LittleEndian.PutUint32(buf, uint32(len(v)))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4+4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte, wantDims int) ([]float32, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("entry of %d bytes has no header", len(data))
	}
	dims := int(binary.LittleEndian.Uint32(data))
	if dims == 0 || len(data) != 4+4*dims {
		return nil, fmt.Errorf("header says %d dimensions, entry is %d bytes", dims, len(data))
	}
	if wantDims > 0 && dims != wantDims {
		return nil, fmt.Errorf("cached %d dimensions, want %d: %w", dims, wantDims, domain.ErrDimensionMismatch)
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4+4*i:]))
	}
	return vec, nil
}
