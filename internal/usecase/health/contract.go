package health

import "context"

// DBPinger checks the quota and cache store.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks the embedding provider used by retrieval.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// ModelChecker reports whether the model provider can be called at all.
type ModelChecker interface {
	Configured() bool
}
