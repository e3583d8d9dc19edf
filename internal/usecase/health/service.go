package health

import (
	"context"
	"time"
)

// Status is the aggregated health.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates that at least one component failed. The pipeline keeps answering:
	// retrieval degrades to no context and the quota guard follows its failure policy.
	Degraded Status = "degraded"
)

// CheckResult is one component outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
	// CheckMissing marks a provider without credential.
	CheckMissing CheckResult = "missing_credential"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	model     ModelChecker
	timeout   time.Duration
}

// New creates a Service. embedding and model can be nil.
func New(db DBPinger, embedding EmbeddingChecker, model ModelChecker, timeout time.Duration) *Service {
	return &Service{db: db, embedding: embedding, model: model, timeout: timeout}
}

// Check runs every configured check.
func (s *Service) Check(ctx context.Context) Report {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	checks := map[string]CheckResult{"database": result(s.db.Ping(ctx))}
	if s.embedding != nil {
		checks["embedding"] = result(s.embedding.HealthCheck(ctx))
	}
	if s.model != nil {
		checks["llm"] = CheckOK
		if !s.model.Configured() {
			checks["llm"] = CheckMissing
		}
	}

	status := Healthy
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
			break
		}
	}
	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
