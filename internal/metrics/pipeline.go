package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Model call and query pipeline metrics.
var (
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of model calls",
		},
		[]string{"model", "mode", "tools", "status"}, // mode: batch / stream
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Model call duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80, 120},
		},
		[]string{"model", "mode"},
	)

	LLMTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "Total model tokens consumed",
		},
		[]string{"model", "type"}, // input / output
	)

	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_fallbacks_total",
			Help:      "Tool-enabled calls retried without tools",
		},
		[]string{"result"}, // success / failure
	)

	RAGDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rag_decisions_total",
			Help:      "Retrieval gate outcomes",
		},
		[]string{"decision"}, // skipped_social / intent / score / below_threshold / empty / error
	)

	QuotaDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_decisions_total",
			Help:      "Quota guard outcomes",
		},
		[]string{"role", "result"}, // allowed / denied_messages / denied_tokens / degraded / unavailable
	)

	DetectedSourcesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detected_sources_total",
			Help:      "Non-official links seen in answers",
		},
		[]string{"result"}, // recorded / duplicate / dropped / error
	)
)

var registerPipeline sync.Once

// RegisterPipelineMetrics registers model and pipeline metrics on the default registry. Safe to call more than once.
func RegisterPipelineMetrics() {
	registerPipeline.Do(func() {
		prometheus.MustRegister(
			LLMRequestsTotal,
			LLMRequestDuration,
			LLMTokensTotal,
			FallbacksTotal,
			RAGDecisionsTotal,
			QuotaDecisionsTotal,
			DetectedSourcesTotal,
		)
	})
}
