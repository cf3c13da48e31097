package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector aggregates the runtime's Prometheus metrics.
type Collector struct {
	sandboxExecutionsTotal   *prometheus.CounterVec
	sandboxExecutionDuration prometheus.Histogram
	sandboxDenialsTotal      *prometheus.CounterVec
	sandboxTruncationsTotal  prometheus.Counter

	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec

	agentStepsTotal *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector registers the runtime metrics under namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.sandboxExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sandbox_executions_total",
			Help:      "Total sandbox executions by outcome kind",
		},
		[]string{"kind"},
	)

	c.sandboxExecutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sandbox_execution_duration_seconds",
			Help:      "Wall-clock duration of sandbox executions",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
	)

	c.sandboxDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sandbox_denials_total",
			Help:      "Denied module imports by module name",
		},
		[]string{"module"},
	)

	c.sandboxTruncationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sandbox_truncations_total",
			Help:      "Captured outputs that exceeded the length bound",
		},
	)

	c.llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total LLM requests",
		},
		[]string{"provider", "model", "status"},
	)

	c.llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	c.llmTokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Tokens consumed by LLM requests",
		},
		[]string{"provider", "model", "type"},
	)

	c.agentStepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_steps_total",
			Help:      "Agent loop steps by outcome",
		},
		[]string{"agent", "outcome"},
	)

	return c
}

// RecordExecution records one sandbox execution outcome. kind is "ok" or
// the fault kind string.
func (c *Collector) RecordExecution(kind string, duration time.Duration) {
	c.sandboxExecutionsTotal.WithLabelValues(kind).Inc()
	c.sandboxExecutionDuration.Observe(duration.Seconds())
}

// RecordDenial records a denied module import.
func (c *Collector) RecordDenial(module string) {
	c.sandboxDenialsTotal.WithLabelValues(module).Inc()
}

// RecordTruncation records one output truncation.
func (c *Collector) RecordTruncation() {
	c.sandboxTruncationsTotal.Inc()
}

// RecordLLMRequest records a provider call with its token usage.
func (c *Collector) RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int) {
	c.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	if promptTokens > 0 {
		c.llmTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		c.llmTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

// RecordAgentStep records one agent loop step.
func (c *Collector) RecordAgentStep(agent, outcome string) {
	c.agentStepsTotal.WithLabelValues(agent, outcome).Inc()
}
