// Package ports defines the interface boundary between the evaluation core
// and its infrastructure collaborators: model providers, judges, and
// observability sinks.
package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-evalflow/internal/domain"
)

// LLMClient is the contract with a remote generation or judge model
// service. Implementations handle provider-specific authentication,
// request formatting, and response parsing.
type LLMClient interface {
	// Complete sends a prompt and returns the generated text.
	// It is a convenience wrapper for callers that do not need usage data.
	//
	// The options map carries provider-agnostic knobs:
	//   - "temperature": float64
	//   - "max_tokens":  int
	//   - "model":       string (overrides the configured default)
	//   - "system":      string (system instruction block)
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)

	// CompleteWithUsage sends a prompt and additionally returns the prompt
	// and completion token counts reported by the provider. Cost
	// computation depends on these counts, so implementations must fall
	// back to estimation rather than returning zero when the provider
	// omits them.
	CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (response string, promptTokens, completionTokens int, err error)

	// EstimateTokens approximates the token count of a text before any
	// request is made, for budgeting and limit checks.
	EstimateTokens(text string) (int, error)

	// GetModel returns the model identifier this client is configured for.
	GetModel() string
}

// Evaluator scores a generated response along one or more quality metrics
// by consulting a judge model. Implementations must be safe for concurrent
// use: the orchestrator runs all evaluators in parallel.
type Evaluator interface {
	// Name identifies the evaluator for logging and tracing.
	Name() string

	// Metrics lists the metric names this evaluator reports. The
	// orchestrator fabricates failed outcomes for these metrics when the
	// evaluator errors or times out, so the report always covers every
	// configured metric.
	Metrics() []string

	// Evaluate scores the generated response against the normalized
	// request. It returns one outcome per metric in Metrics. A returned
	// error is contained by the orchestrator and never aborts sibling
	// evaluators.
	Evaluate(ctx context.Context, response string, req domain.NormalizedRequest) ([]domain.EvaluationOutcome, error)
}

// MetricsCollector records operational metrics. Implementations integrate
// with Prometheus or other monitoring backends.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
