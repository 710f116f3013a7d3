// Package metrics implements the ports.MetricsCollector contract on top
// of Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-evalflow/internal/ports"
)

// PrometheusMetrics exposes pipeline, evaluator, and LLM client metrics
// through Prometheus.
type PrometheusMetrics struct {
	pipelineRequests *prometheus.CounterVec
	evaluatorRuns    *prometheus.CounterVec
	llmRequests      *prometheus.CounterVec
	llmTokens        *prometheus.CounterVec
	evaluationCost   *prometheus.GaugeVec
	operationLatency *prometheus.HistogramVec
	llmLatency       *prometheus.HistogramVec
	genericCounter   *prometheus.CounterVec
	genericGauge     *prometheus.GaugeVec
}

// NewPrometheusMetrics registers the pipeline metrics with reg and
// returns the collector. A nil reg uses the default registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		pipelineRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_requests_total",
				Help: "Evaluation requests by terminal status.",
			},
			[]string{"status"},
		),
		evaluatorRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evaluator_runs_total",
				Help: "Judge executions by evaluator and outcome status.",
			},
			[]string{"evaluator", "status"},
		),
		llmRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Provider requests by provider, model, and status.",
			},
			[]string{"provider", "model", "status"},
		),
		llmTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Tokens consumed by provider, model, and token type.",
			},
			[]string{"provider", "model", "token_type"},
		),
		evaluationCost: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "evaluation_cost_usd",
				Help: "Generation cost of the most recent evaluation per model.",
			},
			[]string{"model"},
		),
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "operation_duration_seconds",
				Help:    "Latency of pipeline and evaluator operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),
		llmLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "Latency of provider requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "model", "status"},
		),
		genericCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evalflow_events_total",
				Help: "Uncategorized counter events.",
			},
			[]string{"metric", "status"},
		),
		genericGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "evalflow_state",
				Help: "Uncategorized gauge values.",
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency records operation latency in the latency histogram.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.operationLatency.WithLabelValues(operation, labelOr(labels, "status", "unknown")).
		Observe(duration.Seconds())
}

// RecordCounter routes counter metrics to their dedicated vectors,
// falling back to the generic event counter for unknown names.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case "pipeline_requests_total":
		pm.pipelineRequests.WithLabelValues(labelOr(labels, "status", "unknown")).Add(value)
	case "evaluator_runs_total":
		pm.evaluatorRuns.WithLabelValues(
			labelOr(labels, "evaluator", "unknown"),
			labelOr(labels, "status", "unknown"),
		).Add(value)
	case "llm_requests_total":
		pm.llmRequests.WithLabelValues(
			labelOr(labels, "provider", "unknown"),
			labelOr(labels, "model", "unknown"),
			labelOr(labels, "status", "unknown"),
		).Add(value)
	case "llm_tokens_total":
		pm.llmTokens.WithLabelValues(
			labelOr(labels, "provider", "unknown"),
			labelOr(labels, "model", "unknown"),
			labelOr(labels, "token_type", "unknown"),
		).Add(value)
	default:
		pm.genericCounter.WithLabelValues(metric, labelOr(labels, "status", "unknown")).Add(value)
	}
}

// RecordGauge routes gauge metrics to their dedicated vectors.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	switch metric {
	case "evaluation_cost_usd":
		pm.evaluationCost.WithLabelValues(labelOr(labels, "model", "unknown")).Set(value)
	default:
		pm.genericGauge.WithLabelValues(metric).Set(value)
	}
}

// RecordHistogram routes histogram observations; provider request latency
// gets its own histogram, everything else lands in the operation latency
// histogram.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	if metric == "llm_request_duration_seconds" {
		pm.llmLatency.WithLabelValues(
			labelOr(labels, "provider", "unknown"),
			labelOr(labels, "model", "unknown"),
			labelOr(labels, "status", "unknown"),
		).Observe(value)
		return
	}
	pm.operationLatency.WithLabelValues(metric, labelOr(labels, "status", "unknown")).Observe(value)
}

func labelOr(labels map[string]string, key, fallback string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return fallback
}

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
