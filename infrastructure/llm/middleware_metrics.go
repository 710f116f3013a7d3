package llm

import (
	"context"
	"strings"
	"time"

	"github.com/ahrav/go-evalflow/internal/ports"
)

// metricsLLM records latency, request counts, and token usage per call.
type metricsLLM struct {
	next      CoreLLM
	collector ports.MetricsCollector
}

// MetricsMiddleware returns middleware that reports request latency,
// outcome, and token usage to the collector, labeled by provider and
// model.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &metricsLLM{next: next, collector: collector}
	}
}

func (m *metricsLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	start := time.Now()
	response, tokensIn, tokensOut, err := m.next.DoRequest(ctx, prompt, opts)

	if m.collector == nil {
		return response, tokensIn, tokensOut, err
	}

	labels := map[string]string{
		"provider": providerFromModel(m.next.GetModel()),
		"model":    m.next.GetModel(),
		"status":   "success",
	}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			labels["status"] = "timeout"
		} else {
			labels["status"] = "error"
		}
	}

	m.collector.RecordHistogram("llm_request_duration_seconds", time.Since(start).Seconds(), labels)
	m.collector.RecordCounter("llm_requests_total", 1, labels)

	if err == nil {
		labels["token_type"] = "prompt"
		m.collector.RecordCounter("llm_tokens_total", float64(tokensIn), labels)
		labels["token_type"] = "completion"
		m.collector.RecordCounter("llm_tokens_total", float64(tokensOut), labels)
	}

	return response, tokensIn, tokensOut, err
}

// providerFromModel infers the provider label from model naming
// conventions; middleware has no direct handle on the provider type.
func providerFromModel(model string) string {
	switch {
	case strings.Contains(model, "gpt"):
		return "openai"
	case strings.Contains(model, "claude"):
		return "anthropic"
	case strings.Contains(model, "gemini"):
		return "google"
	default:
		return "unknown"
	}
}

func (m *metricsLLM) GetModel() string  { return m.next.GetModel() }
func (m *metricsLLM) SetModel(s string) { m.next.SetModel(s) }
