package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultTopContext is the number of context items included in a report
// when the caller does not configure a limit.
const DefaultTopContext = 3

// Report is the aggregate result of one evaluation request. It is
// constructed once, returned to the caller, and never persisted by the
// core.
type Report struct {
	// ID uniquely identifies this report.
	ID string `json:"id"`

	// GeneratedResponse is the re-generated assistant turn under
	// evaluation.
	GeneratedResponse string `json:"generated_response"`

	// PromptUsed is the exact prompt rendered for the generation call,
	// kept so consumers can audit and reproduce the generation.
	PromptUsed string `json:"prompt_used"`

	// Scores maps metric names to judge scores. Metrics whose evaluator
	// failed or timed out are absent here and surfaced via
	// EvaluationStatuses instead.
	Scores map[string]float64 `json:"scores"`

	// LatencyMs is the generation call's wall-clock latency.
	LatencyMs int64 `json:"latency_ms"`

	// CostUSD is the generation call's computed cost.
	CostUSD float64 `json:"cost_usd"`

	// Notes maps metric names to judge explanations or failure reasons.
	Notes map[string]string `json:"notes"`

	// EvaluationStatuses maps every configured metric to its outcome
	// status, including the ones missing from Scores.
	EvaluationStatuses map[string]OutcomeStatus `json:"evaluation_statuses"`

	// Hallucinations lists response claims the grounding judge found
	// unsupported by the context.
	Hallucinations []string `json:"hallucinations"`

	// TopContext holds the highest-ranked context items, truncated for
	// human inspection, in caller-supplied order.
	TopContext []ContextItem `json:"top_context"`

	// CreatedAt records when the report was built.
	CreatedAt time.Time `json:"created_at"`
}

// BuildReport merges a generation result and the per-metric outcomes into
// an immutable Report. Outcomes are merged by metric name, so the report
// structure is deterministic regardless of evaluator completion order.
//
// topK bounds the TopContext slice; values < 1 fall back to
// DefaultTopContext. A missing generation result is a contract violation
// and yields ErrIncompleteReport.
func BuildReport(
	gen GenerationResult,
	prompt string,
	outcomes map[string]EvaluationOutcome,
	contextItems []ContextItem,
	topK int,
) (Report, error) {
	if gen.ResponseText == "" {
		return Report{}, ErrIncompleteReport
	}
	if outcomes == nil {
		return Report{}, ErrIncompleteReport
	}

	if topK < 1 {
		topK = DefaultTopContext
	}
	if topK > len(contextItems) {
		topK = len(contextItems)
	}

	report := Report{
		ID:                 uuid.NewString(),
		GeneratedResponse:  gen.ResponseText,
		PromptUsed:         prompt,
		Scores:             make(map[string]float64, len(outcomes)),
		LatencyMs:          gen.LatencyMs,
		CostUSD:            gen.CostUSD,
		Notes:              make(map[string]string, len(outcomes)),
		EvaluationStatuses: make(map[string]OutcomeStatus, len(outcomes)),
		Hallucinations:     []string{},
		TopContext:         append([]ContextItem(nil), contextItems[:topK]...),
		CreatedAt:          time.Now().UTC(),
	}

	// Metrics are folded in sorted order so the flag list does not
	// depend on map iteration order.
	metrics := make([]string, 0, len(outcomes))
	for metric := range outcomes {
		metrics = append(metrics, metric)
	}
	sort.Strings(metrics)

	for _, metric := range metrics {
		outcome := outcomes[metric]
		report.EvaluationStatuses[metric] = outcome.Status
		report.Notes[metric] = outcome.Explanation
		if outcome.Status == StatusOK && outcome.Score != nil {
			report.Scores[metric] = *outcome.Score
		}
		report.Hallucinations = append(report.Hallucinations, outcome.Flags...)
	}

	return report, nil
}
