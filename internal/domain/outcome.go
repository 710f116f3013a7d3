package domain

// OutcomeStatus is the tagged status of one evaluator metric.
type OutcomeStatus string

// Evaluation outcome statuses. An absent or failed outcome for one metric
// never blocks another.
const (
	// StatusOK means the judge produced a valid score for the metric.
	StatusOK OutcomeStatus = "ok"

	// StatusFailed means the judge call or output parsing failed.
	StatusFailed OutcomeStatus = "failed"

	// StatusTimedOut means the evaluator exceeded its per-evaluator timeout.
	StatusTimedOut OutcomeStatus = "timed_out"
)

// EvaluationOutcome is one evaluator's verdict for one metric.
// A single evaluator may report several metrics (e.g. relevance and
// completeness from one judge call); each gets its own outcome.
type EvaluationOutcome struct {
	// MetricName identifies the metric, e.g. "relevance" or
	// "factual_accuracy". Outcomes are merged into the report by this key.
	MetricName string `json:"metric_name"`

	// Score is the judge's bounded numeric score. It is nil when Status is
	// not StatusOK; a failed metric never carries a fabricated score.
	Score *float64 `json:"score,omitempty"`

	// Explanation is the judge's reasoning for the score, or the failure
	// reason when Status is not StatusOK.
	Explanation string `json:"explanation"`

	// Flags lists specific claims or caveats the judge called out, such as
	// unsupported statements found by the grounding judge.
	Flags []string `json:"flags,omitempty"`

	// Status tags the outcome as ok, failed, or timed_out.
	Status OutcomeStatus `json:"status"`
}

// FailedOutcome builds an EvaluationOutcome recording a contained evaluator
// failure for the given metric.
func FailedOutcome(metric string, status OutcomeStatus, reason string) EvaluationOutcome {
	return EvaluationOutcome{
		MetricName:  metric,
		Explanation: reason,
		Status:      status,
	}
}
