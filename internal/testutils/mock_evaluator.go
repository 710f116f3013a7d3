package testutils

import (
	"context"
	"time"

	"github.com/ahrav/go-evalflow/internal/domain"
	"github.com/ahrav/go-evalflow/internal/ports"
)

// MockEvaluator implements ports.Evaluator with scripted behavior for
// orchestrator tests: fixed outcomes, an optional artificial delay, an
// optional error, or an optional panic.
type MockEvaluator struct {
	// EvaluatorName is returned by Name.
	EvaluatorName string

	// MetricNames is returned by Metrics.
	MetricNames []string

	// Outcomes is returned by Evaluate when no failure is scripted.
	Outcomes []domain.EvaluationOutcome

	// Delay blocks Evaluate before it responds, honoring cancellation.
	Delay time.Duration

	// Err is returned by Evaluate when set.
	Err error

	// PanicWith makes Evaluate panic when non-nil.
	PanicWith any
}

// Name implements ports.Evaluator.
func (m *MockEvaluator) Name() string { return m.EvaluatorName }

// Metrics implements ports.Evaluator.
func (m *MockEvaluator) Metrics() []string { return m.MetricNames }

// Evaluate implements ports.Evaluator.
func (m *MockEvaluator) Evaluate(
	ctx context.Context,
	response string,
	req domain.NormalizedRequest,
) ([]domain.EvaluationOutcome, error) {
	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Delay):
		}
	}

	if m.PanicWith != nil {
		panic(m.PanicWith)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Outcomes, nil
}

// ScoredOutcome builds an ok outcome for tests.
func ScoredOutcome(metric string, score float64, explanation string) domain.EvaluationOutcome {
	return domain.EvaluationOutcome{
		MetricName:  metric,
		Score:       &score,
		Explanation: explanation,
		Status:      domain.StatusOK,
	}
}

var _ ports.Evaluator = (*MockEvaluator)(nil)
