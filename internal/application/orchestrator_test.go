package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-evalflow/internal/domain"
	"github.com/ahrav/go-evalflow/internal/ports"
	"github.com/ahrav/go-evalflow/internal/testutils"
)

func TestOrchestratorMergesOutcomesByMetric(t *testing.T) {
	evaluators := []ports.Evaluator{
		&testutils.MockEvaluator{
			EvaluatorName: "relevance_judge",
			MetricNames:   []string{"relevance", "completeness"},
			Outcomes: []domain.EvaluationOutcome{
				testutils.ScoredOutcome("relevance", 8, "on topic"),
				testutils.ScoredOutcome("completeness", 6, "missing detail"),
			},
		},
		&testutils.MockEvaluator{
			EvaluatorName: "grounding_judge",
			MetricNames:   []string{"factual_accuracy"},
			Outcomes: []domain.EvaluationOutcome{
				testutils.ScoredOutcome("factual_accuracy", 9, "well grounded"),
			},
		},
	}

	orch, err := NewOrchestrator(evaluators, time.Second, nil, nil)
	require.NoError(t, err)

	outcomes := orch.Run(context.Background(), "response", domain.NormalizedRequest{})
	require.Len(t, outcomes, 3)
	assert.Equal(t, domain.StatusOK, outcomes["relevance"].Status)
	assert.Equal(t, domain.StatusOK, outcomes["completeness"].Status)
	assert.Equal(t, domain.StatusOK, outcomes["factual_accuracy"].Status)
}

// Two slow evaluators must run concurrently: total wall-clock stays near
// the slowest one, not near their sum.
func TestOrchestratorLatencyBoundedByMax(t *testing.T) {
	evaluators := []ports.Evaluator{
		&testutils.MockEvaluator{
			EvaluatorName: "slow_a",
			MetricNames:   []string{"a"},
			Delay:         200 * time.Millisecond,
			Outcomes:      []domain.EvaluationOutcome{testutils.ScoredOutcome("a", 5, "ok")},
		},
		&testutils.MockEvaluator{
			EvaluatorName: "slow_b",
			MetricNames:   []string{"b"},
			Delay:         300 * time.Millisecond,
			Outcomes:      []domain.EvaluationOutcome{testutils.ScoredOutcome("b", 5, "ok")},
		},
	}

	orch, err := NewOrchestrator(evaluators, 2*time.Second, nil, nil)
	require.NoError(t, err)

	start := time.Now()
	outcomes := orch.Run(context.Background(), "response", domain.NormalizedRequest{})
	elapsed := time.Since(start)

	require.Len(t, outcomes, 2)
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
	assert.Less(t, elapsed, 450*time.Millisecond,
		"evaluators ran sequentially: %v", elapsed)
}

// A failing evaluator degrades only its own metrics; the sibling's score
// still appears.
func TestOrchestratorIsolatesFailures(t *testing.T) {
	evaluators := []ports.Evaluator{
		&testutils.MockEvaluator{
			EvaluatorName: "relevance_judge",
			MetricNames:   []string{"relevance"},
			Outcomes:      []domain.EvaluationOutcome{testutils.ScoredOutcome("relevance", 8, "on topic")},
		},
		&testutils.MockEvaluator{
			EvaluatorName: "grounding_judge",
			MetricNames:   []string{"factual_accuracy"},
			Err:           errors.New("judge returned prose"),
		},
	}

	orch, err := NewOrchestrator(evaluators, time.Second, nil, nil)
	require.NoError(t, err)

	outcomes := orch.Run(context.Background(), "response", domain.NormalizedRequest{})

	require.Contains(t, outcomes, "relevance")
	assert.Equal(t, domain.StatusOK, outcomes["relevance"].Status)
	require.NotNil(t, outcomes["relevance"].Score)

	require.Contains(t, outcomes, "factual_accuracy")
	assert.Equal(t, domain.StatusFailed, outcomes["factual_accuracy"].Status)
	assert.Nil(t, outcomes["factual_accuracy"].Score)
	assert.Contains(t, outcomes["factual_accuracy"].Explanation, "judge returned prose")
}

func TestOrchestratorTimeoutCancelsOnlyThatEvaluator(t *testing.T) {
	evaluators := []ports.Evaluator{
		&testutils.MockEvaluator{
			EvaluatorName: "fast",
			MetricNames:   []string{"relevance"},
			Outcomes:      []domain.EvaluationOutcome{testutils.ScoredOutcome("relevance", 7, "ok")},
		},
		&testutils.MockEvaluator{
			EvaluatorName: "stuck",
			MetricNames:   []string{"factual_accuracy"},
			Delay:         5 * time.Second,
		},
	}

	orch, err := NewOrchestrator(evaluators, 100*time.Millisecond, nil, nil)
	require.NoError(t, err)

	start := time.Now()
	outcomes := orch.Run(context.Background(), "response", domain.NormalizedRequest{})
	elapsed := time.Since(start)

	assert.Equal(t, domain.StatusOK, outcomes["relevance"].Status)
	assert.Equal(t, domain.StatusTimedOut, outcomes["factual_accuracy"].Status)
	assert.Less(t, elapsed, time.Second, "timeout must not wait out the stuck judge")
}

func TestOrchestratorContainsPanics(t *testing.T) {
	evaluators := []ports.Evaluator{
		&testutils.MockEvaluator{
			EvaluatorName: "healthy",
			MetricNames:   []string{"relevance"},
			Outcomes:      []domain.EvaluationOutcome{testutils.ScoredOutcome("relevance", 7, "ok")},
		},
		&testutils.MockEvaluator{
			EvaluatorName: "broken",
			MetricNames:   []string{"factual_accuracy"},
			PanicWith:     "nil dereference",
		},
	}

	orch, err := NewOrchestrator(evaluators, time.Second, nil, nil)
	require.NoError(t, err)

	outcomes := orch.Run(context.Background(), "response", domain.NormalizedRequest{})
	assert.Equal(t, domain.StatusOK, outcomes["relevance"].Status)
	assert.Equal(t, domain.StatusFailed, outcomes["factual_accuracy"].Status)
	assert.Contains(t, outcomes["factual_accuracy"].Explanation, "panicked")
}

func TestOrchestratorFillsUnderReportedMetrics(t *testing.T) {
	evaluators := []ports.Evaluator{
		&testutils.MockEvaluator{
			EvaluatorName: "partial",
			MetricNames:   []string{"relevance", "completeness"},
			Outcomes:      []domain.EvaluationOutcome{testutils.ScoredOutcome("relevance", 8, "ok")},
		},
	}

	orch, err := NewOrchestrator(evaluators, time.Second, nil, nil)
	require.NoError(t, err)

	outcomes := orch.Run(context.Background(), "response", domain.NormalizedRequest{})
	require.Len(t, outcomes, 2)
	assert.Equal(t, domain.StatusOK, outcomes["relevance"].Status)
	assert.Equal(t, domain.StatusFailed, outcomes["completeness"].Status)
}
