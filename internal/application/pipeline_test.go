package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-evalflow/internal/domain"
	"github.com/ahrav/go-evalflow/internal/ports"
	"github.com/ahrav/go-evalflow/internal/testutils"
)

func newTestPipeline(t *testing.T, client *testutils.MockLLMClient, evaluators []ports.Evaluator) *Pipeline {
	t.Helper()

	config := DefaultPipelineConfig("mock")
	config.EvaluatorTimeout = time.Second

	pipeline, err := NewPipeline(
		config,
		map[string]ports.LLMClient{"mock": client},
		domain.PriceTable{"test-model": {PromptTokenUSD: 0.0001, CompletionTokenUSD: 0.0002}},
		evaluators,
		nil,
		nil,
	)
	require.NoError(t, err)
	return pipeline
}

func rawConversation() any {
	return []any{
		map[string]any{"role": "user", "content": "What is Go?"},
		map[string]any{"role": "assistant", "content": "A language."},
		map[string]any{"role": "user", "content": "Who created it?"},
	}
}

func rawContext() any {
	return []any{
		map[string]any{"text": "Go was designed at Google.", "similarity_score": 0.9},
	}
}

func TestPipelineEvaluate(t *testing.T) {
	client := testutils.NewMockLLMClient("test-model")
	client.AddResponse(testutils.MockResponse{
		Pattern:          "Question: Who created it?",
		Response:         "Go was created at Google by Griesemer, Pike, and Thompson.",
		PromptTokens:     200,
		CompletionTokens: 30,
	})

	evaluators := []ports.Evaluator{
		&testutils.MockEvaluator{
			EvaluatorName: "relevance_judge",
			MetricNames:   []string{"relevance", "completeness"},
			Outcomes: []domain.EvaluationOutcome{
				testutils.ScoredOutcome("relevance", 9, "answers the question"),
				testutils.ScoredOutcome("completeness", 8, "names all designers"),
			},
		},
		&testutils.MockEvaluator{
			EvaluatorName: "grounding_judge",
			MetricNames:   []string{"factual_accuracy"},
			Outcomes: []domain.EvaluationOutcome{
				testutils.ScoredOutcome("factual_accuracy", 9, "supported by context"),
			},
		},
	}

	pipeline := newTestPipeline(t, client, evaluators)

	report, err := pipeline.Evaluate(context.Background(), EvaluateRequest{
		Conversation: rawConversation(),
		Context:      rawContext(),
	})
	require.NoError(t, err)

	assert.Contains(t, report.GeneratedResponse, "Griesemer")
	assert.True(t, strings.HasSuffix(report.PromptUsed, "Question: Who created it?"))
	assert.Equal(t, map[string]float64{
		"relevance":        9,
		"completeness":     8,
		"factual_accuracy": 9,
	}, report.Scores)
	assert.InDelta(t, 200*0.0001+30*0.0002, report.CostUSD, 1e-12)
	require.Len(t, report.TopContext, 1)
	assert.Equal(t, "Go was designed at Google.", report.TopContext[0].Text)
}

func TestPipelineInvalidInputSkipsGeneration(t *testing.T) {
	client := testutils.NewMockLLMClient("test-model")
	pipeline := newTestPipeline(t, client, []ports.Evaluator{
		&testutils.MockEvaluator{EvaluatorName: "judge", MetricNames: []string{"relevance"}},
	})

	tests := []struct {
		name         string
		conversation any
		wantErr      error
	}{
		{"empty conversation", []any{}, domain.ErrInvalidInput},
		{
			"no user turn",
			[]any{map[string]any{"role": "assistant", "content": "hello"}},
			domain.ErrNoUserTurn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pipeline.Evaluate(context.Background(), EvaluateRequest{
				Conversation: tt.conversation,
				Context:      []any{},
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr))
			assert.Zero(t, client.Calls(), "no generation call may be attempted")
		})
	}
}

func TestPipelineGenerationFailureAborts(t *testing.T) {
	client := testutils.NewMockLLMClient("test-model")
	client.FailWith(errors.New("upstream 503"))

	evaluator := &testutils.MockEvaluator{
		EvaluatorName: "judge",
		MetricNames:   []string{"relevance"},
	}
	pipeline := newTestPipeline(t, client, []ports.Evaluator{evaluator})

	_, err := pipeline.Evaluate(context.Background(), EvaluateRequest{
		Conversation: rawConversation(),
		Context:      rawContext(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrGenerationFailure))
}

func TestPipelinePartialSuccessStillReports(t *testing.T) {
	client := testutils.NewMockLLMClient("test-model")
	client.AddResponse(testutils.MockResponse{Pattern: "", Response: "An answer."})

	evaluators := []ports.Evaluator{
		&testutils.MockEvaluator{
			EvaluatorName: "relevance_judge",
			MetricNames:   []string{"relevance"},
			Outcomes:      []domain.EvaluationOutcome{testutils.ScoredOutcome("relevance", 7, "fine")},
		},
		&testutils.MockEvaluator{
			EvaluatorName: "grounding_judge",
			MetricNames:   []string{"factual_accuracy"},
			Err:           errors.New("judge unavailable"),
		},
	}

	pipeline := newTestPipeline(t, client, evaluators)

	report, err := pipeline.Evaluate(context.Background(), EvaluateRequest{
		Conversation: rawConversation(),
		Context:      rawContext(),
	})
	require.NoError(t, err, "evaluator failure must not abort the request")

	assert.Equal(t, 7.0, report.Scores["relevance"])
	assert.NotContains(t, report.Scores, "factual_accuracy")
	assert.Equal(t, domain.StatusFailed, report.EvaluationStatuses["factual_accuracy"])
}

func TestPipelineUnknownProviderRejected(t *testing.T) {
	client := testutils.NewMockLLMClient("test-model")
	pipeline := newTestPipeline(t, client, []ports.Evaluator{
		&testutils.MockEvaluator{EvaluatorName: "judge", MetricNames: []string{"relevance"}},
	})

	_, err := pipeline.Evaluate(context.Background(), EvaluateRequest{
		Conversation: rawConversation(),
		Context:      rawContext(),
		Provider:     "acme-llm",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestPipelineUnpricedModelRejected(t *testing.T) {
	client := testutils.NewMockLLMClient("test-model")
	pipeline := newTestPipeline(t, client, []ports.Evaluator{
		&testutils.MockEvaluator{EvaluatorName: "judge", MetricNames: []string{"relevance"}},
	})

	_, err := pipeline.Evaluate(context.Background(), EvaluateRequest{
		Conversation: rawConversation(),
		Context:      rawContext(),
		Model:        "gpt-unpriced",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnknownModelPricing))
	assert.Zero(t, client.Calls())
}
