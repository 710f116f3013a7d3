package evaluators

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-evalflow/internal/domain"
	"github.com/ahrav/go-evalflow/internal/testutils"
)

func TestGroundingJudgeScoresAndFlags(t *testing.T) {
	client := testutils.NewMockLLMClient("judge-model")
	client.AddResponse(testutils.MockResponse{
		Pattern:  "Answer under review:",
		Response: `{"score": 4, "unsupported_claims": ["Go was released in 2015"], "explanation": "release year claim not in context"}`,
	})

	judge, err := NewGroundingJudge(client, DefaultGroundingJudgeConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"factual_accuracy"}, judge.Metrics())

	outcomes, err := judge.Evaluate(context.Background(), "Go was released in 2015.", normalizedRequest())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	outcome := outcomes[0]
	assert.Equal(t, MetricFactualAccuracy, outcome.MetricName)
	require.NotNil(t, outcome.Score)
	assert.Equal(t, 4.0, *outcome.Score)
	require.Len(t, outcome.Flags, 1)
	assert.True(t, strings.HasPrefix(outcome.Flags[0], "Go was released in 2015"))
	assert.Contains(t, outcome.Flags[0], "context similarity:")
}

func TestGroundingJudgeNoClaimsNoFlags(t *testing.T) {
	client := testutils.NewMockLLMClient("judge-model")
	client.AddResponse(testutils.MockResponse{
		Response: `{"score": 9, "unsupported_claims": [], "explanation": "fully supported"}`,
	})

	judge, err := NewGroundingJudge(client, DefaultGroundingJudgeConfig())
	require.NoError(t, err)

	outcomes, err := judge.Evaluate(context.Background(), "Go was designed at Google.", normalizedRequest())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Empty(t, outcomes[0].Flags)
}

func TestGroundingJudgeRetriesOnceOnParseFailure(t *testing.T) {
	client := testutils.NewMockLLMClient("judge-model")
	// The strict retry carries an extra instruction; key the good reply to
	// it so the first ask fails to parse and the second succeeds.
	client.AddResponse(testutils.MockResponse{
		Pattern:  "ONLY the JSON object",
		Response: `{"score": 7, "unsupported_claims": [], "explanation": "supported"}`,
	})
	client.AddResponse(testutils.MockResponse{
		Response: "I think this answer is well grounded overall.",
	})

	judge, err := NewGroundingJudge(client, DefaultGroundingJudgeConfig())
	require.NoError(t, err)

	outcomes, err := judge.Evaluate(context.Background(), "An answer.", normalizedRequest())
	require.NoError(t, err)
	assert.Equal(t, 7.0, *outcomes[0].Score)
	assert.Equal(t, 2, client.Calls())
}

func TestGroundingJudgeRetryDisabled(t *testing.T) {
	client := testutils.NewMockLLMClient("judge-model")
	client.AddResponse(testutils.MockResponse{Response: "not json"})

	config := DefaultGroundingJudgeConfig()
	config.RetryOnParseFailure = false

	judge, err := NewGroundingJudge(client, config)
	require.NoError(t, err)

	_, err = judge.Evaluate(context.Background(), "An answer.", normalizedRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnparseableJudgeOutput))
	assert.Equal(t, 1, client.Calls())
}

func TestBestSimilarity(t *testing.T) {
	items := []domain.ContextItem{
		{Text: "Go was designed at Google."},
		{Text: "Completely unrelated text about cooking."},
	}

	// Identical text modulo case folds to similarity 1.0.
	assert.InDelta(t, 1.0, bestSimilarity("go was designed at google.", items), 1e-9)

	// A fabricated claim shares little with either passage.
	assert.Less(t, bestSimilarity("The moon is made of cheese", items), 0.5)

	// No context at all yields zero.
	assert.Zero(t, bestSimilarity("anything", nil))
}
