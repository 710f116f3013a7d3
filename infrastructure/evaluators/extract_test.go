package evaluators

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-evalflow/internal/domain"
)

func TestExtractJudgeJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bare JSON object",
			input: `{"score": 8, "explanation": "good"}`,
			want:  `{"score": 8, "explanation": "good"}`,
		},
		{
			name:  "whitespace around JSON",
			input: "\n  {\"score\": 7}  \n",
			want:  `{"score": 7}`,
		},
		{
			name:  "json code fence",
			input: "```json\n{\"score\": 9, \"explanation\": \"solid\"}\n```",
			want:  `{"score": 9, "explanation": "solid"}`,
		},
		{
			name:  "bare code fence",
			input: "```\n{\"score\": 5}\n```",
			want:  `{"score": 5}`,
		},
		{
			name:  "prose around the object",
			input: `Sure! {"score": 8, "explanation": "covers the question"} Hope that helps`,
			want:  `{"score": 8, "explanation": "covers the question"}`,
		},
		{
			name:  "braces inside string values",
			input: `Here: {"explanation": "uses {braces} and \"quotes\"", "score": 6} done`,
			want:  `{"explanation": "uses {braces} and \"quotes\"", "score": 6}`,
		},
		{
			name:  "nested objects",
			input: `result {"score": 4, "detail": {"flag": true}} end`,
			want:  `{"score": 4, "detail": {"flag": true}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJudgeJSON(tt.input)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, got)
		})
	}
}

func TestExtractJudgeJSONFailures(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   \n  "},
		{"no JSON at all", "I would rate this answer an 8 out of 10."},
		{"unbalanced braces", `{"score": 8, "explanation": "never closes`},
		{"array not object", `[1, 2, 3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractJudgeJSON(tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrUnparseableJudgeOutput))
		})
	}
}

func TestDecodeJudgeReplyValidates(t *testing.T) {
	var reply relevanceReply

	err := decodeJudgeReply(`{"relevance_score": 8, "completeness_score": 6, "explanation": "ok"}`, &reply)
	require.NoError(t, err)
	assert.Equal(t, 8.0, reply.RelevanceScore)

	// Parses as JSON but misses required fields.
	err = decodeJudgeReply(`{"relevance_score": 8}`, &relevanceReply{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnparseableJudgeOutput))
}
