package evaluators

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/ahrav/go-evalflow/internal/domain"
	"github.com/ahrav/go-evalflow/internal/ports"
)

var _ ports.Evaluator = (*RelevanceJudge)(nil)

const relevancePromptText = `You are evaluating an assistant's answer to a user question.

Question: {{.Query}}

Answer: {{.Response}}

Rate the answer on two dimensions, each on a scale of {{.MinScore}} to {{.MaxScore}}:
- relevance: how directly the answer addresses the question
- completeness: how fully the answer covers every part of the question

Respond with valid JSON in exactly this format:
{"relevance_score": <number>, "completeness_score": <number>, "explanation": "<one or two sentences>"}`

// relevanceReply is the JSON shape the relevance judge must produce.
type relevanceReply struct {
	RelevanceScore    float64 `json:"relevance_score" validate:"required,min=1,max=10"`
	CompletenessScore float64 `json:"completeness_score" validate:"required,min=1,max=10"`
	Explanation       string  `json:"explanation" validate:"required"`
}

// RelevanceJudgeConfig configures a RelevanceJudge.
type RelevanceJudgeConfig struct {
	// Temperature controls judge sampling; keep low for consistency.
	Temperature float64 `yaml:"temperature" json:"temperature" validate:"min=0.0,max=1.0"`

	// MaxTokens bounds the judge's reasoning length.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens" validate:"min=50,max=2000"`
}

// DefaultRelevanceJudgeConfig returns the standard judge settings.
func DefaultRelevanceJudgeConfig() RelevanceJudgeConfig {
	return RelevanceJudgeConfig{
		Temperature: DefaultJudgeTemperature,
		MaxTokens:   DefaultJudgeMaxTokens,
	}
}

// RelevanceJudge scores a response for relevance and completeness with a
// single judge call. Both metrics come from one prompt because they share
// the same question/answer reading; splitting them would double cost for
// no accuracy gain.
//
// The judge is stateless and safe for concurrent use.
type RelevanceJudge struct {
	client ports.LLMClient
	config RelevanceJudgeConfig
	prompt *template.Template
}

// NewRelevanceJudge builds a RelevanceJudge backed by the given client.
func NewRelevanceJudge(client ports.LLMClient, config RelevanceJudgeConfig) (*RelevanceJudge, error) {
	if client == nil {
		return nil, fmt.Errorf("LLM client cannot be nil")
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("relevance judge configuration invalid: %w", err)
	}

	prompt, err := template.New("relevancePrompt").Parse(relevancePromptText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse relevance prompt template: %w", err)
	}

	return &RelevanceJudge{client: client, config: config, prompt: prompt}, nil
}

// Name identifies the judge in logs and traces.
func (j *RelevanceJudge) Name() string { return "relevance_judge" }

// Metrics lists the metric names this judge reports.
func (j *RelevanceJudge) Metrics() []string {
	return []string{MetricRelevance, MetricCompleteness}
}

// Evaluate asks the judge model to rate the response and returns one
// outcome per metric.
func (j *RelevanceJudge) Evaluate(ctx context.Context, response string, req domain.NormalizedRequest) ([]domain.EvaluationOutcome, error) {
	var buf bytes.Buffer
	data := struct {
		Query    string
		Response string
		MinScore float64
		MaxScore float64
	}{req.CurrentQuery, response, MinScore, MaxScore}
	if err := j.prompt.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render relevance prompt: %w", err)
	}

	reply, err := j.client.Complete(ctx, buf.String(), map[string]any{
		"temperature": j.config.Temperature,
		"max_tokens":  j.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("relevance judge call failed: %w", err)
	}

	var parsed relevanceReply
	if err := decodeJudgeReply(reply, &parsed); err != nil {
		return nil, err
	}
	if !scoreInRange(parsed.RelevanceScore) || !scoreInRange(parsed.CompletenessScore) {
		return nil, fmt.Errorf("%w: score outside [%g, %g]", domain.ErrUnparseableJudgeOutput, MinScore, MaxScore)
	}

	relevance := parsed.RelevanceScore
	completeness := parsed.CompletenessScore
	return []domain.EvaluationOutcome{
		{
			MetricName:  MetricRelevance,
			Score:       &relevance,
			Explanation: parsed.Explanation,
			Status:      domain.StatusOK,
		},
		{
			MetricName:  MetricCompleteness,
			Score:       &completeness,
			Explanation: parsed.Explanation,
			Status:      domain.StatusOK,
		},
	}, nil
}

func scoreInRange(score float64) bool {
	return score >= MinScore && score <= MaxScore
}
