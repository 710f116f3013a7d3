package evaluators

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"

	"github.com/agnivade/levenshtein"

	"github.com/ahrav/go-evalflow/internal/domain"
	"github.com/ahrav/go-evalflow/internal/ports"
)

var _ ports.Evaluator = (*GroundingJudge)(nil)

const groundingPromptText = `You are checking whether an assistant's answer is supported by retrieved context.

Context passages:
{{range $i, $c := .ContextItems}}[{{add1 $i}}] {{$c.Text}}
{{else}}(no context retrieved)
{{end}}
Answer under review: {{.Response}}

Rate factual accuracy on a scale of {{.MinScore}} to {{.MaxScore}}: does every claim in the answer follow from the context passages? List any claims the context does not support.

Respond with valid JSON in exactly this format:
{"score": <number>, "unsupported_claims": ["<claim>", ...], "explanation": "<one or two sentences>"}`

// strictRetrySuffix is appended when the first reply could not be parsed.
const strictRetrySuffix = "\n\nYour previous reply was not valid JSON. Reply with ONLY the JSON object, no prose, no markdown fences."

// groundingReply is the JSON shape the grounding judge must produce.
type groundingReply struct {
	Score             float64  `json:"score" validate:"required,min=1,max=10"`
	UnsupportedClaims []string `json:"unsupported_claims"`
	Explanation       string   `json:"explanation" validate:"required"`
}

// GroundingJudgeConfig configures a GroundingJudge.
type GroundingJudgeConfig struct {
	// Temperature controls judge sampling; keep low for consistency.
	Temperature float64 `yaml:"temperature" json:"temperature" validate:"min=0.0,max=1.0"`

	// MaxTokens bounds the judge's reasoning length.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens" validate:"min=50,max=2000"`

	// RetryOnParseFailure re-asks the judge once with a stricter
	// instruction when its reply cannot be parsed.
	RetryOnParseFailure bool `yaml:"retry_on_parse_failure" json:"retry_on_parse_failure"`
}

// DefaultGroundingJudgeConfig returns the standard judge settings.
func DefaultGroundingJudgeConfig() GroundingJudgeConfig {
	return GroundingJudgeConfig{
		Temperature:         DefaultJudgeTemperature,
		MaxTokens:           DefaultJudgeMaxTokens,
		RetryOnParseFailure: true,
	}
}

// GroundingJudge scores factual accuracy: whether the response's claims
// are supported by the retrieved context. Claims the judge flags as
// unsupported surface on the outcome as Flags, annotated with a lexical
// similarity hint computed locally so reviewers can spot claims that
// merely paraphrase the context.
//
// The judge is stateless and safe for concurrent use.
type GroundingJudge struct {
	client ports.LLMClient
	config GroundingJudgeConfig
	prompt *template.Template
}

// NewGroundingJudge builds a GroundingJudge backed by the given client.
func NewGroundingJudge(client ports.LLMClient, config GroundingJudgeConfig) (*GroundingJudge, error) {
	if client == nil {
		return nil, fmt.Errorf("LLM client cannot be nil")
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("grounding judge configuration invalid: %w", err)
	}

	prompt, err := template.New("groundingPrompt").
		Funcs(template.FuncMap{"add1": func(i int) int { return i + 1 }}).
		Parse(groundingPromptText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse grounding prompt template: %w", err)
	}

	return &GroundingJudge{client: client, config: config, prompt: prompt}, nil
}

// Name identifies the judge in logs and traces.
func (j *GroundingJudge) Name() string { return "grounding_judge" }

// Metrics lists the metric names this judge reports.
func (j *GroundingJudge) Metrics() []string {
	return []string{MetricFactualAccuracy}
}

// Evaluate asks the judge model whether the response is grounded in the
// context and returns the factual accuracy outcome.
func (j *GroundingJudge) Evaluate(ctx context.Context, response string, req domain.NormalizedRequest) ([]domain.EvaluationOutcome, error) {
	var buf bytes.Buffer
	data := struct {
		ContextItems []domain.ContextItem
		Response     string
		MinScore     float64
		MaxScore     float64
	}{req.ContextItems, response, MinScore, MaxScore}
	if err := j.prompt.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render grounding prompt: %w", err)
	}
	prompt := buf.String()

	parsed, err := j.ask(ctx, prompt)
	if err != nil && j.config.RetryOnParseFailure && errors.Is(err, domain.ErrUnparseableJudgeOutput) {
		parsed, err = j.ask(ctx, prompt+strictRetrySuffix)
	}
	if err != nil {
		return nil, err
	}
	if !scoreInRange(parsed.Score) {
		return nil, fmt.Errorf("%w: score outside [%g, %g]", domain.ErrUnparseableJudgeOutput, MinScore, MaxScore)
	}

	score := parsed.Score
	return []domain.EvaluationOutcome{
		{
			MetricName:  MetricFactualAccuracy,
			Score:       &score,
			Explanation: parsed.Explanation,
			Flags:       annotateClaims(parsed.UnsupportedClaims, req.ContextItems),
			Status:      domain.StatusOK,
		},
	}, nil
}

func (j *GroundingJudge) ask(ctx context.Context, prompt string) (groundingReply, error) {
	reply, err := j.client.Complete(ctx, prompt, map[string]any{
		"temperature": j.config.Temperature,
		"max_tokens":  j.config.MaxTokens,
	})
	if err != nil {
		return groundingReply{}, fmt.Errorf("grounding judge call failed: %w", err)
	}

	var parsed groundingReply
	if err := decodeJudgeReply(reply, &parsed); err != nil {
		return groundingReply{}, err
	}
	return parsed, nil
}

// annotateClaims appends the best lexical similarity against the context
// to each flagged claim. The hint is advisory: a high value suggests the
// judge flagged a paraphrase rather than a fabrication.
func annotateClaims(claims []string, items []domain.ContextItem) []string {
	if len(claims) == 0 {
		return nil
	}
	annotated := make([]string, len(claims))
	for i, claim := range claims {
		annotated[i] = fmt.Sprintf("%s (context similarity: %.2f)", claim, bestSimilarity(claim, items))
	}
	return annotated
}

// bestSimilarity returns the highest normalized Levenshtein similarity
// between the claim and any context passage, case-folded so casing does
// not skew the edit distance.
func bestSimilarity(claim string, items []domain.ContextItem) float64 {
	best := 0.0
	folded := foldCaser.String(claim)
	for _, item := range items {
		if s := similarity(folded, foldCaser.String(item.Text)); s > best {
			best = s
		}
	}
	return best
}

func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1.0
	}
	s := 1.0 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
	if s < 0 {
		return 0
	}
	return s
}
