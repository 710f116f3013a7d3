package domain

// GenerationResult captures a single generation call: the produced text,
// measured latency, and computed cost. It is created once per evaluation
// request and never mutated afterwards.
type GenerationResult struct {
	// ResponseText is the text produced by the generation model.
	ResponseText string `json:"response_text"`

	// Model is the identifier of the model that produced the response.
	Model string `json:"model"`

	// PromptTokens is the token count of the rendered prompt as reported
	// by the provider.
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the token count of the generated response as
	// reported by the provider.
	CompletionTokens int `json:"completion_tokens"`

	// LatencyMs is the wall-clock duration between dispatching the request
	// and receiving the full response, in milliseconds.
	LatencyMs int64 `json:"latency_ms"`

	// CostUSD is computed from token counts and the per-model price table.
	// It is never measured and never silently zero.
	CostUSD float64 `json:"cost_usd"`
}
