package domain

import "fmt"

// ModelPrice holds per-token prices for a single model, in USD.
type ModelPrice struct {
	// PromptTokenUSD is the price of one prompt token.
	PromptTokenUSD float64 `yaml:"prompt_token_usd" json:"prompt_token_usd" validate:"min=0"`

	// CompletionTokenUSD is the price of one completion token.
	CompletionTokenUSD float64 `yaml:"completion_token_usd" json:"completion_token_usd" validate:"min=0"`
}

// PriceTable maps model identifiers to their per-token prices. It is
// supplied by configuration, read-only after initialization, and safe for
// concurrent use.
type PriceTable map[string]ModelPrice

// Cost computes the USD cost of a call from its token counts.
// It returns an error wrapping ErrUnknownModelPricing when the model has no
// price entry: defaulting to zero would report a silently wrong cost.
func (t PriceTable) Cost(model string, promptTokens, completionTokens int) (float64, error) {
	price, ok := t[model]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownModelPricing, model)
	}
	return float64(promptTokens)*price.PromptTokenUSD +
		float64(completionTokens)*price.CompletionTokenUSD, nil
}

// Has reports whether the table carries a price for the given model.
// Callers use it to reject unpriced models before spending tokens on them.
func (t PriceTable) Has(model string) bool {
	_, ok := t[model]
	return ok
}
