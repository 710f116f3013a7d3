package application

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPriceTableMergesOverDefaults(t *testing.T) {
	yaml := `
models:
  gpt-4o-mini:
    prompt_token_usd: 0.000001
    completion_token_usd: 0.000002
  in-house-model:
    prompt_token_usd: 0.0
    completion_token_usd: 0.0
`
	table, err := LoadPriceTable(strings.NewReader(yaml))
	require.NoError(t, err)

	// Overridden entry replaces the shipped default.
	assert.Equal(t, 0.000001, table["gpt-4o-mini"].PromptTokenUSD)
	// New entry is added; zero prices are legal (self-hosted models).
	assert.True(t, table.Has("in-house-model"))
	// Untouched defaults survive the merge.
	assert.True(t, table.Has("claude-3-5-haiku-20241022"))
}

func TestLoadPriceTableRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty file", ""},
		{"no models", "models: {}"},
		{"not yaml", "{{{{"},
		{
			"negative price",
			"models:\n  bad:\n    prompt_token_usd: -1\n    completion_token_usd: 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPriceTable(strings.NewReader(tt.yaml))
			assert.Error(t, err)
		})
	}
}
