package application

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-evalflow/internal/domain"
)

// DefaultPriceTable carries per-token prices for the models the pipeline
// ships support for. Operators override or extend it with a YAML file;
// models absent from the effective table are rejected before generation.
//
// Prices are USD per single token (not per 1K).
func DefaultPriceTable() domain.PriceTable {
	return domain.PriceTable{
		// OpenAI.
		"gpt-4o-mini":   {PromptTokenUSD: 0.00000015, CompletionTokenUSD: 0.0000006},
		"gpt-4-turbo":   {PromptTokenUSD: 0.00001, CompletionTokenUSD: 0.00003},
		"gpt-3.5-turbo": {PromptTokenUSD: 0.0000005, CompletionTokenUSD: 0.0000015},

		// Google Gemini.
		"gemini-2.5-flash": {PromptTokenUSD: 0.0000003, CompletionTokenUSD: 0.0000025},
		"gemini-2.0-flash": {PromptTokenUSD: 0.0000001, CompletionTokenUSD: 0.0000004},
		"gemini-1.5-flash": {PromptTokenUSD: 0.000000075, CompletionTokenUSD: 0.0000003},
		"gemini-1.5-pro":   {PromptTokenUSD: 0.00000125, CompletionTokenUSD: 0.000005},

		// Anthropic.
		"claude-3-5-sonnet-20241022": {PromptTokenUSD: 0.000003, CompletionTokenUSD: 0.000015},
		"claude-3-5-haiku-20241022":  {PromptTokenUSD: 0.0000008, CompletionTokenUSD: 0.000004},
	}
}

// priceFile is the YAML shape of an operator-supplied price table.
type priceFile struct {
	Models map[string]domain.ModelPrice `yaml:"models"`
}

// LoadPriceTable reads a YAML price table and merges it over the defaults,
// so operators only list the models they change or add.
func LoadPriceTable(r io.Reader) (domain.PriceTable, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read price table: %w", err)
	}

	var file priceFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse price table: %w", err)
	}
	if len(file.Models) == 0 {
		return nil, fmt.Errorf("price table defines no models")
	}

	table := DefaultPriceTable()
	for model, price := range file.Models {
		if price.PromptTokenUSD < 0 || price.CompletionTokenUSD < 0 {
			return nil, fmt.Errorf("price table: model %q has a negative price", model)
		}
		table[model] = price
	}
	return table, nil
}

// LoadPriceTableFile reads a YAML price table from disk.
func LoadPriceTableFile(path string) (domain.PriceTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open price table %s: %w", path, err)
	}
	defer f.Close()
	return LoadPriceTable(f)
}
