package llm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-evalflow/internal/ports"
)

// mockCore is a scriptable CoreLLM used across the package tests.
type mockCore struct {
	mu        sync.Mutex
	model     string
	response  string
	tokensIn  int
	tokensOut int
	errs      []error // consumed one per call, nil entries mean success
	calls     int
}

func (m *mockCore) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", 0, 0, err
	}

	call := m.calls
	m.calls++
	if call < len(m.errs) && m.errs[call] != nil {
		return "", 0, 0, m.errs[call]
	}
	return m.response, m.tokensIn, m.tokensOut, nil
}

func (m *mockCore) GetModel() string  { return m.model }
func (m *mockCore) SetModel(s string) { m.model = s }

func (m *mockCore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestNewClientValidatesConfig(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		config   ClientConfig
	}{
		{"missing api key", "openai", ClientConfig{Model: "gpt-4o-mini"}},
		{"missing model", "openai", ClientConfig{APIKey: "sk-test"}},
		{"unknown provider", "acme", ClientConfig{APIKey: "k", Model: "m"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.provider, tt.config)
			assert.Error(t, err)
		})
	}
}

func TestMiddlewareOrderFirstOutermost(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next CoreLLM) CoreLLM {
			return &taggedCore{next: next, name: name, order: &order}
		}
	}

	RegisterProviderFactory("test-order", func(ClientConfig) (CoreLLM, error) {
		return &mockCore{model: "test-model", response: "ok"}, nil
	})

	client, err := NewClient("test-order", ClientConfig{
		APIKey:     "k",
		Model:      "test-model",
		Middleware: []Middleware{tag("outer"), tag("inner")},
	})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

type taggedCore struct {
	next  CoreLLM
	name  string
	order *[]string
}

func (c *taggedCore) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	*c.order = append(*c.order, c.name)
	return c.next.DoRequest(ctx, prompt, opts)
}

func (c *taggedCore) GetModel() string  { return c.next.GetModel() }
func (c *taggedCore) SetModel(m string) { c.next.SetModel(m) }

func TestClientWrapsFailuresAsLLMError(t *testing.T) {
	RegisterProviderFactory("test-fail", func(ClientConfig) (CoreLLM, error) {
		return &mockCore{
			model: "test-model",
			errs:  []error{NewProviderError("test", ErrorTypeRateLimit, 429, "slow down", nil)},
		}, nil
	})

	client, err := NewClient("test-fail", ClientConfig{APIKey: "k", Model: "test-model"})
	require.NoError(t, err)

	_, _, _, err = client.CompleteWithUsage(context.Background(), "hi", nil)
	require.Error(t, err)

	var llmErr *ports.LLMError
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, "test-model", llmErr.Model)
	assert.True(t, llmErr.IsRetryable())
	assert.True(t, errors.Is(err, ports.ErrRateLimited))
}

func TestParseRequestOptions(t *testing.T) {
	opts := map[string]any{
		"model":       "override",
		"max_tokens":  256,
		"temperature": 0.3,
		"top_k":       5,
	}

	parsed := ParseRequestOptions(opts, "default-model")

	assert.Equal(t, "override", parsed.Model)
	assert.Equal(t, 256, parsed.MaxTokens)
	require.NotNil(t, parsed.Temperature)
	assert.Equal(t, 0.3, *parsed.Temperature)
	assert.Nil(t, parsed.TopP)
	assert.Equal(t, 5, parsed.Extra["top_k"])

	defaults := ParseRequestOptions(nil, "default-model")
	assert.Equal(t, "default-model", defaults.Model)
	assert.Equal(t, DefaultMaxTokens, defaults.MaxTokens)
}

func TestTokenCounter(t *testing.T) {
	tc := NewTokenCounter()

	assert.Zero(t, tc.EstimateTokens(""))
	assert.Equal(t, 25, tc.EstimateTokens(string(make([]byte, 100))))
	// Provider-reported counts win over estimation.
	assert.Equal(t, 42, tc.GetTokenCount(42, "ignored"))
	assert.Equal(t, 1, tc.GetTokenCount(0, "hey"))
}
