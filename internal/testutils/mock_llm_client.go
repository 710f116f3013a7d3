// Package testutils provides deterministic test doubles for the
// evaluation pipeline.
package testutils

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ahrav/go-evalflow/internal/ports"
)

// MockLLMClient implements ports.LLMClient with deterministic responses
// for testing. Responses are selected by substring match against the
// prompt, carry configurable token usage, and can simulate latency and
// failures. The client is safe for concurrent use.
type MockLLMClient struct {
	mu        sync.Mutex
	model     string
	responses []MockResponse
	calls     int
	err       error
	delay     time.Duration
}

// MockResponse is one pre-configured response pattern.
type MockResponse struct {
	// Pattern is matched as a substring of the prompt. The empty pattern
	// matches everything and acts as the fallback.
	Pattern string

	// Response is the text returned for matching prompts.
	Response string

	// PromptTokens and CompletionTokens are the usage counts reported for
	// this response. Zero values fall back to a length-based estimate.
	PromptTokens     int
	CompletionTokens int
}

// NewMockLLMClient creates a mock client reporting the given model.
func NewMockLLMClient(model string) *MockLLMClient {
	return &MockLLMClient{model: model}
}

// AddResponse registers a response pattern. Patterns are checked in
// registration order; the first match wins.
func (m *MockLLMClient) AddResponse(r MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, r)
}

// FailWith makes every subsequent call return err.
func (m *MockLLMClient) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// DelayBy makes every subsequent call block for d before responding,
// honoring context cancellation. Used to exercise timeout paths.
func (m *MockLLMClient) DelayBy(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Calls reports how many completion calls the client has served.
func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Complete implements ports.LLMClient.
func (m *MockLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := m.CompleteWithUsage(ctx, prompt, options)
	return response, err
}

// CompleteWithUsage implements ports.LLMClient.
func (m *MockLLMClient) CompleteWithUsage(
	ctx context.Context,
	prompt string,
	options map[string]any,
) (string, int, int, error) {
	if prompt == "" {
		return "", 0, 0, fmt.Errorf("prompt cannot be empty")
	}

	m.mu.Lock()
	m.calls++
	err := m.err
	delay := m.delay
	responses := append([]MockResponse(nil), m.responses...)
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", 0, 0, ctx.Err()
		case <-time.After(delay):
		}
	}

	if ctx.Err() != nil {
		return "", 0, 0, ctx.Err()
	}
	if err != nil {
		return "", 0, 0, err
	}

	for _, r := range responses {
		if r.Pattern == "" || strings.Contains(prompt, r.Pattern) {
			promptTokens := r.PromptTokens
			if promptTokens == 0 {
				promptTokens = estimate(prompt)
			}
			completionTokens := r.CompletionTokens
			if completionTokens == 0 {
				completionTokens = estimate(r.Response)
			}
			return r.Response, promptTokens, completionTokens, nil
		}
	}

	return "mock response", estimate(prompt), 3, nil
}

// EstimateTokens implements ports.LLMClient with the same 4-characters-
// per-token heuristic the real clients fall back to.
func (m *MockLLMClient) EstimateTokens(text string) (int, error) {
	return estimate(text), nil
}

// GetModel implements ports.LLMClient.
func (m *MockLLMClient) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

func estimate(text string) int {
	if text == "" {
		return 0
	}
	tokens := len(text) / 4
	if tokens == 0 {
		tokens = 1
	}
	return tokens
}

var _ ports.LLMClient = (*MockLLMClient)(nil)
