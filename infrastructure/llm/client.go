// Package llm provides the provider clients the evaluation pipeline uses
// for response generation and judge calls. It abstracts OpenAI, Anthropic,
// and Google Gemini behind a single interface and layers cross-cutting
// concerns (retry, rate limiting, caching, metrics, tracing) on top
// through a middleware chain.
//
// Basic usage:
//
//	client, err := llm.NewClient("openai", llm.ClientConfig{
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	    Model:  "gpt-4o-mini",
//	})
//	response, err := client.Complete(ctx, prompt, nil)
//
// With middleware:
//
//	client, err := llm.NewClient("anthropic", llm.ClientConfig{
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	    Model:  "claude-3-5-haiku-20241022",
//	    Middleware: []llm.Middleware{
//	        llm.RateLimitMiddleware(10, 20),
//	        llm.RetryMiddleware(3, 500*time.Millisecond, 10*time.Second),
//	        llm.MetricsMiddleware(collector),
//	    },
//	})
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ahrav/go-evalflow/internal/ports"
)

// CoreLLM is the minimal surface a provider must implement. Middleware
// wraps any conforming implementation, so resilience and observability
// layers stay provider-agnostic.
type CoreLLM interface {
	// DoRequest sends a prompt to the provider and returns the response
	// text plus the prompt and completion token counts. The opts map
	// carries the provider-agnostic knobs ("model", "max_tokens",
	// "temperature", "system", "top_p") and any provider-specific extras.
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	// GetModel returns the currently configured model name.
	GetModel() string

	// SetModel switches the model for subsequent requests.
	SetModel(model string)
}

// Middleware wraps a CoreLLM to add cross-cutting behavior. Middleware
// composes: the first entry in ClientConfig.Middleware becomes the
// outermost layer.
type Middleware func(CoreLLM) CoreLLM

// TokenEstimator approximates token counts before a request is made.
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// ClientConfig configures one provider client.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model selects the model used when a request does not override it.
	Model string

	// BaseURL overrides the provider's default endpoint, e.g. for proxies.
	BaseURL string

	// Timeout bounds individual provider requests. Zero means no timeout.
	Timeout time.Duration

	// TokenEstimator supplies custom token counting. Nil selects a
	// character-ratio estimator.
	TokenEstimator TokenEstimator

	// Middleware is applied in order, first entry outermost.
	Middleware []Middleware
}

// ProviderFactory builds a CoreLLM from configuration. Providers register
// themselves via RegisterProviderFactory in their init functions.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory registers a provider under a name usable with
// NewClient. Later registrations replace earlier ones.
func RegisterProviderFactory(name string, factory ProviderFactory) {
	providerFactories[name] = factory
}

// Client adapts a middleware-wrapped CoreLLM to the ports.LLMClient
// contract the pipeline consumes.
type Client struct {
	core      CoreLLM
	estimator TokenEstimator
}

var _ ports.LLMClient = (*Client)(nil)

// NewClient builds a client for the named provider and wraps it with the
// configured middleware chain.
func NewClient(provider string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	factory, ok := providerFactories[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", provider, err)
	}

	// Reverse application keeps the first configured middleware outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	estimator := config.TokenEstimator
	if estimator == nil {
		estimator = NewTokenCounter()
	}

	return &Client{core: core, estimator: estimator}, nil
}

// Complete sends a prompt and returns the response text, discarding usage.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.CompleteWithUsage(ctx, prompt, options)
	return response, err
}

// CompleteWithUsage sends a prompt and returns the response with token
// usage. Provider failures surface as *ports.LLMError so callers can
// inspect retryability without importing provider SDKs.
func (c *Client) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error) {
	response, tokensIn, tokensOut, err := c.core.DoRequest(ctx, prompt, options)
	if err != nil {
		return "", 0, 0, wrapPortsError(c.core.GetModel(), err)
	}
	return response, tokensIn, tokensOut, nil
}

// EstimateTokens approximates the token count of a text.
func (c *Client) EstimateTokens(text string) (int, error) {
	return c.estimator.EstimateTokens(text), nil
}

// GetModel returns the configured model name.
func (c *Client) GetModel() string { return c.core.GetModel() }

// SetModel switches the model for subsequent requests.
func (c *Client) SetModel(model string) { c.core.SetModel(model) }
