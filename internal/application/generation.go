package application

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-evalflow/internal/domain"
	"github.com/ahrav/go-evalflow/internal/ports"
)

// GenerateOptions carries the per-request generation knobs.
type GenerateOptions struct {
	// Model identifies the generation model. It must be present in the
	// price table before any tokens are spent on it.
	Model string

	// MaxTokens bounds the generated response length.
	MaxTokens int

	// Temperature controls sampling randomness.
	Temperature float64
}

// GenerationService invokes the generation model, measures wall-clock
// latency, and computes cost from the reported token usage and the
// configured price table. It performs no retries: retry policy lives in the
// LLM client middleware.
type GenerationService struct {
	prices domain.PriceTable
	tracer trace.Tracer
}

// NewGenerationService creates a GenerationService backed by the given
// price table. The table is read-only after initialization.
func NewGenerationService(prices domain.PriceTable) (*GenerationService, error) {
	if len(prices) == 0 {
		return nil, fmt.Errorf("price table cannot be empty")
	}
	return &GenerationService{
		prices: prices,
		tracer: otel.Tracer("generation-service"),
	}, nil
}

// Generate sends the rendered prompt to the generation model and returns
// the response with latency and cost attached.
//
// Pricing is checked before dispatch: a model absent from the price table
// fails with ErrUnknownModelPricing without spending any tokens. Transport
// or provider failures surface as ErrGenerationFailure.
func (gs *GenerationService) Generate(
	ctx context.Context,
	client ports.LLMClient,
	prompt string,
	opts GenerateOptions,
) (domain.GenerationResult, error) {
	model := opts.Model
	if model == "" {
		model = client.GetModel()
	}

	if !gs.prices.Has(model) {
		return domain.GenerationResult{}, fmt.Errorf("%w: %q", domain.ErrUnknownModelPricing, model)
	}

	ctx, span := gs.tracer.Start(ctx, "GenerationService.Generate",
		trace.WithAttributes(attribute.String("llm.model", model)),
	)
	defer span.End()

	options := map[string]any{
		"model":       model,
		"temperature": opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		options["max_tokens"] = opts.MaxTokens
	}

	start := time.Now()
	response, promptTokens, completionTokens, err := client.CompleteWithUsage(ctx, prompt, options)
	latency := time.Since(start)
	if err != nil {
		span.RecordError(err)
		return domain.GenerationResult{}, fmt.Errorf("%w: %v", domain.ErrGenerationFailure, err)
	}

	cost, err := gs.prices.Cost(model, promptTokens, completionTokens)
	if err != nil {
		return domain.GenerationResult{}, err
	}

	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", promptTokens),
		attribute.Int("llm.completion_tokens", completionTokens),
		attribute.Int64("llm.latency_ms", latency.Milliseconds()),
	)

	return domain.GenerationResult{
		ResponseText:     response,
		Model:            model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		LatencyMs:        latency.Milliseconds(),
		CostUSD:          cost,
	}, nil
}
