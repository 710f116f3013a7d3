package application

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ahrav/go-evalflow/internal/domain"
	"github.com/ahrav/go-evalflow/internal/ports"
)

// PipelineConfig holds the validated knobs for one Pipeline instance.
type PipelineConfig struct {
	// DefaultProvider selects the generation client when a request does
	// not name one.
	DefaultProvider string `yaml:"default_provider" json:"default_provider" validate:"required"`

	// EvaluatorTimeout bounds each judge call independently.
	EvaluatorTimeout time.Duration `yaml:"evaluator_timeout" json:"evaluator_timeout" validate:"min=0"`

	// TopContext bounds how many context items the report carries.
	TopContext int `yaml:"top_context" json:"top_context" validate:"min=0,max=50"`

	// MaxContextItems bounds how many context items the prompt renders.
	MaxContextItems int `yaml:"max_context_items" json:"max_context_items" validate:"min=0,max=100"`

	// GenerationMaxTokens bounds the generated response length.
	GenerationMaxTokens int `yaml:"generation_max_tokens" json:"generation_max_tokens" validate:"min=0,max=16000"`

	// GenerationTemperature is the sampling temperature for generation.
	GenerationTemperature float64 `yaml:"generation_temperature" json:"generation_temperature" validate:"min=0,max=1"`
}

// DefaultPipelineConfig returns the settings used when the operator
// configures nothing beyond a provider.
func DefaultPipelineConfig(provider string) PipelineConfig {
	return PipelineConfig{
		DefaultProvider:       provider,
		EvaluatorTimeout:      DefaultEvaluatorTimeout,
		TopContext:            domain.DefaultTopContext,
		MaxContextItems:       20,
		GenerationMaxTokens:   1024,
		GenerationTemperature: 0.2,
	}
}

// EvaluateRequest is one evaluation job: the two raw payloads plus the
// per-request model selection carried over from the upload surface.
type EvaluateRequest struct {
	// Conversation is the decoded raw conversation payload.
	Conversation any

	// Context is the decoded raw retrieved-context payload.
	Context any

	// Provider optionally names the generation provider ("openai",
	// "google", "anthropic"). Empty selects the configured default.
	Provider string

	// Model optionally overrides the provider's configured model. The
	// model must be priced or the request fails before generation.
	Model string
}

// Pipeline is the end-to-end evaluation orchestration core: normalize,
// assemble, generate, fan out judges, build the report.
//
// A Pipeline is immutable after construction; the client registry and
// price table are read-only, so one instance serves concurrent requests
// without locking.
type Pipeline struct {
	config     PipelineConfig
	clients    map[string]ports.LLMClient
	assembler  *PromptAssembler
	generation *GenerationService
	orch       *Orchestrator
	logger     *zap.Logger
	metrics    ports.MetricsCollector
}

// NewPipeline assembles a Pipeline from its collaborators. The clients map
// is keyed by provider name and must contain the configured default
// provider.
func NewPipeline(
	config PipelineConfig,
	clients map[string]ports.LLMClient,
	prices domain.PriceTable,
	evaluators []ports.Evaluator,
	logger *zap.Logger,
	metrics ports.MetricsCollector,
) (*Pipeline, error) {
	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("pipeline configuration invalid: %w", err)
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("at least one LLM client is required")
	}
	if _, ok := clients[config.DefaultProvider]; !ok {
		return nil, fmt.Errorf("default provider %q has no configured client", config.DefaultProvider)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	assembler, err := NewPromptAssembler(AssemblerConfig{MaxContextItems: config.MaxContextItems})
	if err != nil {
		return nil, err
	}

	generation, err := NewGenerationService(prices)
	if err != nil {
		return nil, err
	}

	orch, err := NewOrchestrator(evaluators, config.EvaluatorTimeout, logger, metrics)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		config:     config,
		clients:    clients,
		assembler:  assembler,
		generation: generation,
		orch:       orch,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// Evaluate runs one request through the whole pipeline and returns its
// report.
//
// Input and generation failures abort the request with an explicit error;
// evaluator failures are contained and surface as per-metric statuses
// inside an otherwise successful report. The generation call always
// completes before any evaluator starts.
func (p *Pipeline) Evaluate(ctx context.Context, req EvaluateRequest) (*domain.Report, error) {
	start := time.Now()

	normalized, err := domain.Normalize(req.Conversation, req.Context)
	if err != nil {
		p.count("rejected")
		return nil, err
	}

	prompt, err := p.assembler.Render(normalized)
	if err != nil {
		p.count("rejected")
		return nil, err
	}

	client, err := p.clientFor(req.Provider)
	if err != nil {
		p.count("rejected")
		return nil, err
	}

	gen, err := p.generation.Generate(ctx, client, prompt, GenerateOptions{
		Model:       req.Model,
		MaxTokens:   p.config.GenerationMaxTokens,
		Temperature: p.config.GenerationTemperature,
	})
	if err != nil {
		p.count("generation_failed")
		return nil, err
	}

	outcomes := p.orch.Run(ctx, gen.ResponseText, normalized)

	report, err := domain.BuildReport(gen, prompt, outcomes, normalized.ContextItems, p.config.TopContext)
	if err != nil {
		return nil, err
	}

	p.logger.Info("evaluation completed",
		zap.String("report_id", report.ID),
		zap.String("model", gen.Model),
		zap.Int64("generation_latency_ms", gen.LatencyMs),
		zap.Float64("cost_usd", gen.CostUSD),
		zap.Int("metrics_scored", len(report.Scores)),
		zap.Int("metrics_total", len(report.EvaluationStatuses)),
		zap.Duration("total", time.Since(start)),
	)
	p.count("completed")
	if p.metrics != nil {
		p.metrics.RecordLatency("pipeline_evaluate", time.Since(start), map[string]string{"status": "completed"})
		p.metrics.RecordGauge("evaluation_cost_usd", gen.CostUSD, map[string]string{"model": gen.Model})
	}

	return &report, nil
}

func (p *Pipeline) clientFor(provider string) (ports.LLMClient, error) {
	if provider == "" {
		provider = p.config.DefaultProvider
	}
	client, ok := p.clients[provider]
	if !ok {
		return nil, domain.NewInputError("model_type", fmt.Sprintf("unknown provider %q", provider))
	}
	return client, nil
}

func (p *Pipeline) count(status string) {
	if p.metrics != nil {
		p.metrics.RecordCounter("pipeline_requests_total", 1, map[string]string{"status": status})
	}
}
