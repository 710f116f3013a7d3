package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-evalflow/infrastructure/evaluators"
	"github.com/ahrav/go-evalflow/infrastructure/llm"
	"github.com/ahrav/go-evalflow/infrastructure/metrics"
	"github.com/ahrav/go-evalflow/internal/api"
	"github.com/ahrav/go-evalflow/internal/application"
	"github.com/ahrav/go-evalflow/internal/domain"
	"github.com/ahrav/go-evalflow/internal/ports"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the evaluation HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("listen", ":8080", "listen address")
	serveCmd.Flags().String("default-provider", "openai", "generation provider when a request names none")
	serveCmd.Flags().String("price-table", "", "YAML price table overriding the shipped defaults")
	_ = viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("default_provider", serveCmd.Flags().Lookup("default-provider"))
	_ = viper.BindPFlag("price_table", serveCmd.Flags().Lookup("price-table"))

	viper.SetDefault("judge.provider", "openai")
	viper.SetDefault("judge.cache_ttl", "10m")
	viper.SetDefault("rate_limit.requests_per_second", 10)
	viper.SetDefault("rate_limit.burst", 20)
	viper.SetDefault("request_timeout", "60s")
	viper.SetDefault("circuit_breaker.max_failures", 5)
	viper.SetDefault("circuit_breaker.cooldown", "30s")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := buildLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	prices, err := loadPrices()
	if err != nil {
		return err
	}

	collector := metrics.NewPrometheusMetrics(nil)

	clients, err := buildClients(collector)
	if err != nil {
		return err
	}
	if len(clients) == 0 {
		return fmt.Errorf("no provider API keys configured; set OPENAI_API_KEY, ANTHROPIC_API_KEY, or GOOGLE_API_KEY")
	}

	judges, err := buildJudges(clients, collector)
	if err != nil {
		return err
	}

	config := application.DefaultPipelineConfig(viper.GetString("default_provider"))
	pipeline, err := application.NewPipeline(config, clients, prices, judges, logger, collector)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	server := api.NewServer(viper.GetString("listen"), pipeline, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func buildLogger() (*zap.Logger, error) {
	if viper.GetBool("verbose") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func loadPrices() (domain.PriceTable, error) {
	path := viper.GetString("price_table")
	if path == "" {
		return application.DefaultPriceTable(), nil
	}
	prices, err := application.LoadPriceTableFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load price table: %w", err)
	}
	return prices, nil
}

// providerEnv maps provider names to the conventional API key variables.
var providerEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"google":    "GOOGLE_API_KEY",
}

// buildClients creates one generation client per provider with an API key
// in the environment. Every client carries the same resilience chain.
func buildClients(collector ports.MetricsCollector) (map[string]ports.LLMClient, error) {
	clients := make(map[string]ports.LLMClient)

	for provider, envVar := range providerEnv {
		apiKey := os.Getenv(envVar)
		if apiKey == "" {
			continue
		}

		client, err := llm.NewClient(provider, llm.ClientConfig{
			APIKey: apiKey,
			Model:  generationModel(provider),
			Middleware: []llm.Middleware{
				llm.RateLimitMiddleware(
					rate.Limit(viper.GetFloat64("rate_limit.requests_per_second")),
					viper.GetInt("rate_limit.burst"),
				),
				llm.RetryMiddleware(3, 500*time.Millisecond, 10*time.Second),
				llm.CircuitBreakerMiddleware(
					viper.GetInt("circuit_breaker.max_failures"),
					viper.GetDuration("circuit_breaker.cooldown"),
				),
				llm.TimeoutMiddleware(viper.GetDuration("request_timeout")),
				llm.MetricsMiddleware(collector),
				llm.TracingMiddleware("evalflow-generation"),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to configure %s client: %w", provider, err)
		}
		clients[provider] = client
	}

	return clients, nil
}

func generationModel(provider string) string {
	if model := viper.GetString("providers." + provider + ".model"); model != "" {
		return model
	}
	switch provider {
	case "openai":
		return llm.OpenAIDefaultModel
	case "anthropic":
		return llm.AnthropicDefaultModel
	case "google":
		return llm.GoogleDefaultModel
	default:
		return ""
	}
}

// buildJudges creates the judge client and the evaluator set. The judge
// client gets a response cache on top of the resilience chain: identical
// judge prompts at temperature zero do not need a second paid call.
func buildJudges(clients map[string]ports.LLMClient, collector ports.MetricsCollector) ([]ports.Evaluator, error) {
	judgeProvider := viper.GetString("judge.provider")
	apiKey := os.Getenv(providerEnv[judgeProvider])
	if apiKey == "" {
		return nil, fmt.Errorf("judge provider %q has no API key configured", judgeProvider)
	}

	judgeModel := viper.GetString("judge.model")
	if judgeModel == "" {
		judgeModel = generationModel(judgeProvider)
	}

	judgeClient, err := llm.NewClient(judgeProvider, llm.ClientConfig{
		APIKey: apiKey,
		Model:  judgeModel,
		Middleware: []llm.Middleware{
			llm.CacheMiddleware(viper.GetDuration("judge.cache_ttl")),
			llm.RetryMiddleware(3, 500*time.Millisecond, 10*time.Second),
			llm.CircuitBreakerMiddleware(
				viper.GetInt("circuit_breaker.max_failures"),
				viper.GetDuration("circuit_breaker.cooldown"),
			),
			llm.TimeoutMiddleware(viper.GetDuration("request_timeout")),
			llm.MetricsMiddleware(collector),
			llm.TracingMiddleware("evalflow-judge"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure judge client: %w", err)
	}

	relevance, err := evaluators.NewRelevanceJudge(judgeClient, evaluators.DefaultRelevanceJudgeConfig())
	if err != nil {
		return nil, err
	}
	grounding, err := evaluators.NewGroundingJudge(judgeClient, evaluators.DefaultGroundingJudgeConfig())
	if err != nil {
		return nil, err
	}

	return []ports.Evaluator{relevance, grounding}, nil
}
