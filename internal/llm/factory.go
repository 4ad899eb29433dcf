package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nbenliogludev/survey-agent/internal/config"
)

// NewClient builds the configured provider wrapped with throttling and retry.
func NewClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (Client, error) {
	logger = logger.Named("llm")

	var client Client
	switch cfg.Provider {
	case config.ProviderGemini:
		gc, err := NewGeminiClient(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		client = gc
	case config.ProviderOpenAI:
		oc, err := NewOpenAIClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		client = oc
	default:
		return nil, &config.ConfigurationError{
			Field: "llm.provider",
			Err:   fmt.Errorf("unsupported provider %q", cfg.Provider),
		}
	}

	logger.Info("Reasoning client initialized",
		zap.String("provider", string(cfg.Provider)),
		zap.String("model", cfg.Model),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Float64("requests_per_minute", cfg.RequestsPerMinute),
	)

	return WithResilience(client, ResilienceOptions{
		MaxRetries:        cfg.MaxRetries,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}, logger), nil
}
