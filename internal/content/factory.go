package content

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/config"
)

// NewProvider creates the configured Provider wrapped as
// caller -> retry -> logging -> vendor.
func NewProvider(ctx context.Context, cfg config.ContentConfig, logger *slog.Logger) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(AnthropicConfig{APIKey: cfg.AnthropicAPIKey, Model: cfg.AnthropicModel})
	case "openai":
		base, err = NewOpenAIProvider(OpenAIConfig{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel, BaseURL: cfg.OpenAIBaseURL})
	case "gemini":
		base, err = NewGeminiProvider(ctx, GeminiConfig{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel})
	case "mock":
		mock := NewMockProvider()
		mock.Fallback = DemoFallback
		base = mock
	default:
		return nil, fmt.Errorf("unknown content provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	logged := WithLogging(base, logger)
	return WithRetry(logged, RetryConfig{
		MaxRetries:  cfg.MaxRetries,
		InitialWait: cfg.InitialWait,
		MaxWait:     cfg.MaxWait,
		Multiplier:  2.0,
	}, logger), nil
}
