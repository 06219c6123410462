package llm

import (
	"context"
	"fmt"
	"log/slog"

	"ResearchRadar/internal/config"
	"ResearchRadar/internal/ports"
)

// Summarizer is a ports.Summarizer that can name its provider.
type Summarizer interface {
	ports.Summarizer
	Provider() string
}

// New builds the summarizer selected by cfg. A missing API key degrades to
// the template summarizer with a warning rather than failing the run. The
// returned close func is never nil.
func New(ctx context.Context, cfg config.SummarizerConfig, logger *slog.Logger) (Summarizer, func() error, error) {
	noop := func() error { return nil }
	if logger == nil {
		logger = slog.Default()
	}

	key := cfg.Key()
	if cfg.Provider != config.ProviderTemplate && key == "" {
		logger.Warn("no api key for summarizer, using template summaries", "provider", cfg.Provider)
		return TemplateSummarizer{}, noop, nil
	}

	switch cfg.Provider {
	case config.ProviderTemplate:
		return TemplateSummarizer{}, noop, nil
	case config.ProviderGemini:
		g, err := NewGeminiSummarizer(ctx, GeminiOptions{APIKey: key, Model: cfg.Model, MaxTokens: cfg.MaxTokens})
		if err != nil {
			return nil, noop, err
		}
		return g, g.Close, nil
	case config.ProviderOpenAI, config.ProviderKimi:
		return NewOpenAISummarizer(OpenAIOptions{
			Provider:  cfg.Provider,
			APIKey:    key,
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			MaxTokens: cfg.MaxTokens,
		}), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown summarizer provider %q", cfg.Provider)
	}
}
