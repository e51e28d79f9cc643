package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"financeflow/internal/config"
	"financeflow/internal/domain/ports/adapter"
)

// NewFromConfig builds the text generator named by cfg.Provider. "auto" uses
// every provider that has a key, Gemini first. Dev mode without keys falls
// back to the noop generator.
func NewFromConfig(ctx context.Context, cfg config.AIConfig, dev bool, logger *zerolog.Logger) (adapter.TextGenerator, error) {
	var providers []adapter.TextGenerator
	want := strings.ToLower(cfg.Provider)

	if (want == "gemini" || want == "auto") && cfg.GeminiKey != "" {
		g, err := NewGeminiAdapter(ctx, cfg.GeminiKey, cfg.GeminiURL, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		providers = append(providers, NewLimitedAI(g, cfg.ConcurrentLimit))
	}
	if (want == "openai" || want == "auto") && cfg.OpenAIKey != "" {
		o, err := NewOpenAIAdapter(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		if err != nil {
			return nil, err
		}
		providers = append(providers, NewLimitedAI(o, cfg.ConcurrentLimit))
	}

	switch {
	case len(providers) == 1:
		return providers[0], nil
	case len(providers) > 1:
		return NewMultiAIAdapter(logger, providers...), nil
	case dev:
		logger.Warn().Msg("no AI provider configured; using noop generator")
		return NewNoopAIAdapter(logger), nil
	}
	return nil, errors.New("no AI provider configured: set ai.gemini_key or ai.openai_key")
}
