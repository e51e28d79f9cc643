// File: internal/infra/adapters/ai/multi_adapter.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"financeflow/internal/domain/ports/adapter"
)

var _ adapter.TextGenerator = (*MultiAIAdapter)(nil)

// MultiAIAdapter tries providers in order and returns the first success.
type MultiAIAdapter struct {
	providers []adapter.TextGenerator
	log       *zerolog.Logger
}

func NewMultiAIAdapter(logger *zerolog.Logger, providers ...adapter.TextGenerator) *MultiAIAdapter {
	ps := make([]adapter.TextGenerator, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			ps = append(ps, p)
		}
	}
	l := logger.With().Str("component", "ai_multi").Logger()
	return &MultiAIAdapter{providers: ps, log: &l}
}

func (m *MultiAIAdapter) Name() string {
	names := make([]string, 0, len(m.providers))
	for _, p := range m.providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, "+")
}

func (m *MultiAIAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	if len(m.providers) == 0 {
		return "", errors.New("no ai provider configured")
	}
	var errs []error
	for _, p := range m.providers {
		out, err := p.Generate(ctx, prompt)
		if err == nil {
			return out, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		if ctx.Err() != nil {
			break
		}
		m.log.Warn().Err(err).Str("provider", p.Name()).Msg("provider failed, trying next")
	}
	return "", errors.Join(errs...)
}

// Ping succeeds when any provider is reachable.
func (m *MultiAIAdapter) Ping(ctx context.Context) error {
	if len(m.providers) == 0 {
		return errors.New("no ai provider configured")
	}
	var errs []error
	for _, p := range m.providers {
		err := p.Ping(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	return errors.Join(errs...)
}
