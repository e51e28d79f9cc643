package ai

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"financeflow/internal/domain/ports/adapter"
)

var _ adapter.TextGenerator = (*NoopAIAdapter)(nil)

// NoopAIAdapter is used in dev mode when no provider key is configured.
// It logs the prompt and answers with an empty transaction list.
type NoopAIAdapter struct {
	log *zerolog.Logger
}

func NewNoopAIAdapter(logger *zerolog.Logger) *NoopAIAdapter {
	return &NoopAIAdapter{log: logger}
}

func (a *NoopAIAdapter) Name() string { return "noop" }

func (a *NoopAIAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	a.log.Debug().Int("prompt_len", len(prompt)).Msg("noop ai generate")
	return "[]", nil
}

func (a *NoopAIAdapter) Ping(ctx context.Context) error { return nil }
