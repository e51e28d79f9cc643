package ai

import (
	"context"
	"time"

	"financeflow/internal/domain/ports/adapter"
	"financeflow/internal/infra/metrics"
)

var _ adapter.TextGenerator = (*limitedAI)(nil)

type modelNamer interface{ Model() string }

// limitedAI caps concurrent calls to the provider and records call latency.
type limitedAI struct {
	inner adapter.TextGenerator
	sem   chan struct{}
	model string
}

func NewLimitedAI(inner adapter.TextGenerator, maxConcurrent int) adapter.TextGenerator {
	l := &limitedAI{inner: inner}
	if maxConcurrent > 0 {
		l.sem = make(chan struct{}, maxConcurrent)
	}
	if m, ok := inner.(modelNamer); ok {
		l.model = m.Model()
	}
	return l
}

func (l *limitedAI) Name() string { return l.inner.Name() }

func (l *limitedAI) Generate(ctx context.Context, prompt string) (string, error) {
	if l.sem != nil {
		select {
		case l.sem <- struct{}{}:
			defer func() { <-l.sem }()
		case <-ctx.Done():
			metrics.IncAILimitBlock(l.inner.Name())
			return "", ctx.Err()
		}
	}
	start := time.Now()
	out, err := l.inner.Generate(ctx, prompt)
	metrics.ObserveAICall(l.inner.Name(), l.model, time.Since(start).Milliseconds(), err == nil)
	return out, err
}

func (l *limitedAI) Ping(ctx context.Context) error { return l.inner.Ping(ctx) }
