package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"financeflow/internal/domain"
	"financeflow/internal/domain/model"
	"financeflow/internal/domain/ports/adapter"
	"financeflow/internal/infra/logging"
	"financeflow/internal/infra/metrics"
)

// Compile-time check
var _ ExtractorUseCase = (*extractorUC)(nil)

type ExtractorUseCase interface {
	// ProcessMessage asks the model for the transactions in text. An empty
	// result is not an error.
	ProcessMessage(ctx context.Context, text string) ([]model.ExtractedTransaction, error)
}

type extractorUC struct {
	ai      adapter.TextGenerator
	timeout time.Duration
	dev     bool
	log     *zerolog.Logger
	now     func() time.Time
}

func NewExtractorUseCase(ai adapter.TextGenerator, timeout time.Duration, dev bool, logger *zerolog.Logger) *extractorUC {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	l := logger.With().Str("component", "extractor").Str("provider", ai.Name()).Logger()
	return &extractorUC{ai: ai, timeout: timeout, dev: dev, log: &l, now: time.Now}
}

func (e *extractorUC) ProcessMessage(ctx context.Context, text string) ([]model.ExtractedTransaction, error) {
	log := logging.With(ctx, e.log)
	defer logging.TraceDuration(log, "Extractor.ProcessMessage")()

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.ai.Generate(callCtx, BuildPrompt(text, e.now()))
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("model call timed out after %s: %w", e.timeout, err)
		}
		metrics.IncExtraction("ai_error")
		return nil, &domain.ExtractionError{Err: err}
	}

	arr, ok := FindJSONArray(raw)
	if !ok {
		log.Warn().Str("raw", logging.Redact(raw, e.dev)).Msg("no JSON array in model response")
		metrics.IncExtraction("no_array")
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(arr)))
	dec.UseNumber()
	var elems []any
	err = dec.Decode(&elems)
	if err == nil {
		if _, terr := dec.Token(); terr != io.EOF {
			err = errors.New("unexpected data after JSON array")
		}
	}
	if err != nil {
		log.Warn().Err(err).Str("raw", logging.Redact(raw, e.dev)).Msg("model response is not valid JSON")
		metrics.IncExtraction("parse_error")
		return nil, &domain.ExtractionError{Raw: raw, Err: err}
	}

	items := make([]map[string]any, 0, len(elems))
	for _, el := range elems {
		if m, ok := el.(map[string]any); ok {
			items = append(items, m)
		}
	}
	txs, dropped := ValidateTransactions(items, e.now())
	if n := len(elems) - len(items); n > 0 {
		metrics.AddExtractionDropped(n)
		dropped += n
	}
	if dropped > 0 {
		log.Info().Int("dropped", dropped).Int("kept", len(txs)).Msg("dropped invalid transaction candidates")
	}
	if len(txs) == 0 {
		metrics.IncExtraction("empty")
	} else {
		metrics.IncExtraction("ok")
	}
	return txs, nil
}
