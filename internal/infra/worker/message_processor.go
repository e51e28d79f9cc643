package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"financeflow/internal/domain/model"
	"financeflow/internal/domain/ports/adapter"
	"financeflow/internal/infra/i18n"
	"financeflow/internal/infra/logging"
	"financeflow/internal/infra/metrics"
	"financeflow/internal/usecase"
)

const (
	outcomeCompleted      = "completed"
	outcomeNoTransactions = "no_transactions"
	outcomeInvalid        = "invalid"
)

// MessageProcessor turns one queued message into stored transactions and a chat reply.
//
//	received -> extracting -> no-transactions-found
//	                       -> saving -> notifying-success
//	                       -> failed
type MessageProcessor struct {
	extractor usecase.ExtractorUseCase
	persist   usecase.PersistenceUseCase
	sender    adapter.ChatSender
	texts     *i18n.Translator
	dev       bool
	log       *zerolog.Logger
}

func NewMessageProcessor(
	extractor usecase.ExtractorUseCase,
	persist usecase.PersistenceUseCase,
	sender adapter.ChatSender,
	texts *i18n.Translator,
	dev bool,
	logger *zerolog.Logger,
) *MessageProcessor {
	l := logger.With().Str("component", "message_processor").Logger()
	return &MessageProcessor{extractor: extractor, persist: persist, sender: sender, texts: texts, dev: dev, log: &l}
}

// Handle runs one attempt. A non-nil error asks the queue to retry the job.
func (p *MessageProcessor) Handle(ctx context.Context, qj *model.QueuedJob) error {
	job := qj.Job
	ctx = logging.WithJobID(ctx, qj.ID)
	ctx = logging.WithUserID(ctx, job.UserID)
	ctx = logging.WithChatID(ctx, job.ChatID)
	log := logging.With(ctx, p.log)
	start := time.Now()

	if err := job.Validate(); err != nil {
		log.Warn().Err(err).Msg("dropping invalid job")
		p.finish(outcomeInvalid, start)
		return nil
	}
	log.Info().Int("attempt", qj.Attempts+1).Str("message", logging.Redact(job.Message, p.dev)).Msg("processing message")

	txs, err := p.extractor.ProcessMessage(ctx, job.Message)
	if err != nil {
		return p.fail(ctx, &job, Classify(err), err, start)
	}
	if len(txs) == 0 {
		log.Info().Msg("no transactions found")
		p.reply(ctx, &job, "help", p.texts.T(i18n.KeyHelp))
		p.finish(outcomeNoTransactions, start)
		return nil
	}

	refBase := job.IdempotencyKey()
	if refBase == "" {
		refBase = qj.ID
	}
	saved := make([]*model.StoredTransaction, 0, len(txs))
	var lastErr error
	for i, t := range txs {
		stored, err := p.persist.SaveTransaction(ctx, job.UserID, t, job.Source, job.Message, fmt.Sprintf("%s#%d", refBase, i))
		if err != nil {
			lastErr = err
			log.Error().Err(err).Int("index", i).Msg("failed to save transaction")
			continue
		}
		saved = append(saved, stored)
	}
	if len(saved) == 0 {
		return p.fail(ctx, &job, FailureAllPersistFailed, lastErr, start)
	}

	log.Info().Int("saved", len(saved)).Int("extracted", len(txs)).Msg("transactions saved")
	p.reply(ctx, &job, "summary", SummaryText(p.texts, saved))
	p.finish(outcomeCompleted, start)
	return nil
}

func (p *MessageProcessor) fail(ctx context.Context, job *model.Job, kind FailureKind, err error, start time.Time) error {
	act := Decide(kind)
	logging.With(ctx, p.log).Error().Err(err).Str("kind", kind.String()).Bool("retry", act.Retry).Msg("job failed")
	if act.NotifyKey != "" {
		p.reply(ctx, job, act.NotifyKey, p.texts.T(act.NotifyKey))
	}
	p.finish(kind.String(), start)
	if act.Retry {
		return err
	}
	return nil
}

func (p *MessageProcessor) finish(outcome string, start time.Time) {
	metrics.IncJob(outcome)
	metrics.ObserveJobDuration(outcome, time.Since(start))
}

// Replies go to Telegram chats only; failures are logged.
func (p *MessageProcessor) reply(ctx context.Context, job *model.Job, kind, text string) {
	if job.ChatID == "" || job.Source != model.SourceTelegram {
		return
	}
	if err := p.sender.SendMessage(ctx, job.ChatID, text); err != nil {
		metrics.IncReply(kind, "error")
		logging.With(ctx, p.log).Warn().Err(err).Str("kind", kind).Msg("reply failed")
		return
	}
	metrics.IncReply(kind, "sent")
}
