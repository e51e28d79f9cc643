package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"financeflow/internal/domain"
	"financeflow/internal/domain/model"
	"financeflow/internal/domain/ports/adapter"
	"financeflow/internal/domain/ports/repository"
	"financeflow/internal/infra/i18n"
	"financeflow/internal/infra/logging"
	"financeflow/internal/infra/metrics"
)

// InboundMessage is a transport-neutral chat message.
type InboundMessage struct {
	Source         model.Source
	ExternalUserID string
	ChatID         string
	MessageID      string
	Text           string
	At             time.Time
}

type IngestOutcome string

const (
	OutcomeIgnored              IngestOutcome = "ignored"
	OutcomeRegistrationRequired IngestOutcome = "registration_required"
	OutcomeRateLimited          IngestOutcome = "rate_limited"
	OutcomeQuotaExceeded        IngestOutcome = "quota_exceeded"
	OutcomeQueued               IngestOutcome = "queued"
	OutcomeDuplicate            IngestOutcome = "duplicate"
)

// Compile-time check
var _ IngestUseCase = (*ingestUC)(nil)

type IngestUseCase interface {
	// Ingest applies the admission checks and enqueues msg. Business
	// rejections are outcomes, not errors.
	Ingest(ctx context.Context, msg InboundMessage) (IngestOutcome, error)
}

type IngestOptions struct {
	Plans       model.PlanTable
	Window      time.Duration
	RegisterURL string
	UpgradeURL  string
}

type ingestUC struct {
	users   repository.UserRepository
	usage   repository.UsageLogRepository
	limiter adapter.RateLimiter
	queue   adapter.JobProducer
	sender  adapter.ChatSender
	texts   *i18n.Bundle
	opts    IngestOptions
	log     *zerolog.Logger
	now     func() time.Time
}

func NewIngestUseCase(
	users repository.UserRepository,
	usage repository.UsageLogRepository,
	limiter adapter.RateLimiter,
	queue adapter.JobProducer,
	sender adapter.ChatSender,
	texts *i18n.Bundle,
	opts IngestOptions,
	logger *zerolog.Logger,
) *ingestUC {
	if opts.Plans == nil {
		opts.Plans = model.DefaultPlanTable()
	}
	if opts.Window <= 0 {
		opts.Window = time.Minute
	}
	l := logger.With().Str("component", "ingest").Logger()
	return &ingestUC{
		users: users, usage: usage, limiter: limiter, queue: queue,
		sender: sender, texts: texts, opts: opts, log: &l, now: time.Now,
	}
}

func (u *ingestUC) Ingest(ctx context.Context, msg InboundMessage) (IngestOutcome, error) {
	outcome, err := u.ingest(ctx, msg)
	if err != nil {
		metrics.IncIngress(string(msg.Source), "error")
		return "", err
	}
	metrics.IncIngress(string(msg.Source), string(outcome))
	return outcome, nil
}

func (u *ingestUC) ingest(ctx context.Context, msg InboundMessage) (IngestOutcome, error) {
	if strings.TrimSpace(msg.Text) == "" {
		return OutcomeIgnored, nil
	}
	ctx = logging.WithChatID(ctx, msg.ChatID)

	user, err := u.users.FindByTelegramID(ctx, nil, msg.ExternalUserID)
	if errors.Is(err, domain.ErrNotFound) {
		u.reply(ctx, msg.ChatID, "", "register", i18n.KeyRegister, u.opts.RegisterURL)
		return OutcomeRegistrationRequired, nil
	}
	if err != nil {
		return "", err
	}
	ctx = logging.WithUserID(ctx, user.ID)
	log := logging.With(ctx, u.log)

	limits := u.opts.Plans.Limits(user.Plan)
	if !limits.PerMinuteUnlimited() {
		ok, err := u.limiter.CheckLimit(ctx, user.ID, limits.MessagesPerMinute, u.opts.Window)
		if err != nil {
			return "", err
		}
		if !ok {
			log.Info().Str("plan", string(user.Plan)).Msg("rate limit exceeded")
			u.reply(ctx, msg.ChatID, user.Language, "rate_limited", i18n.KeyRateLimited)
			return OutcomeRateLimited, nil
		}
	}

	now := u.now()
	if !limits.MonthlyUnlimited() {
		used, err := u.usage.CountSince(ctx, nil, user.ID, model.StartOfMonth(now))
		if err != nil {
			return "", err
		}
		if used >= limits.MessagesPerMonth {
			log.Info().Int("used", used).Int("limit", limits.MessagesPerMonth).Msg("monthly quota reached")
			u.reply(ctx, msg.ChatID, user.Language, "quota_exceeded", i18n.KeyQuotaExceeded, u.opts.UpgradeURL)
			return OutcomeQuotaExceeded, nil
		}
	}

	at := msg.At
	if at.IsZero() {
		at = now
	}
	job, err := model.NewJob(user.ID, msg.Text, at, msg.Source, msg.ChatID, msg.MessageID)
	if err != nil {
		return "", err
	}
	h, err := u.queue.Enqueue(ctx, job)
	if err != nil {
		return "", err
	}
	if h.Duplicate {
		log.Info().Str("job_id", h.ID).Str("message_id", msg.MessageID).Msg("message already queued")
		return OutcomeDuplicate, nil
	}
	log.Debug().Str("job_id", h.ID).Msg("message queued")

	u.reply(ctx, msg.ChatID, user.Language, "processing", i18n.KeyProcessing)

	err = u.usage.Insert(ctx, nil, &model.UsageLog{
		UserID:        user.ID,
		Source:        msg.Source,
		MessageLength: len([]rune(msg.Text)),
		CreatedAt:     now.UTC(),
	})
	if err != nil {
		log.Error().Err(err).Str("job_id", h.ID).Msg("failed to record usage")
	}
	return OutcomeQueued, nil
}

func (u *ingestUC) reply(ctx context.Context, chatID, lang, kind, key string, args ...interface{}) {
	if chatID == "" {
		return
	}
	text := u.texts.For(lang).T(key, args...)
	if err := u.sender.SendMessage(ctx, chatID, text); err != nil {
		metrics.IncReply(kind, "error")
		logging.With(ctx, u.log).Warn().Err(err).Str("kind", kind).Msg("reply failed")
		return
	}
	metrics.IncReply(kind, "sent")
}
