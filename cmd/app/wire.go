package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"financeflow/internal/config"
	"financeflow/internal/domain/model"
	"financeflow/internal/domain/ports/adapter"
	"financeflow/internal/domain/ports/repository"
	aiAdapters "financeflow/internal/infra/adapters/ai"
	tele "financeflow/internal/infra/adapters/telegram"
	pg "financeflow/internal/infra/db/postgres"
	"financeflow/internal/infra/i18n"
	"financeflow/internal/infra/logging"
	"financeflow/internal/infra/metrics"
	red "financeflow/internal/infra/redis"
	"financeflow/internal/usecase"
)

// app holds the shared infrastructure every subcommand starts from.
type app struct {
	cfg   *config.Config
	log   *zerolog.Logger
	pool  *pgxpool.Pool
	redis *red.Client
	queue *red.JobQueue
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(flagConfig, flagDev)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()
	v := version
	if v == "" {
		v = cfg.Version
	}
	metrics.SetBuildInfo(v, commit)

	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	rc, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	q := red.NewJobQueue(rc, red.QueueOptions{
		Name: cfg.Queue.Name,
		Policy: model.RetryPolicy{
			MaxAttempts: cfg.Queue.MaxAttempts,
			BaseDelay:   cfg.Queue.BackoffBase,
		},
		RemoveOnComplete: cfg.Queue.RemoveOnComplete,
		RemoveOnFail:     cfg.Queue.RemoveOnFail,
		LeaseTimeout:     cfg.Queue.LeaseTimeout,
		DedupeTTL:        cfg.Queue.DedupeTTL,
	})

	logger.Info().
		Str("version", v).
		Str("queue", q.Name()).
		Int32("db_max_conns", cfg.Database.MaxConns).
		Msg("infrastructure ready")

	return &app{cfg: cfg, log: logger, pool: pool, redis: rc, queue: q}, nil
}

func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.log.Warn().Err(err).Msg("redis close")
	}
	a.pool.Close()
}

// users is the Postgres profile lookup behind the Redis cache.
func (a *app) users() repository.UserRepository {
	return pg.NewUserRepoCacheDecorator(pg.NewUserProfileRepo(a.pool), a.redis, a.cfg.Redis.TTL, a.log)
}

func (a *app) sender() (adapter.ChatSender, error) {
	if a.cfg.Bot.Token == "" {
		a.log.Warn().Msg("no bot token; replies are logged, not sent")
		return tele.NewNoopSender(a.log), nil
	}
	return tele.NewRealTelegramSender(&a.cfg.Bot, a.log)
}

func (a *app) ai(ctx context.Context) (adapter.TextGenerator, error) {
	return aiAdapters.NewFromConfig(ctx, a.cfg.AI, a.cfg.Runtime.Dev, a.log)
}

func (a *app) texts() (*i18n.Bundle, error) {
	return i18n.NewBundle(i18n.LocalesFS, a.cfg.I18n.DefaultLanguage)
}

func (a *app) cron() usecase.CronUseCase {
	return usecase.NewCronUseCase(pg.NewCronRepo(a.pool), a.log)
}

func loadConfigOnly() (*config.Config, error) {
	return config.LoadConfig(flagConfig, flagDev)
}

func nopLog() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
