package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"financeflow/internal/domain/ports/adapter"
	pg "financeflow/internal/infra/db/postgres"
	red "financeflow/internal/infra/redis"
	"financeflow/internal/infra/sched"
	"financeflow/internal/infra/web"
	"financeflow/internal/usecase"
)

var flagWithCron bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (webhook, health, cron, admin, metrics)",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&flagWithCron, "cron", false, "also run the in-process cron scheduler (overrides cron.enabled)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg

	sender, err := a.sender()
	if err != nil {
		return err
	}
	texts, err := a.texts()
	if err != nil {
		return err
	}

	var gen adapter.TextGenerator
	if g, err := a.ai(ctx); err != nil {
		// The ingress does not call the model; health reports it as degraded.
		a.log.Warn().Err(err).Msg("ai provider unavailable")
	} else {
		gen = g
	}

	ingest := usecase.NewIngestUseCase(
		a.users(),
		pg.NewUsageLogRepo(a.pool),
		red.NewRateLimiter(a.redis),
		a.queue,
		sender,
		texts,
		usecase.IngestOptions{
			Plans:       cfg.PlanTable(),
			Window:      cfg.RateLimit.Window,
			RegisterURL: cfg.Bot.RegisterURL,
			UpgradeURL:  cfg.Bot.UpgradeURL,
		},
		a.log,
	)
	health := usecase.NewHealthUseCase(usecase.HealthDeps{
		DB:      pg.NewPinger(a.pool),
		Redis:   a.redis,
		AI:      gen,
		Queue:   a.queue,
		Version: cfg.Version,
		Dev:     cfg.Runtime.Dev,
		Timeout: cfg.AI.PingTimeout,
	})
	cronUC := a.cron()

	srv := web.NewServer(cfg.HTTP, web.Deps{
		Ingest:        ingest,
		Health:        health,
		Cron:          cronUC,
		Queue:         a.queue,
		WebhookSecret: cfg.Bot.WebhookSecret,
		CronGuard:     web.NewGuard("cron", cfg.Cron.Secret, cfg.Security.JWTSecret, a.log),
		AdminGuard:    web.NewGuard("admin", cfg.Security.AdminAPIKey, cfg.Security.JWTSecret, a.log),
		Metrics:       promhttp.Handler(),
	}, a.log)

	if flagWithCron || cfg.Cron.Enabled {
		s := sched.NewScheduler(cronUC, red.NewLocker(a.redis), sched.Options{
			LockTTL:    time.Duration(cfg.Cron.LockTTLSeconds) * time.Second,
			RunTimeout: time.Duration(cfg.Cron.RunTimeoutSeconds) * time.Second,
		}, a.log)
		if err := s.Register(usecase.JobRecurringTransactions, cfg.Cron.RecurringSchedule); err != nil {
			return err
		}
		if err := s.Register(usecase.JobResetUsage, cfg.Cron.ResetUsageSchedule); err != nil {
			return err
		}
		s.Start(ctx)
		defer func() { <-s.Stop().Done() }()
	}

	go pg.ReportPoolStats(ctx, a.pool, 30*time.Second, a.log)

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
