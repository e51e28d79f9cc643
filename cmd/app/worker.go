package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	pg "financeflow/internal/infra/db/postgres"
	"financeflow/internal/infra/worker"
	"financeflow/internal/usecase"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume the message queue and extract transactions",
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg

	gen, err := a.ai(ctx)
	if err != nil {
		return fmt.Errorf("ai provider: %w", err)
	}
	sender, err := a.sender()
	if err != nil {
		return err
	}
	texts, err := a.texts()
	if err != nil {
		return err
	}

	extractor := usecase.NewExtractorUseCase(gen, cfg.AI.Timeout, cfg.Runtime.Dev, a.log)
	persist := usecase.NewPersistenceUseCase(
		pg.NewTransactionRepo(a.pool),
		pg.NewAccountRepo(a.pool),
		pg.NewTxManager(a.pool),
		a.log,
	)
	proc := worker.NewMessageProcessor(extractor, persist, sender, texts.For(cfg.I18n.DefaultLanguage), cfg.Runtime.Dev, a.log)
	runner := worker.NewRunner(a.queue, proc, worker.RunnerOptions{
		Concurrency:       cfg.Worker.Concurrency,
		PollInterval:      cfg.Worker.PollInterval,
		HeartbeatInterval: cfg.Worker.HeartbeatInterval,
	}, a.log)

	go pg.ReportPoolStats(ctx, a.pool, 30*time.Second, a.log)
	return runner.Run(ctx)
}
