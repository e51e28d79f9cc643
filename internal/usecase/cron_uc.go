package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"financeflow/internal/domain"
	"financeflow/internal/domain/model"
	"financeflow/internal/domain/ports/repository"
	"financeflow/internal/infra/metrics"
)

const (
	JobRecurringTransactions = "recurring_transactions"
	JobResetUsage            = "reset_usage"
)

// Compile-time check
var _ CronUseCase = (*cronUC)(nil)

type CronUseCase interface {
	// Run executes the named maintenance job and records the run.
	Run(ctx context.Context, job string) (*model.CronRun, error)
	Jobs() []string
}

type cronUC struct {
	repo repository.CronRepository
	jobs map[string]func(ctx context.Context) (int, error)
	log  *zerolog.Logger
	now  func() time.Time
}

func NewCronUseCase(repo repository.CronRepository, logger *zerolog.Logger) *cronUC {
	l := logger.With().Str("component", "cron").Logger()
	c := &cronUC{repo: repo, log: &l, now: time.Now}
	c.jobs = map[string]func(ctx context.Context) (int, error){
		JobRecurringTransactions: func(ctx context.Context) (int, error) {
			return repo.CreateDueRecurringTransactions(ctx, nil)
		},
		JobResetUsage: func(ctx context.Context) (int, error) {
			return 0, repo.ResetMonthlyMessageCounts(ctx, nil)
		},
	}
	return c
}

func (c *cronUC) Jobs() []string {
	out := make([]string, 0, len(c.jobs))
	for name := range c.jobs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (c *cronUC) Run(ctx context.Context, job string) (*model.CronRun, error) {
	fn, ok := c.jobs[job]
	if !ok {
		return nil, fmt.Errorf("cron job %q: %w", job, domain.ErrInvalidArgument)
	}

	run := &model.CronRun{JobName: job, ExecutedAt: c.now().UTC()}
	n, err := fn(ctx)
	if err != nil {
		run.Status = model.CronStatusFailed
		run.ErrorMessage = err.Error()
		c.log.Error().Err(err).Str("job", job).Msg("cron job failed")
	} else {
		run.Status = model.CronStatusSuccess
		run.ProcessedCount = n
		c.log.Info().Str("job", job).Int("processed", n).Msg("cron job finished")
	}
	metrics.IncCronRun(job, run.Status)

	// Record the run even when the job itself was cancelled.
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if lerr := c.repo.LogRun(logCtx, nil, run); lerr != nil {
		c.log.Warn().Err(lerr).Str("job", job).Msg("failed to record cron run")
	}

	if err != nil {
		return run, fmt.Errorf("cron job %s: %w", job, err)
	}
	return run, nil
}
