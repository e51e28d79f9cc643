package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"financeflow/internal/domain/model"
	"financeflow/internal/domain/ports/repository"
)

var _ repository.CronRepository = (*CronRepo)(nil)

// CronRepo calls the maintenance functions shipped with the schema.
type CronRepo struct {
	pool *pgxpool.Pool
}

func NewCronRepo(pool *pgxpool.Pool) *CronRepo {
	return &CronRepo{pool: pool}
}

func (r *CronRepo) CreateDueRecurringTransactions(ctx context.Context, tx repository.Tx) (int, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	err = ex.QueryRow(ctx, `SELECT COALESCE(create_due_recurring_transactions(), 0)`).Scan(&n)
	return n, err
}

func (r *CronRepo) ResetMonthlyMessageCounts(ctx context.Context, tx repository.Tx) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `SELECT reset_monthly_message_counts()`)
	return err
}

func (r *CronRepo) LogRun(ctx context.Context, tx repository.Tx, run *model.CronRun) error {
	const q = `
INSERT INTO cron_logs (job_name, status, processed_count, error_message, executed_at)
VALUES ($1, $2, $3, $4, $5);`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	at := run.ExecutedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err = ex.Exec(ctx, q, run.JobName, run.Status, run.ProcessedCount, nullIfEmpty(run.ErrorMessage), at)
	return err
}
