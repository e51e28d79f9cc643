package repository

import (
	"context"
	"time"

	"financeflow/internal/domain/model"
)

type UsageLogRepository interface {
	Insert(ctx context.Context, tx Tx, l *model.UsageLog) error
	CountSince(ctx context.Context, tx Tx, userID string, since time.Time) (int, error)
}

// CronRepository runs the database-side maintenance functions and records their runs.
type CronRepository interface {
	CreateDueRecurringTransactions(ctx context.Context, tx Tx) (int, error)
	ResetMonthlyMessageCounts(ctx context.Context, tx Tx) error
	LogRun(ctx context.Context, tx Tx, run *model.CronRun) error
}

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
