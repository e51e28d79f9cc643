package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"financeflow/internal/domain/model"
	"financeflow/internal/domain/ports/repository"
)

var _ repository.UsageLogRepository = (*UsageLogRepo)(nil)

type UsageLogRepo struct {
	pool *pgxpool.Pool
}

func NewUsageLogRepo(pool *pgxpool.Pool) *UsageLogRepo {
	return &UsageLogRepo{pool: pool}
}

func (r *UsageLogRepo) Insert(ctx context.Context, tx repository.Tx, l *model.UsageLog) error {
	const q = `
INSERT INTO usage_logs (user_id, source, message_length, created_at)
VALUES ($1, $2, $3, $4);`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	at := l.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err = ex.Exec(ctx, q, l.UserID, string(l.Source), l.MessageLength, at)
	return err
}

func (r *UsageLogRepo) CountSince(ctx context.Context, tx repository.Tx, userID string, since time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM usage_logs WHERE user_id = $1 AND created_at >= $2`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	err = ex.QueryRow(ctx, q, userID, since).Scan(&n)
	return n, err
}
