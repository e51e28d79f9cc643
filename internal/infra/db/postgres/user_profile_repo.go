package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"financeflow/internal/domain"
	"financeflow/internal/domain/model"
	"financeflow/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*UserProfileRepo)(nil)

type UserProfileRepo struct {
	pool *pgxpool.Pool
}

func NewUserProfileRepo(pool *pgxpool.Pool) *UserProfileRepo {
	return &UserProfileRepo{pool: pool}
}

func (r *UserProfileRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID string) (*model.UserProfile, error) {
	const q = `
SELECT id::text, telegram_user_id, COALESCE(subscription_plan, 'free'), COALESCE(language, '')
  FROM user_profiles WHERE telegram_user_id = $1;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	var u model.UserProfile
	var plan string
	if err := ex.QueryRow(ctx, q, tgID).Scan(&u.ID, &u.TelegramUserID, &plan, &u.Language); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	u.Plan = model.PlanTier(plan)
	return &u, nil
}
