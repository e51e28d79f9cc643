package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"financeflow/internal/domain"
	"financeflow/internal/domain/model"
	"financeflow/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*AccountRepo)(nil)

const (
	defaultAccountType     = "checking"
	defaultAccountCurrency = "VND"
)

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// FindOrCreate returns the user's account with the given name, creating a
// zero-balance checking account when none exists. Concurrent creators
// converge on one row through the (user_id, name) unique key.
func (r *AccountRepo) FindOrCreate(ctx context.Context, tx repository.Tx, userID, name string) (*model.Account, error) {
	const q = `
INSERT INTO accounts (id, user_id, name, type, balance, currency)
VALUES ($1, $2, $3, $4, 0, $5)
ON CONFLICT (user_id, name) DO UPDATE SET name = EXCLUDED.name
RETURNING id::text, user_id::text, name, type, balance::text, currency;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	var (
		a       model.Account
		balance string
	)
	err = ex.QueryRow(ctx, q, uuid.NewString(), userID, name, defaultAccountType, defaultAccountCurrency).
		Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &balance, &a.Currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("%w: balance %q", domain.ErrReadDatabaseRow, balance)
	}
	return &a, nil
}

// ApplyDelta is a single relative update so concurrent deltas never lose writes.
func (r *AccountRepo) ApplyDelta(ctx context.Context, tx repository.Tx, accountID string, delta decimal.Decimal) error {
	const q = `UPDATE accounts SET balance = balance + $2::numeric, updated_at = now() WHERE id = $1`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, q, accountID, delta.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FindByName looks up one of a user's accounts by name.
func (r *AccountRepo) FindByName(ctx context.Context, tx repository.Tx, userID, name string) (*model.Account, error) {
	const q = `
SELECT id::text, user_id::text, name, type, balance::text, currency
  FROM accounts WHERE user_id = $1 AND name = $2;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	var (
		a       model.Account
		balance string
	)
	err = ex.QueryRow(ctx, q, userID, name).Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &balance, &a.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	a.Balance, err = decimal.NewFromString(balance)
	return &a, err
}
