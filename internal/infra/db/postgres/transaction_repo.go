package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"financeflow/internal/domain"
	"financeflow/internal/domain/model"
	"financeflow/internal/domain/ports/repository"
)

var _ repository.TransactionRepository = (*TransactionRepo)(nil)

type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Insert writes t. A redelivered job carries the same external ref, so the
// conflict path returns the row written by the first delivery.
func (r *TransactionRepo) Insert(ctx context.Context, tx repository.Tx, t *model.StoredTransaction) (*model.StoredTransaction, error) {
	const q = `
INSERT INTO transactions (
  id, user_id, type, amount, category, description, counterparty, account_name,
  payment_method, transaction_date, notes, source, raw_message, external_ref, created_at
) VALUES (
  $1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
) ON CONFLICT (user_id, external_ref) DO NOTHING
RETURNING id::text, created_at;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	out := *t
	err = ex.QueryRow(ctx, q,
		t.ID, t.UserID, string(t.Type), t.Amount.String(), t.Category, t.Description,
		nullIfEmpty(t.Counterparty), t.AccountName, string(t.PaymentMethod), t.Date,
		t.Notes, string(t.Source), t.RawMessage, nullIfEmpty(t.ExternalRef), t.CreatedAt,
	).Scan(&out.ID, &out.CreatedAt)
	if err == nil {
		return &out, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	existing, err := r.findByExternalRef(ctx, ex, t.UserID, t.ExternalRef)
	if err != nil {
		return nil, err
	}
	existing.Duplicate = true
	return existing, nil
}

func (r *TransactionRepo) findByExternalRef(ctx context.Context, ex executor, userID, ref string) (*model.StoredTransaction, error) {
	const q = `
SELECT id::text, user_id::text, type, amount::text, category, COALESCE(description, ''),
       COALESCE(counterparty, ''), COALESCE(account_name, ''), payment_method, transaction_date,
       COALESCE(notes, ''), source, COALESCE(raw_message, ''), COALESCE(external_ref, ''), created_at
  FROM transactions WHERE user_id = $1 AND external_ref = $2;`
	var (
		t                           model.StoredTransaction
		typ, amount, method, source string
	)
	err := ex.QueryRow(ctx, q, userID, ref).Scan(
		&t.ID, &t.UserID, &typ, &amount, &t.Category, &t.Description,
		&t.Counterparty, &t.AccountName, &method, &t.Date,
		&t.Notes, &source, &t.RawMessage, &t.ExternalRef, &t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	t.Type = model.TransactionType(typ)
	t.PaymentMethod = model.PaymentMethod(method)
	t.Source = model.Source(source)
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("%w: amount %q", domain.ErrReadDatabaseRow, amount)
	}
	return &t, nil
}
