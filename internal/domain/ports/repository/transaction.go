package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"financeflow/internal/domain/model"
)

type TransactionRepository interface {
	// Insert stores t. When a row with the same (user, external ref) exists,
	// the existing row is returned with Duplicate set.
	Insert(ctx context.Context, tx Tx, t *model.StoredTransaction) (*model.StoredTransaction, error)
}

type AccountRepository interface {
	FindOrCreate(ctx context.Context, tx Tx, userID, name string) (*model.Account, error)
	// ApplyDelta adds delta to the stored balance in a single statement.
	ApplyDelta(ctx context.Context, tx Tx, accountID string, delta decimal.Decimal) error
}
