package repository

import (
	"context"

	"financeflow/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	FindByTelegramID(ctx context.Context, tx Tx, tgID string) (*model.UserProfile, error)
}
