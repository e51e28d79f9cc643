package usecase

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"financeflow/internal/domain"
	"financeflow/internal/domain/model"
	"financeflow/internal/domain/ports/repository"
	"financeflow/internal/infra/logging"
	"financeflow/internal/infra/metrics"
)

// Compile-time check
var _ PersistenceUseCase = (*persistenceUC)(nil)

type PersistenceUseCase interface {
	// SaveTransaction stores t and then applies its balance delta. Only the
	// insert can fail the call; balance errors are logged.
	SaveTransaction(ctx context.Context, userID string, t model.ExtractedTransaction, source model.Source, rawMessage, externalRef string) (*model.StoredTransaction, error)
}

type persistenceUC struct {
	txs      repository.TransactionRepository
	accounts repository.AccountRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewPersistenceUseCase(txs repository.TransactionRepository, accounts repository.AccountRepository, tm repository.TransactionManager, logger *zerolog.Logger) *persistenceUC {
	l := logger.With().Str("component", "persistence").Logger()
	return &persistenceUC{txs: txs, accounts: accounts, tm: tm, log: &l}
}

func (p *persistenceUC) SaveTransaction(ctx context.Context, userID string, t model.ExtractedTransaction, source model.Source, rawMessage, externalRef string) (*model.StoredTransaction, error) {
	log := logging.With(ctx, p.log)

	stored, err := p.txs.Insert(ctx, nil, model.NewStoredTransaction("", userID, t, source, rawMessage, externalRef))
	if err != nil {
		metrics.IncPersistenceFailure("insert")
		return nil, &domain.PersistenceError{Op: "insert transaction", Err: err}
	}
	if stored.Duplicate {
		log.Info().Str("external_ref", externalRef).Str("tx_id", stored.ID).Msg("transaction already stored, skipping balance update")
		return stored, nil
	}

	if err := p.applyBalance(ctx, userID, t); err != nil {
		metrics.IncPersistenceFailure("balance")
		log.Warn().Err(err).Str("account", t.Account).Str("tx_id", stored.ID).Msg("balance update failed")
	}
	return stored, nil
}

func (p *persistenceUC) applyBalance(ctx context.Context, userID string, t model.ExtractedTransaction) error {
	delta := t.BalanceDelta()
	if delta.IsZero() {
		return nil
	}
	return p.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		acc, err := p.accounts.FindOrCreate(ctx, tx, userID, t.Account)
		if err != nil {
			return fmt.Errorf("find or create account: %w", err)
		}
		if err := p.accounts.ApplyDelta(ctx, tx, acc.ID, delta); err != nil {
			return fmt.Errorf("apply delta to %s: %w", acc.ID, err)
		}
		return nil
	})
}
