//go:build !integration

package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"financeflow/internal/domain/model"
	"financeflow/internal/domain/ports/repository"
	"financeflow/internal/infra/i18n"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func enTranslator(t *testing.T) *i18n.Translator {
	t.Helper()
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		t.Fatalf("load translator: %v", err)
	}
	return tr
}

type fakeExtractor struct {
	mu    sync.Mutex
	txs   []model.ExtractedTransaction
	err   error
	calls int
}

func (f *fakeExtractor) ProcessMessage(ctx context.Context, text string) ([]model.ExtractedTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.txs, f.err
}

type fakeSender struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeSender) SendMessage(ctx context.Context, chatID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.err
}

func (f *fakeSender) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

// memTxRepo stores rows keyed by user and external ref.
type memTxRepo struct {
	mu   sync.Mutex
	rows map[string]*model.StoredTransaction
	fail func(t *model.StoredTransaction) error
}

func newMemTxRepo() *memTxRepo { return &memTxRepo{rows: map[string]*model.StoredTransaction{}} }

func (m *memTxRepo) Insert(ctx context.Context, tx repository.Tx, t *model.StoredTransaction) (*model.StoredTransaction, error) {
	if m.fail != nil {
		if err := m.fail(t); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := t.UserID + "|" + t.ExternalRef
	if existing, ok := m.rows[key]; ok {
		cp := *existing
		cp.Duplicate = true
		return &cp, nil
	}
	cp := *t
	cp.ID = fmt.Sprintf("tx-%d", len(m.rows)+1)
	m.rows[key] = &cp
	out := cp
	return &out, nil
}

func (m *memTxRepo) all() []*model.StoredTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.StoredTransaction, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	return out
}

type memAccountRepo struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal // by user|name
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{balances: map[string]decimal.Decimal{}}
}

func (m *memAccountRepo) FindOrCreate(ctx context.Context, tx repository.Tx, userID, name string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := userID + "|" + name
	if _, ok := m.balances[key]; !ok {
		m.balances[key] = decimal.Zero
	}
	return &model.Account{ID: key, UserID: userID, Name: name, Balance: m.balances[key]}, nil
}

func (m *memAccountRepo) ApplyDelta(ctx context.Context, tx repository.Tx, accountID string, delta decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[accountID] = m.balances[accountID].Add(delta)
	return nil
}

func (m *memAccountRepo) balance(userID, name string) (decimal.Decimal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[userID+"|"+name]
	return b, ok
}

type inlineTxManager struct{}

func (inlineTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}
