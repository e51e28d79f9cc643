//go:build !integration

package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"financeflow/internal/domain"
	"financeflow/internal/domain/model"
	"financeflow/internal/domain/ports/repository"
	"financeflow/internal/infra/i18n"
)

// -----------------------------
// Utilities
// -----------------------------

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func testBundle(t *testing.T) *i18n.Bundle {
	t.Helper()
	b, err := i18n.NewBundle(i18n.LocalesFS, "en")
	if err != nil {
		t.Fatalf("load locales: %v", err)
	}
	return b
}

var fixedNow = time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

// =============================
// Adapters
// =============================

// fakeAI returns canned responses in order; the last one repeats.
type fakeAI struct {
	mu        sync.Mutex
	responses []string
	err       error
	pingErr   error
	prompts   []string
	delay     time.Duration
}

func (f *fakeAI) Name() string { return "fake" }

func (f *fakeAI) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	idx := len(f.prompts) - 1
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "[]", nil
	}
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

func (f *fakeAI) Ping(ctx context.Context) error { return f.pingErr }

type sentMessage struct {
	ChatID string
	Text   string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendMessage(ctx context.Context, chatID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text})
	return f.err
}

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

// fakeLimiter counts calls per user and allows the first `limit` of them.
type fakeLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func newFakeLimiter() *fakeLimiter { return &fakeLimiter{counts: map[string]int{}} }

func (f *fakeLimiter) CheckLimit(ctx context.Context, userID string, limit int, window time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[userID]++
	return f.counts[userID] <= limit, nil
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []*model.Job
	seen map[string]string
	err  error
}

func newFakeQueue() *fakeQueue { return &fakeQueue{seen: map[string]string{}} }

func (f *fakeQueue) Enqueue(ctx context.Context, job *model.Job) (model.JobHandle, error) {
	if f.err != nil {
		return model.JobHandle{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if k := job.IdempotencyKey(); k != "" {
		if id, ok := f.seen[k]; ok {
			return model.JobHandle{ID: id, Duplicate: true}, nil
		}
		f.seen[k] = fmt.Sprintf("job-%d", len(f.jobs)+1)
	}
	f.jobs = append(f.jobs, job)
	return model.JobHandle{ID: fmt.Sprintf("job-%d", len(f.jobs))}, nil
}

// =============================
// Repositories
// =============================

type memUserRepo struct {
	mu    sync.RWMutex
	store map[string]*model.UserProfile // by telegram id
	err   error
}

func newMemUserRepo(users ...*model.UserProfile) *memUserRepo {
	m := &memUserRepo{store: map[string]*model.UserProfile{}}
	for _, u := range users {
		m.store[u.TelegramUserID] = u
	}
	return m
}

func (m *memUserRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID string) (*model.UserProfile, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[tgID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

type memUsageRepo struct {
	mu        sync.Mutex
	logs      []*model.UsageLog
	countErr  error
	insertErr error
}

func (m *memUsageRepo) Insert(ctx context.Context, tx repository.Tx, l *model.UsageLog) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.logs = append(m.logs, &cp)
	return nil
}

func (m *memUsageRepo) CountSince(ctx context.Context, tx repository.Tx, userID string, since time.Time) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.logs {
		if l.UserID == userID && !l.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

type memTxRepo struct {
	mu        sync.Mutex
	rows      map[string]*model.StoredTransaction // by user|ref
	seq       int
	insertErr func(t *model.StoredTransaction) error
}

func newMemTxRepo() *memTxRepo { return &memTxRepo{rows: map[string]*model.StoredTransaction{}} }

func (m *memTxRepo) Insert(ctx context.Context, tx repository.Tx, t *model.StoredTransaction) (*model.StoredTransaction, error) {
	if m.insertErr != nil {
		if err := m.insertErr(t); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := t.UserID + "|" + t.ExternalRef
	if existing, ok := m.rows[key]; ok && t.ExternalRef != "" {
		cp := *existing
		cp.Duplicate = true
		return &cp, nil
	}
	m.seq++
	cp := *t
	cp.ID = fmt.Sprintf("tx-%d", m.seq)
	m.rows[key] = &cp
	out := cp
	return &out, nil
}

func (m *memTxRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*model.Account // by user|name
	findErr  error
	deltaErr error
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: map[string]*model.Account{}}
}

func (m *memAccountRepo) FindOrCreate(ctx context.Context, tx repository.Tx, userID, name string) (*model.Account, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := userID + "|" + name
	if a, ok := m.accounts[key]; ok {
		cp := *a
		return &cp, nil
	}
	a := &model.Account{ID: "acc-" + name, UserID: userID, Name: name, Type: "checking", Balance: decimal.Zero, Currency: "VND"}
	m.accounts[key] = a
	cp := *a
	return &cp, nil
}

func (m *memAccountRepo) ApplyDelta(ctx context.Context, tx repository.Tx, accountID string, delta decimal.Decimal) error {
	if m.deltaErr != nil {
		return m.deltaErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.ID == accountID {
			a.Balance = a.Balance.Add(delta)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memAccountRepo) balance(userID, name string) (decimal.Decimal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID+"|"+name]
	if !ok {
		return decimal.Zero, false
	}
	return a.Balance, true
}

type fakeTxManager struct {
	calls int
}

func (f *fakeTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	f.calls++
	return fn(ctx, nil)
}

type fakeCronRepo struct {
	mu         sync.Mutex
	recurring  int
	jobErr     error
	logErr     error
	resetCalls int
	runs       []*model.CronRun
}

func (f *fakeCronRepo) CreateDueRecurringTransactions(ctx context.Context, tx repository.Tx) (int, error) {
	return f.recurring, f.jobErr
}

func (f *fakeCronRepo) ResetMonthlyMessageCounts(ctx context.Context, tx repository.Tx) error {
	f.mu.Lock()
	f.resetCalls++
	f.mu.Unlock()
	return f.jobErr
}

func (f *fakeCronRepo) LogRun(ctx context.Context, tx repository.Tx, run *model.CronRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *run
	f.runs = append(f.runs, &cp)
	return f.logErr
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

type fakeStats struct {
	stats model.QueueStats
	err   error
}

func (f fakeStats) Stats(ctx context.Context) (model.QueueStats, error) { return f.stats, f.err }

var errBoom = errors.New("boom")
