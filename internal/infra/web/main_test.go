//go:build !integration

package web

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"financeflow/internal/config"
	"financeflow/internal/domain"
	"financeflow/internal/domain/model"
	"financeflow/internal/usecase"
)

var errBoom = errors.New("boom")

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type fakeIngest struct {
	mu      sync.Mutex
	got     []usecase.InboundMessage
	outcome usecase.IngestOutcome
	err     error
}

func (f *fakeIngest) Ingest(_ context.Context, msg usecase.InboundMessage) (usecase.IngestOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, msg)
	if f.err != nil {
		return "", f.err
	}
	if f.outcome == "" {
		return usecase.OutcomeQueued, nil
	}
	return f.outcome, nil
}

type fakeHealth struct{ rep usecase.HealthReport }

func (f fakeHealth) Check(context.Context) usecase.HealthReport { return f.rep }

type fakeCron struct {
	ran []string
	err error
}

func (f *fakeCron) Jobs() []string {
	return []string{usecase.JobRecurringTransactions, usecase.JobResetUsage}
}

func (f *fakeCron) Run(_ context.Context, job string) (*model.CronRun, error) {
	if job != usecase.JobRecurringTransactions && job != usecase.JobResetUsage {
		return nil, domain.ErrInvalidArgument
	}
	f.ran = append(f.ran, job)
	if f.err != nil {
		return &model.CronRun{JobName: job, Status: model.CronStatusFailed, ErrorMessage: f.err.Error()}, f.err
	}
	return &model.CronRun{JobName: job, Status: model.CronStatusSuccess, ProcessedCount: 2}, nil
}

type fakeQueueAdmin struct {
	stats   model.QueueStats
	failed  []*model.QueuedJob
	retried []string
	err     error
}

func (f *fakeQueueAdmin) Stats(context.Context) (model.QueueStats, error) { return f.stats, f.err }

func (f *fakeQueueAdmin) ListFailed(_ context.Context, limit int) ([]*model.QueuedJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && limit < len(f.failed) {
		return f.failed[:limit], nil
	}
	return f.failed, nil
}

func (f *fakeQueueAdmin) RetryFailed(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	for _, j := range f.failed {
		if j.ID == id {
			f.retried = append(f.retried, id)
			return nil
		}
	}
	return domain.ErrNotFound
}

const (
	testCronSecret  = "cron-secret"
	testAdminSecret = "admin-secret"
	testJWTSecret   = "jwt-signing-key"
)

type testServer struct {
	srv    *Server
	ingest *fakeIngest
	cron   *fakeCron
	queue  *fakeQueueAdmin
}

func newTestServer(mut func(*Deps)) *testServer {
	return newTestServerWithConfig(config.HTTPConfig{}, mut)
}

func newTestServerWithConfig(cfg config.HTTPConfig, mut func(*Deps)) *testServer {
	ts := &testServer{
		ingest: &fakeIngest{},
		cron:   &fakeCron{},
		queue:  &fakeQueueAdmin{},
	}
	deps := Deps{
		Ingest:     ts.ingest,
		Health:     fakeHealth{rep: usecase.HealthReport{Status: usecase.HealthHealthy}},
		Cron:       ts.cron,
		Queue:      ts.queue,
		CronGuard:  NewGuard("cron", testCronSecret, testJWTSecret, nopLogger()),
		AdminGuard: NewGuard("admin", testAdminSecret, testJWTSecret, nopLogger()),
	}
	if mut != nil {
		mut(&deps)
	}
	ts.srv = NewServer(cfg, deps, nopLogger())
	return ts
}
