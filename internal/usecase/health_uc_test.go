//go:build !integration

package usecase

import (
	"context"
	"testing"

	"financeflow/internal/domain/model"
)

func TestHealthUseCase_Check(t *testing.T) {
	cases := []struct {
		name       string
		deps       HealthDeps
		wantStatus string
		wantErrs   int
	}{
		{
			name:       "all up",
			deps:       HealthDeps{DB: fakePinger{}, Redis: fakePinger{}, AI: &fakeAI{}, Queue: fakeStats{stats: model.QueueStats{Waiting: 2}}},
			wantStatus: HealthHealthy,
		},
		{
			name:       "redis down is degraded",
			deps:       HealthDeps{DB: fakePinger{}, Redis: fakePinger{err: errBoom}, AI: &fakeAI{}},
			wantStatus: HealthDegraded,
			wantErrs:   1,
		},
		{
			name:       "ai down is degraded",
			deps:       HealthDeps{DB: fakePinger{}, Redis: fakePinger{}, AI: &fakeAI{pingErr: errBoom}},
			wantStatus: HealthDegraded,
			wantErrs:   1,
		},
		{
			name:       "database down is unhealthy",
			deps:       HealthDeps{DB: fakePinger{err: errBoom}, Redis: fakePinger{err: errBoom}, AI: &fakeAI{}},
			wantStatus: HealthUnhealthy,
			wantErrs:   2,
		},
		{
			name:       "missing ai is degraded",
			deps:       HealthDeps{DB: fakePinger{}, Redis: fakePinger{}},
			wantStatus: HealthDegraded,
			wantErrs:   1,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			c.deps.Version = "1.0.0"
			rep := NewHealthUseCase(c.deps).Check(context.Background())
			if rep.Status != c.wantStatus {
				t.Fatalf("status = %q, want %q (errors %v)", rep.Status, c.wantStatus, rep.Errors)
			}
			if len(rep.Errors) != c.wantErrs {
				t.Fatalf("errors = %v, want %d", rep.Errors, c.wantErrs)
			}
			if rep.Version != "1.0.0" || rep.Timestamp.IsZero() {
				t.Errorf("missing metadata: %+v", rep)
			}
			if _, ok := rep.Checks["database"]; !ok {
				t.Error("database check missing")
			}
		})
	}
}

func TestHealthUseCase_QueueStats(t *testing.T) {
	rep := NewHealthUseCase(HealthDeps{
		DB: fakePinger{}, Redis: fakePinger{}, AI: &fakeAI{},
		Queue: fakeStats{stats: model.QueueStats{Waiting: 4, Failed: 1}},
	}).Check(context.Background())
	if rep.Queue == nil || rep.Queue.Waiting != 4 || rep.Queue.Failed != 1 {
		t.Fatalf("unexpected queue stats: %+v", rep.Queue)
	}
	if !rep.Checks["queue"] {
		t.Error("queue check should pass")
	}
}
