package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"financeflow/internal/domain/model"
	"financeflow/internal/domain/ports/adapter"
	"financeflow/internal/domain/ports/repository"
)

const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

var errNotConfigured = errors.New("not configured")

type HealthReport struct {
	Status         string            `json:"status"`
	Timestamp      time.Time         `json:"timestamp"`
	Version        string            `json:"version"`
	Environment    string            `json:"environment"`
	Uptime         float64           `json:"uptime"`
	ResponseTimeMs int64             `json:"response_time_ms"`
	Checks         map[string]bool   `json:"checks"`
	Errors         []string          `json:"errors,omitempty"`
	Queue          *model.QueueStats `json:"queue,omitempty"`
}

type QueueStatsReader interface {
	Stats(ctx context.Context) (model.QueueStats, error)
}

// Compile-time check
var _ HealthUseCase = (*healthUC)(nil)

type HealthUseCase interface {
	Check(ctx context.Context) HealthReport
}

type HealthDeps struct {
	DB      repository.Pinger
	Redis   repository.Pinger
	AI      adapter.TextGenerator
	Queue   QueueStatsReader
	Version string
	Dev     bool
	Timeout time.Duration
}

type healthUC struct {
	deps    HealthDeps
	started time.Time
	now     func() time.Time
}

func NewHealthUseCase(deps HealthDeps) *healthUC {
	if deps.Timeout <= 0 {
		deps.Timeout = 10 * time.Second
	}
	return &healthUC{deps: deps, started: time.Now(), now: time.Now}
}

type checkResult struct {
	name string
	err  error
	// critical failures make the service unhealthy instead of degraded
	critical bool
}

// Check probes every dependency concurrently, each under the same timeout.
// A database failure is unhealthy; any other failure is degraded.
func (h *healthUC) Check(ctx context.Context) HealthReport {
	start := h.now()
	ctx, cancel := context.WithTimeout(ctx, h.deps.Timeout)
	defer cancel()

	probes := map[string]func(context.Context) error{
		"database": pingOrMissing(h.deps.DB),
		"redis":    pingOrMissing(h.deps.Redis),
		"ai_service": func(ctx context.Context) error {
			if h.deps.AI == nil {
				return errNotConfigured
			}
			return h.deps.AI.Ping(ctx)
		},
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []checkResult
		stats   *model.QueueStats
	)
	for name, probe := range probes {
		wg.Add(1)
		go func(name string, probe func(context.Context) error) {
			defer wg.Done()
			err := probe(ctx)
			mu.Lock()
			results = append(results, checkResult{name: name, err: err, critical: name == "database"})
			mu.Unlock()
		}(name, probe)
	}
	if h.deps.Queue != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := h.deps.Queue.Stats(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results = append(results, checkResult{name: "queue", err: err})
				return
			}
			stats = &s
			results = append(results, checkResult{name: "queue"})
		}()
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].name < results[j].name })
	rep := HealthReport{
		Status:    HealthHealthy,
		Timestamp: h.now().UTC(),
		Version:   h.deps.Version,
		Uptime:    h.now().Sub(h.started).Seconds(),
		Checks:    make(map[string]bool, len(results)),
		Queue:     stats,
	}
	rep.Environment = "production"
	if h.deps.Dev {
		rep.Environment = "development"
	}
	for _, r := range results {
		rep.Checks[r.name] = r.err == nil
		if r.err == nil {
			continue
		}
		rep.Errors = append(rep.Errors, fmt.Sprintf("%s: %v", r.name, r.err))
		if r.critical {
			rep.Status = HealthUnhealthy
		} else if rep.Status == HealthHealthy {
			rep.Status = HealthDegraded
		}
	}
	rep.ResponseTimeMs = h.now().Sub(start).Milliseconds()
	return rep
}

func pingOrMissing(p repository.Pinger) func(context.Context) error {
	return func(ctx context.Context) error {
		if p == nil {
			return errNotConfigured
		}
		return p.Ping(ctx)
	}
}
