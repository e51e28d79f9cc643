package sched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"financeflow/internal/domain"
	"financeflow/internal/usecase"
)

// Locker is the distributed lock used to keep one replica per tick.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

type Options struct {
	LockTTL    time.Duration
	RunTimeout time.Duration
}

// Scheduler fires maintenance jobs on cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	jobs   usecase.CronUseCase
	locker Locker
	opts   Options
	log    *zerolog.Logger
	ctx    context.Context
}

func NewScheduler(jobs usecase.CronUseCase, locker Locker, opts Options, logger *zerolog.Logger) *Scheduler {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Minute
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = time.Minute
	}
	l := logger.With().Str("component", "scheduler").Logger()
	cl := cronLogger{log: &l}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC), cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		jobs:   jobs,
		locker: locker,
		opts:   opts,
		log:    &l,
		ctx:    context.Background(),
	}
}

// Register schedules job on a standard five-field cron spec.
func (s *Scheduler) Register(job, spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { _, _ = s.RunLocked(s.ctx, job) }); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", job, spec, err)
	}
	s.log.Info().Str("job", job).Str("schedule", spec).Msg("scheduled job")
	return nil
}

// Start begins firing; ctx bounds every run started afterwards.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
}

// Stop halts the scheduler. The returned context is done when running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunLocked runs job if this replica wins the lock. It reports whether the job ran.
func (s *Scheduler) RunLocked(ctx context.Context, job string) (bool, error) {
	log := s.log.With().Str("job", job).Logger()
	key := "cron_lock:" + job

	token, err := s.locker.TryLock(ctx, key, s.opts.LockTTL)
	if errors.Is(err, domain.ErrLockNotAcquired) {
		log.Debug().Msg("another replica holds the lock; skipping")
		return false, nil
	}
	if err != nil {
		log.Error().Err(err).Msg("lock failed")
		return false, err
	}
	defer func() {
		uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.locker.Unlock(uctx, key, token); err != nil {
			log.Warn().Err(err).Msg("unlock failed; lock expires on its own")
		}
	}()

	rctx, cancel := context.WithTimeout(ctx, s.opts.RunTimeout)
	defer cancel()
	run, err := s.jobs.Run(rctx, job)
	if err != nil {
		log.Error().Err(err).Msg("scheduled run failed")
		return true, err
	}
	log.Info().Int("processed", run.ProcessedCount).Msg("scheduled run finished")
	return true, nil
}

type cronLogger struct{ log *zerolog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
