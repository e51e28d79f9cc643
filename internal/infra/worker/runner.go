package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"financeflow/internal/domain"
	"financeflow/internal/domain/model"
	"financeflow/internal/domain/ports/adapter"
	"financeflow/internal/infra/logging"
	"financeflow/internal/infra/metrics"
)

// Handler processes one claimed job. A non-nil error means retry.
type Handler interface {
	Handle(ctx context.Context, qj *model.QueuedJob) error
}

type RunnerOptions struct {
	Concurrency       int
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
}

// Runner feeds claimed jobs into a bounded pool and settles them on the queue.
type Runner struct {
	queue   adapter.JobQueue
	handler Handler
	opts    RunnerOptions
	log     *zerolog.Logger
}

func NewRunner(queue adapter.JobQueue, handler Handler, opts RunnerOptions, logger *zerolog.Logger) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = time.Minute
	}
	l := logger.With().Str("component", "runner").Logger()
	return &Runner{queue: queue, handler: handler, opts: opts, log: &l}
}

// Run blocks until ctx is cancelled. Each poll tick tops the pool up with
// drain tasks; a drain task keeps claiming until the queue is empty.
func (r *Runner) Run(ctx context.Context) error {
	pool := NewPool(r.opts.Concurrency, r.log)
	pool.Start(ctx)
	defer pool.Stop()

	r.log.Info().Int("concurrency", r.opts.Concurrency).Dur("poll_interval", r.opts.PollInterval).Msg("worker started")

	poll := time.NewTicker(r.opts.PollInterval)
	defer poll.Stop()
	beat := time.NewTicker(r.opts.HeartbeatInterval)
	defer beat.Stop()

	r.fill(pool)
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("worker stopping")
			return nil
		case now := <-beat.C:
			metrics.Heartbeat(now)
			r.log.Info().Time("at", now.UTC()).Msg("worker heartbeat")
		case <-poll.C:
			r.fill(pool)
		}
	}
}

func (r *Runner) fill(pool *Pool) {
	for i := pool.Idle(); i > 0; i-- {
		if err := pool.Submit(r.drain); err != nil {
			return
		}
	}
}

func (r *Runner) drain(ctx context.Context) error {
	for ctx.Err() == nil {
		ok, err := r.ProcessOne(ctx)
		if err != nil || !ok {
			return err
		}
	}
	return nil
}

// ProcessOne claims and settles a single job. It reports false when the
// queue had nothing ready.
func (r *Runner) ProcessOne(ctx context.Context) (bool, error) {
	qj, err := r.queue.Claim(ctx)
	if errors.Is(err, domain.ErrQueueEmpty) {
		return false, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		return false, err
	}

	log := logging.With(logging.WithJobID(ctx, qj.ID), r.log)
	herr := r.handle(ctx, qj, log)

	// Settle even when shutting down so the lease does not have to expire.
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if herr == nil {
		if err := r.queue.Complete(settleCtx, qj); err != nil {
			r.settleError(log, err, "failed to complete job")
			return true, nil
		}
		log.Debug().Msg("job completed")
		return true, nil
	}

	if ctx.Err() != nil {
		log.Warn().Err(herr).Msg("job interrupted by shutdown; it is redelivered when its lease expires")
		return false, nil
	}
	retried, err := r.queue.Fail(settleCtx, qj, herr)
	if err != nil {
		r.settleError(log, err, "failed to record job failure")
		return true, nil
	}
	if retried {
		log.Warn().Err(herr).Int("attempts", qj.Attempts).Msg("job will be retried")
	} else {
		metrics.IncJob("dead")
		log.Error().Err(herr).Int("attempts", qj.Attempts).Msg("job moved to failed set")
	}
	return true, nil
}

// handle reports a handler panic as an ordinary failed attempt.
func (r *Runner) handle(ctx context.Context, qj *model.QueuedJob, log *zerolog.Logger) (err error) {
	defer func() {
		if p := recover(); p != nil {
			metrics.IncJob("panic")
			log.Error().Interface("panic", p).Msg("job handler panicked")
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	return r.handler.Handle(ctx, qj)
}

func (r *Runner) settleError(log *zerolog.Logger, err error, msg string) {
	if errors.Is(err, domain.ErrLeaseLost) {
		log.Warn().Err(err).Msg("lease expired before the job settled; another claim owns it")
		return
	}
	log.Error().Err(err).Msg(msg)
}
