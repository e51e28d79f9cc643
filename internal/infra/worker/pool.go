// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	ErrPoolFull    = errors.New("worker queue full")
	ErrPoolStopped = errors.New("worker pool stopped")
)

// Task is one unit of work run by the pool.
type Task func(ctx context.Context) error

// Pool runs submitted tasks on a fixed number of goroutines.
type Pool struct {
	wg      sync.WaitGroup
	jobs    chan Task
	quit    chan struct{}
	once    sync.Once
	n       int
	busy    atomic.Int32
	stopped atomic.Bool
	log     *zerolog.Logger
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	l := logger.With().Str("component", "pool").Logger()
	return &Pool{jobs: make(chan Task, workers), quit: make(chan struct{}), n: workers, log: &l}
}

func (p *Pool) Size() int { return p.n }

// Idle is the number of workers not running a task, minus tasks already waiting.
func (p *Pool) Idle() int {
	return p.n - int(p.busy.Load()) - len(p.jobs)
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-p.jobs:
					if task == nil {
						continue
					}
					p.busy.Add(1)
					if err := task(ctx); err != nil {
						p.log.Error().Err(err).Int("worker", id).Msg("task error")
					}
					p.busy.Add(-1)
				}
			}
		}(i)
	}
}

// Stop signals the workers and waits for running tasks to return.
func (p *Pool) Stop() {
	p.once.Do(func() {
		p.stopped.Store(true)
		close(p.quit)
	})
	p.wg.Wait()
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	if p.stopped.Load() {
		return ErrPoolStopped
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		return ErrPoolFull
	}
}
