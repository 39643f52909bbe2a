// File: internal/infra/queue/pool.go
package queue

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

// ErrPoolSaturated is returned by Submit when every worker is busy and the
// buffer is full. The processor treats it as back-pressure and requeues.
var ErrPoolSaturated = errors.New("worker pool saturated")

// Task is one unit of work executed on a pool worker.
type Task func(ctx context.Context) error

// Pool runs job executions on a bounded set of goroutines so a burst of due
// jobs cannot fan out unbounded.
type Pool struct {
	tasks   chan Task
	workers int
	log     *zerolog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	l := logger.With().Str("component", "worker_pool").Logger()
	return &Pool{
		tasks:   make(chan Task, workers*4),
		workers: workers,
		log:     &l,
		done:    make(chan struct{}),
	}
}

// Start launches the workers. Subsequent calls are no-ops.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.work(ctx, i+1)
		}
		p.log.Debug().Int("workers", p.workers).Msg("worker pool started")
	})
}

func (p *Pool) work(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case task := <-p.tasks:
			if task == nil {
				continue
			}
			if err := task(ctx); err != nil {
				p.log.Error().Err(err).Int("worker", id).Msg("task error")
			}
		}
	}
}

// Stop signals the workers and waits for in-flight tasks to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
	p.wg.Wait()
}

// Submit hands a task to the pool without blocking the caller.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolSaturated
	}
}
