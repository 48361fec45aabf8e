package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/svcgrid/internal/ctxlog"
)

// ErrPoolShutdown is returned by Submit once Shutdown has been called.
var ErrPoolShutdown = errors.New("executor pool is shut down")

// Task is a unit of work run by a single worker.
type Task func(ctx context.Context)

// Pool runs tasks on a fixed number of workers.
type Pool struct {
	numWorkers int
	tasks      chan Task
	wg         sync.WaitGroup

	mu       sync.Mutex
	shutdown bool
}

// New starts a pool with numWorkers workers. Values below one are raised to
// one. Workers stop once Shutdown has been called and the queue is drained.
func New(ctx context.Context, numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	p := &Pool{
		numWorkers: numWorkers,
		tasks:      make(chan Task),
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting worker pool.", "workers", numWorkers)
	p.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go p.worker(ctx, i)
	}
	return p
}

// Workers returns the number of workers in the pool.
func (p *Pool) Workers() int {
	return p.numWorkers
}

// Submit hands a task to the next free worker, blocking until one accepts
// it.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shutdown {
		return ErrPoolShutdown
	}
	p.tasks <- task
	return nil
}

// Shutdown stops accepting tasks and waits for every submitted task to
// finish. In-flight tasks are never cancelled. It is safe to call more than
// once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if !p.shutdown {
		p.shutdown = true
		close(p.tasks)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

// worker is the core processing loop for a single concurrent worker.
func (p *Pool) worker(ctx context.Context, workerID int) {
	defer p.wg.Done()

	logger := ctxlog.FromContext(ctx).With("workerID", workerID)
	workerCtx := ctxlog.WithLogger(ctx, logger)
	logger.Debug("Worker started.")

	for task := range p.tasks {
		p.run(workerCtx, task)
	}
	logger.Debug("Worker finished.")
}

// run executes one task, turning a panic into a logged error so a single bad
// task cannot take the worker down.
func (p *Pool) run(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Error("Task panicked.", "error", fmt.Sprintf("%v", r))
		}
	}()
	task(ctx)
}
