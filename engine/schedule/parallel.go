package schedule

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// DefaultQueueSize is the task queue length of a Pool's worker pool.
const DefaultQueueSize = 256

// DefaultIdleTimeout is the idle timeout handed to the worker pool.
const DefaultIdleTimeout = 1 * time.Second

// Pool runs data-parallel loops on a reusable set of worker goroutines.
//
// Work is split into contiguous chunks and each chunk becomes one worker task.
// ParallelFor returns only after every chunk has finished, which makes it the
// barrier between a parallel phase and the serial work that follows it.
// Chunk bodies must not call back into the same Pool.
type Pool interface {
	// ParallelFor calls fn(i) for every i in [0, n), spread across workers.
	// If any call panics, the first panic is re-raised on the calling goroutine
	// after all chunks finish.
	//
	// Parameters:
	//   - n: number of iterations
	//   - fn: loop body; calls for distinct i may run concurrently
	ParallelFor(n int, fn func(i int))

	// Workers returns the number of workers backing the pool.
	//
	// Returns:
	//   - int: the worker count
	Workers() int

	// Close stops the workers. The pool must not be used afterwards.
	Close()
}

type poolImpl struct {
	workers   int
	queueSize int
	pool      worker.DynamicWorkerPool
	taskID    int
	mu        sync.Mutex
}

var _ Pool = &poolImpl{}

// PoolBuilderOption is a functional option for configuring a Pool.
type PoolBuilderOption func(*poolImpl)

// WithWorkers sets the number of worker goroutines. Values below 1 are raised to 1.
//
// Parameters:
//   - n: worker count
//
// Returns:
//   - PoolBuilderOption: the option function
func WithWorkers(n int) PoolBuilderOption {
	return func(p *poolImpl) {
		p.workers = max(n, 1)
	}
}

// WithQueueSize sets the worker pool's task queue length.
//
// Parameters:
//   - n: queue length
//
// Returns:
//   - PoolBuilderOption: the option function
func WithQueueSize(n int) PoolBuilderOption {
	return func(p *poolImpl) {
		p.queueSize = max(n, 1)
	}
}

// NewPool creates a Pool. Worker count defaults to one less than the number of
// CPUs (minimum 1), leaving a core for the frame loop.
//
// Parameters:
//   - options: variadic list of PoolBuilderOption functions
//
// Returns:
//   - Pool: the new pool
func NewPool(options ...PoolBuilderOption) Pool {
	p := &poolImpl{
		workers:   max(runtime.NumCPU()-1, 1),
		queueSize: DefaultQueueSize,
	}
	for _, option := range options {
		option(p)
	}
	p.pool = worker.NewDynamicWorkerPool(p.workers, p.queueSize, DefaultIdleTimeout)
	return p
}

func (p *poolImpl) Workers() int {
	return p.workers
}

func (p *poolImpl) Close() {
	p.pool.Stop()
}

func (p *poolImpl) ParallelFor(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if n == 1 || p.workers == 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	chunks := min(n, p.workers*4)
	size := (n + chunks - 1) / chunks

	var (
		wg       sync.WaitGroup
		panicMu  sync.Mutex
		panicked any
	)
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		wg.Add(1)
		p.pool.SubmitTask(worker.Task{
			ID: p.nextTaskID(),
			Do: func() (any, error) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						panicMu.Lock()
						if panicked == nil {
							panicked = r
						}
						panicMu.Unlock()
					}
				}()
				for i := start; i < end; i++ {
					fn(i)
				}
				return nil, nil
			},
		})
	}
	wg.Wait()

	if panicked != nil {
		panic(fmt.Sprintf("schedule: parallel task panicked: %v", panicked))
	}
}

func (p *poolImpl) nextTaskID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.taskID++
	return p.taskID
}

// Serial is a Pool that runs every loop on the calling goroutine. It is used
// when no worker pool is configured and in tests that need deterministic order.
type Serial struct{}

var _ Pool = Serial{}

// ParallelFor calls fn(i) for every i in [0, n) in order.
func (Serial) ParallelFor(n int, fn func(i int)) {
	for i := 0; i < n; i++ {
		fn(i)
	}
}

// Workers returns 1.
func (Serial) Workers() int { return 1 }

// Close is a no-op.
func (Serial) Close() {}
