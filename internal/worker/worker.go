// Package worker runs a fixed number of goroutines over a buffered job queue.
package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
)

// ErrStopped is returned by Submit once the pool has been stopped or its
// context has ended.
var ErrStopped = eris.New("worker pool stopped")

type ProcessFunc[T any] func(ctx context.Context, job T) error

// ErrorFunc is called with every job that did not complete: either its
// processor returned an error or it was still queued when the pool shut down.
type ErrorFunc[T any] func(job T, err error)

type Pool[T any] struct {
	numWorkers int
	jobs       chan T
	processor  ProcessFunc[T]
	onError    ErrorFunc[T]
	wg         sync.WaitGroup

	live     atomic.Int32
	quit     chan struct{}
	quitOnce sync.Once

	mu      sync.RWMutex
	stopped bool

	processed atomic.Int64
	failed    atomic.Int64
}

func NewPool[T any](numWorkers, bufferSize int, processor ProcessFunc[T]) *Pool[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Pool[T]{
		numWorkers: numWorkers,
		jobs:       make(chan T, bufferSize),
		processor:  processor,
		quit:       make(chan struct{}),
	}
}

// OnError registers the failure callback. It must be called before Start.
func (p *Pool[T]) OnError(fn ErrorFunc[T]) *Pool[T] {
	p.onError = fn
	return p
}

// Start launches the workers. They run until Stop is called or ctx ends;
// jobs still queued at that point are handed to the error callback.
func (p *Pool[T]) Start(ctx context.Context) {
	p.live.Store(int32(p.numWorkers))
	for i := 1; i <= p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

func (p *Pool[T]) worker(ctx context.Context) {
	defer p.wg.Done()
	defer func() {
		if p.live.Add(-1) == 0 {
			p.shutdown(ctx.Err())
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			if err := ctx.Err(); err != nil {
				p.fail(job, err)
				continue
			}
			if err := p.processor(ctx, job); err != nil {
				p.fail(job, err)
				continue
			}
			p.processed.Add(1)
		}
	}
}

func (p *Pool[T]) fail(job T, err error) {
	p.failed.Add(1)
	if p.onError != nil {
		p.onError(job, err)
	}
}

// shutdown runs once the last worker has exited. It rejects further
// submissions and fails whatever is left in the queue.
func (p *Pool[T]) shutdown(cause error) {
	p.quitOnce.Do(func() { close(p.quit) })

	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.jobs)
	}
	p.mu.Unlock()

	if cause == nil {
		cause = ErrStopped
	}
	for job := range p.jobs {
		p.fail(job, cause)
	}
}

// Submit enqueues job, blocking while the buffer is full. It gives up when
// ctx is done or the pool has shut down.
func (p *Pool[T]) Submit(ctx context.Context, job T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case <-p.quit:
		return ErrStopped
	default:
	}

	select {
	case p.jobs <- job:
		return nil
	case <-p.quit:
		return ErrStopped
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "submit job")
	}
}

// Stop closes the queue and waits for workers to drain it.
func (p *Pool[T]) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.jobs)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool[T]) Processed() int64 { return p.processed.Load() }
func (p *Pool[T]) Failed() int64 { return p.failed.Load() }
