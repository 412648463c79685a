// internal/engine/pool.go
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mlenstra/shrike/internal/types"
)

/*
 * Bounded worker pool for concurrent event processing.
 *
 * The engine itself is stateless per event; the pool provides the host
 * concurrency model: a fixed worker count draining a bounded queue.
 * Submit is non-blocking - a full queue returns ErrQueueFull so callers
 * get an explicit backpressure signal instead of unbounded buffering.
 *
 * Stop closes the queue, lets workers drain remaining events, and waits up
 * to the given timeout.
 */

// Sentinel errors for pool operations.
var (
	ErrPoolNotStarted    = errors.New("event pool not started")
	ErrPoolStopped       = errors.New("event pool stopped")
	ErrPoolAlreadyExists = errors.New("event pool already started")
	ErrQueueFull         = errors.New("event queue full")
	ErrStopTimeout       = errors.New("event pool stop timed out")
)

// Pool processes submitted event records through the engine on a fixed
// number of workers.
type Pool struct {
	engine  *Engine
	workers int
	queue   chan types.Record
	wg      sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewPool creates a pool with the given worker count and queue capacity.
func NewPool(engine *Engine, workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		engine:  engine,
		workers: workers,
		queue:   make(chan types.Record, queueSize),
	}
}

// Start launches the workers. The context cancels in-flight processing and
// stops the workers.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return ErrPoolAlreadyExists
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	return nil
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-p.queue:
			if !ok {
				return
			}
			if _, err := p.engine.Process(ctx, rec); err != nil {
				p.engine.log.Error("event processing failed", zap.Error(err))
			}
		}
	}
}

// Submit enqueues one event without blocking. Returns ErrQueueFull when
// workers cannot keep up.
func (p *Pool) Submit(rec types.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return ErrPoolNotStarted
	}
	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.queue <- rec:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for workers to drain it, up to timeout.
func (p *Pool) Stop(timeout time.Duration) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrPoolNotStarted
	}
	if p.stopped {
		p.mu.Unlock()
		return ErrPoolStopped
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrStopTimeout
	}
}
