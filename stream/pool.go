// Package stream implements the reactive streaming substrate: hot,
// multi-subscriber topics with replay-1 and per-subscriber backpressure,
// latest-value readers, and the message-conversion hook that lets a topic
// declared as logical type T be backed by a different wire type.
//
// Every subscriber callback runs on the shared WorkerPool rather than on
// the producer's own goroutine, so one slow subscriber's user code can
// never block the producer (or other subscribers) from making progress —
// the same hand-off the teacher's robot middleware does before invoking
// component callbacks.
package stream

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// WorkerPool runs callbacks on a bounded number of concurrent goroutines.
// Its default size mirrors the teacher's "cores/2" sizing for its
// component worker pool.
type WorkerPool struct {
	sem *semaphore.Weighted
}

// DefaultPoolSize returns max(CPUs/2, 1).
func DefaultPoolSize() int64 {
	n := int64(runtime.NumCPU() / 2)
	if n < 1 {
		n = 1
	}
	return n
}

// NewWorkerPool returns a pool with the given concurrency limit. A size
// <= 0 uses DefaultPoolSize.
func NewWorkerPool(size int64) *WorkerPool {
	if size <= 0 {
		size = DefaultPoolSize()
	}
	return &WorkerPool{sem: semaphore.NewWeighted(size)}
}

// Go blocks until a slot is free (or ctx is done), then runs fn on a new
// goroutine and returns immediately. It returns ctx.Err() without running
// fn if the context is already done.
func (p *WorkerPool) Go(ctx context.Context, fn func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	go func() {
		defer p.sem.Release(1)
		fn()
	}()
	return nil
}

var defaultPool = NewWorkerPool(0)

// DefaultPool is the package-level shared pool used by topics that don't
// have one explicitly injected.
func DefaultPool() *WorkerPool { return defaultPool }
