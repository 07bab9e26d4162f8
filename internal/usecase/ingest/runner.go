package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrShuttingDown is returned by Go once Drain has started.
var ErrShuttingDown = errors.New("ingest runner is shutting down")

// Runner owns the background goroutines of the pipeline. Every task runs
// under the lifetime context given to NewRunner.
type Runner struct {
	ctx    context.Context
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewRunner creates a runner bound to the server lifetime.
func NewRunner(ctx context.Context, logger *zap.Logger) *Runner {
	return &Runner{ctx: ctx, logger: logger}
}

// Go starts fn in the background.
func (r *Runner) Go(name string, fn func(ctx context.Context)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrShuttingDown
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("Background task panicked", zap.String("task", name), zap.Any("panic", rec))
			}
		}()
		fn(r.ctx)
	}()
	return nil
}

// Drain stops accepting tasks and waits for running ones until ctx is done.
func (r *Runner) Drain(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain ingest runner: %w", ctx.Err())
	}
}
