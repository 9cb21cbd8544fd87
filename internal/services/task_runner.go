package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// TaskRunner launches pipeline stages as detached goroutines. A stage keeps
// running after the request that triggered it returns; Wait drains them.
type TaskRunner struct {
	logger *slog.Logger
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewTaskRunner(logger *slog.Logger) *TaskRunner {
	return &TaskRunner{logger: logger}
}

// Go runs fn in the background. onPanic is called with the recovered value so
// the stage can still record a terminal status. It reports false after Close.
func (r *TaskRunner) Go(ctx context.Context, name string, fn func(ctx context.Context), onPanic func(ctx context.Context, recovered any)) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn("Task rejected, runner is closed", "task", name)
		return false
	}
	r.wg.Add(1)
	r.mu.Unlock()

	taskCtx := context.WithoutCancel(ctx)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("Task panicked",
					"task", name,
					"panic", fmt.Sprint(rec),
					"stack", string(debug.Stack()))
				if onPanic != nil {
					onPanic(taskCtx, rec)
				}
			}
		}()
		fn(taskCtx)
	}()
	return true
}

// Wait blocks until every running task finished or ctx is done
func (r *TaskRunner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for background tasks: %w", ctx.Err())
	}
}

// Close stops accepting tasks and drains the running ones
func (r *TaskRunner) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return r.Wait(ctx)
}
