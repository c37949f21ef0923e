// Package tasks runs fire-and-forget side effects such as audit forwarding
// and last-login stamps.
//
// A task outlives the request that spawned it: it inherits the caller's
// values but not its cancellation, and is bounded by its own timeout.
// Failures are logged and never reach the caller.
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTimeout bounds each task when none is configured.
const DefaultTimeout = 10 * time.Second

// Runner spawns detached tasks.
type Runner struct {
	timeout time.Duration
	logger  *slog.Logger
	onFail  func(name string)

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	failed  atomic.Uint64
	dropped atomic.Uint64
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for task failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithFailureHook registers fn to run after every failed task.
func WithFailureHook(fn func(name string)) Option {
	return func(r *Runner) {
		r.onFail = fn
	}
}

// New returns a Runner whose tasks are bounded by timeout.
func New(timeout time.Duration, opts ...Option) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r := &Runner{
		timeout: timeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Go runs fn on its own goroutine. It reports false when the runner is
// closed and the task was dropped.
func (r *Runner) Go(ctx context.Context, name string, fn func(context.Context) error) bool {
	if r == nil || fn == nil {
		return false
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		r.dropped.Add(1)
		return false
	}
	r.wg.Add(1)
	r.mu.RUnlock()

	if ctx == nil {
		ctx = context.Background()
	}
	detached := context.WithoutCancel(ctx)

	go func() {
		defer r.wg.Done()

		taskCtx, cancel := context.WithTimeout(detached, r.timeout)
		defer cancel()

		if err := r.run(taskCtx, fn); err != nil {
			r.failed.Add(1)
			r.logger.Warn("background task failed", "task", name, "error", err)
			if r.onFail != nil {
				r.onFail(name)
			}
		}
	}()
	return true
}

func (r *Runner) run(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn(ctx)
}

// Wait blocks until every spawned task has returned.
func (r *Runner) Wait() {
	if r == nil {
		return
	}
	r.wg.Wait()
}

// Close stops accepting tasks and waits for in-flight ones.
func (r *Runner) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wg.Wait()
}

// Failed returns how many tasks returned an error or panicked.
func (r *Runner) Failed() uint64 {
	return r.failed.Load()
}

// Dropped returns how many tasks were refused after Close.
func (r *Runner) Dropped() uint64 {
	return r.dropped.Load()
}
