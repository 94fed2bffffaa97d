// Package pipeline keeps at most one speculative background task per owner
// and hands its result over exactly once.
package pipeline

import (
	"context"
	"errors"
	"sync"
)

// ErrNoTask is returned by TakeOrWait when nothing was started. Callers must
// arm the pipeline with EnsureInFlight first.
var ErrNoTask = errors.New("pipeline: no task in flight")

// Task produces one value. It runs on the pipeline's own context, which is
// cancelled only by Close.
type Task[T any] func(ctx context.Context) (T, error)

// WaitFunc supervises a blocking wait, for example by showing a progress
// indicator while await runs. It must call await and return its error.
type WaitFunc func(ctx context.Context, await func(context.Context) error) error

type slot[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Pipeline holds a single-slot background task.
type Pipeline[T any] struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	cur    *slot[T]
	closed bool
}

// New creates an idle Pipeline.
func New[T any]() *Pipeline[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline[T]{ctx: ctx, cancel: cancel}
}

// EnsureInFlight starts fn unless a task is already running or holds an
// unconsumed result. It reports whether fn was started. A running task is
// never cancelled or replaced.
func (p *Pipeline[T]) EnsureInFlight(fn Task[T]) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.cur != nil {
		return false
	}

	s := &slot[T]{done: make(chan struct{})}
	p.cur = s
	ctx := p.ctx
	go func() {
		defer close(s.done)
		s.val, s.err = fn(ctx)
	}()
	return true
}

// TakeOrWait returns the task's result and empties the slot. If the task is
// still running the wait happens inside wait (nil means a plain wait). Task
// failures are returned unchanged and also empty the slot. If ctx ends
// before the task does, the slot and the task are left intact.
func (p *Pipeline[T]) TakeOrWait(ctx context.Context, wait WaitFunc) (T, error) {
	var zero T

	p.mu.Lock()
	s := p.cur
	p.mu.Unlock()
	if s == nil {
		return zero, ErrNoTask
	}

	select {
	case <-s.done:
	default:
		if wait == nil {
			wait = plainWait
		}
		await := func(ctx context.Context) error {
			select {
			case <-s.done:
				return s.err
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := wait(ctx, await); err != nil {
			select {
			case <-s.done:
			default:
				return zero, err
			}
		}
	}

	p.mu.Lock()
	if p.cur == s {
		p.cur = nil
	}
	p.mu.Unlock()
	return s.val, s.err
}

// Pending reports whether a task is running or holds an unconsumed result.
func (p *Pipeline[T]) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cur != nil
}

// Running reports whether a task is still executing.
func (p *Pipeline[T]) Running() bool {
	p.mu.Lock()
	s := p.cur
	p.mu.Unlock()
	if s == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Close cancels any running task, discards its result and refuses new work.
func (p *Pipeline[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.cur = nil
	p.cancel()
}

func plainWait(ctx context.Context, await func(context.Context) error) error {
	return await(ctx)
}
