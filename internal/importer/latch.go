package importer

import (
	"context"
	"sync"
)

type LatchState int

const (
	LatchIdle LatchState = iota
	LatchRunning
	LatchDone
)

type call[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func (c *call[T]) finished() bool {
	select {
	case <-c.done:
		return true
	default:
	}
	return false
}

// Latch runs an initialization function at most once at a time. Join
// shares the current or completed run; Restart waits for a running one and
// then starts a fresh run. Runs never overlap.
//
// The run itself is detached from the caller's context: cancelling a
// caller only stops that caller from waiting.
type Latch[T any] struct {
	mu      sync.Mutex
	current *call[T]
}

func (l *Latch[T]) Join(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	l.mu.Lock()
	c := l.current
	if c == nil {
		c = l.start(ctx, fn)
	}
	l.mu.Unlock()

	return wait(ctx, c)
}

func (l *Latch[T]) Restart(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	for {
		l.mu.Lock()
		c := l.current
		if c == nil || c.finished() {
			c = l.start(ctx, fn)
			l.mu.Unlock()
			return wait(ctx, c)
		}
		l.mu.Unlock()

		select {
		case <-c.done:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Wait blocks until the current run, if any, has finished.
func (l *Latch[T]) Wait(ctx context.Context) error {
	l.mu.Lock()
	c := l.current
	l.mu.Unlock()

	if c == nil {
		return nil
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Latch[T]) State() LatchState {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case l.current == nil:
		return LatchIdle
	case l.current.finished():
		return LatchDone
	default:
		return LatchRunning
	}
}

// start must be called with l.mu held.
func (l *Latch[T]) start(ctx context.Context, fn func(context.Context) (T, error)) *call[T] {
	c := &call[T]{done: make(chan struct{})}
	l.current = c

	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer close(c.done)
		c.val, c.err = fn(runCtx)
	}()
	return c
}

func wait[T any](ctx context.Context, c *call[T]) (T, error) {
	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
