package services

import (
	"context"
	"fmt"
	"runtime/debug"

	"secrettime-backend/config"
)

// Task is the handle of work running in the background. The caller decides
// where the continuation runs by selecting on Done or blocking in Wait.
type Task[T any] struct {
	done   chan struct{}
	result T
	err    error
}

// Go runs fn on its own goroutine. A panic in fn becomes the task's error.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Task[T] {
	t := &Task[T]{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer func() {
			if r := recover(); r != nil {
				t.err = fmt.Errorf("background task panicked: %v", r)
				config.GetLogger().WithField("stack", string(debug.Stack())).Error(t.err.Error())
			}
		}()
		t.result, t.err = fn(ctx)
	}()
	return t
}

// Done is closed once the result is available.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx ends.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
