package adi

import (
	"context"

	"github.com/pkg/errors"
)

// Awaitable is a value that becomes available later. Asynchronous
// resolution waits for it; synchronous resolution rejects it.
type Awaitable interface {
	Await(ctx context.Context) (any, error)
}

type Future struct {
	done  chan struct{}
	value any
	err   error
}

// Async runs fn in its own goroutine and returns a Future for its result.
func Async(ctx context.Context, fn func(ctx context.Context) (any, error)) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = fn(ctx)
	}()
	return f
}

// Resolved returns an already completed Future.
func Resolved(value any) *Future {
	f := &Future{done: make(chan struct{}), value: value}
	close(f.done)
	return f
}

func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, errors.WithStack(ctx.Err())
	}
}

func (f *Future) Done() <-chan struct{} {
	return f.done
}
