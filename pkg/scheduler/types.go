package scheduler

import (
	"context"
)

type Work[T any] func(ctx context.Context) (T, error)

type Result[T any] struct {
	Data T
	Err  error
}

type Future[T any] struct {
	input chan Result[T]
}

func NewFuture[T any](input chan Result[T]) *Future[T] {
	return &Future[T]{input: input}
}

func (f *Future[T]) C() <-chan Result[T] {
	return f.input
}

// Wait blocks until the work completes or ctx is done. Giving up on the wait
// does not stop the work: once submitted it always runs to completion.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case r := <-f.input:
		return r.Data, r.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Submit queues typed work on s. The work receives a context that carries the
// values of ctx but is never canceled.
func Submit[T any](ctx context.Context, s *Scheduler, w Work[T]) *Future[T] {
	c := make(chan Result[T], 1)
	s.submit(workRequest{
		ctx: context.WithoutCancel(ctx),
		run: func(ctx context.Context) {
			v, err := w(ctx)
			c <- Result[T]{Data: v, Err: err}
		},
		fail: func(err error) {
			c <- Result[T]{Err: err}
		},
	})
	return NewFuture(c)
}
