// Package scheduler implements an ordered work executor with futures.
//
// The scheduler owns a fixed set of workers and a FIFO work queue. Work is
// submitted via Submit (typed) or AddWork (untyped) and returns a Future that
// delivers exactly one Result. The local store runs it with a single worker,
// which turns it into a serial executor: every database statement or batch is
// one work item, and items run strictly one at a time in submission order.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────────────┐
//	│                           Scheduler                                 │
//	│                                                                     │
//	│  caller A ──┐                                                       │
//	│  caller B ──┼──► work chan ──► run() loop ──► Work Queue (FIFO)     │
//	│  caller C ──┘                                 [w1] [w2] [w3] ...    │
//	│                                                      │              │
//	│                                               dispatch()            │
//	│                                                      │              │
//	│                                               ┌──────▼─────┐        │
//	│                                               │  Worker 1  │        │
//	│                                               └────────────┘        │
//	└─────────────────────────────────────────────────────────────────────┘
//
// # Ordering Contract
//
// The work channel is unbuffered, so Submit returns only after the run loop
// accepted the item. Two submissions made one after the other by the same
// goroutine are therefore queued in that order, and dispatch always pops the
// oldest queued item. With one worker the observed execution order is a total
// order that preserves every caller's own submission order.
//
// # Failure Isolation
//
// A work function that returns an error only fails its own future. A work
// function that panics is recovered by the worker and reported as
// "worker panicked: ..." on its future; the worker goes back to the pool and
// the queue keeps draining.
//
// # Cancellation
//
// Submitted work cannot be canceled. Work receives context.WithoutCancel of
// the submitting context: values (request ids, loggers) flow through, deadlines
// do not. Callers that need a deadline use Future.Wait(ctx), which stops
// waiting without stopping the work.
//
// # Graceful Shutdown
//
// Close() performs graceful shutdown:
//
//  1. Closes the quit channel; new submissions immediately get ErrClosed
//  2. Queued work that has not started gets ErrClosed
//  3. The run loop waits for in-flight work (wg.Wait())
//  4. The run loop exits and Close() returns
//
// Close() is idempotent (uses sync.Once).
//
// # Usage Example
//
//	sched := scheduler.NewSerialScheduler()
//	defer sched.Close()
//
//	future := scheduler.Submit(ctx, sched, func(ctx context.Context) (int64, error) {
//	    return countRows(ctx)
//	})
//
//	n, err := future.Wait(ctx)
package scheduler
