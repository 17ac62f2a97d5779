package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrClosed is delivered to work submitted after Close and to work still
// queued when Close is called.
var ErrClosed = errors.New("scheduler closed")

type queue[T any] []T

func (wq *queue[T]) Len() int { return len(*wq) }

func (wq *queue[T]) Pop() T {
	old := *wq
	x := old[0]
	var zero T
	old[0] = zero
	*wq = old[1:]
	return x
}

func (wq *queue[T]) Push(t T) {
	*wq = append(*wq, t)
}

type workRequest struct {
	ctx  context.Context
	run  func(ctx context.Context)
	fail func(err error)
}

type worker struct {
	done chan any
	wg   *sync.WaitGroup
}

func (w worker) Work(r workRequest) {
	defer func() {
		if rec := recover(); rec != nil {
			r.fail(fmt.Errorf("worker panicked: %v", rec))
		}
		w.done <- struct{}{}
		w.wg.Done()
	}()

	r.run(r.ctx)
}

func newWorker(done chan any, wg *sync.WaitGroup) worker {
	return worker{done: done, wg: wg}
}

// Scheduler hands submitted work to a fixed pool of workers in strict
// submission order. With a single worker it is a serial executor: work items
// run one at a time, first submitted first run.
type Scheduler struct {
	workers   *queue[worker]
	workQueue *queue[workRequest]
	quit      chan any
	exited    chan any
	done      chan any
	work      chan workRequest
	pending   atomic.Int64
	wg        sync.WaitGroup
	once      sync.Once
}

func NewScheduler(nbWorkers int) *Scheduler {
	if nbWorkers < 1 {
		nbWorkers = 1
	}
	done := make(chan any, nbWorkers)
	s := &Scheduler{
		workers:   &queue[worker]{},
		workQueue: &queue[workRequest]{},
		quit:      make(chan any),
		exited:    make(chan any),
		done:      done,
		work:      make(chan workRequest),
	}
	for range nbWorkers {
		s.workers.Push(newWorker(done, &s.wg))
	}
	go s.run()
	return s
}

// NewSerialScheduler returns a scheduler with exactly one worker.
func NewSerialScheduler() *Scheduler {
	return NewScheduler(1)
}

func (s *Scheduler) AddWork(w Work[any]) *Future[any] {
	return Submit(context.Background(), s, w)
}

// Pending returns the number of submitted work items that have not completed.
func (s *Scheduler) Pending() int {
	return int(s.pending.Load())
}

// Close stops accepting work, fails queued work with ErrClosed and waits for
// in-flight work to finish. Close is idempotent.
func (s *Scheduler) Close() {
	s.once.Do(func() {
		close(s.quit)
		<-s.exited
	})
}

func (s *Scheduler) submit(r workRequest) {
	s.pending.Add(1)
	run := r.run
	r.run = func(ctx context.Context) {
		defer s.pending.Add(-1)
		run(ctx)
	}

	select {
	case <-s.quit:
		s.pending.Add(-1)
		r.fail(ErrClosed)
	case s.work <- r:
	}
}

func (s *Scheduler) run() {
	defer close(s.exited)
	for {
		select {
		case w := <-s.work:
			s.workQueue.Push(w)
			s.dispatch()
		case <-s.done:
			s.workers.Push(newWorker(s.done, &s.wg))
			s.dispatch()
		case <-s.quit:
			for s.workQueue.Len() > 0 {
				r := s.workQueue.Pop()
				s.pending.Add(-1)
				r.fail(ErrClosed)
			}
			s.wg.Wait()
			return
		}
	}
}

// dispatch drains the workQueue as much as possible
// based on available workers
func (s *Scheduler) dispatch() {
	for s.workers.Len() > 0 && s.workQueue.Len() > 0 {
		r := s.workQueue.Pop()
		worker := s.workers.Pop()
		s.wg.Add(1)
		go worker.Work(r)
	}
}
