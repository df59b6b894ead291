package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler runs submitted work with at most n items in flight. Work waiting
// for a slot observes its own context, so a queued item whose timeout expires
// reports the deadline without running.
type Scheduler[T any] struct {
	slots  chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	once   sync.Once
}

func NewScheduler[T any](nbWorkers int) *Scheduler[T] {
	if nbWorkers < 1 {
		nbWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler[T]{
		slots:  make(chan struct{}, nbWorkers),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Scheduler[T]) AddWork(name string, w Work[T]) *Future[Result[T]] {
	ctx, cancel := context.WithCancel(s.ctx)
	return s.submit(name, w, ctx, cancel)
}

// AddWorkWithTimeout submits work whose context expires after timeout. The
// timeout starts when the work is submitted, not when a slot frees up.
func (s *Scheduler[T]) AddWorkWithTimeout(name string, timeout time.Duration, w Work[T]) *Future[Result[T]] {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	return s.submit(name, w, ctx, cancel)
}

func (s *Scheduler[T]) submit(name string, w Work[T], ctx context.Context, cancel context.CancelFunc) *Future[Result[T]] {
	c := make(chan Result[T], 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		cancel()
		c <- Result[T]{Name: name, Err: context.Canceled}
		return NewFuture(c, cancel)
	}

	s.wg.Add(1)
	go s.run(name, w, ctx, cancel, c)
	return NewFuture(c, cancel)
}

func (s *Scheduler[T]) run(name string, w Work[T], ctx context.Context, cancel context.CancelFunc, c chan<- Result[T]) {
	defer s.wg.Done()
	defer cancel()

	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		c <- Result[T]{Name: name, Err: ctx.Err()}
		return
	}
	defer func() { <-s.slots }()

	if err := ctx.Err(); err != nil {
		c <- Result[T]{Name: name, Err: err}
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			zap.S().Named("scheduler").Errorw("work panicked", "work", name, "panic", rec)
			c <- Result[T]{Name: name, Err: fmt.Errorf("worker panicked: %v", rec)}
		}
	}()

	v, err := w(ctx)
	c <- Result[T]{Name: name, Data: v, Err: err}
}

// Close cancels all work, queued or running, and waits for it to return.
// Work submitted afterwards fails with context.Canceled.
func (s *Scheduler[T]) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.cancel()
		s.wg.Wait()
	})
}
