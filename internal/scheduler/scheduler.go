// Package scheduler runs asynchronous tasks with at most N in flight.
//
// Submitted tasks wait in an unbounded FIFO queue. Whenever fewer than N are
// running, the head of the queue is started. A finishing task settles its
// Future, frees its slot and pulls the next queued task, whether it
// succeeded, failed or panicked.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"valavatar/pkg/logger"
)

// ErrPanic wraps the value recovered from a panicking task
var ErrPanic = errors.New("task panicked")

// Func is one unit of work
type Func[T any] func(ctx context.Context) (T, error)

// Option configures a Scheduler
type Option func(*options)

type options struct {
	taskTimeout time.Duration
}

// WithTaskTimeout bounds each task's context. Zero means no bound.
func WithTaskTimeout(d time.Duration) Option {
	return func(o *options) { o.taskTimeout = d }
}

type task[T any] struct {
	ctx    context.Context
	fn     Func[T]
	future *Future[T]
}

// Scheduler admits at most limit tasks at a time
type Scheduler[T any] struct {
	limit int
	opts  options

	mu      sync.Mutex
	queue   []*task[T]
	running int
	peak    int

	wg     sync.WaitGroup
	logger logger.Logger
}

// New creates a Scheduler running at most limit tasks concurrently.
// A limit below 1 is treated as 1.
func New[T any](limit int, log logger.Logger, opts ...Option) *Scheduler[T] {
	if limit < 1 {
		limit = 1
	}
	s := &Scheduler[T]{
		limit:  limit,
		logger: logger.OrNop(log),
	}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

// Submit enqueues fn and returns its Future. It never blocks on the queue.
// If ctx is already done when the task reaches the head of the queue, the
// Future settles with ctx's error and fn is never called.
func (s *Scheduler[T]) Submit(ctx context.Context, fn Func[T]) *Future[T] {
	f := newFuture[T]()

	s.wg.Add(1)
	s.mu.Lock()
	s.queue = append(s.queue, &task[T]{ctx: ctx, fn: fn, future: f})
	s.dispatchLocked()
	s.mu.Unlock()

	return f
}

// SubmitArg submits fn bound to arg
func SubmitArg[A, T any](s *Scheduler[T], ctx context.Context, fn func(context.Context, A) (T, error), arg A) *Future[T] {
	return s.Submit(ctx, func(ctx context.Context) (T, error) {
		return fn(ctx, arg)
	})
}

// dispatchLocked starts queued tasks while slots are free. s.mu must be held.
func (s *Scheduler[T]) dispatchLocked() {
	for s.running < s.limit && len(s.queue) > 0 {
		t := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]

		if err := t.ctx.Err(); err != nil {
			var zero T
			t.future.settle(zero, err)
			s.wg.Done()
			continue
		}

		s.running++
		if s.running > s.peak {
			s.peak = s.running
		}
		go s.run(t)
	}
}

func (s *Scheduler[T]) run(t *task[T]) {
	value, err := s.call(t)
	t.future.settle(value, err)

	s.mu.Lock()
	s.running--
	s.dispatchLocked()
	s.mu.Unlock()

	s.wg.Done()
}

func (s *Scheduler[T]) call(t *task[T]) (value T, err error) {
	ctx := t.ctx
	if s.opts.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.taskTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			var zero T
			value, err = zero, fmt.Errorf("%w: %v", ErrPanic, r)
			s.logger.ErrorWithFields("task panicked", map[string]interface{}{
				"task_id": t.future.ID(),
				"panic":   fmt.Sprint(r),
			})
		}
	}()

	s.logger.DebugWithFields("task started", map[string]interface{}{
		"task_id": t.future.ID(),
	})
	return t.fn(ctx)
}

// Wait blocks until every task submitted so far has settled
func (s *Scheduler[T]) Wait() {
	s.wg.Wait()
}

// Running returns the number of tasks in flight
func (s *Scheduler[T]) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Queued returns the number of tasks waiting for a slot
func (s *Scheduler[T]) Queued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Peak returns the highest number of tasks ever in flight at once
func (s *Scheduler[T]) Peak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

// Limit returns the concurrency bound
func (s *Scheduler[T]) Limit() int {
	return s.limit
}

// Future is the eventual outcome of a submitted task
type Future[T any] struct {
	id    string
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}
}

func (f *Future[T]) settle(value T, err error) {
	f.value, f.err = value, err
	close(f.done)
}

// ID identifies the task in logs
func (f *Future[T]) ID() string {
	return f.id
}

// Done is closed once the task has settled
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task settles or ctx is done
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result blocks until the task settles
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.value, f.err
}
