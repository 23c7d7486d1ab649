package mailbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Iron-Ham/polycephaly/internal/errors"
)

// Queue is a bounded FIFO mailbox safe for concurrent producers and consumers.
//
// The data channel is never closed. Close signals a separate done channel so a
// producer racing with Close gets ErrQueueClosed instead of a send-on-closed
// panic.
type Queue[T any] struct {
	name  string
	items chan T
	done  chan struct{}
	once  sync.Once
}

// NewQueue creates a queue with the given name and capacity.
// A capacity below one is raised to one.
func NewQueue[T any](name string, capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{
		name:  name,
		items: make(chan T, capacity),
		done:  make(chan struct{}),
	}
}

// Name returns the queue name.
func (q *Queue[T]) Name() string {
	return q.name
}

// String returns a stable representation used for envelope tracing.
func (q *Queue[T]) String() string {
	return fmt.Sprintf("<mailbox.Queue %s %p>", q.name, q)
}

// Put enqueues v, blocking while the queue is full for at most timeout.
// A non-positive timeout waits only on ctx.
func (q *Queue[T]) Put(ctx context.Context, v T, timeout time.Duration) error {
	if q.IsClosed() {
		return errors.ErrQueueClosed
	}

	// Fast path: no timer when there is room.
	select {
	case q.items <- v:
		return nil
	default:
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case q.items <- v:
		return nil
	case <-expired:
		return errors.ErrQueueFull
	case <-q.done:
		return errors.ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryGet dequeues one item without blocking.
// It reports false when the queue is empty. A closed queue still yields its
// buffered items and then returns ErrQueueClosed.
func (q *Queue[T]) TryGet() (T, bool, error) {
	select {
	case v := <-q.items:
		return v, true, nil
	default:
	}

	var zero T
	if q.IsClosed() {
		return zero, false, errors.ErrQueueClosed
	}
	return zero, false, nil
}

// Get dequeues one item, blocking until one is available, the queue is closed,
// or ctx ends.
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	select {
	case v := <-q.items:
		return v, nil
	default:
	}

	var zero T
	select {
	case v := <-q.items:
		return v, nil
	case <-q.done:
		return zero, errors.ErrQueueClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Len returns the number of buffered items.
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return cap(q.items)
}

// Close stops the queue from accepting new items. It is safe to call more than once.
func (q *Queue[T]) Close() {
	q.once.Do(func() { close(q.done) })
}

// IsClosed reports whether Close has been called.
func (q *Queue[T]) IsClosed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}
