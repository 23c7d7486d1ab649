package threads

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc/panics"

	"github.com/Iron-Ham/polycephaly/internal/errors"
	"github.com/Iron-Ham/polycephaly/internal/event"
)

// Worker is the body of a child thread. ctx is done when the thread is
// stopped, or for daemon threads when the owning registry closes. Workers are
// expected to check it between units of work and return; nothing kills them.
type Worker func(ctx context.Context) error

// Thread is a named goroutine owned by a Registry.
type Thread struct {
	name     string
	daemon   bool
	worker   Worker
	registry *Registry

	ctx    context.Context
	cancel context.CancelFunc

	started atomic.Bool
	done    chan struct{}

	mu  sync.Mutex
	err error
}

func newThread(r *Registry, name string, worker Worker, daemon bool) *Thread {
	parent := r.ctx
	if !daemon {
		// Non-daemon threads outlive registry teardown and are only joined.
		parent = context.WithoutCancel(r.ctx)
	}
	ctx, cancel := context.WithCancel(parent)
	return &Thread{
		name:     name,
		daemon:   daemon,
		worker:   worker,
		registry: r,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Name returns the registry key of the thread.
func (t *Thread) Name() string {
	return t.name
}

// Daemon reports whether the thread stops when its registry closes.
func (t *Thread) Daemon() bool {
	return t.daemon
}

// Start launches the worker. A thread can be started once.
func (t *Thread) Start() error {
	if !t.started.CompareAndSwap(false, true) {
		return errors.NewThreadError("start", errors.ErrThreadStarted).
			WithOwner(t.registry.owner).
			WithThread(t.name).
			WithSeverity(errors.SeverityWarning)
	}

	t.registry.logger.Debug("child thread started", "thread", t.name, "daemon", t.daemon)
	t.registry.publish(event.NewThreadStartedEvent(t.registry.owner, t.name, t.daemon))

	go t.run()
	return nil
}

func (t *Thread) run() {
	defer close(t.done)
	defer t.cancel()

	var err error
	if rec := panics.Try(func() { err = t.worker(t.ctx) }); rec != nil {
		err = errors.NewThreadError("worker panicked", errors.Join(errors.ErrThreadPanicked, rec.AsError())).
			WithOwner(t.registry.owner).
			WithThread(t.name).
			WithSeverity(errors.SeverityCritical)
	}

	t.mu.Lock()
	t.err = err
	t.mu.Unlock()

	logger := t.registry.logger.WithThread(t.name)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		logger.Debug("child thread finished")
	default:
		logger.Error("child thread failed", "error", err)
	}
	t.registry.publish(event.NewThreadFinishedEvent(t.registry.owner, t.name, t.daemon, err))
}

// IsAlive reports whether the worker has started and not yet returned.
func (t *Thread) IsAlive() bool {
	if !t.started.Load() {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// Stop asks the worker to return by cancelling its context. It does not wait.
func (t *Thread) Stop() {
	t.cancel()
}

// Join blocks until the worker returns. It returns at once for a thread that
// was never started.
func (t *Thread) Join() {
	if !t.started.Load() {
		return
	}
	<-t.done
}

// Done returns a channel closed when the worker returns.
func (t *Thread) Done() <-chan struct{} {
	return t.done
}

// Err returns the worker's error once it has returned.
func (t *Thread) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}
