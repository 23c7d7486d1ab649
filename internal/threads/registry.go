package threads

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/Iron-Ham/polycephaly/internal/errors"
	"github.com/Iron-Ham/polycephaly/internal/event"
	"github.com/Iron-Ham/polycephaly/internal/logging"
)

// RemoveOutcome is the per-name result of RemoveChildThreads.
type RemoveOutcome int

const (
	// Removed means the thread had finished and its entry was deleted.
	Removed RemoveOutcome = iota
	// StillActive means the thread is alive and was left in place.
	StillActive
	// NotFound means no thread is registered under the name.
	NotFound
)

// String returns the outcome name.
func (o RemoveOutcome) String() string {
	switch o {
	case Removed:
		return "removed"
	case StillActive:
		return "still_active"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Liveness describes a thread name in ListChildThreadsLives.
type Liveness int

const (
	// Alive means the thread is registered and running.
	Alive Liveness = iota
	// Dead means the thread is registered but not running.
	Dead
	// Absent means no thread is registered under the name.
	Absent
)

// String returns the liveness name.
func (l Liveness) String() string {
	switch l {
	case Alive:
		return "alive"
	case Dead:
		return "dead"
	case Absent:
		return "absent"
	default:
		return "unknown"
	}
}

// Registry tracks the named child threads of one process.
//
// Entries move through registered, running, finished and reclaimed. An entry
// is only deleted once its thread has finished; a live thread is never removed
// or killed.
type Registry struct {
	owner  string
	ctx    context.Context
	cancel context.CancelFunc
	logger *logging.Logger
	bus    *event.Bus

	mu      sync.RWMutex
	threads map[string]*Thread
	order   []string
}

// NewRegistry creates a registry for the process named owner. Daemon threads
// run until ctx is done or Close is called.
func NewRegistry(ctx context.Context, owner string, opts ...RegistryOption) *Registry {
	cfg := registryConfig{logger: logging.NopLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}

	rctx, cancel := context.WithCancel(ctx)
	return &Registry{
		owner:   owner,
		ctx:     rctx,
		cancel:  cancel,
		logger:  cfg.logger.WithProcess(owner),
		bus:     cfg.bus,
		threads: make(map[string]*Thread),
	}
}

// Owner returns the name of the owning process.
func (r *Registry) Owner() string {
	return r.owner
}

// AddChildThread registers worker under name and, unless WithStart(false) is
// given, starts it. Threads are daemons unless WithDaemon(false) is given.
//
// An existing entry with the same name is replaced without checking whether
// its thread is still running. Stop and join the old thread first.
func (r *Registry) AddChildThread(name string, worker Worker, opts ...ThreadOption) (*Thread, error) {
	if name == "" {
		return nil, errors.NewThreadError("thread name is required", errors.ErrInvalidInput).WithOwner(r.owner)
	}
	if worker == nil {
		return nil, errors.NewThreadError("worker is required", errors.ErrInvalidInput).
			WithOwner(r.owner).
			WithThread(name)
	}

	cfg := threadConfig{daemon: true, start: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	t := newThread(r, name, worker, cfg.daemon)

	r.mu.Lock()
	if _, exists := r.threads[name]; !exists {
		r.order = append(r.order, name)
	}
	r.threads[name] = t
	r.mu.Unlock()

	if cfg.start {
		if err := t.Start(); err != nil {
			return t, err
		}
	}
	return t, nil
}

// RemoveChildThreads deletes the entries of finished threads and reports an
// outcome per name. Live threads are reported as StillActive and kept; unknown
// names are reported as NotFound. It is safe to call repeatedly.
func (r *Registry) RemoveChildThreads(names ...string) map[string]RemoveOutcome {
	outcomes := make(map[string]RemoveOutcome, len(names))
	var unique, reclaimed []string

	r.mu.Lock()
	for _, name := range names {
		// A repeated name keeps the outcome of its first occurrence.
		if _, seen := outcomes[name]; seen {
			continue
		}
		unique = append(unique, name)
		t, ok := r.threads[name]
		switch {
		case !ok:
			outcomes[name] = NotFound
		case t.IsAlive():
			outcomes[name] = StillActive
		default:
			delete(r.threads, name)
			r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
			outcomes[name] = Removed
			reclaimed = append(reclaimed, name)
		}
	}
	r.mu.Unlock()

	for _, name := range unique {
		switch outcomes[name] {
		case NotFound:
			r.logger.Warn("cannot remove child thread: not found", "thread", name)
		case StillActive:
			r.logger.Error("cannot remove child thread: still active, stop it first", "thread", name)
		}
	}
	for _, name := range reclaimed {
		r.logger.Debug("child thread reclaimed", "thread", name)
		r.publish(event.NewThreadReclaimedEvent(r.owner, name))
	}
	return outcomes
}

// GetChildThreads returns a copy of the registry. With names, it returns one
// entry per name, nil for names that are not registered.
func (r *Registry) GetChildThreads(names ...string) map[string]*Thread {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(names) == 0 {
		return maps.Clone(r.threads)
	}
	out := make(map[string]*Thread, len(names))
	for _, name := range names {
		out[name] = r.threads[name]
	}
	return out
}

// GetChildThread returns the thread registered under name, or nil.
func (r *Registry) GetChildThread(name string) *Thread {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.threads[name]
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// ListChildThreadsLives reports the liveness of names, or of every registered
// thread when names is empty. When filters are given, only names whose
// liveness is one of them are returned.
func (r *Registry) ListChildThreadsLives(names []string, filters ...Liveness) map[string]Liveness {
	r.mu.RLock()
	if len(names) == 0 {
		names = slices.Clone(r.order)
	}
	lives := make(map[string]Liveness, len(names))
	for _, name := range names {
		t, ok := r.threads[name]
		switch {
		case !ok:
			lives[name] = Absent
		case t.IsAlive():
			lives[name] = Alive
		default:
			lives[name] = Dead
		}
	}
	r.mu.RUnlock()

	if len(filters) > 0 {
		maps.DeleteFunc(lives, func(_ string, l Liveness) bool {
			return !slices.Contains(filters, l)
		})
	}
	return lives
}

// ChildThreadJanitor reclaims every finished thread. Threads that are
// registered but were never started count as finished. It is a no-op on an
// empty registry or when every thread is alive.
func (r *Registry) ChildThreadJanitor() map[string]RemoveOutcome {
	lives := r.ListChildThreadsLives(nil, Dead, Absent)
	return r.RemoveChildThreads(slices.Sorted(maps.Keys(lives))...)
}

// JoinChildThreads blocks until every live thread has returned, joining them
// in registration order. There is no timeout. Do not run the janitor
// concurrently.
func (r *Registry) JoinChildThreads() {
	r.mu.RLock()
	alive := make([]*Thread, 0, len(r.order))
	for _, name := range r.order {
		if t := r.threads[name]; t.IsAlive() {
			alive = append(alive, t)
		}
	}
	r.mu.RUnlock()

	for _, t := range alive {
		r.logger.Debug("joining child thread", "thread", t.Name())
		t.Join()
	}
}

// Close cancels the registry context, asking every daemon thread to return.
// Non-daemon threads are unaffected. It does not wait.
func (r *Registry) Close() {
	r.cancel()
}

func (r *Registry) publish(e event.Event) {
	if r.bus != nil {
		r.bus.Publish(e)
	}
}

// ThreadKey derives a registry key from a table entry name: ThreadPrefix is
// stripped and the rest lower-cased.
func ThreadKey(name string) string {
	return strings.ToLower(strings.TrimPrefix(name, ThreadPrefix))
}
