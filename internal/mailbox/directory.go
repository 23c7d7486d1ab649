package mailbox

import (
	"slices"
	"strings"
	"sync"

	"github.com/Iron-Ham/polycephaly/internal/errors"
)

// Directory maps process names to their inbound queues.
// Names are case-insensitive and stored lower-cased.
type Directory[T any] struct {
	mu       sync.RWMutex
	queues   map[string]*Queue[T]
	capacity int
}

// NewDirectory creates an empty directory.
func NewDirectory[T any](opts ...Option) *Directory[T] {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Directory[T]{
		queues:   make(map[string]*Queue[T]),
		capacity: cfg.capacity,
	}
}

// Create returns the queue registered under name, creating it with the given
// capacity if absent. A capacity below one uses the directory default.
func (d *Directory[T]) Create(name string, capacity int) (*Queue[T], error) {
	key := normalize(name)
	if key == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "mailbox: queue name is required")
	}
	if capacity < 1 {
		capacity = d.capacity
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if q, ok := d.queues[key]; ok {
		return q, nil
	}
	q := NewQueue[T](key, capacity)
	d.queues[key] = q
	return q, nil
}

// Get returns the queue registered under name.
func (d *Directory[T]) Get(name string) (*Queue[T], bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	q, ok := d.queues[normalize(name)]
	return q, ok
}

// List returns the registered names in sorted order.
func (d *Directory[T]) List() []string {
	d.mu.RLock()
	names := make([]string, 0, len(d.queues))
	for name := range d.queues {
		names = append(names, name)
	}
	d.mu.RUnlock()

	slices.Sort(names)
	return names
}

// Remove unregisters and closes the queue under name.
func (d *Directory[T]) Remove(name string) error {
	key := normalize(name)

	d.mu.Lock()
	q, ok := d.queues[key]
	delete(d.queues, key)
	d.mu.Unlock()

	if !ok {
		return errors.Wrapf(errors.ErrQueueNotFound, "mailbox: %s", key)
	}
	q.Close()
	return nil
}

// Close closes every registered queue.
func (d *Directory[T]) Close() {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, q := range d.queues {
		q.Close()
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
