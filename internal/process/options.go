package process

import (
	"time"

	"github.com/Iron-Ham/polycephaly/internal/event"
	"github.com/Iron-Ham/polycephaly/internal/logging"
	"github.com/Iron-Ham/polycephaly/internal/messenger"
	"github.com/Iron-Ham/polycephaly/internal/threads"
)

const (
	// DefaultTickInterval is how long the loop waits when its mailbox is empty.
	DefaultTickInterval = 50 * time.Millisecond

	// DefaultJanitorInterval is how often finished child threads are reclaimed.
	DefaultJanitorInterval = time.Second
)

// config holds optional configuration for a Process.
type config struct {
	table           threads.Table
	filters         []messenger.Filter
	tickInterval    time.Duration
	janitorInterval time.Duration
	mailboxSize     int
	logger          *logging.Logger
	bus             *event.Bus
}

// Option configures a Process.
type Option func(*config)

// WithThread adds a daemon child thread launched when the process runs.
// A ThreadPrefix on name is stripped.
func WithThread(name string, worker threads.Worker) Option {
	return func(c *config) { c.table = c.table.Add(name, worker) }
}

// WithNonDaemonThread adds a child thread that keeps the process from
// finishing teardown until it returns on its own.
func WithNonDaemonThread(name string, worker threads.Worker) Option {
	return func(c *config) { c.table = c.table.AddNonDaemon(name, worker) }
}

// WithFilter registers a filter for this process. An empty Process field
// defaults to the process name.
func WithFilter(f messenger.Filter) Option {
	return func(c *config) { c.filters = append(c.filters, f) }
}

// WithTickInterval overrides DefaultTickInterval. Non-positive values are ignored.
func WithTickInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.tickInterval = d
		}
	}
}

// WithJanitorInterval overrides DefaultJanitorInterval. Non-positive values are ignored.
func WithJanitorInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.janitorInterval = d
		}
	}
}

// WithMailboxSize sets the capacity used if the mailbox has to be created.
func WithMailboxSize(n int) Option {
	return func(c *config) { c.mailboxSize = n }
}

// WithLogger sets the process logger. A nil logger is ignored.
func WithLogger(logger *logging.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBus passes an event bus to the thread registry.
func WithBus(bus *event.Bus) Option {
	return func(c *config) { c.bus = bus }
}
