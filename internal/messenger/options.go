package messenger

import (
	"time"

	"github.com/Iron-Ham/polycephaly/internal/event"
	"github.com/Iron-Ham/polycephaly/internal/logging"
)

const (
	// DefaultPutTimeout bounds every blocking put made by send and relay.
	DefaultPutTimeout = 5 * time.Second

	// DefaultDeadLetterSize is the number of failure envelopes retained.
	DefaultDeadLetterSize = 256
)

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router logger. A nil logger is ignored.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithBus attaches an event bus. When set, every send, relay, dispatch,
// unmatched envelope, and failure is published.
func WithBus(bus *event.Bus) Option {
	return func(r *Router) {
		r.bus = bus
	}
}

// WithPutTimeout overrides DefaultPutTimeout. Non-positive values are ignored.
func WithPutTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.putTimeout = d
		}
	}
}

// WithFilters shares an existing filter registry with the router.
func WithFilters(filters *Filters) Option {
	return func(r *Router) {
		if filters != nil {
			r.filters = filters
		}
	}
}

// WithDeadLetterSize overrides DefaultDeadLetterSize. Non-positive values are ignored.
func WithDeadLetterSize(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.deadLetterSize = n
		}
	}
}
