package host

import (
	"github.com/Iron-Ham/polycephaly/internal/event"
	"github.com/Iron-Ham/polycephaly/internal/process"
)

type options struct {
	bus       *event.Bus
	processes map[string][]process.Option
}

// Option configures a Host.
type Option func(*options)

// WithBus sets the event bus shared by the router and every thread registry.
// A bus is created when none is given.
func WithBus(bus *event.Bus) Option {
	return func(o *options) { o.bus = bus }
}

// WithProcessOptions appends options for the named process, such as extra
// filters or child threads.
func WithProcessOptions(name string, opts ...process.Option) Option {
	return func(o *options) {
		if o.processes == nil {
			o.processes = make(map[string][]process.Option)
		}
		o.processes[name] = append(o.processes[name], opts...)
	}
}
