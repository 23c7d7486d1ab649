package threads

import (
	"github.com/Iron-Ham/polycephaly/internal/event"
	"github.com/Iron-Ham/polycephaly/internal/logging"
)

type registryConfig struct {
	logger *logging.Logger
	bus    *event.Bus
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryConfig)

// WithLogger sets the registry logger. A nil logger is ignored.
func WithLogger(logger *logging.Logger) RegistryOption {
	return func(c *registryConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBus publishes thread.started, thread.finished and thread.reclaimed events.
func WithBus(bus *event.Bus) RegistryOption {
	return func(c *registryConfig) { c.bus = bus }
}

type threadConfig struct {
	daemon bool
	start  bool
}

// ThreadOption configures AddChildThread.
type ThreadOption func(*threadConfig)

// WithDaemon sets whether the thread stops when the registry closes. Default true.
func WithDaemon(daemon bool) ThreadOption {
	return func(c *threadConfig) { c.daemon = daemon }
}

// WithStart sets whether the thread is started on registration. Default true.
func WithStart(start bool) ThreadOption {
	return func(c *threadConfig) { c.start = start }
}
