package mailbox

// DefaultCapacity is the queue capacity used when none is configured.
const DefaultCapacity = 100

type options struct {
	capacity int
}

func defaultOptions() options {
	return options{capacity: DefaultCapacity}
}

// Option configures a Directory.
type Option func(*options)

// WithCapacity sets the default capacity for queues created without one.
// Values below one are ignored.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}
