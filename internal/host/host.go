package host

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc"

	"github.com/Iron-Ham/polycephaly/internal/config"
	"github.com/Iron-Ham/polycephaly/internal/errors"
	"github.com/Iron-Ham/polycephaly/internal/event"
	"github.com/Iron-Ham/polycephaly/internal/logging"
	"github.com/Iron-Ham/polycephaly/internal/mailbox"
	"github.com/Iron-Ham/polycephaly/internal/messenger"
	"github.com/Iron-Ham/polycephaly/internal/process"
)

// Stats is a snapshot of router, heartbeat, and event bus counters.
type Stats struct {
	Router     messenger.Stats
	Heartbeats map[string]HeartbeatStats
	Activity   ActivityStats
}

// Host runs every configured process against one router.
type Host struct {
	cfg       *config.Config
	logger    *logging.Logger
	bus       *event.Bus
	router    *messenger.Router
	processes []*process.Process
	beats     map[string]*heartbeatCounters
	activity  *activity
}

// New validates cfg and builds the directory, the router, and every process.
// Nothing runs until Run is called.
func New(cfg *config.Config, logger *logging.Logger, opts ...Option) (*Host, error) {
	if cfg == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "host: config is required")
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, config.ValidationErrors(errs)
	}
	if logger == nil {
		logger = logging.NopLogger()
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.bus == nil {
		o.bus = event.NewBus()
	}
	o.bus.SetLogger(logger)

	dir := messenger.NewDirectory(mailbox.WithCapacity(cfg.Messenger.MailboxSize))
	for _, spec := range cfg.Processes {
		if _, err := dir.Create(spec.Name, spec.MailboxSize); err != nil {
			return nil, errors.Wrapf(err, "host: mailbox %s", spec.Name)
		}
	}

	router := messenger.New(dir, cfg.Messenger.MainProcess,
		messenger.WithLogger(logger),
		messenger.WithBus(o.bus),
		messenger.WithPutTimeout(cfg.Messenger.PutTimeout()),
		messenger.WithDeadLetterSize(cfg.Messenger.DeadLetterSize),
	)

	h := &Host{
		cfg:      cfg,
		logger:   logger,
		bus:      o.bus,
		router:   router,
		beats:    make(map[string]*heartbeatCounters, len(cfg.Processes)),
		activity: newActivity(),
	}
	h.activity.subscribe(o.bus)

	for _, spec := range cfg.Processes {
		counters := &heartbeatCounters{}
		h.beats[spec.Name] = counters

		procOpts := []process.Option{
			process.WithMailboxSize(spec.MailboxSize),
			process.WithTickInterval(cfg.Process.TickInterval()),
			process.WithJanitorInterval(cfg.Process.JanitorInterval()),
			process.WithLogger(logger),
			process.WithBus(o.bus),
		}
		for _, f := range heartbeatFilters(router, spec.Name, counters) {
			procOpts = append(procOpts, process.WithFilter(f))
		}
		if spec.HeartbeatIntervalMs > 0 && len(spec.Peers) > 0 {
			worker := heartbeatWorker(router, spec.Name, spec.Peers, spec.HeartbeatInterval(), counters,
				logger.WithProcess(spec.Name).WithThread(KindHeartbeat))
			procOpts = append(procOpts, process.WithThread(KindHeartbeat, worker))
		}
		procOpts = append(procOpts, o.processes[spec.Name]...)

		p, err := process.New(spec.Name, router, procOpts...)
		if err != nil {
			return nil, errors.Wrapf(err, "host: process %s", spec.Name)
		}
		h.processes = append(h.processes, p)
	}

	return h, nil
}

// Router returns the shared router.
func (h *Host) Router() *messenger.Router {
	return h.router
}

// Bus returns the event bus the router and registries publish on.
func (h *Host) Bus() *event.Bus {
	return h.bus
}

// Processes returns the processes in configuration order.
func (h *Host) Processes() []*process.Process {
	return h.processes
}

// Process returns the named process, or nil.
func (h *Host) Process(name string) *process.Process {
	for _, p := range h.processes {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// Run runs every process until ctx is done and all of them have torn down.
// Errors from individual processes are joined. A panic in a process loop is
// recovered and returned as an error.
func (h *Host) Run(ctx context.Context) error {
	var (
		wg   conc.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	h.logger.Info("host starting",
		"main_process", h.router.MainProcess(),
		"processes", len(h.processes),
	)

	for _, p := range h.processes {
		wg.Go(func() {
			if err := p.Run(ctx); err != nil {
				mu.Lock()
				errs = append(errs, errors.Wrapf(err, "process %s", p.Name()))
				mu.Unlock()
			}
		})
	}

	if r := wg.WaitAndRecover(); r != nil {
		h.logger.Error("process loop panicked", "panic", r.String())
		errs = append(errs, r.AsError())
	}

	h.logger.Info("host stopped")
	return errors.Join(errs...)
}

// Stats returns a snapshot of router counters, per-process heartbeat counters,
// and the event tally.
func (h *Host) Stats() Stats {
	beats := make(map[string]HeartbeatStats, len(h.beats))
	for name, c := range h.beats {
		beats[name] = c.snapshot()
	}
	return Stats{
		Router:     h.router.Stats(),
		Heartbeats: beats,
		Activity:   h.activity.snapshot(),
	}
}
