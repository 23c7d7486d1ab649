package process

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Iron-Ham/polycephaly/internal/errors"
	"github.com/Iron-Ham/polycephaly/internal/logging"
	"github.com/Iron-Ham/polycephaly/internal/messenger"
	"github.com/Iron-Ham/polycephaly/internal/threads"
)

// ErrAlreadyStarted is returned when Run is called a second time.
var ErrAlreadyStarted = errors.New("process already started")

// Process is a named participant with one mailbox, a set of child threads,
// and a loop that hands every received envelope to the router.
type Process struct {
	name     string
	router   *messenger.Router
	registry *threads.Registry
	logger   *logging.Logger
	cfg      config

	started atomic.Bool
	active  atomic.Bool
}

// New creates a process. Its mailbox is taken from the router's directory,
// and created there if missing. Filters given as options are registered with
// the router immediately.
func New(name string, router *messenger.Router, opts ...Option) (*Process, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "process: name is required")
	}
	if router == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "process: router is required")
	}

	cfg := config{
		tickInterval:    DefaultTickInterval,
		janitorInterval: DefaultJanitorInterval,
		logger:          logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, err := router.Directory().Create(name, cfg.mailboxSize); err != nil {
		return nil, errors.Wrapf(err, "process %s: mailbox", name)
	}

	for i := range cfg.filters {
		if cfg.filters[i].Process == "" {
			cfg.filters[i].Process = name
		}
	}
	if err := router.Filters().Register(cfg.filters...); err != nil {
		return nil, errors.Wrapf(err, "process %s: filters", name)
	}

	registryOpts := []threads.RegistryOption{threads.WithLogger(cfg.logger)}
	if cfg.bus != nil {
		registryOpts = append(registryOpts, threads.WithBus(cfg.bus))
	}

	return &Process{
		name:     name,
		router:   router,
		registry: threads.NewRegistry(context.Background(), name, registryOpts...),
		logger:   cfg.logger.WithProcess(name),
		cfg:      cfg,
	}, nil
}

// Name returns the process name.
func (p *Process) Name() string {
	return p.name
}

// Threads returns the child thread registry.
func (p *Process) Threads() *threads.Registry {
	return p.registry
}

// IsActive reports whether the loop is running. Workers may poll it between
// units of work.
func (p *Process) IsActive() bool {
	return p.active.Load()
}

// Send sends msg from this process.
func (p *Process) Send(ctx context.Context, msg messenger.Envelope) (*messenger.Envelope, error) {
	return p.router.Send(ctx, p.name, msg)
}

// Run launches the child threads and loops until ctx is done: take one
// envelope, hand it to the router, and reclaim finished threads every janitor
// interval. On the way out the registry is closed and every live child thread
// joined. A process runs once.
func (p *Process) Run(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	p.active.Store(true)
	defer p.teardown()

	if _, err := p.registry.LaunchThreads(p.cfg.table); err != nil {
		p.logger.Warn("some child threads failed to launch", "error", err)
	}
	p.logger.Info("process started", "threads", len(p.cfg.table))

	tick := time.NewTicker(p.cfg.tickInterval)
	defer tick.Stop()
	janitor := time.NewTicker(p.cfg.janitorInterval)
	defer janitor.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		env := p.router.GetQueueMessage(p.name, nil, nil)
		if env.IsEmpty() || isReceiveFailure(&env) {
			// Nothing to do this tick. Receive failures are already logged
			// and kept as dead letters by the router.
			select {
			case <-ctx.Done():
				return nil
			case <-janitor.C:
				p.registry.ChildThreadJanitor()
			case <-tick.C:
			}
			continue
		}

		outcome, err := p.router.Mailman(ctx, p.name, p.name, &env)
		if err != nil {
			p.logger.Warn("mailman failed", "outcome", outcome.String(), "message_id", env.MessageID, "error", err)
		}

		select {
		case <-janitor.C:
			p.registry.ChildThreadJanitor()
		default:
		}
	}
}

// isReceiveFailure reports whether env was synthesized by GetQueueMessage
// rather than taken off the queue. Only delivered envelopes carry a message id.
func isReceiveFailure(env *messenger.Envelope) bool {
	return env.Failed && env.MessageID == ""
}

func (p *Process) teardown() {
	p.active.Store(false)
	p.registry.Close()
	p.registry.JoinChildThreads()
	p.logger.Info("process stopped")
}
