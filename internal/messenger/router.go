package messenger

import (
	"context"
	"strings"
	"time"

	"github.com/sourcegraph/conc/panics"

	"github.com/Iron-Ham/polycephaly/internal/errors"
	"github.com/Iron-Ham/polycephaly/internal/event"
	"github.com/Iron-Ham/polycephaly/internal/logging"
)

// Outcome is the result of a Mailman call.
type Outcome int

const (
	// OutcomeNoMessage means the envelope was nil or empty.
	OutcomeNoMessage Outcome = iota
	// OutcomeRelayed means the main process forwarded the envelope to its recipient.
	OutcomeRelayed
	// OutcomeNoMatch means no filter matched. It is not an error.
	OutcomeNoMatch
	// OutcomeDispatched means every matching callback was attempted.
	OutcomeDispatched
	// OutcomeRelayFailed means a relay could not reach its recipient. The
	// accompanying error says why.
	OutcomeRelayFailed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeNoMessage:
		return "no_message"
	case OutcomeRelayed:
		return "relayed"
	case OutcomeNoMatch:
		return "no_match"
	case OutcomeDispatched:
		return "dispatched"
	case OutcomeRelayFailed:
		return "relay_failed"
	default:
		return "unknown"
	}
}

// Router relays and dispatches envelopes between the processes of one host.
//
// The main process is the relay hub: peer to peer traffic and traffic addressed
// to main is put on main's queue, and main's own loop forwards it. Everything
// else goes straight to the recipient.
type Router struct {
	main        string
	directory   *Directory
	filters     *Filters
	logger      *logging.Logger
	bus         *event.Bus
	putTimeout  time.Duration
	counters    counters
	deadLetters *deadLetters

	deadLetterSize int
}

// New creates a Router over directory with mainProcess as the relay hub.
func New(directory *Directory, mainProcess string, opts ...Option) *Router {
	r := &Router{
		main:           strings.ToLower(mainProcess),
		directory:      directory,
		filters:        NewFilters(),
		logger:         logging.NopLogger(),
		putTimeout:     DefaultPutTimeout,
		deadLetterSize: DefaultDeadLetterSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.deadLetters = newDeadLetters(r.deadLetterSize)
	return r
}

// MainProcess returns the relay hub name.
func (r *Router) MainProcess() string {
	return r.main
}

// Directory returns the queue directory the router resolves names in.
func (r *Router) Directory() *Directory {
	return r.directory
}

// Filters returns the filter registry consulted on dispatch.
func (r *Router) Filters() *Filters {
	return r.filters
}

// Mailman handles one envelope pulled from caller's queue.
//
// When caller is the main process reading its own bus and the envelope is
// addressed to someone else, the envelope is relayed. Otherwise every filter
// registered for (caller, route) that matches is invoked in registration order.
// A failing callback is logged and the rest still run.
func (r *Router) Mailman(ctx context.Context, caller, route string, msg *Envelope) (Outcome, error) {
	if msg.IsEmpty() {
		return OutcomeNoMessage, nil
	}

	caller = strings.ToLower(caller)
	route = strings.ToLower(route)

	if caller == r.main && route == caller && msg.Recipient != caller {
		if err := r.relay(ctx, caller, msg); err != nil {
			return OutcomeRelayFailed, err
		}
		return OutcomeRelayed, nil
	}

	return r.dispatch(ctx, caller, route, msg), nil
}

// relay forwards msg from the main queue to its recipient's queue.
func (r *Router) relay(ctx context.Context, caller string, msg *Envelope) error {
	logger := r.logger.WithProcess(caller).With("message_id", msg.MessageID, "recipient", msg.Recipient)

	dest := msg.RecipientQueue
	if dest == nil {
		q, ok := r.directory.Get(msg.Recipient)
		if !ok {
			err := errors.NewDeliveryError("relay destination unknown", errors.ErrQueueNotFound).
				WithSender(msg.Sender).
				WithRecipient(msg.Recipient)
			logger.Error("relay failed", "error", err)
			r.fail(msg, err.Error())
			return err
		}
		dest = q
	}

	previous := msg.Queue
	msg.Relayer = &previous
	msg.Queue = refFor(dest)

	if err := dest.Put(ctx, msg, r.putTimeout); err != nil {
		derr := errors.NewDeliveryError("relay put failed", err).
			WithSender(msg.Sender).
			WithRecipient(msg.Recipient).
			WithQueue(dest.Name())
		logger.Error("relay failed", "error", derr, "timeout", r.putTimeout)
		r.fail(msg, derr.Error())
		return derr
	}

	r.counters.relayed.Add(1)
	logger.Debug("envelope relayed", "from_queue", previous.Name, "to_queue", dest.Name())
	r.publish(event.NewEnvelopeRelayedEvent(msg.MessageID, msg.ThreadID, msg.Sender, msg.Recipient, dest.Name(), caller))
	return nil
}

// dispatch invokes every matching callback in order.
func (r *Router) dispatch(ctx context.Context, caller, route string, msg *Envelope) Outcome {
	logger := r.logger.WithProcess(caller).WithRoute(route)

	matched := r.filters.Match(caller, route, msg)
	if len(matched) == 0 {
		r.counters.unmatched.Add(1)
		logger.Warn("no filter matched envelope",
			"message_id", msg.MessageID,
			"sender", msg.Sender,
			"kind", msg.Kind(),
		)
		r.publish(event.NewEnvelopeUnmatchedEvent(msg.MessageID, msg.ThreadID, msg.Sender, msg.Recipient, caller, route))
		return OutcomeNoMatch
	}

	for i, flt := range matched {
		if err := invoke(ctx, flt.Callback, msg); err != nil {
			r.counters.callbackErrors.Add(1)
			cerr := errors.NewCallbackError("callback failed", err).
				WithRoute(caller, route).
				WithFilter(i, flt.Name)
			logger.Error("filter callback failed",
				"filter_index", i,
				"callback", flt.Name,
				"message_id", msg.MessageID,
				"error", cerr,
			)
		}
	}

	r.counters.dispatched.Add(1)
	r.publish(event.NewEnvelopeDispatchedEvent(msg.MessageID, msg.ThreadID, msg.Sender, msg.Recipient, caller, route, len(matched)))
	return OutcomeDispatched
}

// invoke runs one callback, turning a panic into an error.
func invoke(ctx context.Context, cb Callback, msg *Envelope) error {
	var err error
	var catcher panics.Catcher
	catcher.Try(func() { err = cb(ctx, msg) })
	if rec := catcher.Recovered(); rec != nil {
		return rec.AsError()
	}
	return err
}

func (r *Router) publish(e event.Event) {
	if r.bus != nil {
		r.bus.Publish(e)
	}
}
