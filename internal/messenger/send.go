package messenger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/polycephaly/internal/errors"
	"github.com/Iron-Ham/polycephaly/internal/event"
)

// Send stamps msg and puts it on the queue chosen by the routing rules:
//
//  1. sender == recipient: the recipient's own queue.
//  2. peer to peer, or anything addressed to main: main's queue, so main relays.
//  3. main to a resolvable peer: the peer's queue directly.
//  4. otherwise the envelope is unroutable.
//
// On success the stamped envelope is returned. A put that times out on a full
// queue returns a nil envelope and a *errors.DeliveryError wrapping
// errors.ErrQueueFull; the envelope was not delivered and is not retried. An
// unroutable envelope is never enqueued: it comes back with Failed set,
// together with a *errors.RoutingError wrapping errors.ErrUnroutable.
func (r *Router) Send(ctx context.Context, caller string, msg Envelope) (*Envelope, error) {
	env := msg.clone()
	caller = strings.ToLower(caller)

	env.Sender = strings.ToLower(env.Sender)
	if env.Sender == "" {
		env.Sender = caller
	}
	env.Recipient = strings.ToLower(env.Recipient)
	env.MessageID = uuid.NewString()
	env.Time = time.Now()
	env.Failed, env.Action, env.Err, env.Traceback = false, "", nil, ""
	if env.ThreadID == "" {
		env.ThreadID = uuid.NewString()
	}

	resolved := r.resolve(env)
	dest := r.route(env, resolved)

	logger := r.logger.WithProcess(caller).With(
		"sender", env.Sender,
		"recipient", env.Recipient,
		"message_id", env.MessageID,
	)

	if dest == nil {
		err := errors.NewRoutingError("no destination queue", errors.ErrUnroutable).
			WithSender(env.Sender).
			WithRecipient(env.Recipient)
		logger.Error("send failed: unroutable envelope", "error", err)

		env.Failed = true
		env.Action = "send"
		env.Err = err
		r.fail(env, err.Error())
		return env, err
	}

	env.Queue = refFor(dest)
	env.ThreadIndex++

	// The receiver owns what is put on the queue; the caller keeps its own copy.
	if err := dest.Put(ctx, env.clone(), r.putTimeout); err != nil {
		derr := errors.NewDeliveryError("put failed", err).
			WithSender(env.Sender).
			WithRecipient(env.Recipient).
			WithQueue(dest.Name())
		logger.Error("send failed", "error", derr, "timeout", r.putTimeout)
		r.fail(env, derr.Error())
		return nil, derr
	}

	r.counters.sent.Add(1)
	r.publish(event.NewEnvelopeSentEvent(env.MessageID, env.ThreadID, env.Sender, env.Recipient, dest.Name()))
	return env, nil
}

// resolve looks up the recipient queue by name, falling back to the literal
// queue handle. A handle-only recipient takes the handle's name.
func (r *Router) resolve(env *Envelope) *Queue {
	if env.Recipient != "" {
		if q, ok := r.directory.Get(env.Recipient); ok {
			return q
		}
		return env.RecipientQueue
	}
	if env.RecipientQueue != nil {
		env.Recipient = strings.ToLower(env.RecipientQueue.Name())
		return env.RecipientQueue
	}
	return nil
}

// route applies the routing precedence and returns the destination queue, or
// nil when the envelope is unroutable.
func (r *Router) route(env *Envelope, resolved *Queue) *Queue {
	switch {
	case env.Recipient == "":
		return nil
	case env.Sender == env.Recipient:
		return resolved
	case (env.Sender != r.main && env.Recipient != r.main) || env.Recipient == r.main:
		q, ok := r.directory.Get(r.main)
		if !ok {
			return nil
		}
		if env.Recipient != r.main {
			r.logger.Debug("routing through main",
				"sender", env.Sender,
				"recipient", env.Recipient,
				"main", r.main,
			)
		}
		return q
	default:
		return resolved
	}
}
