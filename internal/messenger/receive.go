package messenger

import (
	"maps"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/sourcegraph/conc/panics"

	"github.com/Iron-Ham/polycephaly/internal/errors"
)

// GetQueueMessage takes one envelope from queue without blocking. A nil queue
// means caller's own mailbox, looked up by name. extra is merged into the
// returned envelope's Payload.
//
// An empty queue yields an empty envelope. Any failure, including a missing
// queue or a closed one, yields a failure envelope addressed from caller to
// caller with Failed set, Action naming the calling function, and Err and
// Traceback attached. Nothing is returned as an error.
func (r *Router) GetQueueMessage(caller string, queue *Queue, extra map[string]any) Envelope {
	caller = strings.ToLower(caller)

	var (
		got       *Envelope
		ok        bool
		err       error
		traceback string
	)

	var catcher panics.Catcher
	catcher.Try(func() {
		if queue == nil {
			q, found := r.directory.Get(caller)
			if !found {
				err = errors.Wrapf(errors.ErrQueueNotFound, "mailbox %q", caller)
				return
			}
			queue = q
		}
		got, ok, err = queue.TryGet()
	})
	if rec := catcher.Recovered(); rec != nil {
		err = rec.AsError()
		traceback = string(rec.Stack)
	}

	if err != nil {
		if traceback == "" {
			traceback = string(debug.Stack())
		}
		return r.receiveFailure(caller, callerName(), got, err, traceback)
	}
	if !ok || got == nil {
		return Envelope{}
	}

	env := *got
	if len(extra) > 0 {
		if env.Payload == nil {
			env.Payload = make(map[string]any, len(extra))
		} else {
			env.Payload = maps.Clone(env.Payload)
		}
		maps.Copy(env.Payload, extra)
	}
	return env
}

func (r *Router) receiveFailure(caller, action string, partial *Envelope, err error, traceback string) Envelope {
	env := Envelope{
		Sender:    caller,
		Recipient: caller,
		Failed:    true,
		Action:    action,
		Err:       err,
		Traceback: traceback,
	}
	if partial != nil {
		env.Body = partial
	}

	r.logger.WithProcess(caller).Error("receive failed", "action", action, "error", err)
	r.fail(&env, err.Error())
	return env
}

// callerName returns the function that called GetQueueMessage, without its
// import path.
func callerName() string {
	pc, _, _, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}
	name := fn.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
