package messenger

import "sync/atomic"

// Stats is a snapshot of router counters.
type Stats struct {
	Sent           uint64
	Relayed        uint64
	Dispatched     uint64
	Unmatched      uint64
	Failed         uint64
	CallbackErrors uint64
	DeadLetters    int
}

type counters struct {
	sent           atomic.Uint64
	relayed        atomic.Uint64
	dispatched     atomic.Uint64
	unmatched      atomic.Uint64
	failed         atomic.Uint64
	callbackErrors atomic.Uint64
}

// Stats returns a snapshot of the router counters.
func (r *Router) Stats() Stats {
	return Stats{
		Sent:           r.counters.sent.Load(),
		Relayed:        r.counters.relayed.Load(),
		Dispatched:     r.counters.dispatched.Load(),
		Unmatched:      r.counters.unmatched.Load(),
		Failed:         r.counters.failed.Load(),
		CallbackErrors: r.counters.callbackErrors.Load(),
		DeadLetters:    r.deadLetters.Len(),
	}
}
