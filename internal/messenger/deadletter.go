package messenger

import (
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Iron-Ham/polycephaly/internal/event"
)

// deadLetters keeps the most recent failure envelopes, keyed by message id.
type deadLetters struct {
	cache *lru.Cache[string, Envelope]
}

func newDeadLetters(size int) *deadLetters {
	// lru.New only fails on a non-positive size, which options rule out.
	cache, _ := lru.New[string, Envelope](size)
	return &deadLetters{cache: cache}
}

func (d *deadLetters) add(env Envelope) {
	if env.MessageID == "" {
		env.MessageID = uuid.NewString()
	}
	if env.Time.IsZero() {
		env.Time = time.Now()
	}
	d.cache.Add(env.MessageID, env)
}

// Len returns the number of retained failure envelopes.
func (d *deadLetters) Len() int {
	return d.cache.Len()
}

// DeadLetters returns retained failure envelopes, oldest first.
func (r *Router) DeadLetters() []Envelope {
	return r.deadLetters.cache.Values()
}

// fail records env as a dead letter and reports it.
func (r *Router) fail(env *Envelope, reason string) {
	r.counters.failed.Add(1)
	dead := *env.clone()
	dead.Failed = true
	r.deadLetters.add(dead)
	r.publish(event.NewEnvelopeFailedEvent(env.MessageID, env.ThreadID, env.Sender, env.Recipient, reason))
}
