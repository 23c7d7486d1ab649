package host

import (
	"context"
	"maps"
	"sync"

	"github.com/Iron-Ham/polycephaly/internal/errors"
	"github.com/Iron-Ham/polycephaly/internal/event"
)

// ActivityStats summarizes what the router and thread registries reported on
// the event bus.
type ActivityStats struct {
	// Events counts every published event by type.
	Events map[string]uint64
	// ThreadFailures counts child threads that returned an error, by owner.
	ThreadFailures map[string]uint64
	// LastFailure is the reason of the most recent envelope.failed event.
	LastFailure string
}

// activity tallies bus events for the run summary.
type activity struct {
	mu             sync.Mutex
	events         map[string]uint64
	threadFailures map[string]uint64
	lastFailure    string
}

func newActivity() *activity {
	return &activity{
		events:         make(map[string]uint64),
		threadFailures: make(map[string]uint64),
	}
}

// subscribe registers the tally on bus for every event type.
func (a *activity) subscribe(bus *event.Bus) string {
	return bus.SubscribeAll(a.record)
}

func (a *activity) record(e event.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.events[e.EventType()]++
	switch ev := e.(type) {
	case event.EnvelopeEvent:
		if ev.EventType() == event.TypeEnvelopeFailed {
			a.lastFailure = ev.Reason
		}
	case event.ThreadEvent:
		// Daemons stopped at teardown finish with context.Canceled.
		if ev.EventType() == event.TypeThreadFinished && ev.Err != nil && !errors.Is(ev.Err, context.Canceled) {
			a.threadFailures[ev.Owner]++
		}
	}
}

func (a *activity) snapshot() ActivityStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ActivityStats{
		Events:         maps.Clone(a.events),
		ThreadFailures: maps.Clone(a.threadFailures),
		LastFailure:    a.lastFailure,
	}
}
