// Package event provides a pub-sub event bus for observing messenger and
// thread-registry activity.
//
// The router publishes an [EnvelopeEvent] for every send, relay, dispatch,
// unmatched envelope, and failure. Thread registries publish a [ThreadEvent]
// when a child thread starts, finishes, or is reclaimed by the janitor.
// Observers subscribe without the core knowing about them.
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Handlers are called synchronously
// on the publishing goroutine and protected against panics: a panicking
// handler is logged and does not prevent other handlers from being called.
//
// # Basic Usage
//
//	bus := event.NewBus()
//
//	bus.Subscribe(event.TypeEnvelopeFailed, func(e event.Event) {
//	    failed := e.(event.EnvelopeEvent)
//	    log.Printf("envelope %s failed: %s", failed.MessageID, failed.Reason)
//	})
//
//	router := messenger.New(dir, "main", messenger.WithBus(bus))
//
// # Event Type Naming Convention
//
// Event types follow the pattern "category.action":
//   - envelope.sent, envelope.relayed, envelope.dispatched, envelope.unmatched, envelope.failed
//   - thread.started, thread.finished, thread.reclaimed
package event
