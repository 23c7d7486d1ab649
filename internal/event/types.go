package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "envelope.sent", "thread.reclaimed")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeEnvelopeSent       = "envelope.sent"
	TypeEnvelopeRelayed    = "envelope.relayed"
	TypeEnvelopeDispatched = "envelope.dispatched"
	TypeEnvelopeUnmatched  = "envelope.unmatched"
	TypeEnvelopeFailed     = "envelope.failed"

	TypeThreadStarted   = "thread.started"
	TypeThreadFinished  = "thread.finished"
	TypeThreadReclaimed = "thread.reclaimed"
)

// baseEvent provides common fields for all events.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Envelope Events
// -----------------------------------------------------------------------------

// EnvelopeEvent reports a routing step taken by the messenger.
type EnvelopeEvent struct {
	baseEvent
	MessageID string // Envelope message id
	ThreadID  string // Correlation id of the envelope chain
	Sender    string
	Recipient string
	Queue     string // Queue the envelope was put on, if any
	Caller    string // Process executing the routing step
	Route     string // Route being dispatched (dispatch events only)
	Callbacks int    // Number of callbacks invoked (dispatch events only)
	Reason    string // Failure reason (failed events only)
}

func newEnvelopeEvent(eventType, messageID, threadID, sender, recipient string) EnvelopeEvent {
	return EnvelopeEvent{
		baseEvent: newBaseEvent(eventType),
		MessageID: messageID,
		ThreadID:  threadID,
		Sender:    sender,
		Recipient: recipient,
	}
}

// NewEnvelopeSentEvent creates an event for an envelope put onto a queue by send.
func NewEnvelopeSentEvent(messageID, threadID, sender, recipient, queue string) EnvelopeEvent {
	e := newEnvelopeEvent(TypeEnvelopeSent, messageID, threadID, sender, recipient)
	e.Queue = queue
	return e
}

// NewEnvelopeRelayedEvent creates an event for an envelope forwarded by the main process.
func NewEnvelopeRelayedEvent(messageID, threadID, sender, recipient, queue, caller string) EnvelopeEvent {
	e := newEnvelopeEvent(TypeEnvelopeRelayed, messageID, threadID, sender, recipient)
	e.Queue = queue
	e.Caller = caller
	return e
}

// NewEnvelopeDispatchedEvent creates an event for an envelope handed to matching callbacks.
func NewEnvelopeDispatchedEvent(messageID, threadID, sender, recipient, caller, route string, callbacks int) EnvelopeEvent {
	e := newEnvelopeEvent(TypeEnvelopeDispatched, messageID, threadID, sender, recipient)
	e.Caller = caller
	e.Route = route
	e.Callbacks = callbacks
	return e
}

// NewEnvelopeUnmatchedEvent creates an event for an envelope no filter matched.
func NewEnvelopeUnmatchedEvent(messageID, threadID, sender, recipient, caller, route string) EnvelopeEvent {
	e := newEnvelopeEvent(TypeEnvelopeUnmatched, messageID, threadID, sender, recipient)
	e.Caller = caller
	e.Route = route
	return e
}

// NewEnvelopeFailedEvent creates an event for an envelope that could not be delivered or received.
func NewEnvelopeFailedEvent(messageID, threadID, sender, recipient, reason string) EnvelopeEvent {
	e := newEnvelopeEvent(TypeEnvelopeFailed, messageID, threadID, sender, recipient)
	e.Reason = reason
	return e
}

// -----------------------------------------------------------------------------
// Thread Events
// -----------------------------------------------------------------------------

// ThreadEvent reports a child thread lifecycle transition.
type ThreadEvent struct {
	baseEvent
	Owner  string // Process owning the thread registry
	Thread string // Registry key
	Daemon bool
	Err    error // Worker error (finished events only)
}

// NewThreadStartedEvent creates an event for a started child thread.
func NewThreadStartedEvent(owner, thread string, daemon bool) ThreadEvent {
	return ThreadEvent{
		baseEvent: newBaseEvent(TypeThreadStarted),
		Owner:     owner,
		Thread:    thread,
		Daemon:    daemon,
	}
}

// NewThreadFinishedEvent creates an event for a child thread whose worker returned.
func NewThreadFinishedEvent(owner, thread string, daemon bool, err error) ThreadEvent {
	return ThreadEvent{
		baseEvent: newBaseEvent(TypeThreadFinished),
		Owner:     owner,
		Thread:    thread,
		Daemon:    daemon,
		Err:       err,
	}
}

// NewThreadReclaimedEvent creates an event for a registry entry removed after finishing.
func NewThreadReclaimedEvent(owner, thread string) ThreadEvent {
	return ThreadEvent{
		baseEvent: newBaseEvent(TypeThreadReclaimed),
		Owner:     owner,
		Thread:    thread,
	}
}
