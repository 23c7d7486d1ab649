package messenger

import (
	"maps"
	"time"

	"github.com/Iron-Ham/polycephaly/internal/mailbox"
)

// Queue is a process mailbox carrying envelopes.
type Queue = mailbox.Queue[*Envelope]

// Directory maps process names to their mailboxes.
type Directory = mailbox.Directory[*Envelope]

// NewDirectory creates an envelope directory.
func NewDirectory(opts ...mailbox.Option) *Directory {
	return mailbox.NewDirectory[*Envelope](opts...)
}

// QueueRef identifies a queue an envelope passed through.
type QueueRef struct {
	Name string
	Repr string
}

// refFor builds a QueueRef for q.
func refFor(q *Queue) QueueRef {
	return QueueRef{Name: q.Name(), Repr: q.String()}
}

// Envelope is the message record passed between processes.
//
// Send owns the control fields: it lower-cases Sender and Recipient, and always
// assigns MessageID and Time. Failure fields supplied by the caller are
// cleared; only the router records failures. ThreadID is kept when set so a chain of replies
// stays correlated, and ThreadIndex grows by one on every successful send.
type Envelope struct {
	Sender    string
	Recipient string
	// RecipientQueue addresses a queue handle directly. Used when Recipient
	// is empty.
	RecipientQueue *mailbox.Queue[*Envelope]

	MessageID   string
	Time        time.Time
	ThreadID    string
	ThreadIndex int

	// Queue is the last queue the envelope was put on.
	Queue QueueRef
	// Relayer is the queue the envelope was relayed from, if any.
	Relayer *QueueRef

	Body    any
	Payload map[string]any

	// Failure fields. Set on envelopes that record a send, relay, or receive
	// failure instead of a delivered message.
	Failed    bool
	Action    string
	Err       error
	Traceback string
}

// IsEmpty reports whether e carries nothing. An empty envelope is the normal
// "nothing received this tick" value.
func (e *Envelope) IsEmpty() bool {
	if e == nil {
		return true
	}
	return e.Sender == "" &&
		e.Recipient == "" &&
		e.RecipientQueue == nil &&
		e.MessageID == "" &&
		e.Body == nil &&
		len(e.Payload) == 0 &&
		!e.Failed
}

// Kind returns Payload["kind"] when it is a string.
func (e *Envelope) Kind() string {
	if e == nil {
		return ""
	}
	kind, _ := e.Payload["kind"].(string)
	return kind
}

// clone returns a copy whose Payload and Relayer are not shared with e.
func (e *Envelope) clone() *Envelope {
	c := *e
	if e.Payload != nil {
		c.Payload = maps.Clone(e.Payload)
	}
	if e.Relayer != nil {
		r := *e.Relayer
		c.Relayer = &r
	}
	return &c
}

// Reply builds an envelope answering received. The reply is addressed to the
// original sender and continues its thread, so ThreadIndex keeps increasing.
func Reply(received *Envelope, body any) Envelope {
	return Envelope{
		Recipient:   received.Sender,
		ThreadID:    received.ThreadID,
		ThreadIndex: received.ThreadIndex,
		Body:        body,
	}
}
