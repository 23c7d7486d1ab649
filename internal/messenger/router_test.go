package messenger

import (
	"context"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/Iron-Ham/polycephaly/internal/errors"
	"github.com/Iron-Ham/polycephaly/internal/event"
)

func TestMailman_NoMessage(t *testing.T) {
	r, buf := newTestRouter(t, 10, []string{"main"})

	tests := []struct {
		name string
		msg  *Envelope
	}{
		{"nil envelope", nil},
		{"empty envelope", &Envelope{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, caller := range []string{"main", "worker-a"} {
				outcome, err := r.Mailman(context.Background(), caller, caller, tt.msg)
				if err != nil {
					t.Errorf("Mailman() error = %v", err)
				}
				if outcome != OutcomeNoMessage {
					t.Errorf("Mailman() = %v, want %v", outcome, OutcomeNoMessage)
				}
			}
		})
	}

	if hasLevel(t, buf, "ERROR") {
		t.Error("an empty envelope must never log at error level")
	}
}

func TestMailman_MainToSelfDispatches(t *testing.T) {
	r, _ := newTestRouter(t, 10, []string{"main", "worker-a"})
	ctx := context.Background()

	var got []string
	err := r.Filters().Register(Filter{
		Process: "main",
		Name:    "record",
		Callback: func(ctx context.Context, env *Envelope) error {
			got = append(got, env.Body.(string))
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, err := r.Send(ctx, "main", Envelope{Recipient: "main", Body: "note to self"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	env := r.GetQueueMessage("main", nil, nil)

	outcome, err := r.Mailman(ctx, "main", "main", &env)
	if err != nil {
		t.Fatalf("Mailman() error = %v", err)
	}
	if outcome != OutcomeDispatched {
		t.Errorf("Mailman() = %v, want %v", outcome, OutcomeDispatched)
	}
	if !slices.Equal(got, []string{"note to self"}) {
		t.Errorf("callback got %v", got)
	}
	if r.Stats().Relayed != 0 {
		t.Error("an envelope addressed to main must not be relayed")
	}
}

func TestMailman_RelaysPeerToPeer(t *testing.T) {
	r, _ := newTestRouter(t, 10, []string{"main", "worker-a", "worker-b"})
	ctx := context.Background()

	sent, err := r.Send(ctx, "worker-a", Envelope{Recipient: "worker-b", Body: "hello"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	env := r.GetQueueMessage("main", nil, nil)
	outcome, err := r.Mailman(ctx, "main", "main", &env)
	if err != nil {
		t.Fatalf("Mailman() error = %v", err)
	}
	if outcome != OutcomeRelayed {
		t.Fatalf("Mailman() = %v, want %v", outcome, OutcomeRelayed)
	}

	delivered := r.GetQueueMessage("worker-b", nil, nil)
	if delivered.IsEmpty() {
		t.Fatal("worker-b should have received the relayed envelope")
	}
	if delivered.MessageID != sent.MessageID {
		t.Errorf("MessageID = %q, want %q", delivered.MessageID, sent.MessageID)
	}
	if delivered.Queue.Name != "worker-b" {
		t.Errorf("Queue.Name = %q, want worker-b", delivered.Queue.Name)
	}
	if delivered.Relayer == nil || delivered.Relayer.Name != "main" {
		t.Errorf("Relayer = %+v, want main", delivered.Relayer)
	}
	if delivered.ThreadIndex != sent.ThreadIndex {
		t.Errorf("ThreadIndex = %d, want %d; relay is not a send", delivered.ThreadIndex, sent.ThreadIndex)
	}
	if r.Stats().Relayed != 1 {
		t.Errorf("Stats().Relayed = %d, want 1", r.Stats().Relayed)
	}
}

func TestMailman_RelayOnlyOnMainOwnBus(t *testing.T) {
	r, _ := newTestRouter(t, 10, []string{"main", "worker-b"})
	called := false
	_ = r.Filters().Register(Filter{
		Process: "main",
		Route:   "audit",
		Callback: func(ctx context.Context, env *Envelope) error {
			called = true
			return nil
		},
	})

	env := &Envelope{Sender: "worker-a", Recipient: "worker-b", MessageID: "m-1"}
	outcome, err := r.Mailman(context.Background(), "main", "audit", env)
	if err != nil {
		t.Fatalf("Mailman() error = %v", err)
	}
	if outcome != OutcomeDispatched || !called {
		t.Errorf("Mailman() = %v (called=%v), want dispatch on a non-own route", outcome, called)
	}
}

func TestMailman_RelayFailures(t *testing.T) {
	tests := []struct {
		name    string
		fill    bool
		to      string
		wantErr error
	}{
		{"destination full", true, "worker-b", errors.ErrQueueFull},
		{"destination unknown", false, "ghost", errors.ErrQueueNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, buf := newTestRouter(t, 1, []string{"main", "worker-b"}, WithPutTimeout(10*time.Millisecond))
			ctx := context.Background()

			if tt.fill {
				if _, err := r.Send(ctx, "main", Envelope{Recipient: "worker-b"}); err != nil {
					t.Fatalf("Send() error = %v", err)
				}
			}

			env := &Envelope{Sender: "worker-a", Recipient: tt.to, MessageID: "m-1", Body: "lost"}
			outcome, err := r.Mailman(ctx, "main", "main", env)
			if outcome != OutcomeRelayFailed {
				t.Errorf("Mailman() = %v, want %v", outcome, OutcomeRelayFailed)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Mailman() error = %v, want %v", err, tt.wantErr)
			}
			if !hasLevel(t, buf, "ERROR") {
				t.Error("relay failure should be logged at error level")
			}
			dead := r.DeadLetters()
			if len(dead) != 1 || dead[0].MessageID != "m-1" {
				t.Errorf("DeadLetters() = %+v, want m-1", dead)
			}
		})
	}
}

func TestMailman_NoMatch(t *testing.T) {
	r, buf := newTestRouter(t, 10, []string{"main"})
	_ = r.Filters().Register(Filter{
		Process:  "worker-a",
		Match:    MatchKind("ping"),
		Callback: func(ctx context.Context, env *Envelope) error { return nil },
	})

	env := &Envelope{Sender: "main", Recipient: "worker-a", MessageID: "m-1", Payload: map[string]any{"kind": "pong"}}
	outcome, err := r.Mailman(context.Background(), "worker-a", "worker-a", env)
	if err != nil {
		t.Errorf("Mailman() error = %v, want nil for no match", err)
	}
	if outcome != OutcomeNoMatch {
		t.Errorf("Mailman() = %v, want %v", outcome, OutcomeNoMatch)
	}
	if !hasLevel(t, buf, "WARN") {
		t.Error("no match should be logged as a warning")
	}
	if hasLevel(t, buf, "ERROR") {
		t.Error("no match is not an error")
	}
	if r.Stats().Unmatched != 1 {
		t.Errorf("Stats().Unmatched = %d, want 1", r.Stats().Unmatched)
	}
}

func TestMailman_CallbackFailureIsIsolated(t *testing.T) {
	tests := []struct {
		name  string
		first Callback
	}{
		{
			name:  "first callback returns an error",
			first: func(ctx context.Context, env *Envelope) error { return fmt.Errorf("boom") },
		},
		{
			name:  "first callback panics",
			first: func(ctx context.Context, env *Envelope) error { panic("boom") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, buf := newTestRouter(t, 10, []string{"main", "p"})

			var order []string
			err := r.Filters().Register(
				Filter{
					Process: "p",
					Route:   "p",
					Name:    "first",
					Callback: func(ctx context.Context, env *Envelope) error {
						order = append(order, "first")
						return tt.first(ctx, env)
					},
				},
				Filter{
					Process: "p",
					Route:   "p",
					Name:    "second",
					Callback: func(ctx context.Context, env *Envelope) error {
						order = append(order, "second")
						return nil
					},
				},
			)
			if err != nil {
				t.Fatalf("Register() error = %v", err)
			}

			env := &Envelope{Sender: "main", Recipient: "p", MessageID: "m-1"}
			outcome, err := r.Mailman(context.Background(), "p", "p", env)
			if err != nil {
				t.Fatalf("Mailman() error = %v", err)
			}
			if outcome != OutcomeDispatched {
				t.Errorf("Mailman() = %v, want %v", outcome, OutcomeDispatched)
			}
			if !slices.Equal(order, []string{"first", "second"}) {
				t.Errorf("callback order = %v, want [first second]", order)
			}
			if !hasLevel(t, buf, "ERROR") {
				t.Error("callback failure should be logged at error level")
			}
			if r.Stats().CallbackErrors != 1 {
				t.Errorf("Stats().CallbackErrors = %d, want 1", r.Stats().CallbackErrors)
			}
		})
	}
}

func TestMailman_CallbacksMaySend(t *testing.T) {
	r, _ := newTestRouter(t, 10, []string{"main", "worker-a"})
	ctx := context.Background()

	_ = r.Filters().Register(Filter{
		Process: "worker-a",
		Match:   MatchKind("ping"),
		Callback: func(ctx context.Context, env *Envelope) error {
			reply := Reply(env, nil)
			reply.Payload = map[string]any{"kind": "pong"}
			_, err := r.Send(ctx, "worker-a", reply)
			return err
		},
	})

	if _, err := r.Send(ctx, "main", Envelope{Recipient: "worker-a", Payload: map[string]any{"kind": "ping"}}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	env := r.GetQueueMessage("worker-a", nil, nil)
	if outcome, _ := r.Mailman(ctx, "worker-a", "worker-a", &env); outcome != OutcomeDispatched {
		t.Fatalf("Mailman() = %v, want dispatched", outcome)
	}

	pong := r.GetQueueMessage("main", nil, nil)
	if pong.Kind() != "pong" || pong.ThreadID != env.ThreadID || pong.ThreadIndex != 2 {
		t.Errorf("pong = %+v, want kind pong on the same thread at index 2", pong)
	}
}

func TestRouter_PublishesEvents(t *testing.T) {
	bus := event.NewBus()
	var types []string
	bus.SubscribeAll(func(e event.Event) { types = append(types, e.EventType()) })

	r, _ := newTestRouter(t, 10, []string{"main", "worker-a", "worker-b"}, WithBus(bus))
	ctx := context.Background()
	_ = r.Filters().Register(Filter{
		Process:  "worker-b",
		Callback: func(ctx context.Context, env *Envelope) error { return nil },
	})

	_, _ = r.Send(ctx, "worker-a", Envelope{Recipient: "worker-b"})
	env := r.GetQueueMessage("main", nil, nil)
	_, _ = r.Mailman(ctx, "main", "main", &env)
	env = r.GetQueueMessage("worker-b", nil, nil)
	_, _ = r.Mailman(ctx, "worker-b", "worker-b", &env)
	_, _ = r.Mailman(ctx, "worker-a", "worker-a", &Envelope{Sender: "x", MessageID: "m"})
	_, _ = r.Send(ctx, "main", Envelope{Recipient: "ghost"})

	want := []string{
		event.TypeEnvelopeSent,
		event.TypeEnvelopeRelayed,
		event.TypeEnvelopeDispatched,
		event.TypeEnvelopeUnmatched,
		event.TypeEnvelopeFailed,
	}
	if !slices.Equal(types, want) {
		t.Errorf("events = %v, want %v", types, want)
	}
}

func TestRouter_DeadLettersAreBounded(t *testing.T) {
	r, _ := newTestRouter(t, 10, []string{"main"}, WithDeadLetterSize(2))
	ctx := context.Background()

	for i := range 3 {
		_, _ = r.Send(ctx, "main", Envelope{Recipient: "ghost", Body: i})
	}

	dead := r.DeadLetters()
	if len(dead) != 2 {
		t.Fatalf("DeadLetters() len = %d, want 2", len(dead))
	}
	if dead[0].Body != 1 || dead[1].Body != 2 {
		t.Errorf("DeadLetters() bodies = [%v %v], want oldest first [1 2]", dead[0].Body, dead[1].Body)
	}
	if r.Stats().Failed != 3 || r.Stats().DeadLetters != 2 {
		t.Errorf("Stats() = %+v, want Failed=3 DeadLetters=2", r.Stats())
	}
}

func TestOutcome_String(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    string
	}{
		{OutcomeNoMessage, "no_message"},
		{OutcomeRelayed, "relayed"},
		{OutcomeNoMatch, "no_match"},
		{OutcomeDispatched, "dispatched"},
		{OutcomeRelayFailed, "relay_failed"},
		{Outcome(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.want {
			t.Errorf("Outcome(%d).String() = %q, want %q", int(tt.outcome), got, tt.want)
		}
	}
}
