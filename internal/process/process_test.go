package process

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Iron-Ham/polycephaly/internal/errors"
	"github.com/Iron-Ham/polycephaly/internal/messenger"
	"github.com/Iron-Ham/polycephaly/internal/testutil"
	"github.com/Iron-Ham/polycephaly/internal/threads"
)

const waitTimeout = 2 * time.Second

func newRouter(t *testing.T, names ...string) *messenger.Router {
	t.Helper()
	dir := messenger.NewDirectory()
	for _, name := range names {
		if _, err := dir.Create(name, 10); err != nil {
			t.Fatalf("Create(%q) error = %v", name, err)
		}
	}
	return messenger.New(dir, "main")
}

// start runs p in the background and returns a stop function that cancels
// it and waits for Run to return.
func start(t *testing.T, p *Process) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	testutil.Eventually(t, waitTimeout, p.IsActive, "process should become active")

	return func() error {
		cancel()
		select {
		case err := <-errCh:
			return err
		case <-time.After(waitTimeout):
			t.Fatal("Run did not return")
			return nil
		}
	}
}

func TestNew(t *testing.T) {
	r := newRouter(t, "main")

	p, err := New("Worker-A", r, WithMailboxSize(3))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if p.Name() != "worker-a" {
		t.Errorf("Name() = %q, want worker-a", p.Name())
	}
	q, ok := r.Directory().Get("worker-a")
	if !ok || q.Cap() != 3 {
		t.Errorf("mailbox = (%v, %v), want a created queue of capacity 3", q, ok)
	}
	if p.IsActive() {
		t.Error("a process is not active before Run")
	}
	if p.Threads() == nil || p.Threads().Owner() != "worker-a" {
		t.Error("Threads() should be the process registry")
	}
}

func TestNew_InvalidInput(t *testing.T) {
	r := newRouter(t, "main")

	tests := []struct {
		name   string
		pname  string
		router *messenger.Router
		opts   []Option
	}{
		{"empty name", " ", r, nil},
		{"nil router", "a", nil, nil},
		{"bad filter", "a", r, []Option{WithFilter(messenger.Filter{Name: "no callback"})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.pname, tt.router, tt.opts...); !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("New() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestRun_DispatchesReceivedEnvelopes(t *testing.T) {
	r := newRouter(t, "main")

	var got atomic.Value
	p, err := New("worker-a", r,
		WithTickInterval(5*time.Millisecond),
		WithFilter(messenger.Filter{
			Name: "record",
			Callback: func(ctx context.Context, env *messenger.Envelope) error {
				got.Store(env.Body)
				return nil
			},
		}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	stop := start(t, p)

	if _, err := r.Send(context.Background(), "main", messenger.Envelope{Recipient: "worker-a", Body: "hello"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	testutil.Eventually(t, waitTimeout, func() bool { return got.Load() == "hello" }, "envelope should be dispatched")

	if err := stop(); err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if p.IsActive() {
		t.Error("process should be inactive after Run returns")
	}
}

func TestRun_MainRelaysBetweenPeers(t *testing.T) {
	r := newRouter(t)
	tick := WithTickInterval(5 * time.Millisecond)

	received := make(chan *messenger.Envelope, 1)
	mainProc, _ := New("main", r, tick)
	workerA, _ := New("worker-a", r, tick)
	workerB, _ := New("worker-b", r, tick, WithFilter(messenger.Filter{
		Callback: func(ctx context.Context, env *messenger.Envelope) error {
			received <- env
			return nil
		},
	}))

	stops := []func() error{start(t, mainProc), start(t, workerB)}
	defer func() {
		for _, stop := range stops {
			_ = stop()
		}
	}()

	if _, err := workerA.Send(context.Background(), messenger.Envelope{Recipient: "worker-b", Body: "via main"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case env := <-received:
		if env.Body != "via main" || env.Relayer == nil || env.Relayer.Name != "main" {
			t.Errorf("received %+v, want a relayed envelope", env)
		}
	case <-time.After(waitTimeout):
		t.Fatal("worker-b did not receive the envelope")
	}
	if r.Stats().Relayed != 1 {
		t.Errorf("Stats().Relayed = %d, want 1", r.Stats().Relayed)
	}
}

func TestRun_LaunchesAndJoinsThreads(t *testing.T) {
	r := newRouter(t, "main")
	gate := testutil.NewGate()
	flushed := make(chan struct{})

	p, _ := New("worker-a", r,
		WithThread("_thread_Poll", gate.Worker),
		WithNonDaemonThread("flush", func(ctx context.Context) error {
			<-flushed
			return nil
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	gate.WaitStarted(t, waitTimeout)
	lives := p.Threads().ListChildThreadsLives([]string{"poll", "flush"})
	if lives["poll"] != threads.Alive || lives["flush"] != threads.Alive {
		t.Fatalf("lives = %v, want both alive", lives)
	}

	cancel()
	select {
	case <-done:
		t.Fatal("Run returned before the non-daemon thread finished")
	case <-time.After(30 * time.Millisecond):
	}

	close(flushed)
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(waitTimeout):
		t.Fatal("Run did not return after the non-daemon thread finished")
	}
	if p.Threads().GetChildThread("poll").IsAlive() {
		t.Error("daemon thread should have been stopped at teardown")
	}
}

func TestRun_JanitorReclaimsFinishedThreads(t *testing.T) {
	r := newRouter(t, "main")
	p, _ := New("worker-a", r,
		WithTickInterval(5*time.Millisecond),
		WithJanitorInterval(10*time.Millisecond),
		WithThread("oneshot", func(ctx context.Context) error { return nil }),
	)
	stop := start(t, p)
	defer func() { _ = stop() }()

	testutil.Eventually(t, waitTimeout, func() bool {
		return p.Threads().GetChildThread("oneshot") == nil
	}, "finished thread should be reclaimed")
}

func TestRun_OnlyOnce(t *testing.T) {
	r := newRouter(t, "main")
	p, _ := New("worker-a", r)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := p.Run(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Run() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestRun_ToleratesMissingMailbox(t *testing.T) {
	r := newRouter(t, "main")
	p, _ := New("worker-a", r, WithTickInterval(5*time.Millisecond))
	if err := r.Directory().Remove("worker-a"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	stop := start(t, p)
	testutil.Eventually(t, waitTimeout, func() bool { return len(r.DeadLetters()) > 0 }, "receive failures should be recorded")
	if err := stop(); err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestRun_DispatchesEnvelopesCarryingFailureRecords(t *testing.T) {
	r := newRouter(t, "main")

	var hits atomic.Int32
	p, err := New("worker-a", r,
		WithTickInterval(5*time.Millisecond),
		WithFilter(messenger.Filter{
			Name: "monitor",
			Callback: func(ctx context.Context, env *messenger.Envelope) error {
				hits.Add(1)
				return nil
			},
		}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	stop := start(t, p)

	if _, err := r.Send(context.Background(), "main", messenger.Envelope{Recipient: "worker-a", Failed: true, Body: "report"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	// Put directly, the way a queue shared outside the router might be fed.
	q, _ := r.Directory().Get("worker-a")
	direct := &messenger.Envelope{Sender: "main", Recipient: "worker-a", MessageID: "m-1", Failed: true, Action: "forward"}
	if err := q.Put(context.Background(), direct, time.Second); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	testutil.Eventually(t, waitTimeout, func() bool { return hits.Load() == 2 }, "both envelopes should be dispatched")
	if got := r.Stats().Dispatched; got != 2 {
		t.Errorf("Stats().Dispatched = %d, want 2", got)
	}
	if err := stop(); err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestIsReceiveFailure(t *testing.T) {
	tests := []struct {
		name string
		env  messenger.Envelope
		want bool
	}{
		{"synthetic receive failure", messenger.Envelope{Sender: "a", Recipient: "a", Failed: true}, true},
		{"delivered failure record", messenger.Envelope{MessageID: "m-1", Failed: true}, false},
		{"delivered message", messenger.Envelope{MessageID: "m-1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isReceiveFailure(&tt.env); got != tt.want {
				t.Errorf("isReceiveFailure() = %v, want %v", got, tt.want)
			}
		})
	}
}
