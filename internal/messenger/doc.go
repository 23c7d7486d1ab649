// Package messenger routes envelopes between the named processes of a
// polycephaly host.
//
// A [Router] owns three operations:
//
//   - [Router.Send] stamps an envelope and puts it on the right queue. Traffic
//     between two peers, and traffic addressed to the main process, goes onto
//     the main process's queue. Main sends straight to a peer.
//   - [Router.GetQueueMessage] takes one envelope off a process's mailbox
//     without blocking. Failures come back as inspectable envelopes with
//     Failed set, never as errors.
//   - [Router.Mailman] handles a received envelope. On the main process's own
//     bus, envelopes addressed elsewhere are relayed. Everything else is handed
//     to matching [Filter] callbacks in registration order.
//
// # Basic Usage
//
//	dir := messenger.NewDirectory()
//	dir.Create("main", 100)
//	dir.Create("worker-a", 100)
//
//	router := messenger.New(dir, "main", messenger.WithLogger(logger))
//	router.Filters().Register(messenger.Filter{
//	    Process:  "worker-a",
//	    Name:     "print",
//	    Callback: func(ctx context.Context, env *messenger.Envelope) error {
//	        fmt.Println(env.Body)
//	        return nil
//	    },
//	})
//
//	router.Send(ctx, "main", messenger.Envelope{Recipient: "worker-a", Body: "hi"})
//
//	env := router.GetQueueMessage("worker-a", nil, nil)
//	outcome, err := router.Mailman(ctx, "worker-a", "worker-a", &env)
//
// # Delivery Guarantees
//
// The put made by send and relay is the only blocking point. It waits up to
// the put timeout (five seconds by default) and then fails closed with
// errors.ErrQueueFull. Failed envelopes are kept in a bounded dead-letter
// cache, see [Router.DeadLetters].
//
// # Thread Safety
//
// A Router is safe for concurrent use. Callbacks for one envelope run
// sequentially on the goroutine that called Mailman.
package messenger
