// Package host assembles a configured set of polycephaly processes in one
// Go process.
//
// A [Host] owns the shared mailbox directory, the router, and one
// [process.Process] per configured name. Every process gets two filters:
// "heartbeat" answers with an ack, and "ack" records the round trip. A process
// with a heartbeat interval also runs a daemon child thread that sends a
// heartbeat to each of its peers on that interval. Peer traffic goes through
// the main process, so a running host exercises the relay path continuously.
//
// # Basic Usage
//
//	h, err := host.New(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//	err = h.Run(ctx)
//	fmt.Println(h.Stats().Router.Relayed)
package host
