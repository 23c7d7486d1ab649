// Package threads manages the named child goroutines of a polycephaly process.
//
// A [Registry] maps thread names to [Thread] handles. Threads are registered
// with [Registry.AddChildThread] or launched in bulk from a [Table] built when
// the process is constructed. A periodic [Registry.ChildThreadJanitor] reclaims
// finished entries, and [Registry.JoinChildThreads] waits for the rest at
// shutdown.
//
// # Lifecycle
//
//	absent -> registered+started -> running -> finished -> reclaimed
//
// The registry never removes or kills a live thread. Workers exit
// cooperatively by watching their context:
//
//	reg := threads.NewRegistry(ctx, "worker-a", threads.WithLogger(logger))
//	reg.AddChildThread("poll", func(ctx context.Context) error {
//	    ticker := time.NewTicker(time.Second)
//	    defer ticker.Stop()
//	    for {
//	        select {
//	        case <-ctx.Done():
//	            return nil
//	        case <-ticker.C:
//	            poll()
//	        }
//	    }
//	})
//
//	// Every loop tick:
//	reg.ChildThreadJanitor()
//
//	// Teardown:
//	reg.Close()            // daemon threads see ctx.Done()
//	reg.JoinChildThreads() // wait for everything still alive
//
// # Daemon Threads
//
// Daemon threads, the default, run on the registry context and are asked to
// stop by [Registry.Close]. Non-daemon threads run on a context that teardown
// does not cancel, so the owning process waits for them to finish on their own.
package threads
