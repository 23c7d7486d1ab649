// Package process runs the life-cycle loop of one polycephaly participant.
//
// A [Process] owns a mailbox in the router's directory and a child thread
// registry. [Process.Run] launches the configured child threads, then pulls
// one envelope per iteration and hands it to the router's Mailman on the
// process's own route. When the mailbox is empty it waits one tick. Finished
// child threads are reclaimed every janitor interval, and all live ones are
// joined before Run returns.
package process
