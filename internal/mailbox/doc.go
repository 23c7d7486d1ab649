// Package mailbox provides the in-memory inbound queues that polycephaly
// processes receive envelopes on, and the directory that names them.
//
// Every process owns exactly one [Queue], registered in a shared [Directory]
// under the process name. Producers use [Queue.Put] with a timeout, which is
// the only back-pressure point in the messenger. The owning process drains its
// queue with the non-blocking [Queue.TryGet] once per loop tick.
//
// # Basic Usage
//
//	dir := mailbox.NewDirectory[*messenger.Envelope](mailbox.WithCapacity(50))
//	q, err := dir.Create("Worker-A", 0) // stored as "worker-a"
//
//	err = q.Put(ctx, env, 5*time.Second)
//	if errors.Is(err, errors.ErrQueueFull) { ... }
//
//	env, ok, err := q.TryGet()
//
// # Thread Safety
//
// [Queue] and [Directory] are safe for concurrent use.
package mailbox
