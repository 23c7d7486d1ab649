// Package logging provides structured logging for polycephaly processes.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// context propagation. Every process, child thread, and route gets a child
// logger carrying its name, so interleaved output from many participants in one
// host stays filterable.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Child loggers created
// via With* methods share the underlying handler, writer, and level.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/var/log/polycephaly", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	procLogger := logger.WithProcess("worker-a")
//	procLogger.WithThread("heartbeat").Debug("tick", "peers", 2)
//
// Output:
//
//	{"time":"...","level":"DEBUG","msg":"tick","process":"worker-a","thread":"heartbeat","peers":2}
//
// # Runtime Level Changes
//
// The level is held in a slog.LevelVar shared by a root logger and all of its
// children, so [Logger.SetLevel] takes effect everywhere at once. The run
// command uses this to apply config file edits without a restart.
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWriterLogger] with a bytes.Buffer to
// assert on emitted entries.
package logging
