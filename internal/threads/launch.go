package threads

import "github.com/Iron-Ham/polycephaly/internal/errors"

// ThreadPrefix marks a table entry name as an auto-launch thread. It is
// stripped when the registry key is derived.
const ThreadPrefix = "_thread_"

// Entry is one named worker in a launch table.
type Entry struct {
	Name   string
	Worker Worker
	// NonDaemon keeps the thread running through registry teardown.
	NonDaemon bool
}

// Table is the ordered set of workers a process launches at startup.
type Table []Entry

// Add appends a daemon worker and returns the table.
func (t Table) Add(name string, worker Worker) Table {
	return append(t, Entry{Name: name, Worker: worker})
}

// AddNonDaemon appends a non-daemon worker and returns the table.
func (t Table) AddNonDaemon(name string, worker Worker) Table {
	return append(t, Entry{Name: name, Worker: worker, NonDaemon: true})
}

// LaunchThreads registers and starts every entry of table in order, keyed by
// ThreadKey(entry.Name). The entries are identical to what AddChildThread
// creates. It returns the keys launched and the errors of entries that could
// not be.
func (r *Registry) LaunchThreads(table Table) ([]string, error) {
	var (
		launched []string
		errs     []error
	)
	for _, entry := range table {
		key := ThreadKey(entry.Name)
		if _, err := r.AddChildThread(key, entry.Worker, WithDaemon(!entry.NonDaemon)); err != nil {
			errs = append(errs, err)
			continue
		}
		launched = append(launched, key)
	}
	if len(launched) > 0 {
		r.logger.Info("child threads launched", "threads", launched)
	}
	return launched, errors.Join(errs...)
}
