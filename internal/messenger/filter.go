package messenger

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/Iron-Ham/polycephaly/internal/errors"
)

// Callback reacts to a dispatched envelope. Errors and panics are logged by the
// router and never stop the remaining callbacks.
type Callback func(ctx context.Context, env *Envelope) error

// Matcher decides whether a filter applies to an envelope.
type Matcher func(env *Envelope) bool

// Filter associates a (process, route, matcher) triple with a callback.
type Filter struct {
	Process string
	// Route defaults to Process, the process's own bus.
	Route string
	// Name identifies the callback in logs.
	Name string
	// Match defaults to MatchAll.
	Match    Matcher
	Callback Callback
}

type filterKey struct {
	process string
	route   string
}

// Filters is an ordered filter registry. It is safe for concurrent use.
type Filters struct {
	mu    sync.RWMutex
	byKey map[filterKey][]Filter
	count int
}

// NewFilters creates an empty registry.
func NewFilters() *Filters {
	return &Filters{byKey: make(map[filterKey][]Filter)}
}

// Register appends filters in order. Process and Route are lower-cased.
// Nothing is registered if any filter is invalid.
func (f *Filters) Register(filters ...Filter) error {
	normalized := make([]Filter, 0, len(filters))
	for i, flt := range filters {
		flt.Process = strings.ToLower(flt.Process)
		flt.Route = strings.ToLower(flt.Route)
		if flt.Process == "" {
			return errors.Wrapf(errors.ErrInvalidInput, "filter %d: process is required", i)
		}
		if flt.Callback == nil {
			return errors.Wrapf(errors.ErrInvalidInput, "filter %d (%s): callback is required", i, flt.Name)
		}
		if flt.Route == "" {
			flt.Route = flt.Process
		}
		if flt.Match == nil {
			flt.Match = MatchAll()
		}
		normalized = append(normalized, flt)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, flt := range normalized {
		key := filterKey{process: flt.Process, route: flt.Route}
		f.byKey[key] = append(f.byKey[key], flt)
		f.count++
	}
	return nil
}

// Match returns the filters registered for (caller, route) whose matcher
// accepts env, in registration order.
func (f *Filters) Match(caller, route string, env *Envelope) []Filter {
	f.mu.RLock()
	candidates := slices.Clone(f.byKey[filterKey{
		process: strings.ToLower(caller),
		route:   strings.ToLower(route),
	}])
	f.mu.RUnlock()

	var matched []Filter
	for _, flt := range candidates {
		if flt.Match(env) {
			matched = append(matched, flt)
		}
	}
	return matched
}

// Len returns the number of registered filters.
func (f *Filters) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.count
}

// MatchAll accepts every envelope.
func MatchAll() Matcher {
	return func(*Envelope) bool { return true }
}

// MatchSender accepts envelopes from any of the named processes.
func MatchSender(names ...string) Matcher {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.ToLower(n)] = true
	}
	return func(env *Envelope) bool { return want[env.Sender] }
}

// MatchKind accepts envelopes whose Payload["kind"] is one of kinds.
func MatchKind(kinds ...string) Matcher {
	return func(env *Envelope) bool {
		return slices.Contains(kinds, env.Kind())
	}
}

// MatchAny accepts envelopes accepted by at least one of matchers.
func MatchAny(matchers ...Matcher) Matcher {
	return func(env *Envelope) bool {
		for _, m := range matchers {
			if m(env) {
				return true
			}
		}
		return false
	}
}
