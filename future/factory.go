package future

import (
	"sync"

	"github.com/obinnaokechukwu/nativekit/internal/invariant"
	"github.com/obinnaokechukwu/nativekit/status"
)

// Policy controls how many operations of a kind may be in flight at once for
// one owner. It is declared per kind when the Factory is built.
type Policy int

const (
	// Concurrent allows any number of in-flight operations of the kind.
	Concurrent Policy = iota
	// Singular allows at most one: starting another while one is pending
	// fails fast with status.InProgress and leaves the in-flight slot
	// untouched.
	Singular
)

// Factory allocates completion slots for one owning object, keyed by a small
// enum of operation kinds. It tracks the most recent slot per kind and
// enforces the Singular policy.
type Factory[K comparable] struct {
	mu       sync.Mutex
	policies map[K]Policy
	last     map[K]lastEntry
}

type lastEntry struct {
	pending func() Status
	future  any
}

// NewFactory builds a factory for the given kinds. Starting a kind that was
// not declared here is a fatal invariant violation.
func NewFactory[K comparable](policies map[K]Policy) *Factory[K] {
	p := make(map[K]Policy, len(policies))
	for k, v := range policies {
		p[k] = v
	}
	return &Factory[K]{
		policies: p,
		last:     make(map[K]lastEntry),
	}
}

// Pending reports whether the most recently started operation of kind is
// still in flight.
func (f *Factory[K]) Pending(kind K) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.last[kind]
	return ok && e.pending() == Pending
}

// Start allocates a pending slot for kind and returns its two capabilities.
//
// If the kind's policy is Singular and a slot is already in flight, Start
// instead returns a nil promise and an already-failed future carrying
// status.InProgress; the in-flight slot is never cancelled or replaced.
// Callers must check for a nil promise before dispatching work.
func Start[T any, K comparable](f *Factory[K], kind K) (*Promise[T], *Future[T]) {
	f.mu.Lock()
	policy, ok := f.policies[kind]
	if !ok {
		f.mu.Unlock()
		invariant.Violationf("Factory.Start", "operation kind %v was not declared at construction", kind)
		return nil, FailedWith[T](status.Errorf(status.Unknown, "Factory.Start", "undeclared operation kind %v", kind))
	}
	if policy == Singular {
		if e, live := f.last[kind]; live && e.pending() == Pending {
			f.mu.Unlock()
			return nil, FailedWith[T](status.Errorf(status.InProgress, "Factory.Start",
				"operation already in progress for kind %v", kind))
		}
	}
	p, fut := New[T]()
	f.last[kind] = lastEntry{pending: fut.Status, future: fut}
	f.mu.Unlock()
	return p, fut
}

// LastResult returns the most recent future started for kind, if any. The
// caller must use the same result type the kind was started with.
func LastResult[T any, K comparable](f *Factory[K], kind K) (*Future[T], bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.last[kind]
	if !ok {
		return nil, false
	}
	fut, ok := e.future.(*Future[T])
	return fut, ok
}
