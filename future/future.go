// Package future implements the completion machinery for asynchronous
// operations: a one-shot completion slot split into a consumer handle
// (Future) and a resolving capability (Promise), plus a per-owner Factory
// that allocates slots keyed by operation kind.
//
// A slot's outcome transitions exactly once, Pending to Succeeded or Failed,
// and every registered completion callback fires exactly once: on the
// resolving goroutine if registered before resolution, synchronously on the
// registering goroutine if registered after. Resolving a slot twice is a
// fatal invariant violation; the first outcome always stands.
package future

import (
	"context"
	"sync"
)

// Status is the observable state of a completion slot.
type Status int32

const (
	// Pending: the operation has not reached its terminal outcome.
	Pending Status = iota
	// Succeeded: the operation completed and carries a value.
	Succeeded
	// Failed: the operation completed with an error.
	Failed
)

// String returns the identifier of the status.
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "invalid"
}

// slot is the shared cell behind a Future/Promise pair. The producer and any
// number of consumer handles reference it; the GC reclaims it when the last
// holder drops it.
type slot[T any] struct {
	mu          sync.Mutex
	status      Status
	value       T
	err         error
	done        chan struct{}
	completions []func(T, error)
	progress    []func(T)
}

// Future is the consumer handle to a completion slot. A nil Future is
// invalid; futures are created by New, the Factory, or the Completed/Failed
// constructors.
type Future[T any] struct {
	s *slot[T]
}

// Status returns the slot's current status without blocking.
func (f *Future[T]) Status() Status {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.status
}

// Done returns a channel closed at terminal resolution.
func (f *Future[T]) Done() <-chan struct{} {
	return f.s.done
}

// Wait blocks until the slot resolves or ctx is done. On resolution it
// returns the stored outcome; if ctx expires first it returns ctx.Err().
// Dropping out of Wait abandons nothing: the slot stays live until the
// producer resolves it.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.s.done:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.value, f.s.err
}

// Result returns the stored outcome. ok is false while the slot is pending,
// in which case value and err are zero.
func (f *Future[T]) Result() (value T, err error, ok bool) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.status == Pending {
		var zero T
		return zero, nil, false
	}
	return f.s.value, f.s.err, true
}

// OnCompletion registers fn to run with the terminal outcome. Registered
// before resolution, fn runs exactly once on the goroutine that resolves the
// slot; registered after, fn runs immediately on the calling goroutine.
// There is no same-thread delivery guarantee relative to the original
// caller; consumers that need one must re-dispatch inside fn.
func (f *Future[T]) OnCompletion(fn func(value T, err error)) {
	f.s.mu.Lock()
	if f.s.status == Pending {
		f.s.completions = append(f.s.completions, fn)
		f.s.mu.Unlock()
		return
	}
	value, err := f.s.value, f.s.err
	f.s.mu.Unlock()
	fn(value, err)
}

// OnProgress registers fn for partial results delivered before terminal
// resolution. Registration after resolution is a no-op: no progress
// notification ever fires after the terminal outcome.
func (f *Future[T]) OnProgress(fn func(partial T)) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.status != Pending {
		return
	}
	f.s.progress = append(f.s.progress, fn)
}

// Completed returns an already-succeeded future carrying value.
func Completed[T any](value T) *Future[T] {
	_, f := resolved(value, nil)
	return f
}

// FailedWith returns an already-failed future carrying err.
func FailedWith[T any](err error) *Future[T] {
	var zero T
	_, f := resolved(zero, err)
	return f
}

func resolved[T any](value T, err error) (*slot[T], *Future[T]) {
	s := &slot[T]{done: make(chan struct{})}
	s.value, s.err = value, err
	if err != nil {
		s.status = Failed
	} else {
		s.status = Succeeded
	}
	close(s.done)
	return s, &Future[T]{s: s}
}
