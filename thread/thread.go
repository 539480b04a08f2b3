// Package thread provides an exclusive, movable handle to a single dedicated
// OS thread of control with a strict lifecycle: a handle is Empty, Joinable,
// Finished or Detached, and every misuse (double join, detach after join,
// moving into a live handle, dropping a joinable handle) is an immediate
// invariant violation rather than a silent leak.
//
// Thread bodies run on their own OS thread (the goroutine is wired to it with
// runtime.LockOSThread), which makes the primitive suitable for pumping
// platform event loops and other work that must not migrate between threads.
package thread

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/obinnaokechukwu/nativekit/internal/invariant"
)

type state int32

const (
	stateEmpty state = iota
	stateJoinable
	stateFinished
	stateDetached
)

// Thread owns at most one OS thread. The zero value is an empty handle.
//
// A handle that is Joinable must reach Join or Detach before it is dropped;
// a joinable handle collected by the GC reports an invariant violation.
// Handles are not safe for concurrent mutation (matching the underlying OS
// thread handle semantics); Joinable, CurrentId and IsCurrentThread are safe
// from any goroutine.
type Thread struct {
	mu    sync.Mutex
	state state
	done  chan struct{}
	id    Id
}

// New starts an OS thread running work and returns a Joinable handle to it.
func New(work func()) *Thread {
	return NewNamed("", work)
}

// NewNamed is New with a thread name applied to the underlying OS thread on
// platforms that support naming (visible in debuggers and /proc).
func NewNamed(name string, work func()) *Thread {
	t := &Thread{
		state: stateJoinable,
		done:  make(chan struct{}),
	}
	ready := make(chan Id)
	go func() {
		runtime.LockOSThread()
		if name != "" {
			setOSThreadName(name)
		}
		ready <- CurrentId()
		defer close(t.done)
		work()
	}()
	t.id = <-ready
	armLeakTrap(t)
	return t
}

// Joinable reports whether the handle currently owns a thread that has not
// been joined or detached.
func (t *Thread) Joinable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == stateJoinable
}

// Id returns the identity of the owned thread, or zero for a non-joinable
// handle. Useful with IsCurrentThread to diagnose which thread a callback is
// running on.
func (t *Thread) Id() Id {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != stateJoinable {
		return 0
	}
	return t.id
}

// Join blocks until the owned thread terminates and transitions the handle
// to Finished. Calling Join on a handle that is not Joinable (never started,
// already joined, already detached) is a fatal invariant violation.
//
// Writes performed by the thread body are visible to the caller once Join
// returns.
func (t *Thread) Join() {
	t.mu.Lock()
	if t.state != stateJoinable {
		st := t.state
		t.mu.Unlock()
		invariant.Violationf("Thread.Join", "thread is not joinable (state %s)", st)
		return
	}
	t.state = stateFinished
	done := t.done
	disarmLeakTrap(t)
	t.mu.Unlock()

	<-done
}

// Detach releases ownership of the thread, which keeps running
// independently; the handle transitions to Detached. Calling Detach on a
// non-Joinable handle is a fatal invariant violation.
func (t *Thread) Detach() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != stateJoinable {
		invariant.Violationf("Thread.Detach", "thread is not joinable (state %s)", t.state)
		return
	}
	t.state = stateDetached
	t.done = nil
	disarmLeakTrap(t)
}

// MoveFrom transfers ownership of src's thread into t, leaving src empty.
// It is the move-assignment of the handle: moving into a handle that is
// currently Joinable is a fatal invariant violation, because it would
// silently orphan a live thread.
func (t *Thread) MoveFrom(src *Thread) {
	if t == src {
		return
	}
	// Address-ordered locking; handles are rarely contended but a stable
	// order keeps concurrent moves from deadlocking.
	first, second := t, src
	if uintptr(unsafe.Pointer(second)) < uintptr(unsafe.Pointer(first)) {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if t.state == stateJoinable {
		invariant.Violationf("Thread.MoveFrom", "move target owns a joinable thread")
		return
	}

	t.state = src.state
	t.done = src.done
	t.id = src.id
	src.state = stateEmpty
	src.done = nil
	src.id = 0

	disarmLeakTrap(src)
	if t.state == stateJoinable {
		armLeakTrap(t)
	}
}

func (s state) String() string {
	switch s {
	case stateEmpty:
		return "empty"
	case stateJoinable:
		return "joinable"
	case stateFinished:
		return "finished"
	case stateDetached:
		return "detached"
	}
	return "unknown"
}

// armLeakTrap makes the GC report a joinable handle that was dropped without
// Join or Detach. The trap fires on the finalizer thread; with the default
// invariant handler that terminates the process, which is the intent: a
// leaked joinable thread is a programming error, not a recoverable state.
func armLeakTrap(t *Thread) {
	runtime.SetFinalizer(t, func(t *Thread) {
		if t.state == stateJoinable {
			invariant.Violationf("Thread", "joinable thread handle dropped without Join or Detach")
		}
	})
}

func disarmLeakTrap(t *Thread) {
	runtime.SetFinalizer(t, nil)
}
