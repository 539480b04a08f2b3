// Package invariant is the single reporting path for programming errors
// inside nativekit: double-join, double-resolve, leaked joinable threads and
// similar misuse. These are not recoverable runtime failures; continuing
// would operate on corrupted state (dangling OS threads, double-delivered
// results), so the default handler terminates the offending goroutine with a
// panic that the library never recovers.
//
// Tests install a replacement handler to assert that a violation fired
// without killing the test process.
package invariant

import (
	"fmt"
	"sync"
)

// Violation describes a detected invariant violation.
type Violation struct {
	Op     string // API entry point that was misused
	Reason string // Human-readable description of the misuse
}

// Error implements the error interface so a Violation can cross test
// recover() boundaries as a value.
func (v *Violation) Error() string {
	return fmt.Sprintf("nativekit: invariant violation in %s: %s", v.Op, v.Reason)
}

// Handler receives every detected violation. A handler must not return
// control to the misusing call site expecting normal operation; the default
// handler panics.
type Handler func(*Violation)

var (
	mu      sync.RWMutex
	handler Handler = func(v *Violation) { panic(v) }
)

// SetHandler replaces the violation handler and returns the previous one.
// Intended for tests; production code must leave the default in place.
func SetHandler(h Handler) Handler {
	mu.Lock()
	defer mu.Unlock()
	prev := handler
	if h == nil {
		h = func(v *Violation) { panic(v) }
	}
	handler = h
	return prev
}

// Violationf reports a violation in op. It only returns if a test handler
// chooses to return; callers must treat the call as terminal and bail out
// immediately after it.
func Violationf(op, format string, args ...any) {
	mu.RLock()
	h := handler
	mu.RUnlock()
	h(&Violation{Op: op, Reason: fmt.Sprintf(format, args...)})
}
