// Package status defines the error codes and the coded error type carried by
// failed asynchronous operations. Runtime failures (engine errors, invalid
// arguments, an operation already in flight) surface as a *Error on the
// operation's future; programming errors never do — those go through the
// fatal invariant path instead.
package status

import (
	"errors"
	"fmt"
)

// Code classifies a runtime failure.
type Code int32

const (
	// OK is never carried by an error; it is the code of a succeeded
	// operation.
	OK Code = iota

	// Unknown covers failures the engine did not classify.
	Unknown

	// InvalidArgument: a required argument was nil, empty or malformed.
	// Reported synchronously, before any work is dispatched.
	InvalidArgument

	// InProgress: the operation kind is singular and one is already in
	// flight for this owner. The in-flight operation is unaffected.
	InProgress

	// ClientDestroyed: the owning client was torn down before the call.
	ClientDestroyed

	// EngineFailure: the native engine reported an error.
	EngineFailure

	// NotFound: the addressed entity does not exist.
	NotFound
)

// String returns the identifier of the code.
func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case Unknown:
		return "unknown"
	case InvalidArgument:
		return "invalid_argument"
	case InProgress:
		return "in_progress"
	case ClientDestroyed:
		return "client_destroyed"
	case EngineFailure:
		return "engine_failure"
	case NotFound:
		return "not_found"
	}
	return fmt.Sprintf("code(%d)", int32(c))
}

// Error is a runtime failure with a code and a human-readable message.
type Error struct {
	Code    Code   // Failure classification
	Message string // Human-readable message
	Op      string // Operation that failed
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("nativekit %s: %s (%s)", e.Op, e.Message, e.Code)
}

// Errorf builds a coded error.
func Errorf(code Code, op, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Op: op}
}

// CodeOf returns the code carried by err, or Unknown for a non-nil error
// without one. A nil error maps to OK.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return Unknown
}

// IsInProgress reports whether err carries InProgress.
func IsInProgress(err error) bool { return CodeOf(err) == InProgress }

// IsInvalidArgument reports whether err carries InvalidArgument.
func IsInvalidArgument(err error) bool { return CodeOf(err) == InvalidArgument }

// IsClientDestroyed reports whether err carries ClientDestroyed.
func IsClientDestroyed(err error) bool { return CodeOf(err) == ClientDestroyed }

// IsNotFound reports whether err carries NotFound.
func IsNotFound(err error) bool { return CodeOf(err) == NotFound }
