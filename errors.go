package nativekit

import (
	"errors"

	"github.com/obinnaokechukwu/nativekit/status"
)

// Error is a coded runtime failure carried by a failed future.
// It contains the failure classification and a human-readable message.
type Error = status.Error

// Code classifies a runtime failure.
type Code = status.Code

// Failure codes re-exported from status.
const (
	CodeOK              = status.OK
	CodeUnknown         = status.Unknown
	CodeInvalidArgument = status.InvalidArgument
	CodeInProgress      = status.InProgress
	CodeClientDestroyed = status.ClientDestroyed
	CodeEngineFailure   = status.EngineFailure
	CodeNotFound        = status.NotFound
)

// Common errors
var (
	// ErrEngineNotLoaded indicates the native engine library is not loaded.
	ErrEngineNotLoaded = errors.New("nativekit: engine library not loaded")

	// ErrClientDestroyed indicates the client has been torn down.
	ErrClientDestroyed = errors.New("nativekit: client is destroyed")

	// ErrAppClosed indicates the owning app context has been closed.
	ErrAppClosed = errors.New("nativekit: app is closed")

	// ErrBusy indicates the dispatcher rejected new work because its
	// in-flight budget is exhausted.
	ErrBusy = errors.New("nativekit: dispatcher is at capacity")
)

// ErrCode returns the failure code carried by an error, OK for nil and
// Unknown for uncoded errors.
func ErrCode(err error) Code {
	return status.CodeOf(err)
}

// IsInProgress reports whether err is an operation-already-in-progress
// rejection of a singular operation kind.
func IsInProgress(err error) bool { return status.IsInProgress(err) }

// IsInvalidArgument reports whether err is an argument validation failure.
func IsInvalidArgument(err error) bool { return status.IsInvalidArgument(err) }

// IsNotFound reports whether err means the addressed entity does not exist.
func IsNotFound(err error) bool { return status.IsNotFound(err) }

// IsClientDestroyed reports whether err means the operation's client was
// already torn down.
func IsClientDestroyed(err error) bool { return status.IsClientDestroyed(err) }
