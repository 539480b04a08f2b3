//go:build !((linux || darwin) && (amd64 || arm64))

package engine

import "errors"

// Stub for platforms without purego Dlopen support: the engine never loads
// and clients always use the in-process dispatcher.

// ErrNotLoaded is returned when engine calls are made before a successful Load.
var ErrNotLoaded = errors.New("nativekit: engine library not loaded")

// ErrNotFound is returned when the engine library cannot be located.
var ErrNotFound = errors.New("nativekit: engine library not found")

// Load reports that the engine is unavailable on this platform.
func Load() error { return ErrNotFound }

// IsLoaded returns false: the engine never loads on this platform.
func IsLoaded() bool { return false }

// Path returns "".
func Path() string { return "" }

// Status describes the platform limitation.
func Status() string { return "not supported on this platform" }

// Version returns 0.
func Version() uint32 { return 0 }

// Dispatch always fails with ErrNotLoaded.
func Dispatch(op int32, path string, payload []byte, handle uintptr) error {
	return ErrNotLoaded
}

// SetLogCallback is a no-op.
func SetLogCallback(func(level int32, msg string)) {}

// SetLogLevel is a no-op.
func SetLogLevel(int32) {}
