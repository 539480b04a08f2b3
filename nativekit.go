// Package nativekit is the runtime core for SDKs that wrap a precompiled
// native engine. It provides the process-wide client registry with ordered
// teardown, the owning-context cleanup protocol, and a document-style client
// surface whose asynchronous operations complete through the future package.
//
// The actual work behind each operation is performed either by the optional
// nkengine native library (reached through purego, completions arriving on
// engine threads) or by an in-process dispatcher pumping an owned background
// thread. Both paths honor the same contract: every accepted operation's
// completion slot is resolved exactly once.
package nativekit

import (
	"github.com/obinnaokechukwu/nativekit/internal/engine"
)

// Init loads the native engine if it is available. It is called
// automatically on first client construction, but can be called explicitly
// to check for engine availability. Safe to call multiple times.
//
// Init failing is not fatal: clients fall back to the in-process dispatcher.
func Init() error {
	err := engine.Load()
	if err == nil {
		bridgeEngineLogs()
	}
	return err
}

// IsEngineLoaded returns true if the native engine library has been
// successfully loaded.
func IsEngineLoaded() bool {
	return engine.IsLoaded()
}

// EngineVersion returns the loaded engine's version, or 0 without an engine.
func EngineVersion() uint32 {
	return engine.Version()
}

// EngineStatus returns a human-readable engine load status for diagnostics.
func EngineStatus() string {
	return engine.Status()
}
