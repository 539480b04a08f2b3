package nativekit

import (
	"fmt"
	"log"
	"sync"

	"github.com/obinnaokechukwu/nativekit/internal/engine"
)

// LogLevel represents nativekit log levels, matching the engine's values.
type LogLevel int32

// Log level constants.
const (
	LogDebug   LogLevel = 0 // Stuff for debugging
	LogInfo    LogLevel = 1 // Standard information
	LogWarning LogLevel = 2 // Something unexpected but recovery possible
	LogError   LogLevel = 3 // Something went wrong, recovery possible
	LogQuiet   LogLevel = 4 // Print no output
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch {
	case l <= LogDebug:
		return "debug"
	case l <= LogInfo:
		return "info"
	case l <= LogWarning:
		return "warning"
	case l <= LogError:
		return "error"
	default:
		return "quiet"
	}
}

// LogCallback is called for each nativekit log message, including messages
// produced by the native engine. Callbacks may arrive on engine threads.
type LogCallback func(level LogLevel, message string)

var (
	logMu       sync.Mutex
	logLevel    = LogInfo
	logCallback LogCallback
)

// SetLogLevel sets the minimum level that is delivered to the log callback.
// The threshold is forwarded to the engine when it is loaded.
func SetLogLevel(level LogLevel) {
	logMu.Lock()
	logLevel = level
	logMu.Unlock()
	engine.SetLogLevel(int32(level))
}

// SetLogCallback sets a custom log handler. Pass nil to restore the default
// (the standard library logger).
func SetLogCallback(cb LogCallback) {
	logMu.Lock()
	logCallback = cb
	logMu.Unlock()
}

func logf(level LogLevel, format string, args ...any) {
	logMu.Lock()
	threshold := logLevel
	cb := logCallback
	logMu.Unlock()

	if level < threshold || threshold >= LogQuiet {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if cb != nil {
		cb(level, msg)
		return
	}
	log.Printf("nativekit [%s] %s", level, msg)
}

// bridgeEngineLogs routes the engine's native log stream through the same
// callback/threshold as the module's own messages.
func bridgeEngineLogs() {
	engine.SetLogCallback(func(level int32, msg string) {
		logf(LogLevel(level), "%s", msg)
	})
}
