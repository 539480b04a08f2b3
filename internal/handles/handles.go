// Package handles pins completion state for asynchronous operations that
// have been dispatched across the native-call boundary.
//
// Native code cannot hold Go pointers, so when an operation is handed to the
// engine, its completion closure is registered here and the resulting
// uintptr handle travels through native memory instead. The engine's
// completion callback looks the closure up by handle, fires it, and releases
// the pin. An entry therefore lives exactly from dispatch to completion
// delivery; a nonzero Count after quiescence indicates a producer that never
// resolved its slot.
package handles

import (
	"sync"
)

// Completion is the pinned continuation for one dispatched operation. code
// is the engine's status code (0 on success), msg its error message, and
// payload the msgpack-encoded result document, if any.
type Completion func(code int32, msg string, payload []byte)

var (
	mu     sync.RWMutex
	pinned = make(map[uintptr]Completion)
	nextID uintptr = 1
)

// Register pins fn and returns a handle that can be stored in native memory.
// The pin holds until Take or Unregister.
//
// Thread-safe.
func Register(fn Completion) uintptr {
	mu.Lock()
	defer mu.Unlock()
	id := nextID
	nextID++
	pinned[id] = fn
	return id
}

// Take removes and returns the completion pinned under id. It returns nil if
// the handle is unknown or was already taken; a completion can be delivered
// at most once no matter how often the native side calls back.
//
// Thread-safe.
func Take(id uintptr) Completion {
	mu.Lock()
	defer mu.Unlock()
	fn := pinned[id]
	delete(pinned, id)
	return fn
}

// Unregister drops a pin without delivering it. Used when dispatch fails
// after registration and the caller resolves the slot itself.
//
// Thread-safe.
func Unregister(id uintptr) {
	mu.Lock()
	defer mu.Unlock()
	delete(pinned, id)
}

// Count returns the number of currently pinned completions. Useful in tests
// for catching leaked (never-resolved) dispatches.
//
// Thread-safe.
func Count() int {
	mu.RLock()
	defer mu.RUnlock()
	return len(pinned)
}
