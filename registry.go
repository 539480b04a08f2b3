package nativekit

import (
	"sync"

	"github.com/obinnaokechukwu/nativekit/status"
)

// The instance registry maps an owning App to at most one live Client,
// process-wide. A single lock guards all mutations and is held across
// lookup, construction and insertion, so no two goroutines can both
// construct a client for the same App. The lock is never held across a call
// into user-supplied callbacks.
var (
	clientsMu sync.Mutex
	clients   map[*App]*Client // nil until first use; freed when empty
)

// clientCache returns the backing map, allocating it on first use.
// Caller holds clientsMu.
func clientCache() map[*App]*Client {
	if clients == nil {
		clients = make(map[*App]*Client)
	}
	return clients
}

// removeInstanceLocked erases app's registry entry. If the registry becomes
// empty its backing storage is released. Caller holds clientsMu.
func removeInstanceLocked(app *App) {
	if clients == nil {
		return
	}
	delete(clients, app)
	if len(clients) == 0 {
		clients = nil
	}
}

// GetInstance returns the client for app, constructing it on first call.
// Every call with the same app returns the identical instance until it is
// destroyed. Construction failures leave no registry entry and no live
// resources behind.
//
// The client registers a teardown hook on the app: if it is still alive
// when app.Close runs, it is destroyed automatically (with a warning — the
// client should be destroyed before the App it depends on).
func GetInstance(app *App) (*Client, error) {
	if app == nil {
		return nil, status.Errorf(status.InvalidArgument, "GetInstance",
			"app cannot be nil; create one with nativekit.NewApp")
	}

	clientsMu.Lock()
	defer clientsMu.Unlock()

	cache := clientCache()
	if c, ok := cache[app]; ok {
		return c, nil
	}

	// Initialization check before caching; a closed app cannot own a
	// client.
	if app.Closed() {
		removeInstanceLocked(app)
		return nil, ErrAppClosed
	}

	c := newClient(app)
	if n := FindByOwner(app); n != nil {
		n.RegisterObject(c, func(object any) {
			cl := object.(*Client)
			logf(LogWarning,
				"client for app %q should be destroyed before the app it depends upon", cl.app.Name())
			cl.Destroy()
		})
	}
	cache[app] = c
	return c, nil
}
