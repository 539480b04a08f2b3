package nativekit

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/obinnaokechukwu/nativekit/future"
	"github.com/obinnaokechukwu/nativekit/internal/engine"
	"github.com/obinnaokechukwu/nativekit/status"
)

// ClientState is delivered to state listeners.
type ClientState int32

const (
	// StateActive: the client accepts operations.
	StateActive ClientState = iota
	// StateShuttingDown: a Shutdown operation has been accepted.
	StateShuttingDown
	// StateTerminated: the Shutdown operation completed.
	StateTerminated
)

// clientOp enumerates the client-level asynchronous operation kinds.
type clientOp int

const (
	kindWaitPending clientOp = iota
	kindShutdown
)

// Client is one SDK instance, owned by an App. Instances are obtained
// through GetInstance; at most one exists per App at any instant.
//
// All asynchronous methods return immediately with a future; the work runs
// on the engine's threads or the in-process dispatcher's pump thread, and
// completion callbacks are delivered there, not on the calling goroutine.
type Client struct {
	app        *App
	dispatcher dispatcher
	factory    *future.Factory[clientOp]

	// cleanup tracks dependent objects (document references); its lock is
	// the cleanup lock of the teardown protocol.
	cleanup *CleanupNotifier

	destroyed atomic.Bool

	// listenerMu guards the listener table and nothing else. It is never
	// held while a listener runs, and the teardown path takes it strictly
	// before the cleanup lock (see destroyLocked).
	listenerMu   sync.Mutex
	listeners    map[int]func(ClientState)
	nextListener int
}

func newClient(app *App) *Client {
	c := &Client{
		app:       app,
		listeners: make(map[int]func(ClientState)),
		factory: future.NewFactory(map[clientOp]future.Policy{
			kindWaitPending: future.Concurrent,
			kindShutdown:    future.Singular,
		}),
	}
	c.cleanup = NewCleanupNotifier(c)
	if err := engine.Load(); err == nil {
		bridgeEngineLogs()
		c.dispatcher = newEngineDispatcher()
	} else {
		c.dispatcher = newLocalDispatcher()
	}
	return c
}

// App returns the owning context.
func (c *Client) App() *App { return c.app }

// Destroyed reports whether the client has been torn down.
func (c *Client) Destroyed() bool { return c.destroyed.Load() }

// AddStateListener registers fn for client state transitions and returns a
// registration used to remove it. Listeners may be invoked on engine or
// dispatcher threads, and must not block.
func (c *Client) AddStateListener(fn func(ClientState)) (*ListenerRegistration, error) {
	if fn == nil {
		return nil, status.Errorf(status.InvalidArgument, "Client.AddStateListener", "listener cannot be nil")
	}
	if c.destroyed.Load() {
		return nil, status.Errorf(status.ClientDestroyed, "Client.AddStateListener", "client is destroyed")
	}
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	return &ListenerRegistration{client: c, id: id}, nil
}

// notifyListeners delivers state to every registered listener. The listener
// lock is released before any listener runs, so a listener may remove
// itself (or any other) without deadlocking; a listener removed while a
// notification is in flight may still observe that one notification.
func (c *Client) notifyListeners(state ClientState) {
	c.listenerMu.Lock()
	fns := make([]func(ClientState), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenerMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// clearListeners mutes every listener. Part of the teardown protocol.
func (c *Client) clearListeners() {
	c.listenerMu.Lock()
	c.listeners = make(map[int]func(ClientState))
	c.listenerMu.Unlock()
}

// WaitForPending returns a future that succeeds once every operation
// accepted before it has completed.
func (c *Client) WaitForPending() *future.Future[struct{}] {
	return c.startVoid(kindWaitPending, opWaitPending, "Client.WaitForPending", nil)
}

// Shutdown drains the backend and transitions listeners through
// StateShuttingDown and StateTerminated. Shutdown is a singular operation:
// a second call while one is pending returns an already-failed future with
// CodeInProgress and does not disturb the first.
func (c *Client) Shutdown() *future.Future[struct{}] {
	return c.startVoid(kindShutdown, opShutdown, "Client.Shutdown", func() {
		c.notifyListeners(StateTerminated)
	})
}

// startVoid allocates a slot for a client-level operation, dispatches it,
// and hands the resolving capability to the dispatch completion. onSuccess,
// if set, runs before the resolution is delivered.
func (c *Client) startVoid(kind clientOp, op opCode, opName string, onSuccess func()) *future.Future[struct{}] {
	if c.destroyed.Load() {
		return future.FailedWith[struct{}](status.Errorf(status.ClientDestroyed, opName, "client is destroyed"))
	}
	p, fut := future.Start[struct{}, clientOp](c.factory, kind)
	if p == nil {
		return fut
	}
	if kind == kindShutdown {
		c.notifyListeners(StateShuttingDown)
	}
	complete := func(code int32, msg string, _ []byte) {
		if code != 0 {
			p.Fail(status.Errorf(statusCode(code), opName, "%s", msg))
			return
		}
		if onSuccess != nil {
			onSuccess()
		}
		p.Resolve(struct{}{})
	}
	if err := c.dispatcher.dispatch(op, "", nil, complete); err != nil {
		p.Fail(dispatchError(opName, err))
	}
	return fut
}

// Destroy tears the client down and removes it from the instance registry.
// Idempotent, including against the App's automatic teardown hook.
func (c *Client) Destroy() {
	clientsMu.Lock()
	defer clientsMu.Unlock()
	c.destroyLocked()
}

// destroyLocked runs the teardown protocol. Caller holds clientsMu.
//
// The ordering is deliberate and load-bearing: listeners are cleared
// *before* cleanup runs. Cleanup holds the cleanup lock and would otherwise
// need the listener lock to mute listeners, while a listener callback on
// another thread holding the listener lock may be unregistering an object
// from cleanup, needing the cleanup lock — clearing listeners first
// collapses that cross-lock dependency.
func (c *Client) destroyLocked() {
	if c.destroyed.Swap(true) {
		return
	}

	if n := FindByOwner(c.app); n != nil {
		n.UnregisterObject(c)
	}

	c.clearListeners()

	// Force cleanup of dependent objects to happen before the dispatcher
	// goes away.
	c.cleanup.Close()
	c.dispatcher.close()

	removeInstanceLocked(c.app)
}

// dispatchError converts a synchronous dispatcher rejection to the coded
// error carried by the operation's failed future.
func dispatchError(opName string, err error) error {
	switch {
	case errors.Is(err, ErrClientDestroyed):
		return status.Errorf(status.ClientDestroyed, opName, "client is destroyed")
	case errors.Is(err, ErrBusy):
		return status.Errorf(status.Unknown, opName, "dispatcher is at capacity")
	default:
		return status.Errorf(status.EngineFailure, opName, "%v", err)
	}
}

// ListenerRegistration identifies one registered state listener.
type ListenerRegistration struct {
	client *Client
	id     int
}

// Remove unregisters the listener. Safe to call from inside the listener
// itself, concurrently with Destroy, and more than once.
func (r *ListenerRegistration) Remove() {
	if r == nil || r.client == nil {
		return
	}
	r.client.listenerMu.Lock()
	delete(r.client.listeners, r.id)
	r.client.listenerMu.Unlock()
}
