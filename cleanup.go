package nativekit

import (
	"sync"
)

// CleanupNotifier tracks objects whose lifetime is bounded by an owner and
// runs their cleanup callbacks when the owner is torn down. Owners locate
// their notifier through FindByOwner; at most one notifier exists per owner.
//
// The notifier's lock is the "cleanup lock" of the teardown protocol: it is
// only ever held for map mutation, never across a cleanup callback, so a
// callback may freely unregister other objects (or itself) while cleanup is
// running elsewhere.
type CleanupNotifier struct {
	owner any

	mu       sync.Mutex
	cleanups map[any]func(object any)
	order    []any // registration order; cleanup runs in reverse
}

var (
	notifiersMu sync.Mutex
	notifiers   map[any]*CleanupNotifier
)

// NewCleanupNotifier creates the notifier for owner and makes it findable
// via FindByOwner. Creating a second notifier for the same owner returns the
// existing one.
func NewCleanupNotifier(owner any) *CleanupNotifier {
	notifiersMu.Lock()
	defer notifiersMu.Unlock()
	if notifiers == nil {
		notifiers = make(map[any]*CleanupNotifier)
	}
	if n, ok := notifiers[owner]; ok {
		return n
	}
	n := &CleanupNotifier{
		owner:    owner,
		cleanups: make(map[any]func(any)),
	}
	notifiers[owner] = n
	return n
}

// FindByOwner returns the notifier registered for owner, or nil.
func FindByOwner(owner any) *CleanupNotifier {
	notifiersMu.Lock()
	defer notifiersMu.Unlock()
	return notifiers[owner]
}

// RegisterObject installs cleanup to run for object when the owner is torn
// down. Re-registering an object replaces its callback.
func (n *CleanupNotifier) RegisterObject(object any, cleanup func(object any)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.cleanups[object]; !ok {
		n.order = append(n.order, object)
	}
	n.cleanups[object] = cleanup
}

// UnregisterObject removes object's cleanup callback. Unknown objects are
// ignored, which makes explicit destruction idempotent against the owner's
// teardown hook.
func (n *CleanupNotifier) UnregisterObject(object any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.cleanups, object)
}

// CleanupAll runs every registered cleanup callback, most recently
// registered first, and clears the registry. Callbacks run without the
// notifier lock held.
func (n *CleanupNotifier) CleanupAll() {
	n.mu.Lock()
	order := n.order
	cleanups := n.cleanups
	n.order = nil
	n.cleanups = make(map[any]func(any))
	n.mu.Unlock()

	for i := len(order) - 1; i >= 0; i-- {
		object := order[i]
		if cleanup, ok := cleanups[object]; ok {
			cleanup(object)
		}
	}
}

// Close runs CleanupAll and removes the notifier from the owner index.
func (n *CleanupNotifier) Close() {
	n.CleanupAll()

	notifiersMu.Lock()
	defer notifiersMu.Unlock()
	if notifiers[n.owner] == n {
		delete(notifiers, n.owner)
	}
	if len(notifiers) == 0 {
		notifiers = nil
	}
}
