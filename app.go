package nativekit

import (
	"sync"
	"sync/atomic"
)

// DefaultAppName is the name used by NewDefaultApp.
const DefaultAppName = "[DEFAULT]"

// App is the owning context for SDK instances. Every client is keyed on the
// App that created it; closing the App tears down any client that is still
// alive through its cleanup notifier.
type App struct {
	name string

	closed    atomic.Bool
	closeOnce sync.Once
	notifier  *CleanupNotifier
}

// NewApp creates an owning context with the given name.
func NewApp(name string) *App {
	a := &App{name: name}
	a.notifier = NewCleanupNotifier(a)
	return a
}

// NewDefaultApp creates an owning context with DefaultAppName.
func NewDefaultApp() *App {
	return NewApp(DefaultAppName)
}

// Name returns the app's name.
func (a *App) Name() string { return a.name }

// Closed reports whether Close has been called.
func (a *App) Closed() bool { return a.closed.Load() }

// Close tears down the app: every object registered with the app's cleanup
// notifier is cleaned up (destroying any still-live client), then the
// notifier itself is released. Idempotent.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.closed.Store(true)
		a.notifier.Close()
	})
}
