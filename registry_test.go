package nativekit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestGetInstanceReturnsSameClient(t *testing.T) {
	app := NewApp("registry-same")
	defer app.Close()

	c1, err := GetInstance(app)
	require.NoError(t, err)
	c2, err := GetInstance(app)
	require.NoError(t, err)

	assert.Same(t, c1, c2)
}

func TestGetInstanceNilApp(t *testing.T) {
	c, err := GetInstance(nil)
	assert.Nil(t, c)
	require.Error(t, err)
	assert.True(t, IsInvalidArgument(err))
}

func TestGetInstanceClosedApp(t *testing.T) {
	app := NewApp("registry-closed")
	app.Close()

	c, err := GetInstance(app)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrAppClosed)
}

func TestGetInstanceDistinctApps(t *testing.T) {
	appA := NewApp("registry-a")
	defer appA.Close()
	appB := NewApp("registry-b")
	defer appB.Close()

	ca, err := GetInstance(appA)
	require.NoError(t, err)
	cb, err := GetInstance(appB)
	require.NoError(t, err)

	assert.NotSame(t, ca, cb)
}

func TestConcurrentGetInstanceConstructsOnce(t *testing.T) {
	app := NewApp("registry-race")
	defer app.Close()

	const callers = 16
	results := make([]*Client, callers)

	var g errgroup.Group
	for i := 0; i < callers; i++ {
		i := i
		g.Go(func() error {
			c, err := GetInstance(app)
			results[i] = c
			return err
		})
	}
	require.NoError(t, g.Wait())

	first := results[0]
	require.NotNil(t, first)
	for _, c := range results {
		assert.Same(t, first, c)
	}

	clientsMu.Lock()
	assert.Len(t, clients, 1, "exactly one construction must have happened")
	clientsMu.Unlock()
}

func TestDestroyRemovesEntryAndFreesEmptyRegistry(t *testing.T) {
	app := NewApp("registry-destroy")
	defer app.Close()

	c, err := GetInstance(app)
	require.NoError(t, err)

	c.Destroy()
	assert.True(t, c.Destroyed())

	clientsMu.Lock()
	assert.Nil(t, clients, "empty registry must release its backing storage")
	clientsMu.Unlock()

	// A fresh GetInstance constructs a new client.
	c2, err := GetInstance(app)
	require.NoError(t, err)
	assert.NotSame(t, c, c2)
	c2.Destroy()
}

func TestDestroyIsIdempotent(t *testing.T) {
	app := NewApp("registry-idem")
	defer app.Close()

	c, err := GetInstance(app)
	require.NoError(t, err)

	c.Destroy()
	c.Destroy()
	assert.True(t, c.Destroyed())
}

func TestAppCloseDestroysLiveClient(t *testing.T) {
	app := NewApp("registry-appclose")

	c, err := GetInstance(app)
	require.NoError(t, err)
	require.False(t, c.Destroyed())

	app.Close()

	assert.True(t, c.Destroyed(), "app teardown hook must destroy the live client")
	clientsMu.Lock()
	_, still := clients[app]
	clientsMu.Unlock()
	assert.False(t, still)
}

func TestAppCloseAfterExplicitDestroy(t *testing.T) {
	app := NewApp("registry-appclose-idem")

	c, err := GetInstance(app)
	require.NoError(t, err)

	c.Destroy()
	app.Close() // hook already unregistered; must be a no-op
	assert.True(t, c.Destroyed())
}

func TestDestroyCompletesWhileListenerRuns(t *testing.T) {
	app := NewApp("registry-deadlock")
	defer app.Close()

	c, err := GetInstance(app)
	require.NoError(t, err)

	// A listener that removes itself while notifications are being pumped
	// from another thread, racing Destroy. This is the lock-inversion
	// scenario the teardown ordering exists for.
	reg, err := c.AddStateListener(func(ClientState) {})
	require.NoError(t, err)

	var reg2 *ListenerRegistration
	reg2, err = c.AddStateListener(func(ClientState) {
		reg2.Remove()
	})
	require.NoError(t, err)

	stop := make(chan struct{})
	pumping := make(chan struct{})
	go func() {
		close(pumping)
		for {
			select {
			case <-stop:
				return
			default:
				c.notifyListeners(StateActive)
			}
		}
	}()
	<-pumping

	done := make(chan struct{})
	go func() {
		c.Destroy()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Destroy deadlocked against a running listener")
	}
	close(stop)
	reg.Remove() // must remain safe after Destroy
}
