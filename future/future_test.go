package future

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obinnaokechukwu/nativekit/internal/invariant"
	"github.com/obinnaokechukwu/nativekit/status"
	"github.com/obinnaokechukwu/nativekit/thread"
)

func TestOnCompletionBeforeResolveFiresExactlyOnce(t *testing.T) {
	p, f := New[int]()

	var (
		mu    sync.Mutex
		calls int
		got   int
	)
	f.OnCompletion(func(v int, err error) {
		mu.Lock()
		calls++
		got = v
		mu.Unlock()
		require.NoError(t, err)
	})

	p.Resolve(42)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 42, got)
}

func TestOnCompletionAfterResolveFiresSynchronously(t *testing.T) {
	p, f := New[string]()
	p.Resolve("done")

	fired := false
	f.OnCompletion(func(v string, err error) {
		fired = true
		assert.Equal(t, "done", v)
		assert.NoError(t, err)
	})

	// Synchronous on the registering goroutine: no waiting needed.
	assert.True(t, fired)
}

func TestCompletionRunsOnResolvingThread(t *testing.T) {
	p, f := New[int]()

	var completionID thread.Id
	done := make(chan struct{})
	f.OnCompletion(func(int, error) {
		completionID = thread.CurrentId()
		close(done)
	})

	var resolverID thread.Id
	th := thread.New(func() {
		resolverID = thread.CurrentId()
		p.Resolve(1)
	})
	th.Join()
	<-done

	assert.Equal(t, resolverID, completionID)
	assert.False(t, thread.IsCurrentThread(completionID))
}

func TestResolveTwiceViolatesAndKeepsFirstOutcome(t *testing.T) {
	var got *invariant.Violation
	prev := invariant.SetHandler(func(v *invariant.Violation) { got = v })
	defer invariant.SetHandler(prev)

	p, f := New[int]()
	p.Resolve(1)
	p.Resolve(2)

	require.NotNil(t, got)
	assert.Equal(t, "Promise.Resolve", got.Op)

	v, err, ok := f.Result()
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, 1, v, "first resolution must win")
}

func TestFailAfterResolveViolatesAndKeepsOutcome(t *testing.T) {
	var got *invariant.Violation
	prev := invariant.SetHandler(func(v *invariant.Violation) { got = v })
	defer invariant.SetHandler(prev)

	p, f := New[int]()
	p.Resolve(7)
	p.Fail(errors.New("late failure"))

	require.NotNil(t, got)
	assert.Equal(t, "Promise.Fail", got.Op)
	assert.Equal(t, Succeeded, f.Status())
}

func TestFailNilErrorViolates(t *testing.T) {
	var got *invariant.Violation
	prev := invariant.SetHandler(func(v *invariant.Violation) { got = v })
	defer invariant.SetHandler(prev)

	p, f := New[int]()
	p.Fail(nil)

	require.NotNil(t, got)
	assert.Equal(t, "Promise.Fail", got.Op)
	assert.Equal(t, Pending, f.Status())
}

func TestFailDeliversError(t *testing.T) {
	p, f := New[int]()
	p.Fail(status.Errorf(status.EngineFailure, "op", "engine said no"))

	_, err := f.Wait(context.Background())
	require.Error(t, err)
	assert.Equal(t, status.EngineFailure, status.CodeOf(err))
	assert.Equal(t, Failed, f.Status())
}

func TestProgressPrecedesTerminalOutcome(t *testing.T) {
	p, f := New[int]()

	var events []int
	f.OnProgress(func(v int) { events = append(events, v) })
	f.OnCompletion(func(v int, err error) { events = append(events, 100+v) })

	p.Progress(1)
	p.Progress(2)
	p.Resolve(3)
	p.Progress(4) // after terminal: discarded

	assert.Equal(t, []int{1, 2, 103}, events)
}

func TestOnProgressAfterResolveIsNoOp(t *testing.T) {
	p, f := New[int]()
	p.Resolve(1)

	called := false
	f.OnProgress(func(int) { called = true })
	p.Progress(9)

	assert.False(t, called)
}

func TestWaitBlocksUntilResolution(t *testing.T) {
	p, f := New[bool]()

	th := thread.New(func() {
		time.Sleep(20 * time.Millisecond)
		p.Resolve(true)
	})
	defer th.Join()

	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, v)
}

func TestWaitHonorsContext(t *testing.T) {
	_, f := New[int]()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Pending, f.Status(), "abandoning Wait must not resolve the slot")
}

func TestResultWhilePending(t *testing.T) {
	_, f := New[int]()
	_, _, ok := f.Result()
	assert.False(t, ok)
}

func TestCompletedAndFailedConstructors(t *testing.T) {
	c := Completed(5)
	v, err, ok := c.Result()
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, 5, v)
	assert.Equal(t, Succeeded, c.Status())

	fe := status.Errorf(status.NotFound, "op", "missing")
	fl := FailedWith[int](fe)
	assert.Equal(t, Failed, fl.Status())
	_, err, ok = fl.Result()
	require.True(t, ok)
	assert.Equal(t, status.NotFound, status.CodeOf(err))
}

func TestMultipleCompletionCallbacksEachFireOnce(t *testing.T) {
	p, f := New[int]()

	var order []int
	f.OnCompletion(func(int, error) { order = append(order, 1) })
	f.OnCompletion(func(int, error) { order = append(order, 2) })
	p.Resolve(0)

	assert.Equal(t, []int{1, 2}, order)
}

func TestConcurrentWaitersAllObserveOutcome(t *testing.T) {
	p, f := New[int]()

	const waiters = 8
	results := make(chan int, waiters)
	var wg sync.WaitGroup
	wg.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			defer wg.Done()
			v, err := f.Wait(context.Background())
			if err == nil {
				results <- v
			}
		}()
	}

	p.Resolve(11)
	wg.Wait()
	close(results)

	count := 0
	for v := range results {
		count++
		assert.Equal(t, 11, v)
	}
	assert.Equal(t, waiters, count)
}
