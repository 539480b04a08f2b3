package future

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obinnaokechukwu/nativekit/internal/invariant"
	"github.com/obinnaokechukwu/nativekit/status"
)

type opKind int

const (
	opLoad opKind = iota
	opGet
	opSet
)

func newTestFactory() *Factory[opKind] {
	return NewFactory(map[opKind]Policy{
		opLoad: Singular,
		opGet:  Concurrent,
		opSet:  Concurrent,
	})
}

func TestSingularKindFailsFastWhileInFlight(t *testing.T) {
	f := newTestFactory()

	p1, f1 := Start[string](f, opLoad)
	require.NotNil(t, p1)
	require.Equal(t, Pending, f1.Status())

	p2, f2 := Start[string](f, opLoad)
	assert.Nil(t, p2)
	require.Equal(t, Failed, f2.Status())
	_, err, ok := f2.Result()
	require.True(t, ok)
	assert.True(t, status.IsInProgress(err))

	// The rejection must not disturb the in-flight slot.
	require.Equal(t, Pending, f1.Status())
	p1.Resolve("loaded")
	v, err := f1.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "loaded", v)
}

func TestSingularKindAllowsNextAfterResolution(t *testing.T) {
	f := newTestFactory()

	p1, _ := Start[string](f, opLoad)
	p1.Resolve("first")

	p2, f2 := Start[string](f, opLoad)
	require.NotNil(t, p2)
	assert.Equal(t, Pending, f2.Status())
	p2.Resolve("second")
}

func TestSingularKindAllowsNextAfterFailure(t *testing.T) {
	f := newTestFactory()

	p1, _ := Start[string](f, opLoad)
	p1.Fail(status.Errorf(status.EngineFailure, "load", "boom"))

	p2, _ := Start[string](f, opLoad)
	require.NotNil(t, p2)
	p2.Resolve("recovered")
}

func TestConcurrentKindAllowsMultipleInFlight(t *testing.T) {
	f := newTestFactory()

	p1, f1 := Start[int](f, opGet)
	p2, f2 := Start[int](f, opGet)
	require.NotNil(t, p1)
	require.NotNil(t, p2)

	p2.Resolve(2)
	p1.Resolve(1)

	v1, _ := f1.Wait(context.Background())
	v2, _ := f2.Wait(context.Background())
	assert.Equal(t, 1, v1)
	assert.Equal(t, 2, v2)
}

func TestKindsAreTrackedIndependently(t *testing.T) {
	f := newTestFactory()

	pLoad, _ := Start[string](f, opLoad)
	pGet, _ := Start[int](f, opGet)
	require.NotNil(t, pLoad)
	require.NotNil(t, pGet)

	assert.True(t, f.Pending(opLoad))
	assert.True(t, f.Pending(opGet))
	assert.False(t, f.Pending(opSet))

	pLoad.Resolve("ok")
	assert.False(t, f.Pending(opLoad))
	assert.True(t, f.Pending(opGet))
	pGet.Resolve(0)
}

func TestUndeclaredKindViolates(t *testing.T) {
	var got *invariant.Violation
	prev := invariant.SetHandler(func(v *invariant.Violation) { got = v })
	defer invariant.SetHandler(prev)

	f := NewFactory(map[opKind]Policy{opGet: Concurrent})
	p, fut := Start[int](f, opLoad)

	require.NotNil(t, got)
	assert.Equal(t, "Factory.Start", got.Op)
	assert.Nil(t, p)
	assert.Equal(t, Failed, fut.Status())
}

func TestLastResult(t *testing.T) {
	f := newTestFactory()

	_, ok := LastResult[int](f, opGet)
	assert.False(t, ok)

	p, started := Start[int](f, opGet)
	last, ok := LastResult[int](f, opGet)
	require.True(t, ok)
	assert.Same(t, started, last)

	p.Resolve(3)
	v, err, done := last.Result()
	require.True(t, done)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}
