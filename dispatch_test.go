package nativekit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/obinnaokechukwu/nativekit/status"
)

func mustPack(t *testing.T, doc map[string]any) []byte {
	t.Helper()
	b, err := msgpack.Marshal(doc)
	require.NoError(t, err)
	return b
}

func mustUnpack(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, msgpack.Unmarshal(b, &doc))
	return doc
}

func TestMergeDocuments(t *testing.T) {
	base := mustPack(t, map[string]any{"name": "room", "open": true})
	patch := mustPack(t, map[string]any{"open": false, "topic": "news"})

	merged, err := mergeDocuments(base, patch)
	require.NoError(t, err)

	doc := mustUnpack(t, merged)
	assert.Equal(t, "room", doc["name"])
	assert.Equal(t, false, doc["open"])
	assert.Equal(t, "news", doc["topic"])
}

func TestMergeDocumentsCorruptInput(t *testing.T) {
	good := mustPack(t, map[string]any{"a": "b"})

	_, err := mergeDocuments([]byte{0xc1}, good)
	assert.Error(t, err)
	_, err = mergeDocuments(good, []byte{0xc1})
	assert.Error(t, err)
}

func TestLocalDispatcherCompletesInOrder(t *testing.T) {
	d := newLocalDispatcher()
	defer d.close()

	const n = 10
	results := make(chan int, n)
	for i := 0; i < n; i++ {
		i := i
		err := d.dispatch(opSet, "k", mustPack(t, map[string]any{"v": "x"}),
			func(code int32, _ string, _ []byte) {
				require.Zero(t, code)
				results <- i
			})
		require.NoError(t, err)
	}

	for want := 0; want < n; want++ {
		select {
		case got := <-results:
			assert.Equal(t, want, got, "completions must preserve submission order")
		case <-time.After(5 * time.Second):
			t.Fatal("dispatcher stalled")
		}
	}
}

func TestLocalDispatcherRejectsAfterClose(t *testing.T) {
	d := newLocalDispatcher()
	d.close()
	d.close() // idempotent

	err := d.dispatch(opGet, "k", nil, func(int32, string, []byte) {
		t.Error("completion must not run for a rejected dispatch")
	})
	assert.ErrorIs(t, err, ErrClientDestroyed)
}

func TestLocalDispatcherGetMissing(t *testing.T) {
	d := newLocalDispatcher()
	defer d.close()

	got := make(chan int32, 1)
	require.NoError(t, d.dispatch(opGet, "absent", nil,
		func(code int32, _ string, _ []byte) { got <- code }))

	select {
	case code := <-got:
		assert.Equal(t, int32(status.NotFound), code)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher stalled")
	}
}

func TestStatusCodeMapping(t *testing.T) {
	assert.Equal(t, status.NotFound, statusCode(int32(status.NotFound)))
	assert.Equal(t, status.InProgress, statusCode(int32(status.InProgress)))
	assert.Equal(t, status.Unknown, statusCode(-1))
	assert.Equal(t, status.Unknown, statusCode(1<<20))
}
