package nativekit

import (
	"sync/atomic"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/obinnaokechukwu/nativekit/future"
	"github.com/obinnaokechukwu/nativekit/status"
)

// asyncAPI enumerates a document reference's asynchronous operation kinds.
type asyncAPI int

const (
	apiGet asyncAPI = iota
	apiSet
	apiUpdate
	apiDelete
)

// Snapshot is the materialized contents of a document at completion time.
type Snapshot struct {
	Path string
	Data map[string]any
}

// DocRef addresses one document held by the backend. References are created
// by Client.Doc and become inert when their client is destroyed: every
// operation on a muted reference returns an already-failed future instead
// of touching torn-down state.
type DocRef struct {
	client  *Client
	path    string
	muted   atomic.Bool
	factory *future.Factory[asyncAPI]
}

// Doc returns a reference to the document at path. The path must be
// non-empty; an invalid path fails synchronously.
func (c *Client) Doc(path string) (*DocRef, error) {
	if path == "" {
		return nil, status.Errorf(status.InvalidArgument, "Client.Doc", "document path cannot be empty")
	}
	if c.destroyed.Load() {
		return nil, status.Errorf(status.ClientDestroyed, "Client.Doc", "client is destroyed")
	}
	ref := &DocRef{
		client: c,
		path:   path,
		factory: future.NewFactory(map[asyncAPI]future.Policy{
			apiGet:    future.Concurrent,
			apiSet:    future.Concurrent,
			apiUpdate: future.Concurrent,
			apiDelete: future.Concurrent,
		}),
	}
	c.cleanup.RegisterObject(ref, func(object any) {
		object.(*DocRef).mute()
	})
	return ref, nil
}

// Path returns the document path.
func (r *DocRef) Path() string { return r.path }

func (r *DocRef) mute() { r.muted.Store(true) }

func (r *DocRef) alive(opName string) error {
	if r.muted.Load() || r.client.destroyed.Load() {
		return status.Errorf(status.ClientDestroyed, opName, "client is destroyed")
	}
	return nil
}

// Get fetches the document. The future fails with CodeNotFound if no
// document exists at the path.
func (r *DocRef) Get() *future.Future[Snapshot] {
	const opName = "DocRef.Get"
	if err := r.alive(opName); err != nil {
		return future.FailedWith[Snapshot](err)
	}
	p, fut := future.Start[Snapshot](r.factory, apiGet)
	if p == nil {
		return fut
	}
	complete := func(code int32, msg string, payload []byte) {
		if code != 0 {
			p.Fail(status.Errorf(statusCode(code), opName, "%s", msg))
			return
		}
		var data map[string]any
		if err := msgpack.Unmarshal(payload, &data); err != nil {
			p.Fail(status.Errorf(status.EngineFailure, opName, "decoding document: %v", err))
			return
		}
		p.Resolve(Snapshot{Path: r.path, Data: data})
	}
	if err := r.client.dispatcher.dispatch(opGet, r.path, nil, complete); err != nil {
		p.Fail(dispatchError(opName, err))
	}
	return fut
}

// Set writes the document, replacing any existing contents. data must be
// non-empty.
func (r *DocRef) Set(data map[string]any) *future.Future[struct{}] {
	return r.write("DocRef.Set", apiSet, opSet, data)
}

// Update merges fields into an existing document. The future fails with
// CodeNotFound if the document does not exist.
func (r *DocRef) Update(fields map[string]any) *future.Future[struct{}] {
	return r.write("DocRef.Update", apiUpdate, opUpdate, fields)
}

func (r *DocRef) write(opName string, kind asyncAPI, op opCode, data map[string]any) *future.Future[struct{}] {
	if err := r.alive(opName); err != nil {
		return future.FailedWith[struct{}](err)
	}
	if len(data) == 0 {
		return future.FailedWith[struct{}](status.Errorf(status.InvalidArgument, opName, "data cannot be empty"))
	}
	payload, err := msgpack.Marshal(data)
	if err != nil {
		return future.FailedWith[struct{}](status.Errorf(status.InvalidArgument, opName, "encoding data: %v", err))
	}
	p, fut := future.Start[struct{}](r.factory, kind)
	if p == nil {
		return fut
	}
	complete := func(code int32, msg string, _ []byte) {
		if code != 0 {
			p.Fail(status.Errorf(statusCode(code), opName, "%s", msg))
			return
		}
		p.Resolve(struct{}{})
	}
	if derr := r.client.dispatcher.dispatch(op, r.path, payload, complete); derr != nil {
		p.Fail(dispatchError(opName, derr))
	}
	return fut
}

// Delete removes the document. Deleting a missing document succeeds.
func (r *DocRef) Delete() *future.Future[struct{}] {
	const opName = "DocRef.Delete"
	if err := r.alive(opName); err != nil {
		return future.FailedWith[struct{}](err)
	}
	p, fut := future.Start[struct{}](r.factory, apiDelete)
	if p == nil {
		return fut
	}
	complete := func(code int32, msg string, _ []byte) {
		if code != 0 {
			p.Fail(status.Errorf(statusCode(code), opName, "%s", msg))
			return
		}
		p.Resolve(struct{}{})
	}
	if err := r.client.dispatcher.dispatch(opDelete, r.path, nil, complete); err != nil {
		p.Fail(dispatchError(opName, err))
	}
	return fut
}
