package nativekit

import (
	"fmt"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/semaphore"

	"github.com/obinnaokechukwu/nativekit/internal/engine"
	"github.com/obinnaokechukwu/nativekit/internal/handles"
	"github.com/obinnaokechukwu/nativekit/status"
	"github.com/obinnaokechukwu/nativekit/thread"
)

// opCode identifies an operation across the dispatch boundary. The values
// are part of the engine ABI and must not be reordered.
type opCode int32

const (
	opGet opCode = iota + 1
	opSet
	opUpdate
	opDelete
	opWaitPending
	opShutdown
)

// dispatcher is the seam between the client surface and whatever executes
// operations: the native engine or the in-process fallback.
type dispatcher interface {
	// dispatch hands one operation to the backend. A nil return means the
	// backend accepted it and will invoke complete exactly once, on a
	// thread of its choosing; a non-nil error means the operation was
	// rejected synchronously and complete will never run.
	dispatch(op opCode, path string, payload []byte, complete handles.Completion) error

	// close stops accepting new work. Operations already accepted still
	// run to completion; close does not wait for them.
	close()
}

// statusCode maps a completion code from the dispatch boundary to a status
// code. The engine uses the same numbering.
func statusCode(code int32) status.Code {
	if code >= int32(status.OK) && code <= int32(status.NotFound) {
		return status.Code(code)
	}
	return status.Unknown
}

// engineDispatcher routes operations to the loaded nkengine library. The
// completion closure is pinned in the handle table for the duration of the
// native call; the engine's completion trampoline takes and fires it.
type engineDispatcher struct {
	mu     sync.Mutex
	closed bool
}

func newEngineDispatcher() *engineDispatcher {
	return &engineDispatcher{}
}

func (d *engineDispatcher) dispatch(op opCode, path string, payload []byte, complete handles.Completion) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClientDestroyed
	}
	d.mu.Unlock()

	h := handles.Register(complete)
	if err := engine.Dispatch(int32(op), path, payload, h); err != nil {
		// Synchronous rejection: the engine never saw the handle, so the
		// pin is ours to drop.
		handles.Unregister(h)
		return err
	}
	return nil
}

func (d *engineDispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

// localJob is one accepted operation waiting on the pump thread.
type localJob struct {
	op       opCode
	path     string
	payload  []byte
	complete handles.Completion
}

// localDispatcher executes operations in-process when no engine is loaded.
// A single owned background thread pumps the queue, so operations complete
// in submission order; a weighted semaphore bounds the number accepted but
// not yet completed.
//
// Completions run on the pump thread, never on the submitting goroutine,
// matching the engine's no-same-thread-delivery contract.
type localDispatcher struct {
	sem   *semaphore.Weighted
	queue chan localJob
	pump  *thread.Thread

	mu     sync.Mutex
	closed bool

	// store is only touched from the pump thread; no lock needed.
	store map[string][]byte
}

const localMaxInFlight = 128

func newLocalDispatcher() *localDispatcher {
	d := &localDispatcher{
		sem:   semaphore.NewWeighted(localMaxInFlight),
		queue: make(chan localJob, localMaxInFlight),
		store: make(map[string][]byte),
	}
	d.pump = thread.NewNamed("nk-dispatch", d.run)
	return d
}

func (d *localDispatcher) dispatch(op opCode, path string, payload []byte, complete handles.Completion) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClientDestroyed
	}
	if !d.sem.TryAcquire(1) {
		return ErrBusy
	}
	// The queue has a slot for every semaphore permit, so this never blocks.
	d.queue <- localJob{op: op, path: path, payload: payload, complete: complete}
	return nil
}

// close stops intake and releases the pump thread, which drains the jobs
// already accepted and then exits. close does not wait for the drain: the
// caller may hold the registry lock, and completions invoke user callbacks.
func (d *localDispatcher) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.queue)
	d.pump.Detach()
}

func (d *localDispatcher) run() {
	for job := range d.queue {
		code, msg, payload := d.execute(job)
		job.complete(code, msg, payload)
		d.sem.Release(1)
	}
}

func (d *localDispatcher) execute(job localJob) (code int32, msg string, payload []byte) {
	switch job.op {
	case opGet:
		doc, ok := d.store[job.path]
		if !ok {
			return int32(status.NotFound), fmt.Sprintf("no document at %q", job.path), nil
		}
		return 0, "", doc
	case opSet:
		d.store[job.path] = job.payload
		return 0, "", nil
	case opUpdate:
		doc, ok := d.store[job.path]
		if !ok {
			return int32(status.NotFound), fmt.Sprintf("no document at %q", job.path), nil
		}
		merged, err := mergeDocuments(doc, job.payload)
		if err != nil {
			return int32(status.EngineFailure), err.Error(), nil
		}
		d.store[job.path] = merged
		return 0, "", nil
	case opDelete:
		delete(d.store, job.path)
		return 0, "", nil
	case opWaitPending, opShutdown:
		// Queue order means every previously accepted job has completed.
		return 0, "", nil
	}
	return int32(status.Unknown), fmt.Sprintf("unknown op %d", job.op), nil
}

// mergeDocuments applies the fields of patch on top of base. Both are
// msgpack maps, the boundary encoding for documents.
func mergeDocuments(base, patch []byte) ([]byte, error) {
	var doc map[string]any
	if err := msgpack.Unmarshal(base, &doc); err != nil {
		return nil, fmt.Errorf("nativekit: corrupt stored document: %w", err)
	}
	var fields map[string]any
	if err := msgpack.Unmarshal(patch, &fields); err != nil {
		return nil, fmt.Errorf("nativekit: corrupt update payload: %w", err)
	}
	if doc == nil {
		doc = make(map[string]any)
	}
	for k, v := range fields {
		doc[k] = v
	}
	return msgpack.Marshal(doc)
}
