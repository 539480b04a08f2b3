package future

import (
	"github.com/obinnaokechukwu/nativekit/internal/invariant"
)

// Promise is the resolving capability of a completion slot. Exactly one
// Promise exists per slot, handed out once at creation to the dispatching
// call site, which has the unconditional obligation to eventually call
// Resolve or Fail exactly once and drop the Promise afterwards.
type Promise[T any] struct {
	s *slot[T]
}

// New allocates a pending slot and returns its two capabilities.
func New[T any]() (*Promise[T], *Future[T]) {
	s := &slot[T]{done: make(chan struct{})}
	return &Promise[T]{s: s}, &Future[T]{s: s}
}

// Future returns the consumer handle of the promise's slot.
func (p *Promise[T]) Future() *Future[T] {
	return &Future[T]{s: p.s}
}

// Resolve transitions the slot to Succeeded with value and fires every
// registered completion callback, in registration order, on the calling
// goroutine. Resolving an already-resolved slot is a fatal invariant
// violation; the stored outcome is never overwritten.
func (p *Promise[T]) Resolve(value T) {
	p.complete("Promise.Resolve", value, nil)
}

// Fail transitions the slot to Failed with err. Same delivery and
// exactly-once rules as Resolve. A nil err is a fatal invariant violation:
// a failed outcome must carry its error.
func (p *Promise[T]) Fail(err error) {
	if err == nil {
		invariant.Violationf("Promise.Fail", "failed outcome requires a non-nil error")
		return
	}
	var zero T
	p.complete("Promise.Fail", zero, err)
}

// Progress delivers a partial result to every registered progress callback,
// on the calling goroutine, strictly before the terminal outcome. Progress
// after resolution is discarded: no notification may follow the terminal
// outcome.
func (p *Promise[T]) Progress(partial T) {
	p.s.mu.Lock()
	if p.s.status != Pending {
		p.s.mu.Unlock()
		return
	}
	handlers := make([]func(T), len(p.s.progress))
	copy(handlers, p.s.progress)
	p.s.mu.Unlock()

	for _, fn := range handlers {
		fn(partial)
	}
}

func (p *Promise[T]) complete(op string, value T, err error) {
	p.s.mu.Lock()
	if p.s.status != Pending {
		// First resolution wins; reject the write before reporting so the
		// stored outcome cannot be corrupted even under a test handler.
		st := p.s.status
		p.s.mu.Unlock()
		invariant.Violationf(op, "slot already resolved (%s)", st)
		return
	}
	p.s.value, p.s.err = value, err
	if err != nil {
		p.s.status = Failed
	} else {
		p.s.status = Succeeded
	}
	completions := p.s.completions
	p.s.completions = nil
	p.s.progress = nil
	close(p.s.done)
	p.s.mu.Unlock()

	for _, fn := range completions {
		fn(value, err)
	}
}
