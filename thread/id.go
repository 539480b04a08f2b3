package thread

import "runtime"

// Id identifies a thread of control. Ids are stable and comparable for the
// life of the thread; the zero Id is never a live thread.
type Id uint64

// CurrentId returns the identity of the calling thread of control.
//
// The id is derived from the runtime's goroutine identity rather than the
// kernel thread id: goroutines that are not wired to an OS thread may
// migrate between kernel threads, and an identity that changes mid-call is
// useless for the "is this callback running on my thread?" diagnostic this
// exists for. Bodies started by New are wired to a dedicated OS thread, so
// for them the two notions coincide.
func CurrentId() Id {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// First line is "goroutine N [status]:".
	const prefix = "goroutine "
	if n <= len(prefix) {
		return 0
	}
	var id uint64
	for _, c := range buf[len(prefix):n] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return Id(id)
}

// IsCurrentThread reports whether the calling thread of control is id.
func IsCurrentThread(id Id) bool {
	return CurrentId() == id
}
