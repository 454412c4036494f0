package wire

import (
	"sync/atomic"

	"github.com/go-zmtp/zmtp/internal/bufferpool"
)

// refSentinel is the refcount value meaning "owned by the decoder,
// never shared with any message" (spec.md §3). The decoder's own hold
// on the arena is never itself counted while in this state; the first
// IncRef call upgrades the sentinel straight to 2, counting both the
// decoder's continuing use of the arena for further reads and the new
// message's view, per the design note in spec.md §9 ("the decoder
// holds a logical reference that is upgraded to a counted reference
// the first time it is shared externally").
const refSentinel = 0

// Arena is a fixed-capacity byte buffer that the transport reads into
// and from which the decoder may hand out zero-copy message views. It
// outlives any message that shares it: each shared Message holds one
// reference, released on Message.Close.
//
// The refcount is safe to decrement from any goroutine (spec.md §5): a
// shared-payload Message may be handed to another reactor and closed
// there, independent of the Arena's owning decoder.
type Arena struct {
	buf     []byte
	content int // bytes marked readable via AdvanceContent
	refs    atomic.Int64
}

// NewArena allocates an Arena with the given writable capacity, drawn
// from a capacity-classed pool so repeated allocate/release cycles
// during steady-state decoding don't churn the Go allocator.
func NewArena(capacity int) *Arena {
	return &Arena{buf: bufferpool.Get(capacity)}
}

// Buffer returns the full writable region the transport should read
// into.
func (a *Arena) Buffer() []byte {
	return a.buf
}

// Cap returns the arena's total capacity.
func (a *Arena) Cap() int {
	return len(a.buf)
}

// Content returns the number of bytes currently marked readable.
func (a *Arena) Content() int {
	return a.content
}

// AdvanceContent marks n further bytes of Buffer as containing data the
// transport has read, extending the window the decoder may read from
// and zero-copy messages may reference.
func (a *Arena) AdvanceContent(n int) {
	a.content += n
}

// IncRef increments the arena's reference count. The first call from
// the sentinel jumps straight to 2: one for the message being
// constructed, one standing in for the decoder's own continued use of
// the buffer (see refSentinel).
func (a *Arena) IncRef() {
	if a.refs.CompareAndSwap(refSentinel, 2) {
		return
	}
	a.refs.Add(1)
}

// DecRef decrements the reference count. When it drops to the
// sentinel, the backing buffer is returned to the pool.
func (a *Arena) DecRef() {
	if a.refs.Add(-1) <= refSentinel {
		a.free()
	}
}

// Discard retires the arena from the decoder's side: call it when the
// decoder replaces this arena with a fresh one for further reads and
// will never reference it again. If the arena was never shared
// (RefCount still at the sentinel) this frees the buffer immediately;
// otherwise it releases the decoder's own implicit hold, leaving the
// buffer alive until every outstanding shared Message also closes.
func (a *Arena) Discard() {
	if a.refs.Load() == refSentinel {
		a.free()
		return
	}
	a.DecRef()
}

func (a *Arena) free() {
	buf := a.buf
	a.buf = nil
	if buf != nil {
		bufferpool.Put(buf)
	}
}

// RefCount reports the current reference count, for tests and
// diagnostics. refSentinel means "owned by decoder, never shared".
func (a *Arena) RefCount() int64 {
	return a.refs.Load()
}
