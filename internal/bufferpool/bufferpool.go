// Package bufferpool recycles fixed-capacity byte slices by size class,
// so the decoder's arenas don't churn the allocator on every frame.
package bufferpool

import "sync"

// pools is keyed by capacity: each distinct arena size gets its own
// sync.Pool so Get always returns a slice of exactly that capacity.
var (
	mu    sync.Mutex
	pools = map[int]*sync.Pool{}
)

func poolFor(capacity int) *sync.Pool {
	mu.Lock()
	p, ok := pools[capacity]
	if !ok {
		p = &sync.Pool{
			New: func() any {
				buf := make([]byte, capacity)
				return &buf
			},
		}
		pools[capacity] = p
	}
	mu.Unlock()
	return p
}

// Get returns a []byte of length capacity, possibly reused.
func Get(capacity int) []byte {
	ptr := poolFor(capacity).Get().(*[]byte)
	return *ptr
}

// Put returns buf to the pool for its own length. buf must not be used
// again by the caller after this.
func Put(buf []byte) {
	if len(buf) == 0 {
		return
	}
	poolFor(len(buf)).Put(&buf)
}
