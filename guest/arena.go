package guest

import "sync"

// Arena keeps buffers reachable while the host owns them. A buffer handed
// out through Pin stays alive until Release is called with its address.
type Arena struct {
	mu     sync.Mutex
	pinned map[uint32][]byte
}

func NewArena() *Arena {
	return &Arena{pinned: make(map[uint32][]byte)}
}

// Pin records buf and returns its address. Empty buffers are widened to one
// byte so every pin has a distinct address.
func (a *Arena) Pin(buf []byte) uint32 {
	if cap(buf) == 0 {
		buf = make([]byte, 0, 1)
	}
	addr := address(buf)
	a.mu.Lock()
	a.pinned[addr] = buf
	a.mu.Unlock()
	return addr
}

// Release drops the buffer at addr. It reports whether addr was pinned.
func (a *Arena) Release(addr uint32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.pinned[addr]; !ok {
		return false
	}
	delete(a.pinned, addr)
	return true
}

// Bytes returns the buffer pinned at addr.
func (a *Arena) Bytes(addr uint32) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	buf, ok := a.pinned[addr]
	return buf, ok
}

// Len returns the number of pinned buffers.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pinned)
}

var heap = NewArena()

// Leak transfers frame to the host and returns its address. The frame stays
// pinned until the host calls __nucleus_free.
func Leak(frame []byte) uint32 {
	return heap.Pin(frame)
}

// Alloc pins a zeroed buffer of size bytes for the host to write input into.
func Alloc(size uint32) uint32 {
	return heap.Pin(make([]byte, size))
}

// Free releases a buffer returned by Leak or Alloc.
func Free(addr uint32) {
	heap.Release(addr)
}

// Pinned returns the number of buffers the host currently owns.
func Pinned() int {
	return heap.Len()
}
