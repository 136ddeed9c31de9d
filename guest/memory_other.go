//go:build !wasm

package guest

import "sync/atomic"

// Outside wasm, pointers do not fit 32 bits. Pinned buffers get synthetic
// 8-byte aligned addresses instead, so the export path can run in tests.

var nextAddr atomic.Uint32

func address([]byte) uint32 {
	return nextAddr.Add(8)
}

// Borrow returns size bytes of the buffer pinned at ptr.
func Borrow(ptr, size uint32) []byte {
	if size == 0 {
		return nil
	}
	buf, ok := heap.Bytes(ptr)
	if !ok || uint32(cap(buf)) < size {
		return nil
	}
	return buf[:size]
}
