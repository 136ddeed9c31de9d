//go:build wasm

package guest

import "unsafe"

// On wasm, addresses are offsets into linear memory.

func address(buf []byte) uint32 {
	return uint32(uintptr(unsafe.Pointer(unsafe.SliceData(buf))))
}

// Borrow views size bytes of linear memory at ptr. The slice is valid for
// the duration of the export call that received ptr and must not be
// retained.
func Borrow(ptr, size uint32) []byte {
	if size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), size)
}
