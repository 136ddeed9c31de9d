//go:build wasip1

package guest

//go:wasmexport __nucleus_alloc
func nucleusAlloc(size uint32) uint32 {
	return Alloc(size)
}

//go:wasmexport __nucleus_free
func nucleusFree(ptr uint32) {
	Free(ptr)
}
