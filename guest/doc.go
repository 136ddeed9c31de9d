// Package guest is the module-side half of the host-call protocol. Generated
// wrappers call into it; user code rarely does.
//
// # Protocol
//
// Every entry point that answers the host returns the address of a frame:
//
//	┌────────────────┬─────────────────────────────────────┐
//	│ len: u32 (LE)  │ payload: len bytes                  │
//	└────────────────┴─────────────────────────────────────┘
//
// For get, post and timer calls the payload is Result<Vec<u8>, String>: the
// SCALE-encoded return value, or the error text. Argument decode failures
// are reported the same way and the user function is not called. The
// __nucleus_abi entry point answers Option<Vec<u8>> wrapping the encoded
// abi.PortableSchema.
//
// # Memory
//
// Input spans are borrowed (Borrow) for the duration of one call. Output
// frames are transferred to the host (Leak) and stay pinned in an Arena
// until the host calls __nucleus_free. The host may request input buffers
// with __nucleus_alloc; they are released the same way.
package guest
