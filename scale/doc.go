// Package scale implements the SCALE binary codec used on the guest/host
// boundary.
//
// SCALE is a compact, non-self-describing little-endian format. Both sides
// must agree on the type being encoded; the registry in package abi
// publishes those types to the host.
//
// # Go Type Mapping
//
//	Go type                        SCALE encoding
//	─────────────────────────────────────────────────────────────
//	bool                           1 byte, 0 or 1
//	uint8..uint64, int8..int64     fixed width little-endian
//	uint, int                      8 bytes
//	string                         compact length + UTF-8 bytes
//	[]T                            compact length + elements
//	[N]T                           N elements, no prefix
//	struct                         fields in declaration order
//	struct{}, Unit                 nothing
//	Tuple2..Tuple4                 members in order
//	Option[T]                      0x00, or 0x01 + T
//	Option[bool]                   one byte: 0 none, 1 true, 2 false
//	Result[T, E]                   0x00 + T, or 0x01 + E
//	struct embedding Enum          variant index byte + payload
//
// Floats, maps, bare pointers, interfaces, funcs and channels have no
// encoding. They compile to KindUnsupported and fail when encoded.
//
// # Compact Integers
//
// Lengths use the compact scheme: the two low bits of the first byte select
// a one, two or four byte form, or a big-integer form carrying up to eight
// value bytes. Decoding rejects non-canonical forms.
//
// # Enums
//
// A struct whose first field is an embedded Enum is a tagged union. Each
// following exported field is a pointer naming one variant; its index is its
// position among those fields. A pointer to struct{} is a unit variant, a
// pointer to an anonymous struct is a variant with named fields.
//
//	type Message struct {
//		scale.Enum
//		Quit  *struct{}
//		Write *string
//		Move  *struct{ X, Y int32 }
//	}
//
// # Struct Tags
//
//	Name uint32 `scale:"name"`  // renames the field in the schema
//	Skip uint32 `scale:"-"`     // not encoded
//
// # Decoding Limits
//
// Sequence lengths are checked against the remaining input using the
// minimum encoded size of the element type, so a short hostile input cannot
// trigger a large allocation.
package scale
