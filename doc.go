// Package nucleus exposes ordinary Go functions and types to a WebAssembly
// host without hand-written marshalling.
//
// Functions opt in with a comment directive and nucleusgen writes the
// boundary wrappers next to them:
//
//	//nucleus:post
//	func UseCodec(d D) (E, error)
//
// Each wrapper decodes its SCALE-encoded arguments, calls the function once
// and answers with a length-prefixed result frame. The module also publishes
// a schema of every exposed function and the types it reaches, which hosts
// and tooling read through __nucleus_abi.
//
// # Layout
//
//	nucleus/
//	├── scale/              SCALE codec for Go values
//	├── abi/                type registry, portable schema, WIT projection
//	├── guest/              frames, argument decoding, memory hand-off
//	├── errors/             structured errors with phase and kind
//	├── cmd/nucleusgen/     generator and inspection CLI
//	├── internal/codegen/   directive parsing, validation, code emission
//	├── internal/exportlog/ shared export document with file locking
//	├── internal/gencache/  on-disk generation cache
//	├── internal/config/    nucleus.toml and environment settings
//	├── internal/inspect/   host-side loading of built modules (wazero)
//	├── internal/cli/       cobra commands, output styles, module browser
//	└── examples/export/    annotated package with its generated code
//
// # Wire Format
//
// Every call entry point has the signature (ptr, len i32) -> i32. The input
// is the encoded parameter tuple. The returned address points at a 4-byte
// little-endian length followed by an encoded Result<Vec<u8>, String>. Init
// takes and returns nothing, and the HTTP callback returns nothing.
//
// # Thread Safety
//
// Generated handlers are safe to call from one guest thread at a time, which
// is what the host provides. The export document may be appended from many
// processes at once; writes are serialized by an exclusive file lock.
package nucleus
