// Package codegen generates the module side of the host boundary for
// annotated Go packages.
//
// Functions and types opt in through comment directives:
//
//	//nucleus:post
//	func UseCodec(d D) (E, error)
//
//	//nucleus:get name=version
//	func CurrentVersion() string
//
//	//nucleus:export
//	type E struct { ... }
//
// Function directives are get, post, timer, callback and init; export marks
// types. The ABI name defaults to the snake_case function name.
//
// For each package the generator writes two files: nucleus_gen.go with one
// handler per function plus the schema registry, and nucleus_exports.go
// (wasip1 only) with the //go:wasmexport shims that move bytes across the
// boundary. It also appends one record per annotated declaration to the
// shared export document.
//
// Declarations that cannot be exposed are rejected with an
// *errors.MalformedDeclsError listing every problem found.
package codegen
