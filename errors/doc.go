// Package errors defines the structured error shared by every wasm-nucleus
// package.
//
// An Error names the Phase that failed (encode, decode, generate, export,
// inspect, ...) and the Kind of failure, plus optional context: the field
// path inside a value, the Go and SCALE type names, the offending value and
// an underlying cause.
//
//	err := errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
//		Path("args", "0").
//		ScaleType("u32").
//		Detail("need 4 bytes").
//		Build()
//
// Constructors cover the frequent cases:
//
//	errors.Overflow(errors.PhaseEncode, path, n, "u32")
//	errors.IO(errors.PhaseExport, "open", docPath, err)
//
// errors.Is matches on Phase and Kind, so callers can test for a class of
// failure without comparing messages. Code generation collects every
// rejected declaration into one MalformedDeclsError.
package errors
