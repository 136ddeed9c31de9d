// Package abi builds the portable schema a module publishes about its
// exposed functions.
//
// A Registry assigns a TypeID to every Go type reachable from an exposed
// function. Registration is depth-first: children receive ids before the
// parent that references them, so a schema reader can resolve types in id
// order. The only forward reference is a self-recursive type, which reserves
// its id on re-entry.
//
// Identity is structural. Two Go types whose shapes encode to the same bytes
// share one id, so int64 and a named int64 collapse while two structs with
// the same fields but different names do not.
//
//	reg := abi.NewAPIRegistry()
//	reg.RegisterAPI("use_codec", abi.Post,
//		[]reflect.Type{reflect.TypeFor[D]()},
//		reflect.TypeFor[scale.Result[E, string]]())
//	schema := reg.Dump()
//
// The schema crosses the boundary in SCALE form (PortableSchema.Encode). It
// also marshals to JSON, and ToWIT and RenderWIT project it onto WIT for
// tooling.
package abi
