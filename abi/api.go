package abi

import (
	"reflect"

	"github.com/wippyai/wasm-nucleus/scale"
)

// Function describes one exposed function.
type Function struct {
	Name   string   `json:"name"`
	Kind   Kind     `json:"method"`
	Params []TypeID `json:"param_types"`
	Return TypeID   `json:"return_type"`
}

// PortableType pairs an id with its shape.
type PortableType struct {
	ID    TypeID `json:"id"`
	Shape Shape  `json:"type"`
}

// PortableSchema is the complete description published by a module: every
// exposed function and every type they reach, ordered by id.
type PortableSchema struct {
	Functions []Function     `json:"functions"`
	Types     []PortableType `json:"types"`
}

// APIRegistry collects exposed functions and registers their types.
type APIRegistry struct {
	types     *Registry
	functions []Function
}

func NewAPIRegistry() *APIRegistry {
	return &APIRegistry{types: NewRegistry()}
}

// RegisterAPI records a function. Parameters register in order, then the
// return type. A nil ret registers the unit tuple.
func (a *APIRegistry) RegisterAPI(name string, kind Kind, params []reflect.Type, ret reflect.Type) {
	fn := Function{
		Name:   name,
		Kind:   kind,
		Params: a.types.RegisterAll(params...),
	}
	fn.Return = a.types.Register(ret)
	a.functions = append(a.functions, fn)
}

// Types exposes the underlying type registry.
func (a *APIRegistry) Types() *Registry {
	return a.types
}

// Dump snapshots the registry.
func (a *APIRegistry) Dump() PortableSchema {
	fns := make([]Function, len(a.functions))
	copy(fns, a.functions)
	return PortableSchema{
		Functions: fns,
		Types:     a.types.Types(),
	}
}

// Encode returns the SCALE encoding of the schema.
func (s PortableSchema) Encode() ([]byte, error) {
	return scale.Marshal(s)
}

// DecodeSchema parses a SCALE-encoded schema.
func DecodeSchema(data []byte) (PortableSchema, error) {
	var s PortableSchema
	if err := scale.Unmarshal(data, &s); err != nil {
		return PortableSchema{}, err
	}
	return s, nil
}

// Function returns the named function.
func (s PortableSchema) Function(name string) (Function, bool) {
	for _, fn := range s.Functions {
		if fn.Name == name {
			return fn, true
		}
	}
	return Function{}, false
}

// Resolve returns the shape registered under id.
func (s PortableSchema) Resolve(id TypeID) (Shape, bool) {
	if int(id) >= len(s.Types) {
		return Shape{}, false
	}
	return s.Types[id].Shape, true
}
