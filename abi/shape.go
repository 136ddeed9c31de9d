package abi

import (
	"encoding/json"

	"github.com/wippyai/wasm-nucleus/scale"
)

// TypeID identifies a registered shape. Ids are dense and start at 0.
type TypeID uint32

// Shape is the portable description of one type. Exactly one variant is set.
type Shape struct {
	scale.Enum
	Primitive   *scale.Kind
	Sequence    *TypeID
	Array       *ArrayShape
	Tuple       *[]TypeID
	Struct      *StructShape
	Variant     *VariantShape
	Unsupported *string // Go type name
}

// ArrayShape is a fixed-length sequence.
type ArrayShape struct {
	Elem TypeID `json:"type"`
	Len  uint32 `json:"len"`
}

// Field is a struct member or a variant payload member. Name is empty for
// positional members.
type Field struct {
	Name string `json:"name,omitempty"`
	Type TypeID `json:"type"`
}

// Param binds a generic parameter name to its instantiated type.
type Param struct {
	Name string `json:"name"`
	Type TypeID `json:"type"`
}

type StructShape struct {
	Name   string  `json:"name"`
	Path   string  `json:"path,omitempty"`
	Params []Param `json:"params,omitempty"`
	Fields []Field `json:"fields"`
}

// VariantShape is a tagged union: user enums, Option and Result.
type VariantShape struct {
	Name     string  `json:"name"`
	Path     string  `json:"path,omitempty"`
	Params   []Param `json:"params,omitempty"`
	Variants []Case  `json:"variants"`
}

type Case struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields,omitempty"`
	Index  uint8   `json:"index"`
}

func PrimitiveShape(k scale.Kind) Shape {
	return Shape{Primitive: &k}
}

func SequenceShape(elem TypeID) Shape {
	return Shape{Sequence: &elem}
}

func TupleShape(elems ...TypeID) Shape {
	if elems == nil {
		elems = []TypeID{}
	}
	return Shape{Tuple: &elems}
}

// Kind names the active variant.
func (s Shape) Kind() string {
	switch {
	case s.Primitive != nil:
		return "primitive"
	case s.Sequence != nil:
		return "sequence"
	case s.Array != nil:
		return "array"
	case s.Tuple != nil:
		return "tuple"
	case s.Struct != nil:
		return "struct"
	case s.Variant != nil:
		return "variant"
	case s.Unsupported != nil:
		return "unsupported"
	default:
		return ""
	}
}

// MarshalJSON writes the shape as a single-key object named after the
// active variant.
func (s Shape) MarshalJSON() ([]byte, error) {
	var payload any
	switch {
	case s.Primitive != nil:
		payload = s.Primitive.String()
	case s.Sequence != nil:
		payload = struct {
			Type TypeID `json:"type"`
		}{*s.Sequence}
	case s.Array != nil:
		payload = s.Array
	case s.Tuple != nil:
		payload = *s.Tuple
	case s.Struct != nil:
		payload = s.Struct
	case s.Variant != nil:
		payload = s.Variant
	case s.Unsupported != nil:
		payload = *s.Unsupported
	default:
		return []byte("null"), nil
	}
	return json.Marshal(map[string]any{s.Kind(): payload})
}
