package abi

import (
	"strconv"
	"strings"
)

// TypeName renders id as a short type expression: u32, Vec<u8>, [u8; 4],
// (u32, str), Result<E, str>. Named structs and variants print their name
// with generic arguments.
func (s PortableSchema) TypeName(id TypeID) string {
	return s.typeName(id, make(map[TypeID]bool))
}

func (s PortableSchema) typeName(id TypeID, visiting map[TypeID]bool) string {
	shape, ok := s.Resolve(id)
	if !ok {
		return "#" + strconv.FormatUint(uint64(id), 10)
	}
	switch {
	case shape.Primitive != nil:
		return shape.Primitive.String()
	case shape.Sequence != nil:
		return "Vec<" + s.typeName(*shape.Sequence, visiting) + ">"
	case shape.Array != nil:
		return "[" + s.typeName(shape.Array.Elem, visiting) + "; " + strconv.FormatUint(uint64(shape.Array.Len), 10) + "]"
	case shape.Tuple != nil:
		parts := make([]string, len(*shape.Tuple))
		for i, e := range *shape.Tuple {
			parts[i] = s.typeName(e, visiting)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case shape.Struct != nil:
		return s.generic(id, shape.Struct.Name, shape.Struct.Params, visiting)
	case shape.Variant != nil:
		return s.generic(id, shape.Variant.Name, shape.Variant.Params, visiting)
	case shape.Unsupported != nil:
		return "!" + *shape.Unsupported
	default:
		return "?"
	}
}

func (s PortableSchema) generic(id TypeID, name string, params []Param, visiting map[TypeID]bool) string {
	if len(params) == 0 || visiting[id] {
		return name
	}
	visiting[id] = true
	defer delete(visiting, id)

	args := make([]string, len(params))
	for i, p := range params {
		args[i] = s.typeName(p.Type, visiting)
	}
	return name + "<" + strings.Join(args, ", ") + ">"
}

// Signature renders fn as name(T1, T2) -> R. The unit return is omitted.
func (s PortableSchema) Signature(fn Function) string {
	var sb strings.Builder
	sb.WriteString(fn.Name)
	sb.WriteByte('(')
	for i, p := range fn.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(s.TypeName(p))
	}
	sb.WriteByte(')')
	if ret := s.TypeName(fn.Return); ret != "()" {
		sb.WriteString(" -> ")
		sb.WriteString(ret)
	}
	return sb.String()
}
