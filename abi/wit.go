package abi

import (
	"fmt"
	"strings"
	"unicode"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-nucleus/errors"
	"github.com/wippyai/wasm-nucleus/scale"
)

// ToWIT projects every schema type onto a WIT type, indexed by TypeID.
// Structs, enums and struct-like variant payloads become named definitions.
// Fixed arrays project to lists. Recursive and unsupported shapes fail.
func ToWIT(s PortableSchema) ([]wit.Type, error) {
	b := &witBuilder{
		schema:   s,
		types:    make([]wit.Type, len(s.Types)),
		visiting: make(map[TypeID]bool),
	}
	for i := range s.Types {
		if _, err := b.resolve(TypeID(i)); err != nil {
			return nil, err
		}
	}
	return b.types, nil
}

type witBuilder struct {
	schema   PortableSchema
	types    []wit.Type
	visiting map[TypeID]bool
	named    []*wit.TypeDef
}

func (b *witBuilder) resolve(id TypeID) (wit.Type, error) {
	if int(id) >= len(b.types) {
		return nil, errors.NotFound(errors.PhaseInspect, "type", fmt.Sprint(id))
	}
	if t := b.types[id]; t != nil {
		return t, nil
	}
	if b.visiting[id] {
		return nil, errors.New(errors.PhaseInspect, errors.KindUnsupported).
			Path(fmt.Sprint(id)).
			Detail("recursive types have no WIT form").
			Build()
	}
	b.visiting[id] = true
	defer delete(b.visiting, id)

	t, err := b.convert(id, b.schema.Types[id].Shape)
	if err != nil {
		return nil, err
	}
	b.types[id] = t
	return t, nil
}

func (b *witBuilder) convert(id TypeID, s Shape) (wit.Type, error) {
	switch {
	case s.Primitive != nil:
		return witPrimitive(*s.Primitive)
	case s.Sequence != nil:
		elem, err := b.resolve(*s.Sequence)
		if err != nil {
			return nil, fmt.Errorf("list element: %w", err)
		}
		return &wit.TypeDef{Kind: &wit.List{Type: elem}}, nil
	case s.Array != nil:
		elem, err := b.resolve(s.Array.Elem)
		if err != nil {
			return nil, fmt.Errorf("array element: %w", err)
		}
		return &wit.TypeDef{Kind: &wit.List{Type: elem}}, nil
	case s.Tuple != nil:
		types := make([]wit.Type, len(*s.Tuple))
		for i, elem := range *s.Tuple {
			t, err := b.resolve(elem)
			if err != nil {
				return nil, fmt.Errorf("tuple element %d: %w", i, err)
			}
			types[i] = t
		}
		return &wit.TypeDef{Kind: &wit.Tuple{Types: types}}, nil
	case s.Struct != nil:
		fields, err := b.record(s.Struct.Fields)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", s.Struct.Name, err)
		}
		return b.define(s.Struct.Name, &wit.Record{Fields: fields}), nil
	case s.Variant != nil:
		return b.variant(s.Variant)
	case s.Unsupported != nil:
		return nil, errors.Unsupported(errors.PhaseInspect, []string{fmt.Sprint(id)}, *s.Unsupported)
	}
	return nil, errors.InvalidData(errors.PhaseInspect, []string{fmt.Sprint(id)}, "shape has no variant set")
}

func (b *witBuilder) variant(v *VariantShape) (wit.Type, error) {
	if v.Path == scalePkgPath {
		switch {
		case v.Name == "Option" && len(v.Params) == 1:
			inner, err := b.resolve(v.Params[0].Type)
			if err != nil {
				return nil, fmt.Errorf("option type: %w", err)
			}
			return &wit.TypeDef{Kind: &wit.Option{Type: inner}}, nil
		case v.Name == "Result" && len(v.Params) == 2:
			ok, err := b.resolve(v.Params[0].Type)
			if err != nil {
				return nil, fmt.Errorf("result ok: %w", err)
			}
			errType, err := b.resolve(v.Params[1].Type)
			if err != nil {
				return nil, fmt.Errorf("result err: %w", err)
			}
			return &wit.TypeDef{Kind: &wit.Result{OK: unitToNil(ok), Err: unitToNil(errType)}}, nil
		}
	}

	allUnit := true
	for _, c := range v.Variants {
		if len(c.Fields) > 0 {
			allUnit = false
			break
		}
	}
	if allUnit {
		cases := make([]wit.EnumCase, len(v.Variants))
		for i, c := range v.Variants {
			cases[i] = wit.EnumCase{Name: kebab(c.Name)}
		}
		return b.define(v.Name, &wit.Enum{Cases: cases}), nil
	}

	cases := make([]wit.Case, len(v.Variants))
	for i, c := range v.Variants {
		var payload wit.Type
		switch {
		case len(c.Fields) == 0:
		case len(c.Fields) == 1 && c.Fields[0].Name == "":
			t, err := b.resolve(c.Fields[0].Type)
			if err != nil {
				return nil, fmt.Errorf("variant case %q: %w", c.Name, err)
			}
			payload = t
		default:
			fields, err := b.record(c.Fields)
			if err != nil {
				return nil, fmt.Errorf("variant case %q: %w", c.Name, err)
			}
			payload = b.define(v.Name+"-"+c.Name, &wit.Record{Fields: fields})
		}
		cases[i] = wit.Case{Name: kebab(c.Name), Type: payload}
	}
	return b.define(v.Name, &wit.Variant{Cases: cases}), nil
}

func (b *witBuilder) record(fs []Field) ([]wit.Field, error) {
	fields := make([]wit.Field, len(fs))
	for i, f := range fs {
		t, err := b.resolve(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		name := f.Name
		if name == "" {
			name = fmt.Sprintf("f%d", i)
		}
		fields[i] = wit.Field{Name: kebab(name), Type: t}
	}
	return fields, nil
}

func (b *witBuilder) define(name string, kind wit.TypeDefKind) *wit.TypeDef {
	n := kebab(name)
	td := &wit.TypeDef{Name: &n, Kind: kind}
	b.named = append(b.named, td)
	return td
}

func witPrimitive(k scale.Kind) (wit.Type, error) {
	switch k {
	case scale.KindBool:
		return wit.Bool{}, nil
	case scale.KindU8:
		return wit.U8{}, nil
	case scale.KindI8:
		return wit.S8{}, nil
	case scale.KindU16:
		return wit.U16{}, nil
	case scale.KindI16:
		return wit.S16{}, nil
	case scale.KindU32:
		return wit.U32{}, nil
	case scale.KindI32:
		return wit.S32{}, nil
	case scale.KindU64:
		return wit.U64{}, nil
	case scale.KindI64:
		return wit.S64{}, nil
	case scale.KindString:
		return wit.String{}, nil
	default:
		return nil, fmt.Errorf("unknown primitive type: %s", k)
	}
}

// unitToNil maps the empty tuple to the absent type WIT uses for
// result<_, E> and result<T>.
func unitToNil(t wit.Type) wit.Type {
	if td, ok := t.(*wit.TypeDef); ok {
		if tup, ok := td.Kind.(*wit.Tuple); ok && len(tup.Types) == 0 {
			return nil
		}
	}
	return t
}

// RenderWIT renders the schema as a WIT interface: one definition per named
// type, then one func per exposed function.
func RenderWIT(s PortableSchema, iface string) (string, error) {
	b := &witBuilder{
		schema:   s,
		types:    make([]wit.Type, len(s.Types)),
		visiting: make(map[TypeID]bool),
	}
	for _, fn := range s.Functions {
		for _, p := range fn.Params {
			if _, err := b.resolve(p); err != nil {
				return "", fmt.Errorf("function %s: %w", fn.Name, err)
			}
		}
		if _, err := b.resolve(fn.Return); err != nil {
			return "", fmt.Errorf("function %s: %w", fn.Name, err)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "interface %s {\n", kebab(iface))
	seen := make(map[string]bool)
	for _, td := range b.named {
		if seen[*td.Name] {
			continue
		}
		seen[*td.Name] = true
		writeDef(&sb, td)
	}
	for _, fn := range s.Functions {
		sb.WriteString("  ")
		sb.WriteString(kebab(fn.Name))
		sb.WriteString(": func(")
		for i, p := range fn.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "p%d: %s", i, typeRef(b.types[p]))
		}
		sb.WriteByte(')')
		if ret := unitToNil(b.types[fn.Return]); ret != nil {
			sb.WriteString(" -> ")
			sb.WriteString(typeRef(ret))
		}
		sb.WriteString(";\n")
	}
	sb.WriteString("}\n")
	return sb.String(), nil
}

func writeDef(sb *strings.Builder, td *wit.TypeDef) {
	switch k := td.Kind.(type) {
	case *wit.Record:
		fmt.Fprintf(sb, "  record %s {\n", *td.Name)
		for _, f := range k.Fields {
			fmt.Fprintf(sb, "    %s: %s,\n", f.Name, typeRef(f.Type))
		}
	case *wit.Enum:
		fmt.Fprintf(sb, "  enum %s {\n", *td.Name)
		for _, c := range k.Cases {
			fmt.Fprintf(sb, "    %s,\n", c.Name)
		}
	case *wit.Variant:
		fmt.Fprintf(sb, "  variant %s {\n", *td.Name)
		for _, c := range k.Cases {
			if c.Type == nil {
				fmt.Fprintf(sb, "    %s,\n", c.Name)
			} else {
				fmt.Fprintf(sb, "    %s(%s),\n", c.Name, typeRef(c.Type))
			}
		}
	default:
		return
	}
	sb.WriteString("  }\n")
}

func typeRef(t wit.Type) string {
	switch t := t.(type) {
	case nil:
		return "_"
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if t.Name != nil {
			return *t.Name
		}
		switch k := t.Kind.(type) {
		case *wit.List:
			return "list<" + typeRef(k.Type) + ">"
		case *wit.Option:
			return "option<" + typeRef(k.Type) + ">"
		case *wit.Result:
			switch {
			case k.OK == nil && k.Err == nil:
				return "result"
			case k.Err == nil:
				return "result<" + typeRef(k.OK) + ">"
			default:
				return "result<" + typeRef(k.OK) + ", " + typeRef(k.Err) + ">"
			}
		case *wit.Tuple:
			parts := make([]string, len(k.Types))
			for i, e := range k.Types {
				parts[i] = typeRef(e)
			}
			return "tuple<" + strings.Join(parts, ", ") + ">"
		}
	}
	return "_"
}

// kebab converts a Go identifier to WIT kebab case: MyCustomEnum becomes
// my-custom-enum, HTTPServer becomes http-server.
func kebab(s string) string {
	runes := []rune(s)
	var sb strings.Builder
	for i, r := range runes {
		if r == '_' || r == '-' {
			if sb.Len() > 0 {
				sb.WriteByte('-')
			}
			continue
		}
		if unicode.IsUpper(r) && i > 0 && sb.Len() > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prev != '_' && prev != '-' && (unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower)) {
				sb.WriteByte('-')
			}
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}
