package abi

import (
	"fmt"
	"reflect"
	"strings"

	"fortio.org/safecast"

	"github.com/wippyai/wasm-nucleus/scale"
)

var scalePkgPath = reflect.TypeFor[scale.Unit]().PkgPath()

// Registry assigns TypeIDs to Go types. Structurally identical shapes share
// one id. A Registry belongs to one build and is not safe for concurrent use.
type Registry struct {
	compiler *scale.Compiler
	ids      map[reflect.Type]TypeID
	keys     map[string]TypeID
	visiting map[reflect.Type]bool
	reserved map[reflect.Type]TypeID
	types    []Shape
}

func NewRegistry() *Registry {
	return NewRegistryWithCompiler(scale.NewCompiler())
}

func NewRegistryWithCompiler(c *scale.Compiler) *Registry {
	return &Registry{
		compiler: c,
		ids:      make(map[reflect.Type]TypeID),
		keys:     make(map[string]TypeID),
		visiting: make(map[reflect.Type]bool),
		reserved: make(map[reflect.Type]TypeID),
	}
}

// Register returns the id of t, registering t and everything it references
// first. A nil type registers as the unit tuple.
func (r *Registry) Register(t reflect.Type) TypeID {
	if t == nil {
		t = reflect.TypeFor[scale.Unit]()
	}
	return r.register(r.compiler.Compile(t))
}

// RegisterAll registers each type in order.
func (r *Registry) RegisterAll(types ...reflect.Type) []TypeID {
	ids := make([]TypeID, len(types))
	for i, t := range types {
		ids[i] = r.Register(t)
	}
	return ids
}

// Resolve returns the shape registered under id.
func (r *Registry) Resolve(id TypeID) (Shape, bool) {
	if int(id) >= len(r.types) {
		return Shape{}, false
	}
	return r.types[id], true
}

func (r *Registry) Len() int {
	return len(r.types)
}

// Types returns the registered shapes ordered by id.
func (r *Registry) Types() []PortableType {
	out := make([]PortableType, len(r.types))
	for i, s := range r.types {
		out[i] = PortableType{ID: TypeID(i), Shape: s}
	}
	return out
}

func (r *Registry) register(ct *scale.CompiledType) TypeID {
	t := ct.GoType
	if id, ok := r.ids[t]; ok {
		return id
	}
	if r.visiting[t] {
		// self reference: hand out the id the outer call will fill
		if id, ok := r.reserved[t]; ok {
			return id
		}
		id := r.append(Shape{})
		r.reserved[t] = id
		return id
	}

	r.visiting[t] = true
	shape := r.shapeOf(ct)
	delete(r.visiting, t)

	key := shapeKey(shape)
	if id, ok := r.reserved[t]; ok {
		delete(r.reserved, t)
		r.types[id] = shape
		r.ids[t] = id
		if _, dup := r.keys[key]; !dup {
			r.keys[key] = id
		}
		return id
	}
	if id, ok := r.keys[key]; ok {
		r.ids[t] = id
		return id
	}
	id := r.append(shape)
	r.keys[key] = id
	r.ids[t] = id
	return id
}

func (r *Registry) append(s Shape) TypeID {
	n, err := safecast.Conv[uint32](len(r.types))
	if err != nil {
		panic(fmt.Errorf("type registry overflow: %w", err))
	}
	r.types = append(r.types, s)
	return TypeID(n)
}

func (r *Registry) shapeOf(ct *scale.CompiledType) Shape {
	switch ct.Kind {
	case scale.KindSequence:
		return SequenceShape(r.register(ct.Elem))
	case scale.KindArray:
		n, err := safecast.Conv[uint32](ct.Len)
		if err != nil {
			return unsupportedShape(ct)
		}
		return Shape{Array: &ArrayShape{Elem: r.register(ct.Elem), Len: n}}
	case scale.KindTuple:
		elems := make([]TypeID, len(ct.Fields))
		for i, f := range ct.Fields {
			elems[i] = r.register(f.Type)
		}
		return TupleShape(elems...)
	case scale.KindStruct:
		return Shape{Struct: &StructShape{
			Name:   typeName(ct.GoType),
			Path:   ct.PkgPath,
			Fields: r.fields(ct.Fields),
		}}
	case scale.KindEnum:
		v := &VariantShape{
			Name:     typeName(ct.GoType),
			Path:     ct.PkgPath,
			Variants: make([]Case, len(ct.Variants)),
		}
		for i, variant := range ct.Variants {
			c := Case{Name: variant.Name, Index: uint8(i)}
			if variant.Named {
				c.Fields = r.fields(variant.Fields)
			} else if len(variant.Fields) == 1 {
				c.Fields = []Field{{Type: r.register(variant.Fields[0].Type)}}
			}
			v.Variants[i] = c
		}
		return Shape{Variant: v}
	case scale.KindOption:
		elem := r.register(ct.Elem)
		return Shape{Variant: &VariantShape{
			Name:   "Option",
			Path:   scalePkgPath,
			Params: []Param{{Name: "T", Type: elem}},
			Variants: []Case{
				{Name: "None", Index: 0},
				{Name: "Some", Index: 1, Fields: []Field{{Type: elem}}},
			},
		}}
	case scale.KindResult:
		ok := r.register(ct.Elem)
		errID := r.register(ct.Err)
		return Shape{Variant: &VariantShape{
			Name:   "Result",
			Path:   scalePkgPath,
			Params: []Param{{Name: "T", Type: ok}, {Name: "E", Type: errID}},
			Variants: []Case{
				{Name: "Ok", Index: 0, Fields: []Field{{Type: ok}}},
				{Name: "Err", Index: 1, Fields: []Field{{Type: errID}}},
			},
		}}
	case scale.KindUnsupported:
		return unsupportedShape(ct)
	default:
		return PrimitiveShape(ct.Kind)
	}
}

func (r *Registry) fields(fs []scale.Field) []Field {
	out := make([]Field, len(fs))
	for i, f := range fs {
		out[i] = Field{Name: f.Name, Type: r.register(f.Type)}
	}
	return out
}

func unsupportedShape(ct *scale.CompiledType) Shape {
	name := ct.GoType.String()
	return Shape{Unsupported: &name}
}

// typeName drops the instantiation list from generic type names, so
// Pair[uint32,string] is recorded as Pair.
func typeName(t reflect.Type) string {
	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}

// shapeKey is the structural identity of a shape: its own SCALE encoding.
func shapeKey(s Shape) string {
	b, err := scale.Marshal(s)
	if err != nil {
		panic(fmt.Errorf("encode shape: %w", err))
	}
	return string(b)
}
