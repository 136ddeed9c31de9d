package scale

import (
	"reflect"
	"strings"
	"sync"
)

// CompiledType is the precomputed SCALE layout of a Go type.
type CompiledType struct {
	GoType   reflect.Type
	Elem     *CompiledType // sequence, array and option element; result Ok
	Err      *CompiledType // result Err
	Name     string        // struct and enum name
	PkgPath  string
	Reason   string // why the type is unsupported
	Fields   []Field
	Variants []Variant
	Params   []*CompiledType // generic parameters of Option and Result
	Len      int             // array length
	MinSize  int             // lower bound of the encoded size
	Kind     Kind
}

// Field is a struct or tuple member.
type Field struct {
	Type  *CompiledType
	Name  string // empty for tuple members
	Index int    // Go struct field index
}

// Variant is one case of an enum.
type Variant struct {
	Payload *CompiledType // pointee type of the variant field
	Name    string
	Fields  []Field // payload members as seen by the schema
	Index   int     // Go struct field index
	Named   bool    // payload is an anonymous struct with named fields
}

// Compiler builds and caches CompiledTypes. It is safe for concurrent use.
type Compiler struct {
	cache sync.Map // reflect.Type -> *CompiledType
}

func NewCompiler() *Compiler {
	return &Compiler{}
}

var defaultCompiler = NewCompiler()

var (
	enumType          = reflect.TypeFor[Enum]()
	byteType          = reflect.TypeFor[byte]()
	optionMarkerType  = reflect.TypeFor[optionMarker]()
	resultMarkerType  = reflect.TypeFor[resultMarker]()
	tupleMarkerType   = reflect.TypeFor[tupleMarker]()
	unsupportedReason = map[reflect.Kind]string{
		reflect.Float32:       "floating point has no SCALE encoding",
		reflect.Float64:       "floating point has no SCALE encoding",
		reflect.Complex64:     "complex numbers have no SCALE encoding",
		reflect.Complex128:    "complex numbers have no SCALE encoding",
		reflect.Map:           "maps have no deterministic order",
		reflect.Pointer:       "pointers are only allowed as enum variants",
		reflect.Interface:     "interfaces carry no static shape",
		reflect.Func:          "functions cannot cross the boundary",
		reflect.Chan:          "channels cannot cross the boundary",
		reflect.Uintptr:       "uintptr is platform dependent",
		reflect.UnsafePointer: "raw pointers cannot cross the boundary",
	}
)

// Compile returns the layout of t. Types outside the SCALE vocabulary compile
// to KindUnsupported instead of failing; encoding such a value fails.
func (c *Compiler) Compile(t reflect.Type) *CompiledType {
	if cached, ok := c.cache.Load(t); ok {
		return cached.(*CompiledType)
	}
	building := make(map[reflect.Type]*CompiledType)
	ct := c.compile(t, building)
	for bt, bct := range building {
		c.cache.LoadOrStore(bt, bct)
	}
	actual, _ := c.cache.LoadOrStore(t, ct)
	return actual.(*CompiledType)
}

// Compile returns the layout of t using the package compiler.
func Compile(t reflect.Type) *CompiledType {
	return defaultCompiler.Compile(t)
}

func (c *Compiler) compile(t reflect.Type, building map[reflect.Type]*CompiledType) *CompiledType {
	if cached, ok := c.cache.Load(t); ok {
		return cached.(*CompiledType)
	}
	if ct, ok := building[t]; ok {
		return ct
	}

	ct := &CompiledType{GoType: t}
	building[t] = ct

	switch t.Kind() {
	case reflect.Bool:
		ct.Kind = KindBool
	case reflect.Uint8:
		ct.Kind = KindU8
	case reflect.Int8:
		ct.Kind = KindI8
	case reflect.Uint16:
		ct.Kind = KindU16
	case reflect.Int16:
		ct.Kind = KindI16
	case reflect.Uint32:
		ct.Kind = KindU32
	case reflect.Int32:
		ct.Kind = KindI32
	case reflect.Uint64, reflect.Uint:
		ct.Kind = KindU64
	case reflect.Int64, reflect.Int:
		ct.Kind = KindI64
	case reflect.String:
		ct.Kind = KindString
		ct.MinSize = 1
	case reflect.Slice:
		ct.Kind = KindSequence
		ct.Elem = c.compile(t.Elem(), building)
		ct.MinSize = 1
	case reflect.Array:
		ct.Kind = KindArray
		ct.Elem = c.compile(t.Elem(), building)
		ct.Len = t.Len()
		ct.MinSize = ct.Len * ct.Elem.MinSize
	case reflect.Struct:
		c.compileStruct(ct, t, building)
	default:
		markUnsupported(ct, unsupportedReason[t.Kind()])
	}

	if fixed := ct.Kind.FixedSize(); fixed > 0 {
		ct.MinSize = fixed
	}
	return ct
}

func markUnsupported(ct *CompiledType, reason string) {
	ct.Kind = KindUnsupported
	if reason == "" {
		reason = "unsupported Go kind " + ct.GoType.Kind().String()
	}
	ct.Reason = reason
	ct.Elem, ct.Err, ct.Fields, ct.Variants, ct.Params = nil, nil, nil, nil, nil
}

func (c *Compiler) compileStruct(ct *CompiledType, t reflect.Type, building map[reflect.Type]*CompiledType) {
	switch {
	case t.Implements(optionMarkerType):
		ct.Kind = KindOption
		ct.Name = "Option"
		ct.Elem = c.compile(t.Field(0).Type, building)
		ct.Params = []*CompiledType{ct.Elem}
		ct.MinSize = 1
		return
	case t.Implements(resultMarkerType):
		ct.Kind = KindResult
		ct.Name = "Result"
		ct.Elem = c.compile(t.Field(0).Type, building)
		ct.Err = c.compile(t.Field(1).Type, building)
		ct.Params = []*CompiledType{ct.Elem, ct.Err}
		ct.MinSize = 1
		return
	case t.Implements(tupleMarkerType):
		ct.Kind = KindTuple
		ct.Fields = c.compileFields(t, building, false)
		ct.MinSize = sumMinSize(ct.Fields)
		return
	case t.NumField() > 0 && t.Field(0).Anonymous && t.Field(0).Type == enumType:
		c.compileEnum(ct, t, building)
		return
	}

	ct.Fields = c.compileFields(t, building, true)
	ct.MinSize = sumMinSize(ct.Fields)
	if len(ct.Fields) == 0 {
		// struct{} and Unit are the empty tuple
		ct.Kind = KindTuple
		return
	}
	ct.Kind = KindStruct
	ct.Name = t.Name()
	ct.PkgPath = t.PkgPath()
}

func (c *Compiler) compileFields(t reflect.Type, building map[reflect.Type]*CompiledType, named bool) []Field {
	var fields []Field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, skip := fieldName(sf)
		if skip {
			continue
		}
		if !named {
			name = ""
		}
		fields = append(fields, Field{
			Name:  name,
			Index: i,
			Type:  c.compile(sf.Type, building),
		})
	}
	return fields
}

func (c *Compiler) compileEnum(ct *CompiledType, t reflect.Type, building map[reflect.Type]*CompiledType) {
	ct.Kind = KindEnum
	ct.Name = t.Name()
	ct.PkgPath = t.PkgPath()
	ct.MinSize = 1

	for i := 1; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, skip := fieldName(sf)
		if skip {
			continue
		}
		if sf.Type.Kind() != reflect.Pointer {
			markUnsupported(ct, "enum variant "+sf.Name+" is not a pointer")
			return
		}
		pointee := sf.Type.Elem()
		payload := c.compile(pointee, building)
		v := Variant{
			Name:    name,
			Index:   i,
			Payload: payload,
		}
		switch {
		case pointee.Kind() == reflect.Struct && pointee.NumField() == 0:
			// unit variant
		case pointee.Kind() == reflect.Struct && pointee.Name() == "":
			v.Named = true
			v.Fields = payload.Fields
		default:
			v.Fields = []Field{{Type: payload}}
		}
		ct.Variants = append(ct.Variants, v)
	}
	if len(ct.Variants) > 256 {
		markUnsupported(ct, "enum has more than 256 variants")
	}
}

func fieldName(sf reflect.StructField) (string, bool) {
	tag, ok := sf.Tag.Lookup("scale")
	if !ok {
		return sf.Name, false
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return "", true
	}
	if name == "" {
		return sf.Name, false
	}
	return name, false
}

func sumMinSize(fields []Field) int {
	n := 0
	for _, f := range fields {
		n += f.Type.MinSize
	}
	return n
}
