package codegen

import (
	"go/ast"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/wippyai/wasm-nucleus/abi"
	"github.com/wippyai/wasm-nucleus/internal/exportlog"
)

// Records describes every annotated declaration for the export document,
// in source order.
func (p *Package) Records() []exportlog.Record {
	type ordered struct {
		order  int
		record exportlog.Record
	}
	var all []ordered
	for _, td := range p.Types {
		all = append(all, ordered{td.order, p.typeRecord(td)})
	}
	for _, fn := range p.Funcs {
		all = append(all, ordered{fn.order, fnRecord(fn)})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].order < all[j].order })

	out := make([]exportlog.Record, len(all))
	for i, o := range all {
		out[i] = o.record
	}
	return out
}

func fnRecord(fn *Func) exportlog.Record {
	var inputs []exportlog.FieldRecord
	for _, p := range fn.Params {
		inputs = append(inputs, exportlog.FieldRecord{Name: p.Name, Type: p.Type})
	}
	output := ""
	if fn.Kind != abi.Init && fn.Kind != abi.Callback {
		output = fn.WireReturn()
	}
	return exportlog.FnRecord(fn.Name, fn.Kind.String(), inputs, output)
}

func (p *Package) typeRecord(td *TypeDecl) exportlog.Record {
	st, isStruct := td.spec.Type.(*ast.StructType)
	switch {
	case td.Alias() || !isStruct:
		return exportlog.TypeAliasRecord(td.Name, td.Generics, p.exprString(td.spec.Type))
	case isEnum(st):
		return exportlog.EnumRecord(td.Name, td.Generics, p.variants(st))
	default:
		return exportlog.StructRecord(td.Name, td.Generics, p.fields(st))
	}
}

// fields lists the encoded fields of a struct: exported, not skipped,
// renamed by their scale tag.
func (p *Package) fields(st *ast.StructType) []exportlog.FieldRecord {
	out := []exportlog.FieldRecord{}
	for _, field := range st.Fields.List {
		typ := p.exprString(field.Type)
		tag := scaleTag(field)
		if tag == "-" {
			continue
		}
		names := field.Names
		if len(names) == 0 {
			names = []*ast.Ident{ast.NewIdent(embeddedName(field.Type))}
		}
		for _, n := range names {
			if !ast.IsExported(n.Name) {
				continue
			}
			name := n.Name
			if tag != "" {
				name = tag
			}
			out = append(out, exportlog.FieldRecord{Name: name, Type: typ})
		}
	}
	return out
}

// variants lists enum cases: every field after the embedded scale.Enum.
func (p *Package) variants(st *ast.StructType) []exportlog.VariantRecord {
	var out []exportlog.VariantRecord
	for _, field := range st.Fields.List[1:] {
		if scaleTag(field) == "-" {
			continue
		}
		star, ok := field.Type.(*ast.StarExpr)
		if !ok {
			continue
		}
		var fields []exportlog.FieldRecord
		if inner, ok := star.X.(*ast.StructType); ok {
			fields = p.fields(inner)
		} else {
			fields = []exportlog.FieldRecord{{Name: "0", Type: p.exprString(star.X)}}
		}
		for _, n := range field.Names {
			name := n.Name
			if tag := scaleTag(field); tag != "" {
				name = tag
			}
			out = append(out, exportlog.VariantRecord{Name: name, Fields: fields})
		}
	}
	return out
}

func scaleTag(field *ast.Field) string {
	if field.Tag == nil {
		return ""
	}
	raw, err := strconv.Unquote(field.Tag.Value)
	if err != nil {
		return ""
	}
	name, _, _ := strings.Cut(reflect.StructTag(raw).Get("scale"), ",")
	return name
}

func embeddedName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return t.Sel.Name
	case *ast.StarExpr:
		return embeddedName(t.X)
	case *ast.IndexExpr:
		return embeddedName(t.X)
	case *ast.IndexListExpr:
		return embeddedName(t.X)
	}
	return ""
}
