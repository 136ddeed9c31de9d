package codegen

import (
	"go/ast"
	"go/types"
	"sort"

	"github.com/wippyai/wasm-nucleus/abi"
	"github.com/wippyai/wasm-nucleus/errors"
)

// builtins without a wire representation
var unsupportedIdents = map[string]string{
	"float32":    "floating point",
	"float64":    "floating point",
	"complex64":  "complex",
	"complex128": "complex",
	"uintptr":    "uintptr",
	"any":        "interface",
	"error":      "interface",
}

// validate applies the declaration rules and fills in result forms.
func (c *collector) validate() {
	exports := make(map[string]*Func)
	var inits, callbacks []*Func

	for _, fn := range c.pkg.Funcs {
		c.validateFunc(fn)

		switch fn.Kind {
		case abi.Init:
			inits = append(inits, fn)
		case abi.Callback:
			callbacks = append(callbacks, fn)
		}
		if prev, dup := exports[fn.ExportName()]; dup && fn.Kind.HasReturn() {
			c.report(fn.decl.Pos(), fn.GoName, "export %s already used by %s", fn.ExportName(), prev.GoName)
			continue
		}
		exports[fn.ExportName()] = fn
	}
	for _, extra := range tail(inits) {
		c.report(extra.decl.Pos(), extra.GoName, "package already has an init function: %s", inits[0].GoName)
	}
	for _, extra := range tail(callbacks) {
		c.report(extra.decl.Pos(), extra.GoName, "package already has a callback function: %s", callbacks[0].GoName)
	}

	for _, td := range c.pkg.Types {
		c.validateType(td)
	}

	if len(c.diags) == 0 {
		c.resolveImports()
	}
	sort.SliceStable(c.diags, func(i, j int) bool {
		a, b := c.diags[i].Pos, c.diags[j].Pos
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		return a.Offset < b.Offset
	})
}

func tail(fns []*Func) []*Func {
	if len(fns) < 2 {
		return nil
	}
	return fns[1:]
}

func (c *collector) validateFunc(fn *Func) {
	d := fn.decl
	name := fn.GoName

	if d.Recv != nil {
		c.report(d.Pos(), name, "methods cannot be exposed; use a top-level function")
	}
	if d.Type.TypeParams != nil && len(d.Type.TypeParams.List) > 0 {
		c.report(d.Type.TypeParams.Pos(), name, "exposed functions cannot have type parameters")
	}
	if d.Name.Name == "init" {
		c.report(d.Pos(), name, "func init cannot be called from generated code; give it another name")
	}
	if fn.renamed && !fn.Kind.HasReturn() {
		c.report(d.Pos(), name, "name= is not accepted by %s%s; its export name is fixed", directivePrefix, fn.Kind)
	}

	for _, p := range fn.Params {
		if _, ok := p.expr.(*ast.Ellipsis); ok {
			c.report(p.expr.Pos(), name, "variadic parameter %s is not supported", p.Name)
			continue
		}
		c.checkWireType(p.expr, name, "parameter "+p.Name)
	}

	var results []ast.Expr
	if d.Type.Results != nil {
		for _, field := range d.Type.Results.List {
			n := len(field.Names)
			if n == 0 {
				n = 1
			}
			for range n {
				results = append(results, field.Type)
			}
		}
	}

	switch fn.Kind {
	case abi.Init:
		if len(fn.Params) > 0 {
			c.report(d.Type.Params.Pos(), name, "init function takes no parameters")
		}
		if len(results) > 0 {
			c.report(d.Type.Results.Pos(), name, "init function returns nothing")
		}
		return
	case abi.Callback:
		if len(results) > 0 {
			c.report(d.Type.Results.Pos(), name, "callback function returns nothing")
		}
		return
	}

	switch len(results) {
	case 0:
		fn.Form = ResultNone
	case 1:
		if isError(results[0]) {
			fn.Form = ResultError
			return
		}
		fn.Form = ResultValue
		fn.Value = c.pkg.exprString(results[0])
		c.checkWireType(results[0], name, "result")
	case 2:
		if !isError(results[1]) || isError(results[0]) {
			c.report(d.Type.Results.Pos(), name, "a second result must be error, as in (T, error)")
			return
		}
		fn.Form = ResultPair
		fn.Value = c.pkg.exprString(results[0])
		c.checkWireType(results[0], name, "result")
	default:
		c.report(d.Type.Results.Pos(), name, "at most two results are supported, got %d", len(results))
	}
}

func isError(expr ast.Expr) bool {
	id, ok := expr.(*ast.Ident)
	return ok && id.Name == "error"
}

// checkWireType rejects type expressions the codec cannot carry. Named
// types are taken on trust; the registry marks what slips through as
// unsupported.
func (c *collector) checkWireType(expr ast.Expr, decl, what string) {
	var bad ast.Expr
	var reason string
	ast.Inspect(expr, func(n ast.Node) bool {
		if bad != nil {
			return false
		}
		switch t := n.(type) {
		case *ast.MapType:
			bad, reason = t, "map"
		case *ast.ChanType:
			bad, reason = t, "channel"
		case *ast.FuncType:
			bad, reason = t, "function"
		case *ast.InterfaceType:
			bad, reason = t, "interface"
		case *ast.StarExpr:
			bad, reason = t, "pointer"
		case *ast.Ident:
			if r, ok := unsupportedIdents[t.Name]; ok {
				bad, reason = t, r
			}
		case *ast.SelectorExpr:
			// qualified names are opaque
			return false
		}
		return bad == nil
	})
	if bad != nil {
		c.report(bad.Pos(), decl, "%s: %s (%s) has no wire encoding", what, types.ExprString(bad), reason)
	}
}

func (c *collector) validateType(td *TypeDecl) {
	switch t := td.spec.Type.(type) {
	case *ast.StructType:
		if td.Alias() {
			return
		}
		if isEnum(t) {
			for _, field := range t.Fields.List[1:] {
				if _, ok := field.Type.(*ast.StarExpr); !ok {
					c.report(field.Pos(), td.Name, "enum variant %s must be a pointer", fieldLabel(field))
				}
			}
		}
	case *ast.InterfaceType, *ast.FuncType, *ast.ChanType, *ast.MapType:
		c.report(td.spec.Pos(), td.Name, "exported types must be structs, enums or aliases of encodable types")
	}
}

// isEnum reports whether the struct embeds scale.Enum as its first field.
func isEnum(st *ast.StructType) bool {
	if st.Fields == nil || len(st.Fields.List) == 0 {
		return false
	}
	first := st.Fields.List[0]
	if len(first.Names) != 0 {
		return false
	}
	sel, ok := first.Type.(*ast.SelectorExpr)
	return ok && sel.Sel.Name == "Enum"
}

func fieldLabel(f *ast.Field) string {
	if len(f.Names) > 0 {
		return f.Names[0].Name
	}
	return "(embedded)"
}

// check runs collection diagnostics and validation together.
func (c *collector) check() error {
	c.validate()
	if len(c.diags) > 0 {
		return errors.NewMalformedDeclsError(c.diags)
	}
	return nil
}
