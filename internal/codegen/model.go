package codegen

import (
	"go/ast"
	"go/token"

	"github.com/wippyai/wasm-nucleus/abi"
)

// Package is an annotated Go package ready for emission.
type Package struct {
	Name    string
	Dir     string
	Funcs   []*Func
	Types   []*TypeDecl
	Imports []Import

	fset  *token.FileSet
	files []*ast.File
	// source comments carrying a directive, keyed by position
	directives map[token.Pos]bool
}

// Import is a package the generated handlers need.
type Import struct {
	Name string
	Path string
}

// Param is one parameter of an exposed function.
type Param struct {
	// Name is the source name, or argN for unnamed parameters.
	Name string
	// Var is the local the handler decodes into.
	Var  string
	Type string

	expr ast.Expr
}

// ResultForm is how a function's Go results map onto the wire return.
type ResultForm int

const (
	ResultNone  ResultForm = iota // no results: unit
	ResultValue                   // T
	ResultPair                    // (T, error): Result[T, string]
	ResultError                   // error: Result[Unit, string]
)

// Func is an exposed function.
type Func struct {
	Kind   abi.Kind
	Name   string
	GoName string
	Params []Param
	// Value is the non-error result type, empty when there is none.
	Value string
	Form  ResultForm
	Pos   token.Position

	decl  *ast.FuncDecl
	file  *ast.File
	order int
	// named explicitly through name=
	renamed bool
}

// ExportName is the module export symbol for the function.
func (f *Func) ExportName() string {
	return f.Kind.ExportName(f.Name)
}

// HandlerName is the generated handler. Init has none.
func (f *Func) HandlerName() string {
	if f.Kind == abi.Callback {
		return "nucleusCallback"
	}
	return "nucleus" + kindIdent(f.Kind) + f.GoName
}

// WireReturn is the Go type expression of the encoded return value.
func (f *Func) WireReturn() string {
	switch f.Form {
	case ResultValue:
		return f.Value
	case ResultPair:
		return "scale.Result[" + f.Value + ", string]"
	case ResultError:
		return "scale.Result[scale.Unit, string]"
	default:
		return "scale.Unit"
	}
}

// TypeDecl is a type marked with //nucleus:export.
type TypeDecl struct {
	Name     string
	Generics []string
	Pos      token.Position

	spec  *ast.TypeSpec
	file  *ast.File
	order int
}

// Alias reports whether the declaration is a type alias.
func (t *TypeDecl) Alias() bool {
	return t.spec.Assign.IsValid()
}
