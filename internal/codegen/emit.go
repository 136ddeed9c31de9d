package codegen

import (
	"bytes"
	"embed"
	"go/ast"
	"go/format"
	"path"
	"strings"
	"text/template"

	"github.com/wippyai/wasm-nucleus/abi"
	"github.com/wippyai/wasm-nucleus/errors"
	"github.com/wippyai/wasm-nucleus/internal/gencache"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"hasReturn":  abi.Kind.HasReturn,
	"isCallback": func(k abi.Kind) bool { return k == abi.Callback },
	"kindIdent":  kindIdent,
	"args": func(fn *Func) string {
		vars := make([]string, len(fn.Params))
		for i, p := range fn.Params {
			vars[i] = p.Var
		}
		return strings.Join(vars, ", ")
	},
}).ParseFS(templateFS, "templates/*.tmpl"))

type fileData struct {
	Package string
	Imports []Import
	Funcs   []*Func
	Scale   bool
}

// Render produces the handler file and the wasip1 export file.
func (p *Package) Render(output, exportsFile string) ([]gencache.Output, error) {
	data := fileData{Package: p.Name, Funcs: p.Funcs, Scale: p.usesScale()}
	for _, imp := range p.Imports {
		if imp.Name == path.Base(imp.Path) {
			imp.Name = ""
		}
		data.Imports = append(data.Imports, imp)
	}

	gen, err := render("gen.go.tmpl", data)
	if err != nil {
		return nil, err
	}
	exports, err := render("exports.go.tmpl", data)
	if err != nil {
		return nil, err
	}
	return []gencache.Output{
		{Name: output, Content: gen},
		{Name: exportsFile, Content: exports},
	}, nil
}

// usesScale reports whether the handler file refers to the scale package:
// through a wire return that wraps the result, or through a signature that
// names it.
func (p *Package) usesScale() bool {
	for _, fn := range p.Funcs {
		if !fn.Kind.HasReturn() || fn.Form != ResultValue {
			return true
		}
		found := false
		ast.Inspect(fn.decl.Type, func(n ast.Node) bool {
			if sel, ok := n.(*ast.SelectorExpr); ok {
				if id, ok := sel.X.(*ast.Ident); ok && id.Name == "scale" {
					found = true
				}
			}
			return !found
		})
		if found {
			return true
		}
	}
	return false
}

func render(name string, data fileData) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, errors.Wrap(errors.PhaseGenerate, errors.KindInvalidData, err, "execute "+name)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, errors.New(errors.PhaseGenerate, errors.KindInvalidData).
			Detail("format %s output for package %s", name, data.Package).
			Cause(err).
			Build()
	}
	return src, nil
}
