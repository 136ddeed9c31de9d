package codegen

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/build"
	"go/parser"
	"go/printer"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-nucleus/abi"
	"github.com/wippyai/wasm-nucleus/errors"
	"github.com/wippyai/wasm-nucleus/internal/gencache"
)

// moduleContext selects the files that are compiled into the module.
var moduleContext = func() build.Context {
	ctx := build.Default
	ctx.GOOS = "wasip1"
	ctx.GOARCH = "wasm"
	ctx.CgoEnabled = false
	return ctx
}()

// readSources returns the package's non-test Go files ordered by name.
// Files named in skip, the generator's own outputs, are left out, as are
// files whose build constraints exclude them from a wasip1 build.
func readSources(dir string, skip ...string) ([]gencache.Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.IO(errors.PhaseGenerate, "read", dir, err)
	}
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}

	var out []gencache.Source
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") || skipped[name] {
			continue
		}
		match, err := moduleContext.MatchFile(dir, name)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseGenerate, errors.KindInvalidData, err, "build constraints of "+filepath.Join(dir, name))
		}
		if !match {
			Logger().Debug("skipping file excluded by build constraints", zap.String("file", name))
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, errors.IO(errors.PhaseGenerate, "read", filepath.Join(dir, name), err)
		}
		out = append(out, gencache.Source{Name: name, Data: data})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// collector walks parsed files and gathers annotated declarations.
type collector struct {
	pkg   *Package
	diags []errors.Diagnostic
	order int
}

// parsePackage parses sources, collects every annotated declaration and
// validates it. Rejected declarations are reported together as a
// *errors.MalformedDeclsError.
func parsePackage(dir string, sources []gencache.Source) (*Package, error) {
	fset := token.NewFileSet()
	pkg := &Package{
		Dir:        dir,
		fset:       fset,
		directives: make(map[token.Pos]bool),
	}

	for _, src := range sources {
		path := filepath.Join(dir, src.Name)
		f, err := parser.ParseFile(fset, path, src.Data, parser.ParseComments|parser.SkipObjectResolution)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseGenerate, errors.KindInvalidInput, err, "parse "+path)
		}
		if pkg.Name == "" {
			pkg.Name = f.Name.Name
		} else if f.Name.Name != pkg.Name {
			return nil, errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
				Detail("%s declares package %s, want %s", path, f.Name.Name, pkg.Name).
				Build()
		}
		pkg.files = append(pkg.files, f)
	}

	c := &collector{pkg: pkg}
	for _, f := range pkg.files {
		c.file(f)
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return pkg, nil
}

func (c *collector) report(pos token.Pos, decl, format string, args ...any) {
	c.diags = append(c.diags, errors.Diagnostic{
		Pos:     c.pkg.fset.Position(pos),
		Decl:    decl,
		Message: fmt.Sprintf(format, args...),
	})
}

// directives parses the directive lines of a doc comment.
func (c *collector) directives(doc *ast.CommentGroup, decl string) []directive {
	if doc == nil {
		return nil
	}
	var out []directive
	for _, line := range doc.List {
		if !isDirective(line) {
			continue
		}
		c.pkg.directives[line.Slash] = true
		d, problem := parseDirective(line)
		if problem != "" {
			c.report(line.Slash, decl, "%s", problem)
			continue
		}
		out = append(out, d)
	}
	return out
}

func (c *collector) file(f *ast.File) {
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			c.funcDecl(f, d)
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				for _, dir := range c.directives(d.Doc, d.Tok.String()) {
					c.report(dir.Pos, d.Tok.String(), "%s%s applies to functions and types", directivePrefix, dir.Verb)
				}
				continue
			}
			for _, spec := range d.Specs {
				ts := spec.(*ast.TypeSpec)
				doc := ts.Doc
				if doc == nil && !d.Lparen.IsValid() {
					doc = d.Doc
				}
				c.typeSpec(f, ts, doc)
			}
		}
	}

	// directives not consumed above float free of any declaration
	for _, group := range f.Comments {
		for _, line := range group.List {
			if isDirective(line) && !c.pkg.directives[line.Slash] {
				c.report(line.Slash, "", "%s is not attached to a declaration", strings.Fields(line.Text)[0])
			}
		}
	}
}

func (c *collector) funcDecl(f *ast.File, d *ast.FuncDecl) {
	dirs := c.directives(d.Doc, d.Name.Name)
	if len(dirs) == 0 {
		return
	}

	var chosen *directive
	for i := range dirs {
		dir := &dirs[i]
		if dir.Verb == verbExport {
			c.report(dir.Pos, d.Name.Name, "%s%s applies to type declarations", directivePrefix, verbExport)
			continue
		}
		if chosen != nil {
			c.report(dir.Pos, d.Name.Name, "function already marked %s%s", directivePrefix, chosen.Verb)
			continue
		}
		chosen = dir
	}
	if chosen == nil {
		return
	}

	kind, _ := chosen.kind()
	fn := &Func{
		Kind:   kind,
		GoName: d.Name.Name,
		Name:   snake(d.Name.Name),
		Pos:    c.pkg.fset.Position(d.Pos()),
		decl:   d,
		file:   f,
		order:  c.next(),
	}
	if chosen.Name != "" {
		fn.Name = chosen.Name
		fn.renamed = true
	}

	i := 0
	for _, field := range d.Type.Params.List {
		typ := c.pkg.exprString(field.Type)
		names := field.Names
		if len(names) == 0 {
			names = []*ast.Ident{nil}
		}
		for _, n := range names {
			name := "arg" + strconv.Itoa(i)
			if n != nil && n.Name != "_" {
				name = n.Name
			}
			fn.Params = append(fn.Params, Param{
				Name: name,
				Var:  "p" + strconv.Itoa(i),
				Type: typ,
				expr: field.Type,
			})
			i++
		}
	}
	c.pkg.Funcs = append(c.pkg.Funcs, fn)
}

func (c *collector) typeSpec(f *ast.File, ts *ast.TypeSpec, doc *ast.CommentGroup) {
	dirs := c.directives(doc, ts.Name.Name)
	if len(dirs) == 0 {
		return
	}
	exported := false
	for _, dir := range dirs {
		switch {
		case dir.Verb != verbExport:
			c.report(dir.Pos, ts.Name.Name, "%s%s applies to functions", directivePrefix, dir.Verb)
		case dir.Name != "":
			c.report(dir.Pos, ts.Name.Name, "name= is not accepted by %s%s", directivePrefix, verbExport)
		case exported:
			c.report(dir.Pos, ts.Name.Name, "duplicate %s%s", directivePrefix, verbExport)
		default:
			exported = true
		}
	}
	if !exported {
		return
	}

	td := &TypeDecl{
		Name:  ts.Name.Name,
		Pos:   c.pkg.fset.Position(ts.Pos()),
		spec:  ts,
		file:  f,
		order: c.next(),
	}
	if ts.TypeParams != nil {
		for _, field := range ts.TypeParams.List {
			for _, n := range field.Names {
				td.Generics = append(td.Generics, n.Name)
			}
		}
	}
	c.pkg.Types = append(c.pkg.Types, td)
}

func (c *collector) next() int {
	c.order++
	return c.order
}

// exprString prints a type expression as written in source.
func (p *Package) exprString(expr ast.Expr) string {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, p.fset, expr); err != nil {
		return fmt.Sprintf("%T", expr)
	}
	return buf.String()
}

// generatedImports are the packages every generated file uses, by local name.
var generatedImports = map[string]string{
	"abi":     "github.com/wippyai/wasm-nucleus/abi",
	"guest":   "github.com/wippyai/wasm-nucleus/guest",
	"reflect": "reflect",
	"scale":   "github.com/wippyai/wasm-nucleus/scale",
	"sync":    "sync",
}

var (
	majorVersion  = regexp.MustCompile(`^v[0-9]+$`)
	gopkgInSuffix = regexp.MustCompile(`\.v[0-9]+$`)
)

// defaultImportName guesses the package name an unnamed import binds.
func defaultImportName(path string) string {
	parts := strings.Split(path, "/")
	name := parts[len(parts)-1]
	if majorVersion.MatchString(name) && len(parts) > 1 {
		name = parts[len(parts)-2]
	}
	name = gopkgInSuffix.ReplaceAllString(name, "")
	name = strings.TrimPrefix(name, "go-")
	name = strings.TrimSuffix(name, "-go")
	name = strings.TrimSuffix(name, ".go")
	return strings.ReplaceAll(name, "-", "")
}

// lookupImport finds the import bound to local in f.
func lookupImport(f *ast.File, local string) (string, bool) {
	for _, spec := range f.Imports {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		name := defaultImportName(path)
		if spec.Name != nil {
			name = spec.Name.Name
		}
		if name == local {
			return path, true
		}
	}
	return "", false
}

// resolveImports collects the imports referenced by exposed signatures.
func (c *collector) resolveImports() {
	seen := make(map[string]string)
	for local, path := range generatedImports {
		seen[local] = path
	}

	var visit func(fn *Func, expr ast.Expr)
	visit = func(fn *Func, expr ast.Expr) {
		ast.Inspect(expr, func(n ast.Node) bool {
			sel, ok := n.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			x, ok := sel.X.(*ast.Ident)
			if !ok {
				return true
			}
			path, ok := lookupImport(fn.file, x.Name)
			if !ok {
				c.report(sel.Pos(), fn.GoName, "cannot resolve package %s; import it with an explicit name", x.Name)
				return false
			}
			if prev, dup := seen[x.Name]; dup {
				if prev != path {
					c.report(sel.Pos(), fn.GoName, "package name %s refers to %s here and to %s in generated code", x.Name, path, prev)
				}
				return false
			}
			seen[x.Name] = path
			c.pkg.Imports = append(c.pkg.Imports, Import{Name: x.Name, Path: path})
			return false
		})
	}

	for _, fn := range c.pkg.Funcs {
		for _, p := range fn.Params {
			visit(fn, p.expr)
		}
		if fn.decl.Type.Results != nil {
			for _, r := range fn.decl.Type.Results.List {
				visit(fn, r.Type)
			}
		}
	}
	sort.Slice(c.pkg.Imports, func(i, j int) bool { return c.pkg.Imports[i].Path < c.pkg.Imports[j].Path })
}

// Kinds returns the number of exposed functions per kind.
func (p *Package) Kinds() map[abi.Kind]int {
	out := make(map[abi.Kind]int)
	for _, fn := range p.Funcs {
		out[fn.Kind]++
	}
	return out
}
