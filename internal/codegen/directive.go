package codegen

import (
	"fmt"
	"go/ast"
	"go/token"
	"strings"

	"github.com/wippyai/wasm-nucleus/abi"
)

const directivePrefix = "//nucleus:"

const verbExport = "export"

// directive is one //nucleus:<verb> [name=<abi name>] line.
type directive struct {
	Verb string
	Name string
	Pos  token.Pos
}

func (d directive) kind() (abi.Kind, bool) {
	return abi.ParseKind(d.Verb)
}

func isDirective(c *ast.Comment) bool {
	return strings.HasPrefix(c.Text, directivePrefix)
}

// parseDirective reads one comment line. The error string is a diagnostic
// message.
func parseDirective(c *ast.Comment) (directive, string) {
	fields := strings.Fields(strings.TrimPrefix(c.Text, directivePrefix))
	d := directive{Pos: c.Slash}
	if len(fields) == 0 {
		return d, "empty nucleus directive"
	}
	d.Verb = fields[0]
	if _, ok := d.kind(); !ok && d.Verb != verbExport {
		return d, fmt.Sprintf("unknown directive %q", directivePrefix+d.Verb)
	}
	for _, arg := range fields[1:] {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key != "name" {
			return d, fmt.Sprintf("unknown argument %q to %s", arg, directivePrefix+d.Verb)
		}
		if !validABIName(value) {
			return d, fmt.Sprintf("invalid name %q", value)
		}
		d.Name = value
	}
	return d, ""
}
