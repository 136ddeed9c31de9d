package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-nucleus/internal/config"
	"github.com/wippyai/wasm-nucleus/internal/exportlog"
)

func NewExportsCommand(rootOpts *RootOptions) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "exports",
		Short: "Read or reset the shared export document",
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "export document (default from config)")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the records in the export document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := exportPath(path)
			if err != nil {
				return err
			}
			return runExportsShow(cmd, rootOpts, resolved)
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Truncate the export document to an empty list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := exportPath(path)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := exportlog.NewChannel(resolved).Reset(ctx); err != nil {
				return WrapExitError(ExitCommandError, "reset export document", err)
			}
			p := newPrinter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if p.json() {
				return p.writeJSON(map[string]string{"path": resolved})
			}
			p.line("reset %s", resolved)
			return nil
		},
	}

	cmd.AddCommand(show, reset)
	return cmd
}

func exportPath(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, err := config.Load(".")
	if err != nil {
		return "", WrapExitError(ExitCommandError, "load configuration", err)
	}
	return cfg.Export.Path, nil
}

func runExportsShow(cmd *cobra.Command, rootOpts *RootOptions, path string) error {
	records, err := exportlog.Read(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "read export document", err)
	}
	p := newPrinter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if p.json() {
		return p.writeJSON(records)
	}

	p.line("%s", p.style.title.Render(path))
	for _, r := range records {
		p.line("%s %s", p.style.kind.Width(10).Render(string(r.Type)), describeRecord(p.style, r))
	}
	p.line("%s", p.style.muted.Render(plural(len(records), "record")))
	return nil
}

func describeRecord(s styles, r exportlog.Record) string {
	name := r.Name
	if len(r.Generics) > 0 {
		name += "[" + strings.Join(r.Generics, ", ") + "]"
	}
	name = s.name.Render(name)

	switch r.Type {
	case exportlog.TypeFn:
		inputs := make([]string, len(r.Inputs))
		for i, in := range r.Inputs {
			inputs[i] = in.Name + " " + in.Type
		}
		out := s.muted.Render(r.Method) + " " + name + "(" + s.typ.Render(strings.Join(inputs, ", ")) + ")"
		if r.Output != "" {
			out += " " + s.typ.Render(r.Output)
		}
		return out
	case exportlog.TypeStruct:
		return name + " {" + s.typ.Render(fieldList(r.Fields)) + "}"
	case exportlog.TypeEnum:
		variants := make([]string, len(r.Variants))
		for i, v := range r.Variants {
			variants[i] = v.Name
			if len(v.Fields) > 0 {
				variants[i] += "{" + fieldList(v.Fields) + "}"
			}
		}
		return name + " " + s.typ.Render(strings.Join(variants, " | "))
	case exportlog.TypeTypeAlias:
		return name + " = " + s.typ.Render(r.Target)
	default:
		return name
	}
}

func fieldList(fields []exportlog.FieldRecord) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Name + " " + f.Type
	}
	return strings.Join(parts, "; ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
