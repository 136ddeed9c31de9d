package cli

import (
	"context"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-nucleus/abi"
	"github.com/wippyai/wasm-nucleus/guest"
	"github.com/wippyai/wasm-nucleus/internal/inspect"
)

type abiOptions struct {
	memoryPages uint32
}

// ABIReport is the JSON form of abi show.
type ABIReport struct {
	Module  string             `json:"module"`
	Schema  abi.PortableSchema `json:"schema"`
	Exports []string           `json:"exports"`
	Missing []string           `json:"missing,omitempty"`
	Stubbed []string           `json:"stubbed,omitempty"`
}

func NewABICommand(rootOpts *RootOptions) *cobra.Command {
	opts := &abiOptions{}

	cmd := &cobra.Command{
		Use:   "abi",
		Short: "Inspect a built module through its published schema",
	}
	cmd.PersistentFlags().Uint32Var(&opts.memoryPages, "memory-pages", 0, "guest memory limit in 64KiB pages (0 for the runtime default)")

	cmd.AddCommand(newABIShowCommand(rootOpts, opts))
	cmd.AddCommand(newABIWITCommand(rootOpts, opts))
	cmd.AddCommand(newABICallCommand(rootOpts, opts))
	cmd.AddCommand(newABIBrowseCommand(rootOpts, opts))
	return cmd
}

func newABIShowCommand(rootOpts *RootOptions, opts *abiOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <module.wasm>",
		Short: "List exposed functions and their types",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withModule(cmd, opts, args[0], func(ctx context.Context, m *inspect.Module) error {
				schema, err := m.ABI(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "read schema", err)
				}
				report := ABIReport{
					Module:  args[0],
					Schema:  schema,
					Missing: m.Missing(schema),
					Stubbed: m.Stubbed(),
				}
				for _, e := range m.Exports() {
					report.Exports = append(report.Exports, e.Name)
				}

				p := newPrinter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
				if p.json() {
					if err := p.writeJSON(report); err != nil {
						return err
					}
				} else {
					printABI(p, report)
				}
				if len(report.Missing) > 0 {
					return NewExitError(ExitFailure, "schema names functions the module does not export: "+strings.Join(report.Missing, ", "))
				}
				return nil
			})
		},
	}
}

func printABI(p *printer, r ABIReport) {
	p.line("%s", p.style.title.Render(filepath.Base(r.Module)))
	for _, fn := range r.Schema.Functions {
		p.line("  %s%s", p.style.kind.Render(fn.Kind.String()), p.style.name.Render(r.Schema.Signature(fn)))
	}
	p.line("%s", p.style.muted.Render(plural(len(r.Schema.Functions), "function")+", "+plural(len(r.Schema.Types), "type")))
	for _, name := range r.Stubbed {
		p.line("%s", p.style.muted.Render("stubbed import "+name))
	}
	for _, name := range r.Missing {
		p.diag(p.style.warn, "missing export %s", name)
	}
}

func newABIWITCommand(rootOpts *RootOptions, opts *abiOptions) *cobra.Command {
	var iface string

	cmd := &cobra.Command{
		Use:   "wit <module.wasm>",
		Short: "Render the schema as a WIT interface",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withModule(cmd, opts, args[0], func(ctx context.Context, m *inspect.Module) error {
				schema, err := m.ABI(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "read schema", err)
				}
				name := iface
				if name == "" {
					name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
				}
				text, err := abi.RenderWIT(schema, name)
				if err != nil {
					return WrapExitError(ExitFailure, "render WIT", err)
				}
				p := newPrinter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
				if p.json() {
					return p.writeJSON(map[string]string{"interface": name, "wit": text})
				}
				fmt.Fprint(p.out, text)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&iface, "interface", "", "interface name (default: module file name)")
	return cmd
}

func newABICallCommand(rootOpts *RootOptions, opts *abiOptions) *cobra.Command {
	var (
		argsHex string
		runInit bool
	)

	cmd := &cobra.Command{
		Use:   "call <module.wasm> <get|post|timer|callback|init> [name]",
		Short: "Call an exposed function with SCALE-encoded arguments",
		Long: `Call invokes one exposed function. Arguments are the hex form of the
SCALE-encoded parameter list; the encoded return value is printed as hex.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := abi.ParseKind(args[1])
			if !ok {
				return NewExitError(ExitCommandError, fmt.Sprintf("unknown function kind %q", args[1]))
			}
			name := ""
			if len(args) == 3 {
				name = args[2]
			}
			if kind.HasReturn() && name == "" {
				return NewExitError(ExitCommandError, kind.String()+" calls need a function name")
			}
			input, err := hex.DecodeString(strings.TrimPrefix(argsHex, "0x"))
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --args", err)
			}

			return withModule(cmd, opts, args[0], func(ctx context.Context, m *inspect.Module) error {
				if runInit && kind != abi.Init {
					if err := m.Init(ctx); err != nil {
						return WrapExitError(ExitFailure, "init", err)
					}
				}
				var out []byte
				switch kind {
				case abi.Init:
					err = m.Init(ctx)
				case abi.Callback:
					err = m.Callback(ctx, input)
				default:
					out, err = m.Call(ctx, kind, name, input)
				}

				p := newPrinter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
				var callErr *guest.CallError
				if stderrors.As(err, &callErr) {
					if p.json() {
						_ = p.writeJSON(map[string]string{"error": callErr.Message})
					}
					return WrapExitError(ExitFailure, kind.ExportName(name)+" failed", err)
				}
				if err != nil {
					return WrapExitError(ExitFailure, "call "+kind.ExportName(name), err)
				}
				if p.json() {
					return p.writeJSON(map[string]string{"result": hex.EncodeToString(out)})
				}
				if kind.HasReturn() {
					p.line("%s", hex.EncodeToString(out))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&argsHex, "args", "", "hex-encoded SCALE arguments")
	cmd.Flags().BoolVar(&runInit, "init", false, "run the init function first")
	return cmd
}

func withModule(cmd *cobra.Command, opts *abiOptions, path string, fn func(context.Context, *inspect.Module) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	m, err := inspect.LoadFile(ctx, path, inspect.Options{
		MemoryLimitPages: opts.memoryPages,
		Stderr:           cmd.ErrOrStderr(),
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "load "+path, err)
	}
	defer m.Close(ctx)
	return fn(ctx, m)
}
