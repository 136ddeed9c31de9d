package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-nucleus/internal/codegen"
	"github.com/wippyai/wasm-nucleus/internal/exportlog"
	"github.com/wippyai/wasm-nucleus/internal/inspect"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "text" | "json"
	Color   string // "auto" | "always" | "never"
}

var (
	ValidFormats = []string{"text", "json"}
	ValidColors  = []string{"auto", "always", "never"}
)

// NewRootCommand creates the nucleusgen command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nucleusgen",
		Short: "Generate and inspect the host boundary of Go WebAssembly modules",
		Long: `nucleusgen writes the boundary wrappers for Go packages annotated with
//nucleus: directives, maintains the shared export document, and inspects
built modules through the schema they publish.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if !slices.Contains(ValidColors, opts.Color) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid color %q: must be one of %v", opts.Color, ValidColors))
			}
			log := newLogger(cmd.ErrOrStderr(), opts.Verbose, colorEnabled(cmd.ErrOrStderr(), opts.Color))
			codegen.SetLogger(log.Named("codegen"))
			exportlog.SetLogger(log.Named("exportlog"))
			inspect.SetLogger(log.Named("inspect"))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")
	cmd.PersistentFlags().StringVar(&opts.Color, "color", "auto", "colorize output (auto|always|never)")

	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewABICommand(opts))
	cmd.AddCommand(NewExportsCommand(opts))

	return cmd
}
