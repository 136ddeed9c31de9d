package cli

import (
	"context"
	stderrors "errors"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-nucleus/errors"
	"github.com/wippyai/wasm-nucleus/internal/codegen"
	"github.com/wippyai/wasm-nucleus/internal/config"
	"github.com/wippyai/wasm-nucleus/internal/exportlog"
	"github.com/wippyai/wasm-nucleus/internal/gencache"
)

type generateOptions struct {
	jobs         int
	resetExports bool
	noCache      bool
	noExport     bool
}

// GenerateSummary is the JSON form of a generate run.
type GenerateSummary struct {
	Packages   []PackageSummary `json:"packages"`
	ExportPath string           `json:"export_path,omitempty"`
}

type PackageSummary struct {
	Package string   `json:"package"`
	Dir     string   `json:"dir"`
	Funcs   int      `json:"funcs"`
	Types   int      `json:"types"`
	Cached  bool     `json:"cached"`
	Written []string `json:"written,omitempty"`
}

func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate [dir...]",
		Short: "Generate boundary wrappers for annotated packages",
		Long: `Generate parses each package directory (the current directory by default),
writes nucleus_gen.go and nucleus_exports.go next to the sources, and appends
one record per annotated declaration to the shared export document.

Settings come from nucleus.toml at the module root and the NUCLEUS_*
environment variables; flags override both.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			return runGenerate(cmd, rootOpts, opts, args)
		},
	}

	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 0, "packages generated in parallel (default from config)")
	cmd.Flags().BoolVar(&opts.resetExports, "reset-exports", false, "truncate the export document before generating")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "ignore the generation cache")
	cmd.Flags().BoolVar(&opts.noExport, "no-export", false, "do not append export records")

	return cmd
}

func runGenerate(cmd *cobra.Command, rootOpts *RootOptions, opts *generateOptions, dirs []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	p := newPrinter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := config.Load(dirs[0])
	if err != nil {
		return WrapExitError(ExitCommandError, "load configuration", err)
	}
	if cmd.Flags().Changed("jobs") {
		cfg.Generate.Jobs = opts.jobs
		if err := cfg.Validate(); err != nil {
			return WrapExitError(ExitCommandError, "invalid --jobs", err)
		}
	}

	genOpts := codegen.Options{
		Output:      cfg.Generate.Output,
		ExportsFile: cfg.Generate.ExportsFile,
	}
	if cfg.Cache.Enabled && !opts.noCache {
		cache, err := gencache.Open(cfg.Cache.Dir)
		if err != nil {
			return WrapExitError(ExitCommandError, "open generation cache", err)
		}
		genOpts.Cache = cache
	}
	if cfg.Export.Enabled && !opts.noExport {
		genOpts.ExportPath = cfg.Export.Path
		if opts.resetExports {
			if err := exportlog.NewChannel(cfg.Export.Path).Reset(ctx); err != nil {
				return WrapExitError(ExitCommandError, "reset export document", err)
			}
		}
	}

	results, err := codegen.New(genOpts).GenerateAll(ctx, dirs, cfg.Generate.Jobs)
	if err != nil {
		return generateError(p, err)
	}

	summary := GenerateSummary{ExportPath: genOpts.ExportPath}
	for _, r := range results {
		summary.Packages = append(summary.Packages, PackageSummary{
			Package: r.Package,
			Dir:     r.Dir,
			Funcs:   r.Funcs,
			Types:   r.Types,
			Cached:  r.Cached,
			Written: r.Written,
		})
	}
	if p.json() {
		return p.writeJSON(summary)
	}
	for _, pkg := range summary.Packages {
		state := "generated"
		if pkg.Cached {
			state = "cached"
		}
		p.line("%s %s %s",
			p.style.name.Render(pkg.Package),
			p.style.muted.Render(pkg.Dir),
			p.style.typ.Render(plural(pkg.Funcs, "function")+", "+plural(pkg.Types, "type")+" ("+state+")"))
	}
	return nil
}

// generateError reports rejected declarations one per line and maps the
// failure to an exit code.
func generateError(p *printer, err error) error {
	var malformed *errors.MalformedDeclsError
	if stderrors.As(err, &malformed) {
		for _, d := range malformed.Diagnostics {
			p.diag(p.style.err, "%s", d.String())
		}
		return WrapExitError(ExitFailure, plural(len(malformed.Diagnostics), "declaration")+" rejected", err)
	}
	var e *errors.Error
	if stderrors.As(err, &e) && e.Phase == errors.PhaseGenerate && e.Kind == errors.KindNotFound {
		return WrapExitError(ExitCommandError, "generate", err)
	}
	return WrapExitError(ExitFailure, "generate", err)
}
