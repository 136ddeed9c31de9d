package codegen

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/wasm-nucleus/errors"
	"github.com/wippyai/wasm-nucleus/internal/exportlog"
	"github.com/wippyai/wasm-nucleus/internal/gencache"
)

// Version salts cache keys. Bump it whenever emitted code changes.
const Version = "nucleusgen/2"

const generatedHeader = "// Code generated by nucleusgen. DO NOT EDIT."

// Options configures a Generator.
type Options struct {
	Output      string
	ExportsFile string
	// ExportPath is the shared export document. Empty disables records.
	ExportPath string
	// Cache is optional.
	Cache *gencache.Cache
}

// Generator turns annotated packages into boundary wrappers.
type Generator struct {
	opts Options
}

func New(opts Options) *Generator {
	if opts.Output == "" {
		opts.Output = "nucleus_gen.go"
	}
	if opts.ExportsFile == "" {
		opts.ExportsFile = "nucleus_exports.go"
	}
	return &Generator{opts: opts}
}

// Result summarizes one package run.
type Result struct {
	Package string
	Dir     string
	Funcs   int
	Types   int
	Records []exportlog.Record
	// Written lists the files whose content changed.
	Written []string
	Cached  bool
}

// Generate processes the package in dir: it writes the generated files when
// their content changes and appends the package's export records.
func (g *Generator) Generate(ctx context.Context, dir string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := Logger().With(zap.String("dir", dir))

	sources, err := readSources(dir, g.opts.Output, g.opts.ExportsFile)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, errors.NotFound(errors.PhaseGenerate, "Go files in", dir)
	}

	key := gencache.Sum(Version+"\x00"+g.opts.Output+"\x00"+g.opts.ExportsFile, sources)
	entry, hit, err := g.opts.Cache.Get(key)
	if err != nil {
		log.Warn("generation cache unreadable, regenerating", zap.Error(err))
	}

	res := &Result{Dir: dir, Cached: hit}
	if hit {
		log.Debug("generation cache hit", zap.Stringer("key", key))
		res.Package = entry.Package
		res.Records = entry.Records
		res.Funcs, res.Types = countRecords(entry.Records)
	} else {
		pkg, err := parsePackage(dir, sources)
		if err != nil {
			return nil, err
		}
		entry = &gencache.Entry{Package: pkg.Name, Dir: dir, Records: pkg.Records()}
		if len(pkg.Funcs) > 0 {
			entry.Outputs, err = pkg.Render(g.opts.Output, g.opts.ExportsFile)
			if err != nil {
				return nil, err
			}
		}
		if err := g.opts.Cache.Put(key, entry); err != nil {
			log.Warn("generation cache write failed", zap.Error(err))
		}
		res.Package = pkg.Name
		res.Records = entry.Records
		res.Funcs, res.Types = len(pkg.Funcs), len(pkg.Types)
	}

	if len(entry.Outputs) == 0 {
		if err := removeStale(dir, g.opts.Output, g.opts.ExportsFile); err != nil {
			return nil, err
		}
	}
	for _, out := range entry.Outputs {
		changed, err := writeIfChanged(filepath.Join(dir, out.Name), out.Content)
		if err != nil {
			return nil, err
		}
		if changed {
			res.Written = append(res.Written, out.Name)
		}
	}

	if g.opts.ExportPath != "" && len(res.Records) > 0 {
		// one channel per package, so packages lock the document like
		// separate processes would
		if err := exportlog.NewChannel(g.opts.ExportPath).Append(ctx, res.Records...); err != nil {
			return nil, err
		}
	}

	log.Info("generated package",
		zap.String("package", res.Package),
		zap.Int("funcs", res.Funcs),
		zap.Int("types", res.Types),
		zap.Strings("written", res.Written),
		zap.Bool("cached", res.Cached))
	return res, nil
}

// GenerateAll runs Generate over dirs with at most jobs packages in flight.
// Results keep the order of dirs.
func (g *Generator) GenerateAll(ctx context.Context, dirs []string, jobs int) ([]*Result, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]*Result, len(dirs))
	if len(dirs) == 0 {
		return results, nil
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(min(jobs, len(dirs)))
	for i, dir := range dirs {
		eg.Go(func() error {
			res, err := g.Generate(egctx, dir)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func countRecords(records []exportlog.Record) (funcs, types int) {
	for _, r := range records {
		if r.Type == exportlog.TypeFn {
			funcs++
		} else {
			types++
		}
	}
	return funcs, types
}

// writeIfChanged replaces path with content through a temp file unless it
// already holds exactly content.
func writeIfChanged(path string, content []byte) (bool, error) {
	current, err := os.ReadFile(path)
	if err == nil && bytes.Equal(current, content) {
		return false, nil
	}
	if err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return false, errors.IO(errors.PhaseGenerate, "read", path, err)
	}

	f, err := os.CreateTemp(filepath.Dir(path), ".nucleusgen-*")
	if err != nil {
		return false, errors.IO(errors.PhaseGenerate, "create", filepath.Dir(path), err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(content); err != nil {
		f.Close()
		return false, errors.IO(errors.PhaseGenerate, "write", tmp, err)
	}
	if err := f.Close(); err != nil {
		return false, errors.IO(errors.PhaseGenerate, "close", tmp, err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return false, errors.IO(errors.PhaseGenerate, "chmod", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return false, errors.IO(errors.PhaseGenerate, "rename", path, err)
	}
	return true, nil
}

// removeStale deletes previously generated files once a package no longer
// exposes functions. Files without the generated header are left alone.
func removeStale(dir string, names ...string) error {
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if stderrors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return errors.IO(errors.PhaseGenerate, "read", path, err)
		}
		if !bytes.HasPrefix(data, []byte(generatedHeader)) {
			continue
		}
		if err := os.Remove(path); err != nil {
			return errors.IO(errors.PhaseGenerate, "remove", path, err)
		}
		Logger().Debug("removed stale generated file", zap.String("path", path))
	}
	return nil
}
