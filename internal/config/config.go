package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/wasm-nucleus/errors"
)

const (
	// FileName is the optional configuration file at the module root.
	FileName = "nucleus.toml"

	EnvExportPath = "NUCLEUS_EXPORT_PATH"
	EnvCacheDir   = "NUCLEUS_CACHE_DIR"
	EnvJobs       = "NUCLEUS_JOBS"

	DefaultOutput      = "nucleus_gen.go"
	DefaultExportsFile = "nucleus_exports.go"
)

// Config is the resolved generator configuration. Paths are absolute.
type Config struct {
	// Root is the directory holding go.mod, or the start directory when no
	// module is found.
	Root string `toml:"-"`
	// File is the nucleus.toml that was read, empty when none exists.
	File     string         `toml:"-"`
	Export   ExportConfig   `toml:"export"`
	Cache    CacheConfig    `toml:"cache"`
	Generate GenerateConfig `toml:"generate"`
}

type ExportConfig struct {
	Path    string `toml:"path"`
	Enabled bool   `toml:"enabled"`
}

type CacheConfig struct {
	Dir     string `toml:"dir"`
	Enabled bool   `toml:"enabled"`
}

type GenerateConfig struct {
	Jobs        int    `toml:"jobs"`
	Output      string `toml:"output"`
	ExportsFile string `toml:"exports_file"`
}

// Default returns the configuration used when nothing overrides it.
func Default(root string) *Config {
	return &Config{
		Root: root,
		Export: ExportConfig{
			Path:    filepath.Join(root, "build", "nucleus", "exports.json"),
			Enabled: true,
		},
		Cache: CacheConfig{
			Dir:     filepath.Join(root, "build", "nucleus", "cache"),
			Enabled: true,
		},
		Generate: GenerateConfig{
			Jobs:        runtime.GOMAXPROCS(0),
			Output:      DefaultOutput,
			ExportsFile: DefaultExportsFile,
		},
	}
}

// Load resolves the configuration for startDir: defaults, then nucleus.toml
// at the module root, then environment overrides.
func Load(startDir string) (*Config, error) {
	root, err := FindModuleRoot(startDir)
	if err != nil {
		return nil, err
	}
	cfg := Default(root)

	file := filepath.Join(root, FileName)
	if _, err := os.Stat(file); err == nil {
		if err := cfg.decodeFile(file); err != nil {
			return nil, err
		}
	} else if !stderrors.Is(err, os.ErrNotExist) {
		return nil, errors.IO(errors.PhaseConfig, "stat", file, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	meta, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse "+path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Detail("%s: unknown keys %s", path, strings.Join(keys, ", ")).
			Build()
	}
	c.File = path
	if meta.IsDefined("export", "path") {
		c.Export.Path = c.resolve(c.Export.Path)
	}
	if meta.IsDefined("cache", "dir") {
		c.Cache.Dir = c.resolve(c.Cache.Dir)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvExportPath); ok && v != "" {
		c.Export.Path = c.resolve(v)
	}
	if v, ok := os.LookupEnv(EnvCacheDir); ok && v != "" {
		c.Cache.Dir = c.resolve(v)
	}
	if v, ok := os.LookupEnv(EnvJobs); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Detail("%s=%q is not an integer", EnvJobs, v).
				Cause(err).
				Build()
		}
		c.Generate.Jobs = n
	}
	return nil
}

// Validate checks value ranges and file names.
func (c *Config) Validate() error {
	if c.Generate.Jobs < 1 {
		return errors.InvalidInput(errors.PhaseConfig, "generate.jobs must be at least 1, got "+strconv.Itoa(c.Generate.Jobs))
	}
	for key, name := range map[string]string{
		"generate.output":       c.Generate.Output,
		"generate.exports_file": c.Generate.ExportsFile,
	} {
		if name == "" || filepath.Base(name) != name || !strings.HasSuffix(name, ".go") {
			return errors.InvalidInput(errors.PhaseConfig, key+" must be a .go file name, got "+strconv.Quote(name))
		}
	}
	if c.Generate.Output == c.Generate.ExportsFile {
		return errors.InvalidInput(errors.PhaseConfig, "generate.output and generate.exports_file must differ")
	}
	if c.Export.Enabled && c.Export.Path == "" {
		return errors.InvalidInput(errors.PhaseConfig, "export.path is empty")
	}
	return nil
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Root, p)
}

// FindModuleRoot walks up from startDir to the directory holding go.mod.
// It returns the absolute startDir when no go.mod is found.
func FindModuleRoot(startDir string) (string, error) {
	if startDir == "" {
		startDir = "."
	}
	start, err := filepath.Abs(startDir)
	if err != nil {
		return "", errors.IO(errors.PhaseConfig, "resolve", startDir, err)
	}
	dir := start
	for {
		candidate := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(candidate); err == nil {
			return dir, nil
		} else if !stderrors.Is(err, os.ErrNotExist) {
			return "", errors.IO(errors.PhaseConfig, "stat", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start, nil
		}
		dir = parent
	}
}
