package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-nucleus/errors"
)

func writeModule(t *testing.T, toml string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/m\n"), 0o644))
	if toml != "" {
		require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(toml), 0o644))
	}
	return root
}

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvExportPath, "")
	t.Setenv(EnvCacheDir, "")
	t.Setenv(EnvJobs, "")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	root := writeModule(t, "")
	sub := filepath.Join(root, "pkg", "api")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	cfg, err := Load(sub)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Root)
	assert.Empty(t, cfg.File)
	assert.Equal(t, filepath.Join(root, "build", "nucleus", "exports.json"), cfg.Export.Path)
	assert.True(t, cfg.Export.Enabled)
	assert.Equal(t, filepath.Join(root, "build", "nucleus", "cache"), cfg.Cache.Dir)
	assert.True(t, cfg.Cache.Enabled)
	assert.GreaterOrEqual(t, cfg.Generate.Jobs, 1)
	assert.Equal(t, DefaultOutput, cfg.Generate.Output)
	assert.Equal(t, DefaultExportsFile, cfg.Generate.ExportsFile)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	root := writeModule(t, `
[export]
path = "out/shapes.json"

[cache]
enabled = false

[generate]
jobs = 3
output = "boundary_gen.go"
`)

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, FileName), cfg.File)
	assert.Equal(t, filepath.Join(root, "out", "shapes.json"), cfg.Export.Path)
	assert.True(t, cfg.Export.Enabled, "unset keys keep their defaults")
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 3, cfg.Generate.Jobs)
	assert.Equal(t, "boundary_gen.go", cfg.Generate.Output)
	assert.Equal(t, DefaultExportsFile, cfg.Generate.ExportsFile)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	root := writeModule(t, `
[export]
path = "from-file.json"
`)
	abs := filepath.Join(t.TempDir(), "shared.json")
	t.Setenv(EnvExportPath, abs)
	t.Setenv(EnvCacheDir, "tmp/cache")
	t.Setenv(EnvJobs, "2")

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, abs, cfg.Export.Path)
	assert.Equal(t, filepath.Join(root, "tmp", "cache"), cfg.Cache.Dir)
	assert.Equal(t, 2, cfg.Generate.Jobs)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		toml string
		env  string
	}{
		{"syntax", "[export\npath = 1", ""},
		{"unknown_key", "[export]\nlocation = \"x\"", ""},
		{"zero_jobs", "[generate]\njobs = 0", ""},
		{"output_with_dir", "[generate]\noutput = \"sub/gen.go\"", ""},
		{"output_not_go", "[generate]\noutput = \"gen.txt\"", ""},
		{"same_outputs", "[generate]\noutput = \"a.go\"\nexports_file = \"a.go\"", ""},
		{"bad_env_jobs", "", "many"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			if tc.env != "" {
				t.Setenv(EnvJobs, tc.env)
			}
			_, err := Load(writeModule(t, tc.toml))
			require.Error(t, err)

			var e *errors.Error
			require.True(t, stderrors.As(err, &e), "got %T", err)
			assert.Equal(t, errors.PhaseConfig, e.Phase)
		})
	}
}

func TestFindModuleRoot_NoModule(t *testing.T) {
	dir := t.TempDir()
	root, err := FindModuleRoot(dir)
	require.NoError(t, err)
	// TempDir may sit under a directory with go.mod only in odd setups
	if _, statErr := os.Stat(filepath.Join(root, "go.mod")); statErr != nil {
		assert.Equal(t, dir, root)
	}
}
