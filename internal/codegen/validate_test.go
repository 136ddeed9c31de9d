package codegen

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/wasm-nucleus/errors"
)

type malformedCase struct {
	Name   string   `yaml:"name"`
	Source string   `yaml:"source"`
	Errors []string `yaml:"errors"`
}

func loadMalformedCases(t *testing.T) []malformedCase {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "malformed.yaml"))
	require.NoError(t, err)

	var cases []malformedCase
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	require.NoError(t, dec.Decode(&cases))
	require.NotEmpty(t, cases)
	return cases
}

func TestGenerate_Malformed(t *testing.T) {
	for _, tc := range loadMalformedCases(t) {
		t.Run(tc.Name, func(t *testing.T) {
			require.NotEmpty(t, tc.Errors, "case lists no expected errors")

			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "p.go"), []byte(tc.Source), 0o644))

			_, err := New(Options{}).Generate(context.Background(), dir)
			require.Error(t, err)

			var malformed *errors.MalformedDeclsError
			require.True(t, stderrors.As(err, &malformed), "got %T: %v", err, err)
			assert.True(t, stderrors.Is(err, &errors.Error{Phase: errors.PhaseGenerate, Kind: errors.KindMalformedDecl}))
			assert.Len(t, malformed.Diagnostics, len(tc.Errors))
			for _, want := range tc.Errors {
				assert.Contains(t, err.Error(), want)
			}

			_, statErr := os.Stat(filepath.Join(dir, "nucleus_gen.go"))
			assert.True(t, os.IsNotExist(statErr), "rejected package must not get output")
		})
	}
}

func TestDiagnostics_Positions(t *testing.T) {
	dir := t.TempDir()
	src := "package p\n\n//nucleus:get\nfunc Sum(xs ...uint32) uint32 { return 0 }\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p.go"), []byte(src), 0o644))

	_, err := New(Options{}).Generate(context.Background(), dir)
	var malformed *errors.MalformedDeclsError
	require.True(t, stderrors.As(err, &malformed))
	require.Len(t, malformed.Diagnostics, 1)

	d := malformed.Diagnostics[0]
	assert.Equal(t, filepath.Join(dir, "p.go"), d.Pos.Filename)
	assert.Equal(t, 4, d.Pos.Line)
	assert.Equal(t, "Sum", d.Decl)
}
