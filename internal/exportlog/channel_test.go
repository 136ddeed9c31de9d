package exportlog

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/wasm-nucleus/errors"
)

const (
	helperPathEnv  = "EXPORTLOG_HELPER_PATH"
	helperCountEnv = "EXPORTLOG_HELPER_COUNT"
	helperNameEnv  = "EXPORTLOG_HELPER_NAME"
)

func docPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "build", "nucleus", "exports.json")
}

func sampleRecords() []Record {
	return []Record{
		StructRecord("E", nil, []FieldRecord{
			{Name: "A", Type: "[]uint32"},
			{Name: "B", Type: "int32"},
			{Name: "C", Type: "uint32"},
		}),
		EnumRecord("MyCustomEnum", nil, []VariantRecord{
			{Name: "VariantA", Fields: []FieldRecord{}},
			{Name: "VariantB", Fields: []FieldRecord{{Name: "0", Type: "uint32"}}},
			{Name: "VariantC", Fields: []FieldRecord{{Name: "id", Type: "uint64"}, {Name: "name", Type: "string"}}},
		}),
		FnRecord("use_codec", "post", []FieldRecord{{Name: "d", Type: "D"}}, "scale.Result[E, string]"),
		TypeAliasRecord("G", []string{"T"}, "scale.Result[T, string]"),
	}
}

func TestChannel_AppendCreatesDocument(t *testing.T) {
	path := docPath(t)
	ch := NewChannel(path)

	require.NoError(t, ch.Append(context.Background(), sampleRecords()...))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), got)
}

func TestChannel_DocumentFormat(t *testing.T) {
	path := docPath(t)
	require.NoError(t, NewChannel(path).Append(context.Background(), sampleRecords()...))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "document", data)
}

func TestChannel_AppendPreservesExisting(t *testing.T) {
	path := docPath(t)
	ctx := context.Background()

	first := NewChannel(path)
	require.NoError(t, first.Append(ctx, StructRecord("A", nil, nil)))

	// a second invocation sees a non-empty document and must not reset it
	second := NewChannel(path)
	require.NoError(t, second.Append(ctx, StructRecord("B", nil, nil)))
	require.NoError(t, first.Append(ctx, StructRecord("C", nil, nil)))

	got, err := Read(path)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"A", "B", "C"}, names(got))
}

func TestChannel_EmptyFileIsInitialized(t *testing.T) {
	path := docPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	require.NoError(t, NewChannel(path).Append(context.Background(), StructRecord("A", nil, nil)))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestChannel_ConcurrentAppenders(t *testing.T) {
	const n = 32
	path := docPath(t)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		g.Go(func() error {
			// separate channel, separate descriptor
			return NewChannel(path).Append(ctx, StructRecord(fmt.Sprintf("T%d", i), nil, nil))
		})
	}
	require.NoError(t, g.Wait())

	got, err := Read(path)
	require.NoError(t, err)
	require.Len(t, got, n)

	seen := make(map[string]bool, n)
	for _, r := range got {
		seen[r.Name] = true
	}
	assert.Len(t, seen, n)
}

func TestChannel_ConcurrentProcesses(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns subprocesses")
	}
	const (
		procs   = 4
		perProc = 8
		inProc  = 8
	)
	path := docPath(t)
	exe, err := os.Executable()
	require.NoError(t, err)

	g, ctx := errgroup.WithContext(context.Background())
	for p := 0; p < procs; p++ {
		g.Go(func() error {
			cmd := exec.CommandContext(ctx, exe, "-test.run=^TestHelperAppender$")
			cmd.Env = append(os.Environ(),
				helperPathEnv+"="+path,
				helperCountEnv+"="+strconv.Itoa(perProc),
				helperNameEnv+"="+fmt.Sprintf("P%d", p),
			)
			out, err := cmd.CombinedOutput()
			if err != nil {
				return fmt.Errorf("helper %d: %w\n%s", p, err, out)
			}
			return nil
		})
	}
	for i := 0; i < inProc; i++ {
		g.Go(func() error {
			return NewChannel(path).Append(ctx, StructRecord(fmt.Sprintf("L%d", i), nil, nil))
		})
	}
	require.NoError(t, g.Wait())

	got, err := Read(path)
	require.NoError(t, err)
	assert.Len(t, got, procs*perProc+inProc)
}

// TestHelperAppender runs inside the subprocesses of
// TestChannel_ConcurrentProcesses.
func TestHelperAppender(t *testing.T) {
	path := os.Getenv(helperPathEnv)
	if path == "" {
		t.Skip("helper process only")
	}
	count, err := strconv.Atoi(os.Getenv(helperCountEnv))
	require.NoError(t, err)
	prefix := os.Getenv(helperNameEnv)

	ch := NewChannel(path)
	for i := 0; i < count; i++ {
		require.NoError(t, ch.Append(context.Background(), StructRecord(fmt.Sprintf("%s-%d", prefix, i), nil, nil)))
	}
}

func TestChannel_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not_json", "{not json"},
		{"object", `{"type":"struct"}`},
		{"null", "null"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := docPath(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o644))

			err := NewChannel(path).Append(context.Background(), StructRecord("A", nil, nil))
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, &errors.Error{Phase: errors.PhaseExport, Kind: errors.KindCorrupt}), "got %v", err)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tc.content, string(data), "corrupt document was modified")
		})
	}
}

func TestChannel_Reset(t *testing.T) {
	path := docPath(t)
	ctx := context.Background()
	ch := NewChannel(path)

	require.NoError(t, ch.Append(ctx, sampleRecords()...))
	require.NoError(t, ch.Reset(ctx))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, ch.Append(ctx, StructRecord("A", nil, nil)))
	got, err = Read(path)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestChannel_InvalidRecord(t *testing.T) {
	path := docPath(t)
	err := NewChannel(path).Append(context.Background(), Record{Type: TypeFn, Name: "f"})
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, stderrors.Is(statErr, fs.ErrNotExist), "invalid record should not touch the document")
}

func TestChannel_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewChannel(docPath(t)).Append(ctx, StructRecord("A", nil, nil))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRead_Missing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		record  Record
		wantErr bool
	}{
		{"struct", StructRecord("S", nil, nil), false},
		{"enum", EnumRecord("E", nil, nil), false},
		{"fn", FnRecord("f", "get", nil, "uint32"), false},
		{"alias", TypeAliasRecord("G", []string{"T"}, "[]T"), false},
		{"no_name", Record{Type: TypeStruct}, true},
		{"fn_no_method", Record{Type: TypeFn, Name: "f"}, true},
		{"alias_no_target", Record{Type: TypeTypeAlias, Name: "G"}, true},
		{"unknown_type", Record{Type: "trait", Name: "X"}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.record.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func names(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}
