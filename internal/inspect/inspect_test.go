package inspect

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/wasm-nucleus/abi"
	"github.com/wippyai/wasm-nucleus/errors"
	"github.com/wippyai/wasm-nucleus/guest"
	"github.com/wippyai/wasm-nucleus/internal/inspect/inspecttest"
	"github.com/wippyai/wasm-nucleus/scale"
)

const (
	abiFrameAt   = 4096
	replyFrameAt = 8192
	failFrameAt  = 12288
	inputAt      = 16384
	wildAddr     = 70000
)

func sampleSchema() abi.PortableSchema {
	reg := abi.NewAPIRegistry()
	reg.RegisterAPI("answer", abi.Get, nil, reflect.TypeFor[uint32]())
	reg.RegisterAPI("fail", abi.Post, []reflect.Type{reflect.TypeFor[string]()}, reflect.TypeFor[scale.Result[scale.Unit, string]]())
	return reg.Dump()
}

// guestModule mimics what the generated exports and the guest allocator
// provide, answering with frames preloaded into memory. It also imports a
// host function so loading has something to stub.
func guestModule() []byte {
	m := &inspecttest.Module{
		Types:   inspecttest.GuestTypes(),
		Imports: []inspecttest.Import{{Module: "env", Name: "storage_get", Type: inspecttest.TypeAlloc}},
		Funcs: []inspecttest.Func{
			{Type: inspecttest.TypeAddr, Body: inspecttest.I32Const(abiFrameAt)},
			{Type: inspecttest.TypeAlloc, Body: inspecttest.I32Const(inputAt)},
			{Type: inspecttest.TypeFree},
			{Type: inspecttest.TypeHandler, Body: inspecttest.I32Const(replyFrameAt)},
			{Type: inspecttest.TypeHandler, Body: inspecttest.I32Const(failFrameAt)},
			{Type: inspecttest.TypeHandler, Body: append(inspecttest.I32Const(0), inspecttest.OpCall, 0x00)},
			{Type: inspecttest.TypeInit},
			{Type: inspecttest.TypeCallback},
			{Type: inspecttest.TypeHandler, Body: inspecttest.I32Const(wildAddr)},
		},
		Exports: []inspecttest.Export{
			{Name: "memory", Kind: inspecttest.ExportMemory},
			{Name: abi.ExportABI, Kind: inspecttest.ExportFunc, Index: 1},
			{Name: abi.ExportAlloc, Kind: inspecttest.ExportFunc, Index: 2},
			{Name: abi.ExportFree, Kind: inspecttest.ExportFunc, Index: 3},
			{Name: "__nucleus_get_answer", Kind: inspecttest.ExportFunc, Index: 4},
			{Name: "__nucleus_post_fail", Kind: inspecttest.ExportFunc, Index: 5},
			{Name: "__nucleus_post_explode", Kind: inspecttest.ExportFunc, Index: 6},
			{Name: "__nucleus_init", Kind: inspecttest.ExportFunc, Index: 7},
			{Name: "__nucleus_http_callback", Kind: inspecttest.ExportFunc, Index: 8},
			{Name: "__nucleus_get_wild", Kind: inspecttest.ExportFunc, Index: 9},
			{Name: "helper", Kind: inspecttest.ExportFunc, Index: 7},
		},
		Data: []inspecttest.Data{
			{Offset: abiFrameAt, Bytes: guest.ABI(sampleSchema())},
			{Offset: replyFrameAt, Bytes: guest.Reply(uint32(42))},
			{Offset: failFrameAt, Bytes: guest.Fail(stderrors.New("boom"))},
		},
	}
	return m.Bytes()
}

func mustLoad(t *testing.T, wasm []byte) *Module {
	t.Helper()
	ctx := context.Background()
	m, err := Load(ctx, wasm, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close(ctx) })
	return m
}

func TestLoad_Exports(t *testing.T) {
	m := mustLoad(t, guestModule())

	assert.Equal(t, []Export{
		{Name: "__nucleus_get_answer", Kind: abi.Get, Function: "answer"},
		{Name: "__nucleus_get_wild", Kind: abi.Get, Function: "wild"},
		{Name: "__nucleus_http_callback", Kind: abi.Callback},
		{Name: "__nucleus_init", Kind: abi.Init},
		{Name: "__nucleus_post_explode", Kind: abi.Post, Function: "explode"},
		{Name: "__nucleus_post_fail", Kind: abi.Post, Function: "fail"},
	}, m.Exports())
	assert.Equal(t, []string{"env.storage_get"}, m.Stubbed())
}

func TestModule_ABI(t *testing.T) {
	m := mustLoad(t, guestModule())

	schema, err := m.ABI(context.Background())
	require.NoError(t, err)

	want := sampleSchema()
	require.Len(t, schema.Functions, len(want.Functions))
	for i, fn := range want.Functions {
		got := schema.Functions[i]
		assert.Equal(t, fn.Name, got.Name)
		assert.Equal(t, fn.Kind, got.Kind)
		assert.Equal(t, fn.Return, got.Return)
		assert.Equal(t, len(fn.Params), len(got.Params))
	}
	assert.Len(t, schema.Types, len(want.Types))

	// answer and fail are exported, so nothing is missing
	assert.Empty(t, m.Missing(schema))
}

func TestModule_Missing(t *testing.T) {
	m := mustLoad(t, guestModule())

	reg := abi.NewAPIRegistry()
	reg.RegisterAPI("answer", abi.Get, nil, reflect.TypeFor[uint32]())
	reg.RegisterAPI("ghost", abi.Timer, nil, nil)
	reg.RegisterAPI("", abi.Init, nil, nil)

	assert.Equal(t, []string{"__nucleus_timer_ghost"}, m.Missing(reg.Dump()))
}

func TestModule_Call(t *testing.T) {
	m := mustLoad(t, guestModule())
	ctx := context.Background()

	data, err := m.Call(ctx, abi.Get, "answer", nil)
	require.NoError(t, err)
	var got uint32
	require.NoError(t, scale.Unmarshal(data, &got))
	assert.Equal(t, uint32(42), got)

	args, err := scale.Marshal("input")
	require.NoError(t, err)
	_, err = m.Call(ctx, abi.Post, "fail", args)
	var callErr *guest.CallError
	require.True(t, stderrors.As(err, &callErr), "got %v", err)
	assert.Equal(t, "boom", callErr.Message)
}

func TestModule_CallErrors(t *testing.T) {
	m := mustLoad(t, guestModule())
	ctx := context.Background()

	t.Run("missing_export", func(t *testing.T) {
		_, err := m.Call(ctx, abi.Get, "nothing", nil)
		assert.True(t, stderrors.Is(err, &errors.Error{Phase: errors.PhaseCall, Kind: errors.KindNotFound}), "got %v", err)
	})

	t.Run("no_result_frame", func(t *testing.T) {
		_, err := m.Call(ctx, abi.Init, "", nil)
		assert.True(t, stderrors.Is(err, &errors.Error{Phase: errors.PhaseCall, Kind: errors.KindInvalidInput}), "got %v", err)
	})

	t.Run("stubbed_import", func(t *testing.T) {
		_, err := m.Call(ctx, abi.Post, "explode", nil)
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, &errors.Error{Phase: errors.PhaseCall, Kind: errors.KindTrap}), "got %v", err)
		assert.Contains(t, err.Error(), "env.storage_get")
	})

	t.Run("frame_out_of_bounds", func(t *testing.T) {
		_, err := m.Call(ctx, abi.Get, "wild", nil)
		assert.True(t, stderrors.Is(err, &errors.Error{Phase: errors.PhaseInspect, Kind: errors.KindOutOfBounds}), "got %v", err)
	})
}

func TestModule_InitAndCallback(t *testing.T) {
	m := mustLoad(t, guestModule())
	ctx := context.Background()

	require.NoError(t, m.Init(ctx))

	body, err := scale.Marshal(scale.Tuple2[uint16, []byte]{First: 200, Second: []byte("ok")})
	require.NoError(t, err)
	require.NoError(t, m.Callback(ctx, body))
}

func TestModule_ConcurrentCalls(t *testing.T) {
	m := mustLoad(t, guestModule())

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			_, err := m.Call(ctx, abi.Get, "answer", nil)
			return err
		})
	}
	require.NoError(t, g.Wait())
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Load(ctx, []byte("not wasm"), Options{})
	assert.True(t, stderrors.Is(err, &errors.Error{Phase: errors.PhaseInspect, Kind: errors.KindInvalidData}), "got %v", err)

	_, err = LoadFile(ctx, filepath.Join(t.TempDir(), "missing.wasm"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guest.wasm")
	require.NoError(t, os.WriteFile(path, guestModule(), 0o644))

	ctx := context.Background()
	m, err := LoadFile(ctx, path, Options{MemoryLimitPages: 4})
	require.NoError(t, err)
	defer m.Close(ctx)

	assert.Len(t, m.Exports(), 6)
}

func TestSLEB(t *testing.T) {
	tests := []struct {
		in   int32
		want []byte
	}{
		{0, []byte{0x00}},
		{42, []byte{0x2a}},
		{64, []byte{0xc0, 0x00}},
		{4096, []byte{0x80, 0x20}},
		{70000, []byte{0xf0, 0xa2, 0x04}},
		{-1, []byte{0x7f}},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, inspecttest.SLEB(tc.in), "SLEB(%d)", tc.in)
	}
}

func TestGuest(t *testing.T) {
	reply := guest.Reply("pong")
	m := mustLoad(t, inspecttest.Guest(sampleSchema(), map[string][]byte{
		"__nucleus_get_ping": reply,
	}))
	ctx := context.Background()

	schema, err := m.ABI(ctx)
	require.NoError(t, err)
	assert.Len(t, schema.Functions, 2)

	data, err := m.Call(ctx, abi.Get, "ping", []byte{1, 2, 3})
	require.NoError(t, err)
	var got string
	require.NoError(t, scale.Unmarshal(data, &got))
	assert.Equal(t, "pong", got)

	require.NoError(t, m.Init(ctx))
	require.NoError(t, m.Callback(ctx, nil))
	assert.Empty(t, m.Stubbed())
}
