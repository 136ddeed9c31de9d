package abi

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/wippyai/wasm-nucleus/scale"
)

func TestAPIRegistry_ReturnOnlyStruct(t *testing.T) {
	reg := NewAPIRegistry()
	reg.RegisterAPI("make_e", Post, nil, reflect.TypeFor[exportE]())

	schema := reg.Dump()
	// u32, []u32, i32 and the struct itself
	if len(schema.Types) != 4 {
		t.Fatalf("len(Types) = %d, want 4", len(schema.Types))
	}
	fn, ok := schema.Function("make_e")
	if !ok {
		t.Fatal("make_e missing from dump")
	}
	if len(fn.Params) != 0 {
		t.Errorf("Params = %v, want none", fn.Params)
	}
	ret, ok := schema.Resolve(fn.Return)
	if !ok || ret.Struct == nil || ret.Struct.Name != "exportE" {
		t.Errorf("return type %d is not exportE", fn.Return)
	}
}

func TestAPIRegistry_SharedTypes(t *testing.T) {
	reg := NewAPIRegistry()
	reg.RegisterAPI("use_codec", Post,
		[]reflect.Type{reflect.TypeFor[exportD]()},
		reflect.TypeFor[scale.Result[exportE, string]]())
	reg.RegisterAPI("cc", Post,
		[]reflect.Type{reflect.TypeFor[string](), reflect.TypeFor[string]()},
		reflect.TypeFor[scale.Result[string, string]]())
	reg.RegisterAPI("init", Init, nil, nil)

	schema := reg.Dump()
	if len(schema.Functions) != 3 {
		t.Fatalf("len(Functions) = %d, want 3", len(schema.Functions))
	}

	cc, _ := schema.Function("cc")
	if cc.Params[0] != cc.Params[1] {
		t.Errorf("string params have ids %d and %d", cc.Params[0], cc.Params[1])
	}
	useCodec, _ := schema.Function("use_codec")
	if useCodec.Kind != Post {
		t.Errorf("Kind = %s, want post", useCodec.Kind)
	}

	initFn, _ := schema.Function("init")
	unit, _ := schema.Resolve(initFn.Return)
	if unit.Tuple == nil || len(*unit.Tuple) != 0 {
		t.Errorf("init return = %s, want unit", unit.Kind())
	}
}

func TestAPIRegistry_DumpIsSnapshot(t *testing.T) {
	reg := NewAPIRegistry()
	reg.RegisterAPI("a", Get, nil, reflect.TypeFor[uint8]())
	first := reg.Dump()
	reg.RegisterAPI("b", Get, nil, reflect.TypeFor[string]())

	if len(first.Functions) != 1 || len(first.Types) != 1 {
		t.Errorf("snapshot changed: %d functions, %d types", len(first.Functions), len(first.Types))
	}
}

func TestPortableSchema_EncodeRoundTrip(t *testing.T) {
	reg := NewAPIRegistry()
	reg.RegisterAPI("use_codec", Post,
		[]reflect.Type{reflect.TypeFor[exportD]()},
		reflect.TypeFor[scale.Result[exportE, string]]())
	reg.RegisterAPI("pick", Get,
		[]reflect.Type{reflect.TypeFor[myCustomEnum](), reflect.TypeFor[[10]uint8]()},
		reflect.TypeFor[scale.Option[bool]]())
	reg.RegisterAPI("walk", Timer, []reflect.Type{reflect.TypeFor[tree]()}, nil)

	schema := reg.Dump()
	data, err := schema.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := DecodeSchema(data)
	if err != nil {
		t.Fatalf("DecodeSchema failed: %v", err)
	}
	if len(got.Functions) != 3 || len(got.Types) != len(schema.Types) {
		t.Fatalf("decoded %d functions and %d types, want 3 and %d", len(got.Functions), len(got.Types), len(schema.Types))
	}
	again, err := got.Encode()
	if err != nil {
		t.Fatalf("re-Encode failed: %v", err)
	}
	if !bytes.Equal(again, data) {
		t.Error("re-encoded schema differs from the original encoding")
	}
	pick, _ := got.Function("pick")
	if pick.Kind != Get || len(pick.Params) != 2 {
		t.Errorf("pick = %+v", pick)
	}
}

func TestPortableSchema_JSON(t *testing.T) {
	reg := NewAPIRegistry()
	reg.RegisterAPI("make_e", Post, nil, reflect.TypeFor[exportE]())

	data, err := json.Marshal(reg.Dump())
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`"method":"post"`,
		`"param_types":[]`,
		`"return_type":3`,
		`{"id":0,"type":{"primitive":"u32"}}`,
		`{"id":1,"type":{"sequence":{"type":0}}}`,
		`"struct":{"name":"exportE"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON missing %s\n%s", want, out)
		}
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		kind   Kind
		name   string
		export string
		ret    bool
	}{
		{Get, "get", "__nucleus_get_f", true},
		{Post, "post", "__nucleus_post_f", true},
		{Timer, "timer", "__nucleus_timer_f", true},
		{Callback, "callback", "__nucleus_http_callback", false},
		{Init, "init", "__nucleus_init", false},
	}
	for _, tc := range tests {
		if tc.kind.String() != tc.name {
			t.Errorf("String() = %q, want %q", tc.kind.String(), tc.name)
		}
		if got := tc.kind.ExportName("f"); got != tc.export {
			t.Errorf("%s.ExportName = %q, want %q", tc.name, got, tc.export)
		}
		if tc.kind.HasReturn() != tc.ret {
			t.Errorf("%s.HasReturn() = %v, want %v", tc.name, tc.kind.HasReturn(), tc.ret)
		}
		parsed, ok := ParseKind(tc.name)
		if !ok || parsed != tc.kind {
			t.Errorf("ParseKind(%q) = %v, %v", tc.name, parsed, ok)
		}
	}
	if _, ok := ParseKind("put"); ok {
		t.Error("ParseKind(put) succeeded")
	}
}

func TestParseExportName(t *testing.T) {
	tests := []struct {
		export string
		kind   Kind
		name   string
		ok     bool
	}{
		{"__nucleus_get_version", Get, "version", true},
		{"__nucleus_post_use_codec", Post, "use_codec", true},
		{"__nucleus_timer_tick", Timer, "tick", true},
		{"__nucleus_init", Init, "", true},
		{"__nucleus_http_callback", Callback, "", true},
		{"__nucleus_abi", 0, "", false},
		{"__nucleus_alloc", 0, "", false},
		{"__nucleus_get_", 0, "", false},
		{"__nucleus_callback_x", 0, "", false},
		{"_start", 0, "", false},
	}
	for _, tc := range tests {
		kind, name, ok := ParseExportName(tc.export)
		if ok != tc.ok || kind != tc.kind || name != tc.name {
			t.Errorf("ParseExportName(%q) = %v, %q, %v, want %v, %q, %v",
				tc.export, kind, name, ok, tc.kind, tc.name, tc.ok)
		}
	}
}
