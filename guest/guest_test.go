package guest

import (
	"bytes"
	stderrors "errors"
	"reflect"
	"testing"

	"github.com/wippyai/wasm-nucleus/abi"
	"github.com/wippyai/wasm-nucleus/scale"
)

func TestFrame(t *testing.T) {
	frame := Frame([]byte{0xaa, 0xbb})
	want := []byte{2, 0, 0, 0, 0xaa, 0xbb}
	if !bytes.Equal(frame, want) {
		t.Errorf("Frame = %x, want %x", frame, want)
	}

	payload, err := ParseFrame(frame)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(payload, []byte{0xaa, 0xbb}) {
		t.Errorf("ParseFrame = %x, want aabb", payload)
	}
}

func TestParseFrame_Short(t *testing.T) {
	if _, err := ParseFrame([]byte{1, 0}); err == nil {
		t.Error("expected error for missing header")
	}
	if _, err := ParseFrame([]byte{5, 0, 0, 0, 1}); err == nil {
		t.Error("expected error for truncated payload")
	}
}

func TestReply(t *testing.T) {
	frame := Reply(uint32(7))
	// len=6: tag 0, compact(4), 07 00 00 00
	want := []byte{6, 0, 0, 0, 0x00, 0x10, 7, 0, 0, 0}
	if !bytes.Equal(frame, want) {
		t.Errorf("Reply = %x, want %x", frame, want)
	}

	data, err := ReadReply(frame)
	if err != nil {
		t.Fatal(err)
	}
	var got uint32
	if err := scale.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got != 7 {
		t.Errorf("got = %d, want 7", got)
	}
}

func TestReply_Unit(t *testing.T) {
	data, err := ReadReply(Reply(scale.Unit{}))
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("unit reply carries %d bytes", len(data))
	}
}

func TestReply_UnencodableBecomesFailure(t *testing.T) {
	_, err := ReadReply(Reply(1.5))
	var callErr *CallError
	if !stderrors.As(err, &callErr) {
		t.Fatalf("error = %v, want *CallError", err)
	}
}

func TestFail(t *testing.T) {
	frame := Fail(stderrors.New("boom"))
	want := []byte{6, 0, 0, 0, 0x01, 0x10, 'b', 'o', 'o', 'm'}
	if !bytes.Equal(frame, want) {
		t.Errorf("Fail = %x, want %x", frame, want)
	}

	_, err := ReadReply(frame)
	var callErr *CallError
	if !stderrors.As(err, &callErr) || callErr.Message != "boom" {
		t.Errorf("ReadReply error = %v, want CallError boom", err)
	}
}

func TestABI(t *testing.T) {
	reg := abi.NewAPIRegistry()
	reg.RegisterAPI("cc", abi.Post,
		[]reflect.Type{reflect.TypeFor[string](), reflect.TypeFor[string]()},
		reflect.TypeFor[scale.Result[string, string]]())
	schema := reg.Dump()

	frame := ABI(schema)
	payload, err := ParseFrame(frame)
	if err != nil {
		t.Fatal(err)
	}
	if payload[0] != 0x01 {
		t.Errorf("option tag = %d, want 1", payload[0])
	}

	got, err := ReadABI(frame)
	if err != nil {
		t.Fatal(err)
	}
	fn, ok := got.Function("cc")
	if !ok || fn.Kind != abi.Post || len(fn.Params) != 2 {
		t.Errorf("decoded function = %+v", fn)
	}
	if len(got.Types) != len(schema.Types) {
		t.Errorf("len(Types) = %d, want %d", len(got.Types), len(schema.Types))
	}
}

func TestReadABI_None(t *testing.T) {
	if _, err := ReadABI(Frame([]byte{0})); err == nil {
		t.Error("expected error for absent schema")
	}
}

func TestArena(t *testing.T) {
	a := NewArena()
	p1 := a.Pin([]byte{1, 2, 3})
	p2 := a.Pin(nil)
	if p1 == p2 {
		t.Fatal("two pins share an address")
	}
	if a.Len() != 2 {
		t.Errorf("Len() = %d, want 2", a.Len())
	}

	buf, ok := a.Bytes(p1)
	if !ok || !bytes.Equal(buf, []byte{1, 2, 3}) {
		t.Errorf("Bytes(p1) = %x, %v", buf, ok)
	}

	if !a.Release(p1) {
		t.Error("Release(p1) = false")
	}
	if a.Release(p1) {
		t.Error("second Release(p1) = true")
	}
	if a.Len() != 1 {
		t.Errorf("Len() = %d, want 1", a.Len())
	}
}

func TestAllocBorrowFree(t *testing.T) {
	before := Pinned()

	ptr := Alloc(4)
	copy(Borrow(ptr, 4), []byte{9, 8, 7, 6})
	if got := Borrow(ptr, 2); !bytes.Equal(got, []byte{9, 8}) {
		t.Errorf("Borrow = %x, want 0908", got)
	}

	out := Leak(Reply(uint8(1)))
	if Pinned() != before+2 {
		t.Errorf("Pinned() = %d, want %d", Pinned(), before+2)
	}
	Free(out)
	Free(ptr)
	if Pinned() != before {
		t.Errorf("Pinned() = %d after free, want %d", Pinned(), before)
	}
}

func TestHostError(t *testing.T) {
	msg := "bucket missing"
	payload, err := scale.Marshal(scale.Err[uint32](HostError{KvStorage: &msg}))
	if err != nil {
		t.Fatal(err)
	}
	// Err tag, variant index 3, compact(14), text
	if payload[0] != 1 || payload[1] != 3 {
		t.Errorf("payload prefix = %x, want 0103", payload[:2])
	}

	var out uint32
	err = DecodeHostResult(payload, &out)
	var hostErr HostError
	if !stderrors.As(err, &hostErr) || hostErr.KvStorage == nil {
		t.Fatalf("error = %v, want KvStorage host error", err)
	}
	if err.Error() != "kv storage error: bucket missing" {
		t.Errorf("Error() = %q", err.Error())
	}

	ok, _ := scale.Marshal(scale.Ok[uint32, HostError](42))
	if err := DecodeHostResult(ok, &out); err != nil || out != 42 {
		t.Errorf("DecodeHostResult = %d, %v, want 42", out, err)
	}

	if err := DecodeHostResult([]byte{0x07}, &out); err == nil || err.Error() != "decode return value error" {
		t.Errorf("malformed payload error = %v", err)
	}
}

func TestDecodeArgs(t *testing.T) {
	input, err := scale.Marshal(scale.Tuple2[uint32, string]{First: 9, Second: "hi"})
	if err != nil {
		t.Fatal(err)
	}

	var (
		a uint32
		b string
	)
	if err := DecodeArgs(input, &a, &b); err != nil {
		t.Fatalf("DecodeArgs: %v", err)
	}
	if a != 9 || b != "hi" {
		t.Errorf("DecodeArgs = (%d, %q), want (9, \"hi\")", a, b)
	}

	if err := DecodeArgs(input, &a); err == nil {
		t.Error("expected trailing data error")
	}
	if err := DecodeArgs(input[:3], &a, &b); err == nil {
		t.Error("expected short input error")
	}
	if err := DecodeArgs(nil); err != nil {
		t.Errorf("DecodeArgs(nil) = %v, want nil", err)
	}
}
