// Package inspecttest assembles small WebAssembly modules that speak the
// boundary protocol, for tests that need a guest without a Go toolchain
// targeting wasip1.
package inspecttest

import (
	"bytes"
	"sort"

	"github.com/wippyai/wasm-nucleus/abi"
	"github.com/wippyai/wasm-nucleus/guest"
)

const (
	ValI32 = 0x7f

	OpCall     = 0x10
	OpI32Const = 0x41
	OpEnd      = 0x0b

	ExportFunc   = 0x00
	ExportMemory = 0x02
)

type FuncType struct {
	Params, Results []byte
}

type Import struct {
	Module, Name string
	Type         uint32
}

type Export struct {
	Name  string
	Kind  byte
	Index uint32
}

type Func struct {
	Type uint32
	Body []byte
}

// Data is an active segment copied to Offset at instantiation.
type Data struct {
	Offset int32
	Bytes  []byte
}

// Module is a single-memory module description. Function indexes count
// imports first.
type Module struct {
	Types   []FuncType
	Imports []Import
	Funcs   []Func
	Exports []Export
	Data    []Data
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

// SLEB is the signed LEB128 encoding used by i32.const.
func SLEB(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func I32Const(v int32) []byte {
	return append([]byte{OpI32Const}, SLEB(v)...)
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func vec(n int, items []byte) []byte {
	return append(uleb(uint32(n)), items...)
}

func section(id byte, content []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(uint32(len(content)))...)
	return append(out, content...)
}

// Bytes encodes the module in the binary format with one page of memory.
func (m *Module) Bytes() []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00})

	var types []byte
	for _, t := range m.Types {
		types = append(types, 0x60)
		types = append(types, vec(len(t.Params), t.Params)...)
		types = append(types, vec(len(t.Results), t.Results)...)
	}
	buf.Write(section(1, vec(len(m.Types), types)))

	if len(m.Imports) > 0 {
		var imps []byte
		for _, im := range m.Imports {
			imps = append(imps, name(im.Module)...)
			imps = append(imps, name(im.Name)...)
			imps = append(imps, 0x00)
			imps = append(imps, uleb(im.Type)...)
		}
		buf.Write(section(2, vec(len(m.Imports), imps)))
	}

	var funcs []byte
	for _, f := range m.Funcs {
		funcs = append(funcs, uleb(f.Type)...)
	}
	buf.Write(section(3, vec(len(m.Funcs), funcs)))

	// min one page, no max
	buf.Write(section(5, vec(1, []byte{0x00, 0x01})))

	var exps []byte
	for _, e := range m.Exports {
		exps = append(exps, name(e.Name)...)
		exps = append(exps, e.Kind)
		exps = append(exps, uleb(e.Index)...)
	}
	buf.Write(section(7, vec(len(m.Exports), exps)))

	var code []byte
	for _, f := range m.Funcs {
		body := append([]byte{0x00}, f.Body...)
		body = append(body, OpEnd)
		code = append(code, uleb(uint32(len(body)))...)
		code = append(code, body...)
	}
	buf.Write(section(10, vec(len(m.Funcs), code)))

	if len(m.Data) > 0 {
		var segs []byte
		for _, d := range m.Data {
			segs = append(segs, 0x00)
			segs = append(segs, I32Const(d.Offset)...)
			segs = append(segs, OpEnd)
			segs = append(segs, vec(len(d.Bytes), d.Bytes)...)
		}
		buf.Write(section(11, vec(len(m.Data), segs)))
	}
	return buf.Bytes()
}

// Signatures used by Guest, by type index.
const (
	TypeAddr     = iota // () -> i32
	TypeAlloc           // (i32) -> i32
	TypeFree            // (i32)
	TypeHandler         // (i32, i32) -> i32
	TypeInit            // ()
	TypeCallback        // (i32, i32)
)

// GuestTypes lists the signatures in TypeAddr order.
func GuestTypes() []FuncType {
	return []FuncType{
		{Results: []byte{ValI32}},
		{Params: []byte{ValI32}, Results: []byte{ValI32}},
		{Params: []byte{ValI32}},
		{Params: []byte{ValI32, ValI32}, Results: []byte{ValI32}},
		{},
		{Params: []byte{ValI32, ValI32}},
	}
}

// InputAddr is where Guest's allocator places call arguments.
const InputAddr = 32768

// Guest builds a module shaped like a generated one: __nucleus_abi answers
// with schema, each export in replies answers with its fixed frame, and
// init, callback, alloc and free are no-ops.
func Guest(schema abi.PortableSchema, replies map[string][]byte) []byte {
	m := &Module{Types: GuestTypes()}
	export := func(name string, typ uint32, body []byte) {
		m.Exports = append(m.Exports, Export{Name: name, Kind: ExportFunc, Index: uint32(len(m.Funcs))})
		m.Funcs = append(m.Funcs, Func{Type: typ, Body: body})
	}

	offset := int32(1024)
	place := func(frame []byte) int32 {
		at := offset
		m.Data = append(m.Data, Data{Offset: at, Bytes: frame})
		offset += int32(len(frame)+7) &^ 7
		return at
	}

	m.Exports = append(m.Exports, Export{Name: "memory", Kind: ExportMemory})
	export(abi.ExportABI, TypeAddr, I32Const(place(guest.ABI(schema))))
	export(abi.ExportAlloc, TypeAlloc, I32Const(InputAddr))
	export(abi.ExportFree, TypeFree, nil)
	export(abi.Init.ExportName(""), TypeInit, nil)
	export(abi.Callback.ExportName(""), TypeCallback, nil)

	names := make([]string, 0, len(replies))
	for n := range replies {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		export(n, TypeHandler, I32Const(place(replies[n])))
	}
	return m.Bytes()
}
