package sample

import (
	"errors"

	"github.com/wippyai/wasm-nucleus/scale"
)

//nucleus:export
type G[T any] = scale.Result[T, string]

// E is returned by UseCodec.
//
//nucleus:export
type E struct {
	A []uint32
	B int32
	C uint32
}

//nucleus:export
type D struct {
	B int32
}

//nucleus:export
type MyCustomEnum struct {
	scale.Enum
	VariantA *struct{}
	VariantB *uint32
	VariantC *struct {
		ID   uint64 `scale:"id"`
		Name string `scale:"name"`
	}
}

var initialized bool

//nucleus:init
func Init() {
	initialized = true
}

//nucleus:post
func UseCodec(d D) (E, error) {
	if d.B < 0 {
		return E{}, errors.New("negative")
	}
	return E{A: []uint32{uint32(d.B)}, B: d.B}, nil
}

//nucleus:post
func Cc(a, b string) (string, error) {
	return a + b, nil
}

//nucleus:get name=version
func Version() string {
	return "1"
}

//nucleus:timer
func Tick(n uint64) error {
	return nil
}

//nucleus:post
func Ping() {}

//nucleus:post
func Tv(a G[uint32]) G[scale.Unit] {
	return G[scale.Unit]{}
}

//nucleus:callback
func OnResponse(status uint16, body []byte) {}
