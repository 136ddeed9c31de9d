package abi

import (
	"fmt"
	"strings"
)

// Fixed exports that do not name a function.
const (
	ExportABI   = "__nucleus_abi"
	ExportAlloc = "__nucleus_alloc"
	ExportFree  = "__nucleus_free"

	exportPrefix = "__nucleus_"
)

// Kind is the calling category of an exposed function. It encodes as a
// single variant index byte.
type Kind uint8

const (
	Get Kind = iota
	Post
	Timer
	Callback
	Init
)

var kindNames = [...]string{
	Get:      "get",
	Post:     "post",
	Timer:    "timer",
	Callback: "callback",
	Init:     "init",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind maps a directive verb to its Kind.
func ParseKind(s string) (Kind, bool) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), true
		}
	}
	return 0, false
}

// HasReturn reports whether calls of this kind answer with a result frame.
func (k Kind) HasReturn() bool {
	return k == Get || k == Post || k == Timer
}

// ExportName is the module export that invokes a function of this kind.
func (k Kind) ExportName(name string) string {
	switch k {
	case Init:
		return exportPrefix + "init"
	case Callback:
		return exportPrefix + "http_callback"
	default:
		return exportPrefix + k.String() + "_" + name
	}
}

// ParseExportName is the inverse of ExportName. For init and callback
// exports the returned name is empty.
func ParseExportName(export string) (Kind, string, bool) {
	switch export {
	case Init.ExportName(""):
		return Init, "", true
	case Callback.ExportName(""):
		return Callback, "", true
	}
	rest, ok := strings.CutPrefix(export, exportPrefix)
	if !ok {
		return 0, "", false
	}
	verb, name, ok := strings.Cut(rest, "_")
	if !ok || name == "" {
		return 0, "", false
	}
	k, ok := ParseKind(verb)
	if !ok || !k.HasReturn() {
		return 0, "", false
	}
	return k, name, true
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, ok := ParseKind(string(b))
	if !ok {
		return fmt.Errorf("unknown function kind %q", b)
	}
	*k = parsed
	return nil
}
