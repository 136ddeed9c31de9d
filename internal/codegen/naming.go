package codegen

import (
	"strings"
	"unicode"

	"github.com/wippyai/wasm-nucleus/abi"
)

// snake converts a Go identifier to the ABI spelling: UseCodec -> use_codec,
// HTTPGet -> http_get.
func snake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if prev != '_' && (unicode.IsLower(prev) || unicode.IsDigit(prev) || nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// kindIdent is the exported Go name of a kind constant in package abi.
func kindIdent(k abi.Kind) string {
	s := k.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

func validABIName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
