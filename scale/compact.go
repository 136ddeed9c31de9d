package scale

import (
	"encoding/binary"
	"errors"
	"math/bits"
)

// Compact integer encoding. The two low bits of the first byte select the mode:
//
//	0b00  single byte, value < 2^6
//	0b01  two bytes LE, value < 2^14
//	0b10  four bytes LE, value < 2^30
//	0b11  big integer, upper six bits hold (byte count - 4)

// ErrNonCanonicalCompact is returned when a compact integer uses a wider mode
// than its value needs.
var ErrNonCanonicalCompact = errors.New("compact: non-canonical encoding")

const (
	compactSingleMax = 1<<6 - 1
	compactTwoMax    = 1<<14 - 1
	compactFourMax   = 1<<30 - 1
)

// AppendCompact appends the compact encoding of v to dst.
func AppendCompact(dst []byte, v uint64) []byte {
	switch {
	case v <= compactSingleMax:
		return append(dst, byte(v)<<2)
	case v <= compactTwoMax:
		return binary.LittleEndian.AppendUint16(dst, uint16(v)<<2|0b01)
	case v <= compactFourMax:
		return binary.LittleEndian.AppendUint32(dst, uint32(v)<<2|0b10)
	}
	n := (bits.Len64(v) + 7) / 8
	dst = append(dst, byte(n-4)<<2|0b11)
	for i := 0; i < n; i++ {
		dst = append(dst, byte(v>>(8*i)))
	}
	return dst
}

// CompactLen returns the number of bytes AppendCompact would write for v.
func CompactLen(v uint64) int {
	switch {
	case v <= compactSingleMax:
		return 1
	case v <= compactTwoMax:
		return 2
	case v <= compactFourMax:
		return 4
	}
	return 1 + (bits.Len64(v)+7)/8
}

// readCompact decodes a compact integer from the start of data and returns
// the value and the number of bytes consumed.
func readCompact(data []byte) (uint64, int, error) {
	if len(data) == 0 {
		return 0, 0, errShortCompact
	}
	switch data[0] & 0b11 {
	case 0b00:
		return uint64(data[0] >> 2), 1, nil
	case 0b01:
		if len(data) < 2 {
			return 0, 0, errShortCompact
		}
		v := uint64(binary.LittleEndian.Uint16(data) >> 2)
		if v <= compactSingleMax {
			return 0, 0, ErrNonCanonicalCompact
		}
		return v, 2, nil
	case 0b10:
		if len(data) < 4 {
			return 0, 0, errShortCompact
		}
		v := uint64(binary.LittleEndian.Uint32(data) >> 2)
		if v <= compactTwoMax {
			return 0, 0, ErrNonCanonicalCompact
		}
		return v, 4, nil
	}

	n := int(data[0]>>2) + 4
	if n > 8 {
		return 0, 0, errCompactOverflow
	}
	if len(data) < 1+n {
		return 0, 0, errShortCompact
	}
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(data[1+i]) << (8 * i)
	}
	if data[n] == 0 || v <= compactFourMax {
		return 0, 0, ErrNonCanonicalCompact
	}
	return v, 1 + n, nil
}

var (
	errShortCompact    = errors.New("compact: unexpected end of input")
	errCompactOverflow = errors.New("compact: value exceeds 64 bits")
)
