package scale

import (
	"bytes"
	"math"
	"testing"
)

func TestAppendCompact(t *testing.T) {
	tests := []struct {
		value uint64
		want  []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x04}},
		{42, []byte{0xa8}},
		{63, []byte{0xfc}},
		{64, []byte{0x01, 0x01}},
		{69, []byte{0x15, 0x01}},
		{16383, []byte{0xfd, 0xff}},
		{16384, []byte{0x02, 0x00, 0x01, 0x00}},
		{1<<30 - 1, []byte{0xfe, 0xff, 0xff, 0xff}},
		{1 << 30, []byte{0x03, 0x00, 0x00, 0x00, 0x40}},
		{1 << 32, []byte{0x07, 0x00, 0x00, 0x00, 0x00, 0x01}},
		{math.MaxUint64, []byte{0x13, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
	}

	for _, tc := range tests {
		got := AppendCompact(nil, tc.value)
		if !bytes.Equal(got, tc.want) {
			t.Errorf("AppendCompact(%d) = %x, want %x", tc.value, got, tc.want)
		}
		if n := CompactLen(tc.value); n != len(tc.want) {
			t.Errorf("CompactLen(%d) = %d, want %d", tc.value, n, len(tc.want))
		}

		v, n, err := readCompact(tc.want)
		if err != nil {
			t.Errorf("readCompact(%x) failed: %v", tc.want, err)
			continue
		}
		if v != tc.value || n != len(tc.want) {
			t.Errorf("readCompact(%x) = (%d, %d), want (%d, %d)", tc.want, v, n, tc.value, len(tc.want))
		}
	}
}

func TestReadCompact_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, errShortCompact},
		{"short_two_byte", []byte{0x01}, errShortCompact},
		{"short_four_byte", []byte{0x02, 0x00}, errShortCompact},
		{"short_big", []byte{0x03, 0x00, 0x00}, errShortCompact},
		{"two_byte_small_value", []byte{0x01, 0x00}, ErrNonCanonicalCompact},
		{"four_byte_small_value", []byte{0x02, 0x01, 0x00, 0x00}, ErrNonCanonicalCompact},
		{"big_small_value", []byte{0x03, 0xff, 0xff, 0xff, 0x00}, ErrNonCanonicalCompact},
		{"big_trailing_zero", []byte{0x07, 0x00, 0x00, 0x00, 0x40, 0x00}, ErrNonCanonicalCompact},
		{"over_64_bits", []byte{0x17, 1, 1, 1, 1, 1, 1, 1, 1, 1}, errCompactOverflow},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := readCompact(tc.data)
			if err != tc.want {
				t.Errorf("readCompact(%x) error = %v, want %v", tc.data, err, tc.want)
			}
		})
	}
}
