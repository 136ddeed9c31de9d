package gencache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"
)

// Digest identifies a package's generation inputs.
type Digest [sha256.Size]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Source is one input file.
type Source struct {
	Name string
	Data []byte
}

// Sum hashes salt and sources. Sources are ordered by name first, so the
// result does not depend on directory listing order. Every part is length
// prefixed.
func Sum(salt string, sources []Source) Digest {
	sorted := make([]Source, len(sources))
	copy(sorted, sources)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	h := sha256.New()
	var n [8]byte
	write := func(b []byte) {
		binary.LittleEndian.PutUint64(n[:], uint64(len(b)))
		h.Write(n[:])
		h.Write(b)
	}
	write([]byte(salt))
	for _, s := range sorted {
		write([]byte(s.Name))
		write(s.Data)
	}

	var d Digest
	h.Sum(d[:0])
	return d
}
