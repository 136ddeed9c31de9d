package inspect

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-nucleus/errors"
	"github.com/wippyai/wasm-nucleus/guest"
)

// memory reads and writes guest linear memory with bounds errors instead of
// ok flags.
type memory struct {
	mem api.Memory
}

// read copies length bytes at offset.
func (m memory) read(offset, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, m.outOfBounds(offset, length)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m memory) write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return m.outOfBounds(offset, uint32(len(data)))
	}
	return nil
}

// frame reads the length-prefixed frame at offset, header included.
func (m memory) frame(offset uint32) ([]byte, error) {
	n, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return nil, m.outOfBounds(offset, guest.FrameHeaderSize)
	}
	return m.read(offset, guest.FrameHeaderSize+n)
}

func (m memory) outOfBounds(offset, length uint32) error {
	return errors.New(errors.PhaseInspect, errors.KindOutOfBounds).
		Detail("memory access at %d+%d exceeds %d bytes", offset, length, m.mem.Size()).
		Build()
}
