package guest

import (
	"encoding/binary"

	"fortio.org/safecast"

	"github.com/wippyai/wasm-nucleus/abi"
	"github.com/wippyai/wasm-nucleus/errors"
	"github.com/wippyai/wasm-nucleus/scale"
)

// FrameHeaderSize is the length prefix in front of every output payload.
const FrameHeaderSize = 4

// Envelope is the payload of a call frame: the encoded return value, or the
// error text.
type Envelope = scale.Result[[]byte, string]

// Frame prefixes payload with its 4-byte little-endian length.
func Frame(payload []byte) []byte {
	n, err := safecast.Conv[uint32](len(payload))
	if err != nil {
		panic(errors.New(errors.PhaseCall, errors.KindOverflow).
			Detail("payload of %d bytes does not fit a frame", len(payload)).
			Build())
	}
	out := make([]byte, FrameHeaderSize, FrameHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(out, n)
	return append(out, payload...)
}

// ParseFrame returns the payload of a frame. Bytes past the declared length
// are ignored.
func ParseFrame(frame []byte) ([]byte, error) {
	if len(frame) < FrameHeaderSize {
		return nil, errors.OutOfBounds(errors.PhaseCall, []string{"frame"}, FrameHeaderSize, len(frame))
	}
	n := binary.LittleEndian.Uint32(frame)
	body := frame[FrameHeaderSize:]
	if uint64(n) > uint64(len(body)) {
		return nil, errors.OutOfBounds(errors.PhaseCall, []string{"frame"}, int(n), len(body))
	}
	return body[:n], nil
}

// Reply encodes v as a successful call result frame. An encoding failure
// becomes an error frame.
func Reply(v any) []byte {
	data, err := scale.Marshal(v)
	if err != nil {
		return Fail(err)
	}
	return envelope(Envelope{Ok: data})
}

// Fail builds an error call result frame carrying err's text.
func Fail(err error) []byte {
	return envelope(Envelope{Err: err.Error(), IsErr: true})
}

func envelope(e Envelope) []byte {
	payload, err := scale.Marshal(e)
	if err != nil {
		// []byte and string always encode
		panic(err)
	}
	return Frame(payload)
}

// ABI builds the frame answered by __nucleus_abi: Option<Vec<u8>> holding
// the encoded schema.
func ABI(schema abi.PortableSchema) []byte {
	encoded, err := schema.Encode()
	if err != nil {
		return Frame([]byte{0})
	}
	payload, err := scale.Marshal(scale.Some(encoded))
	if err != nil {
		panic(err)
	}
	return Frame(payload)
}

// CallError is the error text a function reported through its result frame.
type CallError struct {
	Message string
}

func (e *CallError) Error() string {
	return e.Message
}

// ReadReply unwraps a call result frame. It returns the encoded return value,
// or a *CallError when the call failed.
func ReadReply(frame []byte) ([]byte, error) {
	payload, err := ParseFrame(frame)
	if err != nil {
		return nil, err
	}
	var env Envelope
	if err := scale.Unmarshal(payload, &env); err != nil {
		return nil, err
	}
	if env.IsErr {
		return nil, &CallError{Message: env.Err}
	}
	return env.Ok, nil
}

// ReadABI unwraps the frame answered by __nucleus_abi.
func ReadABI(frame []byte) (abi.PortableSchema, error) {
	payload, err := ParseFrame(frame)
	if err != nil {
		return abi.PortableSchema{}, err
	}
	var opt scale.Option[[]byte]
	if err := scale.Unmarshal(payload, &opt); err != nil {
		return abi.PortableSchema{}, err
	}
	encoded, ok := opt.Get()
	if !ok {
		return abi.PortableSchema{}, errors.NotFound(errors.PhaseCall, "schema", "__nucleus_abi")
	}
	return abi.DecodeSchema(encoded)
}
