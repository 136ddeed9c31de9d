package guest

import "github.com/wippyai/wasm-nucleus/scale"

// HostError is the error a host function reports back to the module.
// Variant order is part of the wire format.
type HostError struct {
	scale.Enum
	DecodeReturnValue *struct{}
	ReadOnly          *struct{}
	MemoryOutOfBounds *struct{}
	KvStorage         *string
	HTTP              *string `scale:"Http"`
	Timer             *string
	TSS               *string `scale:"Tss"`
}

func (e HostError) Error() string {
	switch {
	case e.DecodeReturnValue != nil:
		return "decode return value error"
	case e.ReadOnly != nil:
		return "write is not allowed in read-only mode"
	case e.MemoryOutOfBounds != nil:
		return "memory access out of bounds"
	case e.KvStorage != nil:
		return "kv storage error: " + *e.KvStorage
	case e.HTTP != nil:
		return "http error: " + *e.HTTP
	case e.Timer != nil:
		return "timer error: " + *e.Timer
	case e.TSS != nil:
		return "tss error: " + *e.TSS
	default:
		return "unknown host error"
	}
}

// DecodeHostResult unpacks a host function answer of the form
// Result<T, HostError> into out.
func DecodeHostResult[T any](payload []byte, out *T) error {
	var res scale.Result[T, HostError]
	if err := scale.Unmarshal(payload, &res); err != nil {
		return HostError{DecodeReturnValue: &struct{}{}}
	}
	if res.IsErr {
		return res.Err
	}
	*out = res.Ok
	return nil
}
