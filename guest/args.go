package guest

import (
	"github.com/wippyai/wasm-nucleus/errors"
	"github.com/wippyai/wasm-nucleus/scale"
)

// DecodeArgs decodes input as the tuple of targets, one value after another.
// Every target must be a non-nil pointer. Input left over after the last
// target is an error, so a caller never runs on a partially read tuple.
func DecodeArgs(input []byte, targets ...any) error {
	dec := scale.NewDecoder(input)
	for _, t := range targets {
		if err := dec.Decode(t); err != nil {
			return err
		}
	}
	if n := dec.Remaining(); n != 0 {
		return errors.New(errors.PhaseDecode, errors.KindTrailingData).
			Path("args").
			Detail("%d bytes left after %d arguments", n, len(targets)).
			Build()
	}
	return nil
}
