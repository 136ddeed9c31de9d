package scale

import (
	"encoding/binary"
	"reflect"
	"strconv"

	"github.com/wippyai/wasm-nucleus/errors"
)

// Encoder appends SCALE-encoded values to an internal buffer.
// It is NOT safe for concurrent use.
type Encoder struct {
	compiler *Compiler
	buf      []byte
}

func NewEncoder() *Encoder {
	return &Encoder{compiler: defaultCompiler}
}

func NewEncoderWithCompiler(c *Compiler) *Encoder {
	return &Encoder{compiler: c}
}

// Marshal returns the SCALE encoding of v.
func Marshal(v any) ([]byte, error) {
	e := NewEncoder()
	if err := e.Encode(v); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// Bytes returns the encoded bytes. The slice aliases the encoder buffer
// until the next Reset.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Reset discards the buffered output.
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// Encode appends the encoding of v. Unit is written for a nil v.
func (e *Encoder) Encode(v any) error {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return errors.NilPointer(errors.PhaseEncode, nil, rv.Type().String())
		}
		rv = rv.Elem()
	}
	ct := e.compiler.Compile(rv.Type())
	return e.encodeValue(ct, rv, nil)
}

// EncodeCompact appends a compact integer.
func (e *Encoder) EncodeCompact(v uint64) {
	e.buf = AppendCompact(e.buf, v)
}

// EncodeBytes appends b as a length-prefixed byte sequence.
func (e *Encoder) EncodeBytes(b []byte) {
	e.buf = AppendCompact(e.buf, uint64(len(b)))
	e.buf = append(e.buf, b...)
}

func (e *Encoder) encodeValue(ct *CompiledType, v reflect.Value, path []string) error {
	switch ct.Kind {
	case KindBool:
		if v.Bool() {
			e.buf = append(e.buf, 1)
		} else {
			e.buf = append(e.buf, 0)
		}
	case KindU8:
		e.buf = append(e.buf, byte(v.Uint()))
	case KindI8:
		e.buf = append(e.buf, byte(v.Int()))
	case KindU16:
		e.buf = binary.LittleEndian.AppendUint16(e.buf, uint16(v.Uint()))
	case KindI16:
		e.buf = binary.LittleEndian.AppendUint16(e.buf, uint16(v.Int()))
	case KindU32:
		e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v.Uint()))
	case KindI32:
		e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v.Int()))
	case KindU64:
		e.buf = binary.LittleEndian.AppendUint64(e.buf, v.Uint())
	case KindI64:
		e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(v.Int()))
	case KindString:
		s := v.String()
		e.buf = AppendCompact(e.buf, uint64(len(s)))
		e.buf = append(e.buf, s...)
	case KindSequence:
		return e.encodeSequence(ct, v, path)
	case KindArray:
		return e.encodeElements(ct.Elem, v, path)
	case KindTuple, KindStruct:
		for _, f := range ct.Fields {
			if err := e.encodeValue(f.Type, v.Field(f.Index), appendPath(path, f)); err != nil {
				return err
			}
		}
	case KindOption:
		return e.encodeOption(ct, v, path)
	case KindResult:
		if v.Field(2).Bool() {
			e.buf = append(e.buf, 1)
			return e.encodeValue(ct.Err, v.Field(1), append(path, "err"))
		}
		e.buf = append(e.buf, 0)
		return e.encodeValue(ct.Elem, v.Field(0), append(path, "ok"))
	case KindEnum:
		return e.encodeEnum(ct, v, path)
	default:
		return errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Path(path...).
			GoType(ct.GoType.String()).
			Detail("%s", ct.Reason).
			Build()
	}
	return nil
}

func (e *Encoder) encodeSequence(ct *CompiledType, v reflect.Value, path []string) error {
	n := v.Len()
	e.buf = AppendCompact(e.buf, uint64(n))
	if ct.Elem.GoType == byteType {
		e.buf = append(e.buf, v.Bytes()...)
		return nil
	}
	return e.encodeElements(ct.Elem, v, path)
}

func (e *Encoder) encodeElements(elem *CompiledType, v reflect.Value, path []string) error {
	for i := 0; i < v.Len(); i++ {
		if err := e.encodeValue(elem, v.Index(i), append(path, "["+strconv.Itoa(i)+"]")); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) encodeOption(ct *CompiledType, v reflect.Value, path []string) error {
	some := v.Field(1).Bool()
	if ct.Elem.Kind == KindBool {
		// Option<bool> packs into one byte: 0 none, 1 true, 2 false
		switch {
		case !some:
			e.buf = append(e.buf, 0)
		case v.Field(0).Bool():
			e.buf = append(e.buf, 1)
		default:
			e.buf = append(e.buf, 2)
		}
		return nil
	}
	if !some {
		e.buf = append(e.buf, 0)
		return nil
	}
	e.buf = append(e.buf, 1)
	return e.encodeValue(ct.Elem, v.Field(0), append(path, "some"))
}

func (e *Encoder) encodeEnum(ct *CompiledType, v reflect.Value, path []string) error {
	active := -1
	for i, variant := range ct.Variants {
		if v.Field(variant.Index).IsNil() {
			continue
		}
		if active >= 0 {
			return errors.New(errors.PhaseEncode, errors.KindInvalidVariant).
				Path(path...).
				GoType(ct.GoType.String()).
				Detail("variants %s and %s are both set", ct.Variants[active].Name, variant.Name).
				Build()
		}
		active = i
	}
	if active < 0 {
		return errors.New(errors.PhaseEncode, errors.KindInvalidVariant).
			Path(path...).
			GoType(ct.GoType.String()).
			Detail("no variant set").
			Build()
	}
	variant := ct.Variants[active]
	e.buf = append(e.buf, byte(active))
	return e.encodeValue(variant.Payload, v.Field(variant.Index).Elem(), append(path, variant.Name))
}

func appendPath(path []string, f Field) []string {
	if f.Name != "" {
		return append(path, f.Name)
	}
	return append(path, strconv.Itoa(f.Index))
}
