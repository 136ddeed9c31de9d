package scale

import (
	"encoding/binary"
	"reflect"
	"strconv"
	"unicode/utf8"

	"github.com/wippyai/wasm-nucleus/errors"
)

// maxZeroSizeElems caps sequences whose elements may encode to zero bytes,
// where the remaining input gives no bound on the element count.
const maxZeroSizeElems = 1 << 16

// maxDepth bounds value nesting, so recursive types read from untrusted
// input fail with an error instead of exhausting the stack.
const maxDepth = 256

// Decoder reads SCALE-encoded values from a byte slice.
// It is NOT safe for concurrent use.
type Decoder struct {
	compiler *Compiler
	data     []byte
	off      int
	depth    int
}

func NewDecoder(data []byte) *Decoder {
	return &Decoder{compiler: defaultCompiler, data: data}
}

func NewDecoderWithCompiler(c *Compiler, data []byte) *Decoder {
	return &Decoder{compiler: c, data: data}
}

// Unmarshal decodes data into the value pointed to by ptr. All of data must
// be consumed.
func Unmarshal(data []byte, ptr any) error {
	d := NewDecoder(data)
	if err := d.Decode(ptr); err != nil {
		return err
	}
	if n := d.Remaining(); n > 0 {
		return errors.New(errors.PhaseDecode, errors.KindTrailingData).
			Detail("%d bytes left after value", n).
			Value(n).
			Build()
	}
	return nil
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.data) - d.off
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int {
	return d.off
}

// Decode reads one value into the value pointed to by ptr.
func (d *Decoder) Decode(ptr any) error {
	if ptr == nil {
		return errors.NilPointer(errors.PhaseDecode, nil, "nil")
	}
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer {
		return errors.New(errors.PhaseDecode, errors.KindInvalidInput).
			GoType(reflect.TypeOf(ptr).String()).
			Detail("decode target must be a pointer").
			Build()
	}
	if rv.IsNil() {
		return errors.NilPointer(errors.PhaseDecode, nil, rv.Type().String())
	}
	elem := rv.Elem()
	ct := d.compiler.Compile(elem.Type())
	return d.decodeValue(ct, elem, nil)
}

// DecodeCompact reads a compact integer.
func (d *Decoder) DecodeCompact() (uint64, error) {
	return d.compact(nil)
}

// DecodeBytes reads a length-prefixed byte sequence. The result aliases the
// decoder input.
func (d *Decoder) DecodeBytes() ([]byte, error) {
	n, err := d.length(nil, 1)
	if err != nil {
		return nil, err
	}
	b, err := d.take(nil, n)
	if err != nil {
		return nil, err
	}
	return b[:n:n], nil
}

func (d *Decoder) take(path []string, n int) ([]byte, error) {
	if d.Remaining() < n {
		return nil, errors.OutOfBounds(errors.PhaseDecode, path, n, d.Remaining())
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *Decoder) readByte(path []string) (byte, error) {
	b, err := d.take(path, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Decoder) compact(path []string) (uint64, error) {
	v, n, err := readCompact(d.data[d.off:])
	if err != nil {
		if err == errShortCompact {
			return 0, errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
				Path(path...).
				ScaleType("compact").
				Cause(err).
				Build()
		}
		return 0, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Path(path...).
			ScaleType("compact").
			Cause(err).
			Build()
	}
	d.off += n
	return v, nil
}

// length reads a compact element count and checks it against the input left,
// given that each element needs at least minSize bytes.
func (d *Decoder) length(path []string, minSize int) (int, error) {
	v, err := d.compact(path)
	if err != nil {
		return 0, err
	}
	limit := uint64(maxZeroSizeElems)
	if minSize > 0 {
		limit = uint64(d.Remaining() / minSize)
	}
	if v > limit {
		return 0, errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
			Path(path...).
			Detail("length %d exceeds what %d remaining bytes can hold", v, d.Remaining()).
			Value(v).
			Build()
	}
	return int(v), nil
}

func (d *Decoder) decodeValue(ct *CompiledType, v reflect.Value, path []string) error {
	if fixed := ct.Kind.FixedSize(); fixed > 0 {
		return d.decodeFixed(ct, v, path, fixed)
	}
	if d.depth >= maxDepth {
		return errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
			Path(path...).
			GoType(ct.GoType.String()).
			Detail("value nesting exceeds %d levels", maxDepth).
			Build()
	}
	d.depth++
	defer func() { d.depth-- }()

	switch ct.Kind {
	case KindString:
		n, err := d.length(path, 1)
		if err != nil {
			return err
		}
		b, err := d.take(path, n)
		if err != nil {
			return err
		}
		if !utf8.Valid(b) {
			return errors.InvalidUTF8(errors.PhaseDecode, path, b)
		}
		v.SetString(string(b))
	case KindSequence:
		return d.decodeSequence(ct, v, path)
	case KindArray:
		return d.decodeElements(ct.Elem, v, path)
	case KindTuple, KindStruct:
		for _, f := range ct.Fields {
			if err := d.decodeValue(f.Type, v.Field(f.Index), appendPath(path, f)); err != nil {
				return err
			}
		}
	case KindOption:
		return d.decodeOption(ct, v, path)
	case KindResult:
		tag, err := d.readByte(path)
		if err != nil {
			return err
		}
		switch tag {
		case 0:
			v.Field(2).SetBool(false)
			return d.decodeValue(ct.Elem, v.Field(0), append(path, "ok"))
		case 1:
			v.Field(2).SetBool(true)
			return d.decodeValue(ct.Err, v.Field(1), append(path, "err"))
		}
		return errors.InvalidDiscriminant(errors.PhaseDecode, path, uint32(tag), 1)
	case KindEnum:
		return d.decodeEnum(ct, v, path)
	default:
		return errors.New(errors.PhaseDecode, errors.KindUnsupported).
			Path(path...).
			GoType(ct.GoType.String()).
			Detail("%s", ct.Reason).
			Build()
	}
	return nil
}

func (d *Decoder) decodeFixed(ct *CompiledType, v reflect.Value, path []string, size int) error {
	b, err := d.take(path, size)
	if err != nil {
		return err
	}
	switch ct.Kind {
	case KindBool:
		switch b[0] {
		case 0:
			v.SetBool(false)
		case 1:
			v.SetBool(true)
		default:
			return errors.New(errors.PhaseDecode, errors.KindInvalidData).
				Path(path...).
				ScaleType("bool").
				Detail("invalid bool byte 0x%02x", b[0]).
				Value(b[0]).
				Build()
		}
	case KindU8:
		v.SetUint(uint64(b[0]))
	case KindI8:
		v.SetInt(int64(int8(b[0])))
	case KindU16:
		v.SetUint(uint64(binary.LittleEndian.Uint16(b)))
	case KindI16:
		v.SetInt(int64(int16(binary.LittleEndian.Uint16(b))))
	case KindU32:
		v.SetUint(uint64(binary.LittleEndian.Uint32(b)))
	case KindI32:
		v.SetInt(int64(int32(binary.LittleEndian.Uint32(b))))
	case KindU64:
		u := binary.LittleEndian.Uint64(b)
		if v.OverflowUint(u) {
			return errors.Overflow(errors.PhaseDecode, path, u, ct.GoType.String())
		}
		v.SetUint(u)
	case KindI64:
		i := int64(binary.LittleEndian.Uint64(b))
		if v.OverflowInt(i) {
			return errors.Overflow(errors.PhaseDecode, path, i, ct.GoType.String())
		}
		v.SetInt(i)
	}
	return nil
}

func (d *Decoder) decodeSequence(ct *CompiledType, v reflect.Value, path []string) error {
	n, err := d.length(path, ct.Elem.MinSize)
	if err != nil {
		return err
	}
	if ct.Elem.GoType == byteType {
		b, err := d.take(path, n)
		if err != nil {
			return err
		}
		out := reflect.MakeSlice(ct.GoType, n, n)
		reflect.Copy(out, reflect.ValueOf(b))
		v.Set(out)
		return nil
	}
	v.Set(reflect.MakeSlice(ct.GoType, n, n))
	return d.decodeElements(ct.Elem, v, path)
}

func (d *Decoder) decodeElements(elem *CompiledType, v reflect.Value, path []string) error {
	for i := 0; i < v.Len(); i++ {
		if err := d.decodeValue(elem, v.Index(i), append(path, "["+strconv.Itoa(i)+"]")); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) decodeOption(ct *CompiledType, v reflect.Value, path []string) error {
	tag, err := d.readByte(path)
	if err != nil {
		return err
	}
	if ct.Elem.Kind == KindBool {
		switch tag {
		case 0:
			v.Field(0).SetBool(false)
			v.Field(1).SetBool(false)
		case 1:
			v.Field(0).SetBool(true)
			v.Field(1).SetBool(true)
		case 2:
			v.Field(0).SetBool(false)
			v.Field(1).SetBool(true)
		default:
			return errors.InvalidDiscriminant(errors.PhaseDecode, path, uint32(tag), 2)
		}
		return nil
	}
	switch tag {
	case 0:
		v.Field(0).SetZero()
		v.Field(1).SetBool(false)
		return nil
	case 1:
		v.Field(1).SetBool(true)
		return d.decodeValue(ct.Elem, v.Field(0), append(path, "some"))
	}
	return errors.InvalidDiscriminant(errors.PhaseDecode, path, uint32(tag), 1)
}

func (d *Decoder) decodeEnum(ct *CompiledType, v reflect.Value, path []string) error {
	tag, err := d.readByte(path)
	if err != nil {
		return err
	}
	if int(tag) >= len(ct.Variants) {
		return errors.InvalidDiscriminant(errors.PhaseDecode, path, uint32(tag), uint32(len(ct.Variants)-1))
	}
	for _, variant := range ct.Variants {
		v.Field(variant.Index).SetZero()
	}
	variant := ct.Variants[tag]
	field := v.Field(variant.Index)
	payload := reflect.New(field.Type().Elem())
	if err := d.decodeValue(variant.Payload, payload.Elem(), append(path, variant.Name)); err != nil {
		return err
	}
	field.Set(payload)
	return nil
}
