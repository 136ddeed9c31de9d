package scale

type Kind uint8

const (
	KindBool Kind = iota
	KindU8
	KindI8
	KindU16
	KindI16
	KindU32
	KindI32
	KindU64
	KindI64
	KindString
	KindSequence
	KindArray
	KindTuple
	KindStruct
	KindEnum
	KindOption
	KindResult
	KindUnsupported
)

var kindNames = [...]string{
	KindBool:        "bool",
	KindU8:          "u8",
	KindI8:          "i8",
	KindU16:         "u16",
	KindI16:         "i16",
	KindU32:         "u32",
	KindI32:         "i32",
	KindU64:         "u64",
	KindI64:         "i64",
	KindString:      "str",
	KindSequence:    "sequence",
	KindArray:       "array",
	KindTuple:       "tuple",
	KindStruct:      "struct",
	KindEnum:        "enum",
	KindOption:      "option",
	KindResult:      "result",
	KindUnsupported: "unsupported",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsPrimitive reports whether k is a fixed-width integer, bool or string.
func (k Kind) IsPrimitive() bool {
	return k <= KindString
}

// FixedSize returns the encoded width of fixed-width primitives, 0 otherwise.
func (k Kind) FixedSize() int {
	switch k {
	case KindBool, KindU8, KindI8:
		return 1
	case KindU16, KindI16:
		return 2
	case KindU32, KindI32:
		return 4
	case KindU64, KindI64:
		return 8
	default:
		return 0
	}
}
