package types

// Scalar enumerates primitive types.
type Scalar uint8

const (
	ScalarNone Scalar = iota
	ScalarBool
	ScalarChar
	ScalarI8
	ScalarI16
	ScalarI32
	ScalarI64
	ScalarI128
	ScalarIsize
	ScalarU8
	ScalarU16
	ScalarU32
	ScalarU64
	ScalarU128
	ScalarUsize
	ScalarF32
	ScalarF64
)

var scalarNames = [...]string{
	ScalarNone:  "?",
	ScalarBool:  "bool",
	ScalarChar:  "char",
	ScalarI8:    "i8",
	ScalarI16:   "i16",
	ScalarI32:   "i32",
	ScalarI64:   "i64",
	ScalarI128:  "i128",
	ScalarIsize: "isize",
	ScalarU8:    "u8",
	ScalarU16:   "u16",
	ScalarU32:   "u32",
	ScalarU64:   "u64",
	ScalarU128:  "u128",
	ScalarUsize: "usize",
	ScalarF32:   "f32",
	ScalarF64:   "f64",
}

func (s Scalar) String() string {
	if int(s) < len(scalarNames) {
		return scalarNames[s]
	}
	return "?"
}

// ParseScalar maps a primitive type name to its Scalar.
func ParseScalar(name string) (Scalar, bool) {
	for i, n := range scalarNames {
		if i != int(ScalarNone) && n == name {
			return Scalar(i), true
		}
	}
	return ScalarNone, false
}

// IsInt reports whether s is a signed or unsigned integer.
func (s Scalar) IsInt() bool { return s >= ScalarI8 && s <= ScalarUsize }

// IsSigned reports whether s is a signed integer.
func (s Scalar) IsSigned() bool { return s >= ScalarI8 && s <= ScalarIsize }

// IsFloat reports whether s is a floating-point type.
func (s Scalar) IsFloat() bool { return s == ScalarF32 || s == ScalarF64 }

// IsNumeric reports whether s is an integer or a float.
func (s Scalar) IsNumeric() bool { return s.IsInt() || s.IsFloat() }

// Bits returns the width of an integer scalar; pointer-sized integers
// report 64.
func (s Scalar) Bits() int {
	switch s {
	case ScalarI8, ScalarU8:
		return 8
	case ScalarI16, ScalarU16:
		return 16
	case ScalarI32, ScalarU32:
		return 32
	case ScalarI64, ScalarU64, ScalarIsize, ScalarUsize:
		return 64
	case ScalarI128, ScalarU128:
		return 128
	default:
		return 0
	}
}
