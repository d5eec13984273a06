package types

import "go.bytecodealliance.org/wit"

// Kind is the scalar kind of a layout leaf, or KindStruct for a structure row.
type Kind uint8

const (
	KindBool Kind = iota
	KindU8
	KindS8
	KindU16
	KindS16
	KindU32
	KindS32
	KindU64
	KindS64
	KindF32
	KindF64
	KindStruct
)

var kindNames = [...]string{
	KindBool:   "bool",
	KindU8:     "u8",
	KindS8:     "s8",
	KindU16:    "u16",
	KindS16:    "s16",
	KindU32:    "u32",
	KindS32:    "s32",
	KindU64:    "u64",
	KindS64:    "s64",
	KindF32:    "f32",
	KindF64:    "f64",
	KindStruct: "struct",
}

var kindWidths = [...]uint32{
	KindBool: 1,
	KindU8:   1,
	KindS8:   1,
	KindU16:  2,
	KindS16:  2,
	KindU32:  4,
	KindS32:  4,
	KindU64:  8,
	KindS64:  8,
	KindF32:  4,
	KindF64:  8,
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

func (k Kind) IsScalar() bool {
	return k < KindStruct
}

// Width is the encoded byte width of one element; 0 for non-scalars.
func (k Kind) Width() uint32 {
	if int(k) < len(kindWidths) {
		return kindWidths[k]
	}
	return 0
}

// FromWIT maps a WIT primitive onto a scalar kind. Strings, chars and
// composite WIT types have no fixed-width body encoding and are rejected.
func FromWIT(t wit.Type) (Kind, bool) {
	switch v := t.(type) {
	case wit.Bool:
		return KindBool, true
	case wit.U8:
		return KindU8, true
	case wit.S8:
		return KindS8, true
	case wit.U16:
		return KindU16, true
	case wit.S16:
		return KindS16, true
	case wit.U32:
		return KindU32, true
	case wit.S32:
		return KindS32, true
	case wit.U64:
		return KindU64, true
	case wit.S64:
		return KindS64, true
	case wit.F32:
		return KindF32, true
	case wit.F64:
		return KindF64, true
	case *wit.TypeDef:
		// type aliases resolve to their underlying primitive
		if inner, ok := v.Kind.(wit.Type); ok {
			return FromWIT(inner)
		}
		return 0, false
	default:
		return 0, false
	}
}

// WIT returns the WIT primitive for a scalar kind.
func (k Kind) WIT() wit.Type {
	switch k {
	case KindBool:
		return wit.Bool{}
	case KindU8:
		return wit.U8{}
	case KindS8:
		return wit.S8{}
	case KindU16:
		return wit.U16{}
	case KindS16:
		return wit.S16{}
	case KindU32:
		return wit.U32{}
	case KindS32:
		return wit.S32{}
	case KindU64:
		return wit.U64{}
	case KindS64:
		return wit.S64{}
	case KindF32:
		return wit.F32{}
	case KindF64:
		return wit.F64{}
	default:
		return nil
	}
}
