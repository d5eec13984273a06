package transcoder

import (
	"fmt"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/opcua-bridge/errors"
	"github.com/wippyai/opcua-bridge/transcoder/internal/types"
	"github.com/wippyai/opcua-bridge/ua"
)

// scalarAliases maps the OPC UA and Go spellings onto WIT primitive names.
var scalarAliases = map[string]string{
	"boolean": "bool",
	"byte":    "u8",
	"uint8":   "u8",
	"sbyte":   "s8",
	"int8":    "s8",
	"uint16":  "u16",
	"int16":   "s16",
	"uint32":  "u32",
	"int32":   "s32",
	"uint64":  "u64",
	"int64":   "s64",
	"float":   "f32",
	"float32": "f32",
	"double":  "f64",
	"float64": "f64",
}

var builtinByKind = [...]ua.BuiltinType{
	types.KindBool: ua.TypeBoolean,
	types.KindU8:   ua.TypeByte,
	types.KindS8:   ua.TypeSByte,
	types.KindU16:  ua.TypeUInt16,
	types.KindS16:  ua.TypeInt16,
	types.KindU32:  ua.TypeUInt32,
	types.KindS32:  ua.TypeInt32,
	types.KindU64:  ua.TypeUInt64,
	types.KindS64:  ua.TypeInt64,
	types.KindF32:  ua.TypeFloat,
	types.KindF64:  ua.TypeDouble,
}

// ParseScalar parses a scalar type name. WIT names (u8, s32, f64, bool) and
// the usual aliases (uint8, int32, double, boolean) are accepted; anything
// without a fixed little-endian width is rejected.
func ParseScalar(name string) (wit.Type, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := scalarAliases[key]; ok {
		key = alias
	}

	t, err := wit.ParseType(key)
	if err != nil {
		return nil, errors.New(errors.PhaseLayout, errors.KindUnsupported).
			Detail("scalar type %q", name).
			Cause(err).
			Build()
	}
	if _, ok := types.FromWIT(t); !ok {
		return nil, errors.Unsupported(errors.PhaseLayout, "scalar type "+name)
	}
	return t, nil
}

// IsScalar reports whether name parses as a supported scalar type.
func IsScalar(name string) bool {
	_, err := ParseScalar(name)
	return err == nil
}

// ScalarWidth returns the encoded width of one element of t.
func ScalarWidth(t wit.Type) (uint32, error) {
	k, ok := types.FromWIT(t)
	if !ok {
		return 0, errors.Unsupported(errors.PhaseLayout, scalarName(t))
	}
	return k.Width(), nil
}

// BuiltinOf returns the OPC UA built-in type carrying values of t.
func BuiltinOf(t wit.Type) (ua.BuiltinType, error) {
	k, ok := types.FromWIT(t)
	if !ok {
		return ua.TypeNull, errors.Unsupported(errors.PhaseLayout, scalarName(t))
	}
	return builtinByKind[k], nil
}

// ScalarName returns the canonical WIT name of a scalar type.
func ScalarName(t wit.Type) string {
	return scalarName(t)
}

func scalarName(t wit.Type) string {
	if k, ok := types.FromWIT(t); ok {
		return k.String()
	}
	return fmt.Sprintf("WIT type %T", t)
}
