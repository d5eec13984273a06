package uasim

import "github.com/wippyai/opcua-bridge/ua"

// Scalar builds a scalar variant from its little-endian bytes.
func Scalar(t ua.BuiltinType, raw []byte) ua.Variant {
	return ua.Variant{Type: t, Raw: raw}
}

// Array builds an array variant of count elements.
func Array(t ua.BuiltinType, count uint32, raw []byte) ua.Variant {
	return ua.Variant{Type: t, Count: count, Raw: raw}
}

// Struct builds a binary-encoded extension object variant.
func Struct(typeID ua.NodeID, body []byte) ua.Variant {
	return ua.Variant{
		Type: ua.TypeExtensionObject,
		Ext: &ua.ExtensionObject{
			TypeID:   typeID,
			Body:     body,
			Encoding: ua.ExtensionObjectBinary,
		},
	}
}
