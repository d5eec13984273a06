package ua

import "strconv"

// StatusCode is a service or operation result code. The top bit marks Bad.
type StatusCode uint32

const (
	StatusGood                  StatusCode = 0x00000000
	StatusBadUnexpectedError    StatusCode = 0x80010000
	StatusBadTimeout            StatusCode = 0x800A0000
	StatusBadNothingToDo        StatusCode = 0x800F0000
	StatusBadNodeIDUnknown      StatusCode = 0x80340000
	StatusBadNoMatch            StatusCode = 0x806F0000
	StatusBadTypeMismatch       StatusCode = 0x80740000
	StatusBadMethodInvalid      StatusCode = 0x80750000
	StatusBadArgumentsMissing   StatusCode = 0x80760000
	StatusBadInvalidArgument    StatusCode = 0x80AB0000
	StatusBadConnectionClosed   StatusCode = 0x80AE0000
	StatusBadSecureChannelClose StatusCode = 0x80860000
	StatusBadContinuationPoint  StatusCode = 0x804A0000
)

var statusNames = map[StatusCode]string{
	StatusGood:                  "Good",
	StatusBadUnexpectedError:    "BadUnexpectedError",
	StatusBadTimeout:            "BadTimeout",
	StatusBadNothingToDo:        "BadNothingToDo",
	StatusBadNodeIDUnknown:      "BadNodeIdUnknown",
	StatusBadNoMatch:            "BadNoMatch",
	StatusBadTypeMismatch:       "BadTypeMismatch",
	StatusBadMethodInvalid:      "BadMethodInvalid",
	StatusBadArgumentsMissing:   "BadArgumentsMissing",
	StatusBadInvalidArgument:    "BadInvalidArgument",
	StatusBadConnectionClosed:   "BadConnectionClosed",
	StatusBadSecureChannelClose: "BadSecureChannelClosed",
	StatusBadContinuationPoint:  "BadContinuationPointInvalid",
}

func (s StatusCode) IsBad() bool { return s&0x80000000 != 0 }

// Error lets a bad status travel as an error value.
func (s StatusCode) Error() string { return s.String() }

func (s StatusCode) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "0x" + strconv.FormatUint(uint64(s), 16)
}

// QualifiedName is a namespace-qualified browse name.
type QualifiedName struct {
	Name           string
	NamespaceIndex uint16
}

// NodeClass of a browse target.
type NodeClass uint32

const (
	NodeClassUnspecified NodeClass = 0
	NodeClassObject      NodeClass = 1
	NodeClassVariable    NodeClass = 2
	NodeClassMethod      NodeClass = 4
)

// ReferenceDescription is one row of a browse result.
type ReferenceDescription struct {
	ReferenceTypeID NodeID
	NodeID          NodeID
	BrowseName      QualifiedName
	DisplayName     string
	NodeClass       NodeClass
	IsForward       bool
}

// BrowseResult is one page of references. A non-empty ContinuationPoint
// means more pages are available through BrowseNext.
type BrowseResult struct {
	ContinuationPoint []byte
	References        []ReferenceDescription
	StatusCode        StatusCode
}

// RelativePathElement is one hop of a translate-browse-path request.
type RelativePathElement struct {
	ReferenceTypeID NodeID
	TargetName      QualifiedName
	IsInverse       bool
	IncludeSubtypes bool
}

// BuiltinType is the OPC UA built-in data type id carried by a Variant.
type BuiltinType uint8

const (
	TypeNull            BuiltinType = 0
	TypeBoolean         BuiltinType = 1
	TypeSByte           BuiltinType = 2
	TypeByte            BuiltinType = 3
	TypeInt16           BuiltinType = 4
	TypeUInt16          BuiltinType = 5
	TypeInt32           BuiltinType = 6
	TypeUInt32          BuiltinType = 7
	TypeInt64           BuiltinType = 8
	TypeUInt64          BuiltinType = 9
	TypeFloat           BuiltinType = 10
	TypeDouble          BuiltinType = 11
	TypeExtensionObject BuiltinType = 22
)

var builtinNames = map[BuiltinType]string{
	TypeNull:            "Null",
	TypeBoolean:         "Boolean",
	TypeSByte:           "SByte",
	TypeByte:            "Byte",
	TypeInt16:           "Int16",
	TypeUInt16:          "UInt16",
	TypeInt32:           "Int32",
	TypeUInt32:          "UInt32",
	TypeInt64:           "Int64",
	TypeUInt64:          "UInt64",
	TypeFloat:           "Float",
	TypeDouble:          "Double",
	TypeExtensionObject: "ExtensionObject",
}

func (t BuiltinType) String() string {
	if name, ok := builtinNames[t]; ok {
		return name
	}
	return "BuiltinType(" + strconv.Itoa(int(t)) + ")"
}

// ExtensionObjectBinary marks a binary-encoded extension object body.
const ExtensionObjectBinary byte = 0x01

// ExtensionObject is a structured value: an encoding type id and an opaque body.
type ExtensionObject struct {
	TypeID   NodeID
	Body     []byte
	Encoding byte
}

// Variant carries a scalar or fixed-length array as raw little-endian
// bytes, or a structured value as an ExtensionObject. Raw may alias live
// signal memory; transports must not retain it after the call returns.
type Variant struct {
	Ext   *ExtensionObject
	Raw   []byte
	Count uint32 // 0 for scalars, element count for arrays
	Type  BuiltinType
}

// IsArray reports whether the variant is an array value.
func (v Variant) IsArray() bool { return v.Count > 0 }

// DataValue is one Read result.
type DataValue struct {
	Value  Variant
	Status StatusCode
}

// WriteValue is one element of a batched Write.
type WriteValue struct {
	NodeID NodeID
	Value  Variant
}

// CallMethodRequest invokes MethodID on ObjectID.
type CallMethodRequest struct {
	ObjectID  NodeID
	MethodID  NodeID
	Arguments []Variant
}

// CallResult is the outcome of one method call.
type CallResult struct {
	Outputs    []Variant
	StatusCode StatusCode
}

// Credentials for user-name authentication. An empty Username means anonymous.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) Anonymous() bool { return c.Username == "" }
