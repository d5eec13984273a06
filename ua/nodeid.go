package ua

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/wippyai/opcua-bridge/errors"
)

// IDType discriminates the identifier forms a server may use.
type IDType uint8

const (
	IDNumeric IDType = iota
	IDString
	IDGUID
	IDOpaque
)

var idTypeNames = [...]string{
	IDNumeric: "numeric",
	IDString:  "string",
	IDGUID:    "guid",
	IDOpaque:  "opaque",
}

func (t IDType) String() string {
	if int(t) < len(idTypeNames) {
		return idTypeNames[t]
	}
	return "unknown"
}

// NodeID addresses one element of a server address space.
// Implementations are NumericNodeID, StringNodeID, GUIDNodeID and OpaqueNodeID.
type NodeID interface {
	Namespace() uint16
	Type() IDType
	String() string
	nodeID()
}

type NumericNodeID struct {
	NS uint16
	ID uint32
}

type StringNodeID struct {
	ID string
	NS uint16
}

type GUIDNodeID struct {
	NS uint16
	ID uuid.UUID
}

type OpaqueNodeID struct {
	ID []byte
	NS uint16
}

func (n NumericNodeID) Namespace() uint16 { return n.NS }
func (n StringNodeID) Namespace() uint16  { return n.NS }
func (n GUIDNodeID) Namespace() uint16    { return n.NS }
func (n OpaqueNodeID) Namespace() uint16  { return n.NS }

func (NumericNodeID) Type() IDType { return IDNumeric }
func (StringNodeID) Type() IDType  { return IDString }
func (GUIDNodeID) Type() IDType    { return IDGUID }
func (OpaqueNodeID) Type() IDType  { return IDOpaque }

func (NumericNodeID) nodeID() {}
func (StringNodeID) nodeID()  {}
func (GUIDNodeID) nodeID()    {}
func (OpaqueNodeID) nodeID()  {}

func (n NumericNodeID) String() string {
	return prefix(n.NS) + "i=" + strconv.FormatUint(uint64(n.ID), 10)
}

func (n StringNodeID) String() string {
	return prefix(n.NS) + "s=" + n.ID
}

func (n GUIDNodeID) String() string {
	return prefix(n.NS) + "g=" + n.ID.String()
}

func (n OpaqueNodeID) String() string {
	return prefix(n.NS) + "b=" + base64.StdEncoding.EncodeToString(n.ID)
}

func prefix(ns uint16) string {
	if ns == 0 {
		return ""
	}
	return "ns=" + strconv.FormatUint(uint64(ns), 10) + ";"
}

// Equal compares two node ids by namespace, form and value.
func Equal(a, b NodeID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Namespace() != b.Namespace() || a.Type() != b.Type() {
		return false
	}
	return a.String() == b.String()
}

// ParseNodeID parses the standard text form: [ns=<n>;]{i|s|g|b}=<value>.
func ParseNodeID(s string) (NodeID, error) {
	var ns uint16
	rest := s
	if strings.HasPrefix(rest, "ns=") {
		nsText, tail, ok := strings.Cut(rest[3:], ";")
		if !ok {
			return nil, errors.InvalidInput(errors.PhaseConfig, "node id "+strconv.Quote(s)+": missing ';' after namespace")
		}
		n, err := strconv.ParseUint(nsText, 10, 16)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "node id "+strconv.Quote(s)+": namespace")
		}
		ns = uint16(n)
		rest = tail
	}

	if len(rest) < 2 || rest[1] != '=' {
		return nil, errors.InvalidInput(errors.PhaseConfig, "node id "+strconv.Quote(s)+": missing identifier type")
	}

	value := rest[2:]
	switch rest[0] {
	case 'i':
		id, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "node id "+strconv.Quote(s)+": numeric identifier")
		}
		return NumericNodeID{NS: ns, ID: uint32(id)}, nil
	case 's':
		if value == "" {
			return nil, errors.InvalidInput(errors.PhaseConfig, "node id "+strconv.Quote(s)+": empty string identifier")
		}
		return StringNodeID{NS: ns, ID: value}, nil
	case 'g':
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "node id "+strconv.Quote(s)+": guid identifier")
		}
		return GUIDNodeID{NS: ns, ID: id}, nil
	case 'b':
		id, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "node id "+strconv.Quote(s)+": opaque identifier")
		}
		return OpaqueNodeID{NS: ns, ID: id}, nil
	default:
		return nil, errors.InvalidInput(errors.PhaseConfig, "node id "+strconv.Quote(s)+": unknown identifier type "+strconv.QuoteRune(rune(rest[0])))
	}
}

// Well-known namespace-zero nodes.
var (
	ObjectsFolder          NodeID = NumericNodeID{ID: 85}
	HierarchicalReferences NodeID = NumericNodeID{ID: 33}
	Organizes              NodeID = NumericNodeID{ID: 35}
	HasComponent           NodeID = NumericNodeID{ID: 47}
	ServerStatusState      NodeID = NumericNodeID{ID: 2259}
	ServerStatusTime       NodeID = NumericNodeID{ID: 2258}
)
