package opcuabridge

import (
	"context"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/opcua-bridge/ua"
)

// Transport is the service primitive offered by an OPC UA client stack.
// Framing, security and sockets live behind it.
type Transport interface {
	Connect(ctx context.Context, endpoint string, creds ua.Credentials) error
	Disconnect(ctx context.Context) error
	Browse(ctx context.Context, node ua.NodeID) (ua.BrowseResult, error)
	BrowseNext(ctx context.Context, continuation []byte) (ua.BrowseResult, error)
	TranslateBrowsePath(ctx context.Context, start ua.NodeID, path []ua.RelativePathElement) (ua.NodeID, error)
	Read(ctx context.Context, nodes []ua.NodeID) ([]ua.DataValue, error)
	Write(ctx context.Context, values []ua.WriteValue) ([]ua.StatusCode, error)
	Call(ctx context.Context, req ua.CallMethodRequest) (ua.CallResult, error)
	RegisterNodes(ctx context.Context, nodes []ua.NodeID) ([]ua.NodeID, error)
	UnregisterNodes(ctx context.Context, nodes []ua.NodeID) error
}

// Member describes one field of a structure type.
// Leaves carry a WIT primitive in Scalar; structures carry TypeName.
type Member struct {
	Scalar     wit.Type
	Name       string
	TypeName   string
	Elements   uint32
	Structured bool
}

// Oracle yields the ordered member list of a named structure type.
type Oracle interface {
	MemberCount(typeName string) (int, error)
	Member(typeName string, index int) (Member, error)
}

// EventType classifies asynchronous transport notifications.
type EventType uint8

const (
	EventConnectionLost EventType = iota
	EventChannelRenewed
	EventSessionClosed
)

var eventNames = [...]string{
	EventConnectionLost: "connection-lost",
	EventChannelRenewed: "channel-renewed",
	EventSessionClosed:  "session-closed",
}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// Event is an asynchronous notification raised by a transport.
type Event struct {
	Type   EventType
	Status ua.StatusCode
}

// EventSink receives transport events routed to it by a dispatcher.
type EventSink interface {
	OnTransportEvent(Event)
}

// EventEmitter is implemented by transports that raise asynchronous events.
// The callback may be invoked from any goroutine.
type EventEmitter interface {
	OnEvent(fn func(Event))
}
