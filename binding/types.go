package binding

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/opcua-bridge/ua"
)

// Handle identifies a binding in a Table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// EventType classifies binding lifecycle notifications.
type EventType uint8

const (
	EventBound EventType = iota
	EventUnbound
	EventRegistered
	EventUnregistered
)

var eventNames = [...]string{
	EventBound:        "bound",
	EventUnbound:      "unbound",
	EventRegistered:   "registered",
	EventUnregistered: "unregistered",
}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// Event is a binding lifecycle notification.
type Event struct {
	Binding *Binding
	Handle  Handle
	Type    EventType
}

// Observer receives binding lifecycle events.
type Observer interface {
	OnBindingEvent(Event)
}

// Binding ties one configured signal to its resolved node and to the
// memory the owning component reads and writes.
//
// Memory is a view into an arena owned by the session; the binding never
// owns it. For structured signals Memory covers the whole encoded body.
type Binding struct {
	// Node is the id the path resolved to.
	Node ua.NodeID
	// Access is the id used on the wire: a register-nodes alias when fast
	// access is enabled, otherwise Node.
	Access ua.NodeID
	// Scalar is the element type of scalar and array signals.
	Scalar   wit.Type
	Name     string
	TypeName string
	Memory   []byte
	Path     ua.PathSpec
	Elements uint32
	Width    uint32
	Builtin  ua.BuiltinType
	// Structured marks the signal carried as an extension object.
	Structured bool
}

// Size is the number of bytes of signal memory the binding needs.
// Structured bindings report 0; their size comes from the layout.
func (b *Binding) Size() int {
	if b.Structured {
		return 0
	}
	return int(b.Width) * int(b.Elements)
}

// Target returns the id to address on the wire.
func (b *Binding) Target() ua.NodeID {
	if b.Access != nil {
		return b.Access
	}
	return b.Node
}
