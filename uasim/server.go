package uasim

import (
	"strconv"
	"sync"

	opcuabridge "github.com/wippyai/opcua-bridge"
	"github.com/wippyai/opcua-bridge/ua"
)

// Service names accepted by Fail and Calls.
const (
	ServiceConnect         = "Connect"
	ServiceDisconnect      = "Disconnect"
	ServiceBrowse          = "Browse"
	ServiceBrowseNext      = "BrowseNext"
	ServiceTranslate       = "TranslateBrowsePath"
	ServiceRead            = "Read"
	ServiceWrite           = "Write"
	ServiceCall            = "Call"
	ServiceRegisterNodes   = "RegisterNodes"
	ServiceUnregisterNodes = "UnregisterNodes"
)

// MethodFunc implements a callable method node.
type MethodFunc func(args []ua.Variant) ([]ua.Variant, ua.StatusCode)

type node struct {
	id       ua.NodeID
	refType  ua.NodeID
	method   MethodFunc
	name     string
	children []*node
	value    ua.Variant
	class    ua.NodeClass
}

type fault struct {
	err  error
	once bool
}

// Server is an in-process address space implementing opcuabridge.Transport.
// It is safe for concurrent use.
type Server struct {
	nodes         map[string]*node
	aliases       map[string]ua.NodeID
	continuations map[string][]ua.ReferenceDescription
	faults        map[string]fault
	calls         map[string]int
	hooks         map[string]func(ua.NodeID)
	handlers      []func(opcuabridge.Event)
	creds         *ua.Credentials
	endpoint      string
	pageSize      int
	nextCP        int
	nextAlias     uint32
	mu            sync.Mutex
	connected     bool
}

var _ opcuabridge.Transport = (*Server)(nil)
var _ opcuabridge.EventEmitter = (*Server)(nil)

// New creates a server holding only the Objects folder and the server
// status variables.
func New() *Server {
	s := &Server{
		nodes:         make(map[string]*node),
		aliases:       make(map[string]ua.NodeID),
		continuations: make(map[string][]ua.ReferenceDescription),
		faults:        make(map[string]fault),
		calls:         make(map[string]int),
		hooks:         make(map[string]func(ua.NodeID)),
		nextAlias:     0x7000_0000,
	}
	root := &node{id: ua.ObjectsFolder, name: "Objects", class: ua.NodeClassObject}
	s.nodes[root.id.String()] = root

	server := s.addLocked(root, "Server", ua.NumericNodeID{ID: 2253}, ua.NodeClassObject, ua.Organizes)
	status := s.addLocked(server, "ServerStatus", ua.NumericNodeID{ID: 2256}, ua.NodeClassVariable, ua.HasComponent)
	state := s.addLocked(status, "State", ua.ServerStatusState, ua.NodeClassVariable, ua.HasComponent)
	state.value = ua.Variant{Type: ua.TypeInt32, Raw: make([]byte, 4)}
	now := s.addLocked(status, "CurrentTime", ua.ServerStatusTime, ua.NodeClassVariable, ua.HasComponent)
	now.value = ua.Variant{Type: ua.TypeInt64, Raw: make([]byte, 8)}
	return s
}

// SetPageSize limits the references returned per Browse page. 0 disables
// paging.
func (s *Server) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = n
}

// RequireCredentials makes Connect reject any other credentials.
func (s *Server) RequireCredentials(c ua.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = &c
}

// AddObject adds an object below parent, reached by an Organizes reference.
func (s *Server) AddObject(parent ua.NodeID, name string, id ua.NodeID) ua.NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(s.mustNode(parent), name, id, ua.NodeClassObject, ua.Organizes)
	return id
}

// AddVariable adds a variable below parent, reached by HasComponent.
func (s *Server) AddVariable(parent ua.NodeID, name string, id ua.NodeID, value ua.Variant) ua.NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.addLocked(s.mustNode(parent), name, id, ua.NodeClassVariable, ua.HasComponent)
	n.value = cloneVariant(value)
	return id
}

// AddMethod adds a method below parent.
func (s *Server) AddMethod(parent ua.NodeID, name string, id ua.NodeID, fn MethodFunc) ua.NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.addLocked(s.mustNode(parent), name, id, ua.NodeClassMethod, ua.HasComponent)
	n.method = fn
	return id
}

// AddPath creates the objects along p below the Objects folder and a
// variable holding value at its end. Node ids are string ids made of the
// dotted prefix. Existing nodes are reused.
func (s *Server) AddPath(p ua.PathSpec, value ua.Variant) ua.NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent := s.nodes[ua.ObjectsFolder.String()]
	for i := 0; i < p.Len(); i++ {
		name := p.Segment(i)
		child := findChild(parent, name)
		if child == nil {
			id := ua.StringNodeID{NS: p.Namespace(), ID: joinPrefix(p, i+1)}
			class, ref := ua.NodeClassObject, ua.Organizes
			if i == p.Len()-1 {
				class, ref = ua.NodeClassVariable, ua.HasComponent
			}
			child = s.addLocked(parent, name, id, class, ref)
		}
		parent = child
	}
	parent.value = cloneVariant(value)
	return parent.id
}

// AddObjectPath creates the objects along p below the Objects folder and
// returns the last one. Existing nodes are reused.
func (s *Server) AddObjectPath(p ua.PathSpec) ua.NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent := s.nodes[ua.ObjectsFolder.String()]
	for i := 0; i < p.Len(); i++ {
		child := findChild(parent, p.Segment(i))
		if child == nil {
			id := ua.StringNodeID{NS: p.Namespace(), ID: joinPrefix(p, i+1)}
			child = s.addLocked(parent, p.Segment(i), id, ua.NodeClassObject, ua.Organizes)
		}
		parent = child
	}
	return parent.id
}

// SetValue replaces the value of a variable.
func (s *Server) SetValue(id ua.NodeID, v ua.Variant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mustNode(id).value = cloneVariant(v)
}

// Value returns a copy of the current value of a variable.
func (s *Server) Value(id ua.NodeID) ua.Variant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneVariant(s.mustNode(id).value)
}

// Fail makes every later call of service fail with err. A nil err clears
// the fault.
func (s *Server) Fail(service string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, service)
		return
	}
	s.faults[service] = fault{err: err}
}

// FailOnce makes the next call of service fail with err.
func (s *Server) FailOnce(service string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[service] = fault{err: err, once: true}
}

// OnCall installs a hook run at the start of every call of service, with
// the call's target node when it has one. Browse hooks see the browsed
// node.
func (s *Server) OnCall(service string, fn func(ua.NodeID)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[service] = fn
}

// Calls returns how many times service was invoked.
func (s *Server) Calls(service string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[service]
}

// ResetCalls zeroes the call counters.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.calls)
}

// Registered returns the number of live register-nodes aliases.
func (s *Server) Registered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.aliases)
}

// Connected reports whether a client session is open.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Endpoint returns the endpoint of the last successful Connect.
func (s *Server) Endpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoint
}

// OnEvent subscribes fn to asynchronous events.
func (s *Server) OnEvent(fn func(opcuabridge.Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, fn)
}

// Emit delivers ev to every subscriber.
func (s *Server) Emit(ev opcuabridge.Event) {
	s.mu.Lock()
	handlers := make([]func(opcuabridge.Event), len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// Drop closes the connection from the server side and raises
// EventConnectionLost.
func (s *Server) Drop() {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	s.Emit(opcuabridge.Event{Type: opcuabridge.EventConnectionLost, Status: ua.StatusBadConnectionClosed})
}

func (s *Server) addLocked(parent *node, name string, id ua.NodeID, class ua.NodeClass, ref ua.NodeID) *node {
	n := &node{id: id, name: name, class: class, refType: ref}
	s.nodes[id.String()] = n
	parent.children = append(parent.children, n)
	return n
}

func (s *Server) mustNode(id ua.NodeID) *node {
	n, ok := s.nodes[id.String()]
	if !ok {
		panic("uasim: unknown node " + id.String())
	}
	return n
}

// lookup resolves register-nodes aliases.
func (s *Server) lookup(id ua.NodeID) (*node, bool) {
	if id == nil {
		return nil, false
	}
	key := id.String()
	if real, ok := s.aliases[key]; ok {
		key = real.String()
	}
	n, ok := s.nodes[key]
	return n, ok
}

// enter counts a call, runs its hook and returns any injected fault.
func (s *Server) enter(service string, target ua.NodeID) error {
	s.mu.Lock()
	s.calls[service]++
	hook := s.hooks[service]
	f, failing := s.faults[service]
	if failing && f.once {
		delete(s.faults, service)
	}
	connected := s.connected
	s.mu.Unlock()

	if hook != nil {
		hook(target)
	}
	if failing {
		return f.err
	}
	if !connected && service != ServiceConnect {
		return ua.StatusBadConnectionClosed
	}
	return nil
}

func findChild(parent *node, name string) *node {
	for _, c := range parent.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

func joinPrefix(p ua.PathSpec, n int) string {
	out := p.Segment(0)
	for i := 1; i < n; i++ {
		out += ua.PathSeparator + p.Segment(i)
	}
	return out
}

func cloneVariant(v ua.Variant) ua.Variant {
	out := v
	if v.Raw != nil {
		out.Raw = append([]byte(nil), v.Raw...)
	}
	if v.Ext != nil {
		ext := *v.Ext
		ext.Body = append([]byte(nil), v.Ext.Body...)
		out.Ext = &ext
	}
	return out
}

func continuationKey(n int) string {
	return "cp-" + strconv.Itoa(n)
}
