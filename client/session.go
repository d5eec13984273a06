package client

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	opcuabridge "github.com/wippyai/opcua-bridge"
	"github.com/wippyai/opcua-bridge/binding"
	"github.com/wippyai/opcua-bridge/dispatch"
	"github.com/wippyai/opcua-bridge/errors"
	"github.com/wippyai/opcua-bridge/metrics"
	"github.com/wippyai/opcua-bridge/resolver"
	"github.com/wippyai/opcua-bridge/transcoder"
	"github.com/wippyai/opcua-bridge/ua"
)

// State is the lifecycle position of a session.
type State uint8

const (
	StateUnconnected State = iota
	StateConnected
	StateBound
	StateReady
	StateClosed
)

var stateNames = [...]string{
	StateUnconnected: "unconnected",
	StateConnected:   "connected",
	StateBound:       "bound",
	StateReady:       "ready",
	StateClosed:      "closed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Options configures a session.
type Options struct {
	// Oracle describes structure types. Required for structured signals.
	Oracle opcuabridge.Oracle

	// Logger overrides the package logger.
	Logger *zap.Logger

	// Dispatcher routes transport events to the session. nil gives the
	// session a dispatcher of its own.
	Dispatcher *dispatch.Dispatcher

	// Metrics records transfers and bound signals. nil disables them.
	Metrics *metrics.Metrics

	Resolver resolver.Options

	// FastAccess registers every bound node before the first transfer.
	FastAccess bool

	// DisableUnresolved drops signals whose path does not resolve instead
	// of failing Register.
	DisableUnresolved bool
}

// Signal declares one value to bind.
type Signal struct {
	Name string
	Path ua.PathSpec
	// Type is a scalar name (u8, int32, double, ...) or, for structured
	// signals, a structure type known to the oracle.
	Type       string
	Elements   uint32
	Structured bool
}

// structured is the one extension-object signal a session may carry.
type structured struct {
	binding  *binding.Binding
	layout   *transcoder.Layout
	leaves   transcoder.Leaves
	binder   transcoder.Binder
	template ua.ExtensionObject
	handle   binding.Handle
	index    int
}

// cycle is the per-variant half of a session.
type cycle interface {
	prepare(ctx context.Context, s *Session) error
	transfer(ctx context.Context, s *Session) error
}

// Session is one client connection together with its bound signals.
//
// A session is driven from a single goroutine. Only transport events may
// arrive concurrently; they are folded into an atomic flag that the next
// Transfer observes.
type Session struct {
	transport  opcuabridge.Transport
	log        *zap.Logger
	table      *binding.Table
	resolver   *resolver.Resolver
	dispatcher *dispatch.Dispatcher
	metrics    *metrics.Metrics
	oracle     opcuabridge.Oracle
	cycle      cycle
	structured *structured
	arenas     []*binding.Arena
	order      []binding.Handle
	id         string
	endpoint   string
	client     dispatch.ClientHandle
	state      State

	fastAccess        bool
	disableUnresolved bool
	disconnected      atomic.Bool
}

func newSession(t opcuabridge.Transport, c cycle, opts Options) *Session {
	id := uuid.NewString()
	log := opts.Logger
	if log == nil {
		log = Logger()
	}

	s := &Session{
		transport:         t,
		cycle:             c,
		id:                id,
		log:               log.With(zap.String("session", id)),
		table:             binding.NewTable(),
		resolver:          resolver.New(t, opts.Resolver),
		dispatcher:        opts.Dispatcher,
		metrics:           opts.Metrics,
		oracle:            opts.Oracle,
		fastAccess:        opts.FastAccess,
		disableUnresolved: opts.DisableUnresolved,
	}
	if s.dispatcher == nil {
		s.dispatcher = dispatch.New()
	}
	s.table.Subscribe(s.metrics.Bindings(id))
	return s
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// Connect opens the session against endpoint.
func (s *Session) Connect(ctx context.Context, endpoint string, creds ua.Credentials) error {
	if s.state != StateUnconnected {
		return errors.InvalidState("connect", s.state.String())
	}
	if s.transport == nil {
		return errors.NotInitialized(errors.PhaseSession, "transport")
	}

	s.log = s.log.With(zap.String("endpoint", endpoint))
	if err := s.transport.Connect(ctx, endpoint, creds); err != nil {
		s.log.Error("connect failed", zap.Error(err))
		return errors.Transport("Connect", err)
	}

	s.endpoint = endpoint
	s.client = s.dispatcher.Register(s)
	s.dispatcher.Attach(s.client, s.transport)
	s.disconnected.Store(false)
	s.state = StateConnected
	s.log.Info("connected")
	return nil
}

// Register resolves and binds signals. handles[i] belongs to signals[i];
// with DisableUnresolved it is 0 for a signal whose path failed. Register
// may be called more than once before Prepare.
func (s *Session) Register(ctx context.Context, signals ...Signal) ([]binding.Handle, error) {
	if s.state != StateConnected && s.state != StateBound {
		return nil, errors.InvalidState("register", s.state.String())
	}

	bindings := make([]*binding.Binding, len(signals))
	var layout *transcoder.Layout
	structIdx := -1

	for i, sig := range signals {
		b, l, err := s.describe(sig)
		if err != nil {
			return nil, err
		}
		if l != nil {
			if s.structured != nil || structIdx >= 0 {
				return nil, errors.New(errors.PhaseRegister, errors.KindInvalidInput).
					Signal(sig.Name).
					Detail("a session carries at most one structured signal").
					Build()
			}
			layout, structIdx = l, i
		}
		bindings[i] = b
	}

	paths := make([]ua.PathSpec, len(signals))
	for i, sig := range signals {
		paths[i] = sig.Path
	}
	ids, err := s.resolver.ResolveAll(ctx, paths)
	if err != nil {
		if !s.disableUnresolved {
			return nil, err
		}
		s.log.Warn("dropping unresolved signals", zap.Error(err))
	}

	size := 0
	for i, b := range bindings {
		if ids[i] == nil {
			continue
		}
		b.Node = ids[i]
		if i == structIdx {
			size += layout.Size()
		} else {
			size += b.Size()
		}
	}

	arena := binding.NewArena(size)
	handles := make([]binding.Handle, len(signals))
	for i, b := range bindings {
		if ids[i] == nil {
			continue
		}

		n := b.Size()
		if i == structIdx {
			n = layout.Size()
		}
		if b.Memory, err = arena.Alloc(n); err != nil {
			return nil, err
		}

		var st *structured
		if i == structIdx {
			st = &structured{binding: b, layout: layout, leaves: make(transcoder.Leaves, layout.Leaves()), index: len(s.order)}
			st.binder = st.leaves
			if err := layout.Encode(b.Memory, st.binder); err != nil {
				return nil, err
			}
		}

		h, err := s.table.Insert(b)
		if err != nil {
			return nil, err
		}
		if st != nil {
			st.handle = h
			s.structured = st
		}
		handles[i] = h
		s.order = append(s.order, h)
		s.log.Debug("signal bound",
			zap.String("signal", b.Name),
			zap.String("path", b.Path.String()),
			zap.Stringer("node", b.Node),
			zap.Int("bytes", n))
	}

	s.arenas = append(s.arenas, arena)
	s.state = StateBound
	return handles, nil
}

func (s *Session) describe(sig Signal) (*binding.Binding, *transcoder.Layout, error) {
	if !sig.Structured {
		scalar, err := transcoder.ParseScalar(sig.Type)
		if err != nil {
			return nil, nil, errors.New(errors.PhaseRegister, errors.KindInvalidInput).
				Signal(sig.Name).
				Detail("element type %q", sig.Type).
				Cause(err).
				Build()
		}
		b, err := binding.NewScalar(sig.Name, sig.Path, scalar, sig.Elements)
		return b, nil, err
	}

	if s.oracle == nil {
		return nil, nil, errors.NotInitialized(errors.PhaseRegister, "type oracle")
	}
	b, err := binding.NewStructured(sig.Name, sig.Path, sig.Type, sig.Elements)
	if err != nil {
		return nil, nil, err
	}
	l, err := transcoder.BuildLayout(s.oracle, sig.Type, sig.Elements)
	if err != nil {
		return nil, nil, err
	}
	return b, l, nil
}

// Prepare registers nodes for fast access when enabled and builds the
// per-cycle requests. The session is Ready afterwards.
func (s *Session) Prepare(ctx context.Context) error {
	if s.state != StateBound {
		return errors.InvalidState("prepare", s.state.String())
	}

	if s.fastAccess {
		if err := s.table.RegisterNodes(ctx, s.transport); err != nil {
			s.log.Warn("fast access unavailable, using resolved ids", zap.Error(err))
		}
	}

	if err := s.cycle.prepare(ctx, s); err != nil {
		return err
	}
	s.state = StateReady
	s.log.Info("session ready", zap.Int("signals", s.table.Len()))
	return nil
}

// Transfer runs one cycle. Transport failures are returned and leave the
// session Ready; the next call starts from scratch. A lost connection is
// reported as disconnected until the session is shut down.
func (s *Session) Transfer(ctx context.Context) error {
	if s.state != StateReady {
		return errors.InvalidState("transfer", s.state.String())
	}

	var err error
	if s.disconnected.Load() {
		err = errors.Disconnected("connection lost, session must be re-established")
	} else {
		err = s.cycle.transfer(ctx, s)
	}

	s.metrics.ObserveTransfer(s.id, err)
	if err != nil && errors.IsTransport(err) {
		s.log.Warn("transfer failed", zap.Error(err))
	}
	return err
}

// Memory returns the bound memory of h. It stays valid until Shutdown.
func (s *Session) Memory(h binding.Handle) ([]byte, error) {
	return s.table.Memory(h)
}

// Binding returns the binding behind h.
func (s *Session) Binding(h binding.Handle) (*binding.Binding, bool) {
	return s.table.Get(h)
}

// Leaves returns the member regions of the structured signal, in layout
// order. Each aliases the signal's memory.
func (s *Session) Leaves() [][]byte {
	if s.structured == nil {
		return nil
	}
	return s.structured.leaves
}

// Layout returns the layout of the structured signal, or nil.
func (s *Session) Layout() *transcoder.Layout {
	if s.structured == nil {
		return nil
	}
	return s.structured.layout
}

// Shutdown unregisters fast-access nodes, disconnects and releases every
// binding. Unregistration failures are logged, not returned.
func (s *Session) Shutdown(ctx context.Context) error {
	if s.state == StateClosed {
		return nil
	}
	prev := s.state
	s.state = StateClosed

	if s.fastAccess {
		if err := s.table.UnregisterNodes(ctx, s.transport); err != nil {
			s.log.Warn("unregister nodes failed", zap.Error(err))
		}
	}

	var err error
	if prev != StateUnconnected {
		s.dispatcher.Unregister(s.client)
		if !s.disconnected.Load() {
			if derr := s.transport.Disconnect(ctx); derr != nil {
				err = errors.Transport("Disconnect", derr)
			}
		}
	}

	s.table.Close()
	s.metrics.Forget(s.id)
	s.structured = nil
	s.arenas = nil
	s.order = nil
	s.log.Info("session closed")
	return err
}

// OnTransportEvent implements opcuabridge.EventSink.
func (s *Session) OnTransportEvent(ev opcuabridge.Event) {
	switch ev.Type {
	case opcuabridge.EventConnectionLost, opcuabridge.EventSessionClosed:
		s.disconnected.Store(true)
		s.log.Warn("connection lost", zap.Stringer("event", ev.Type), zap.Stringer("status", ev.Status))
	case opcuabridge.EventChannelRenewed:
		s.log.Debug("secure channel renewed")
	}
}

// Disconnected reports whether the transport signalled a lost connection.
func (s *Session) Disconnected() bool { return s.disconnected.Load() }

// bound returns the bindings in registration order.
func (s *Session) bound() []*binding.Binding {
	out := make([]*binding.Binding, 0, len(s.order))
	for _, h := range s.order {
		if b, ok := s.table.Get(h); ok {
			out = append(out, b)
		}
	}
	return out
}

func (s *Session) isStructured(b *binding.Binding) bool {
	return s.structured != nil && s.structured.binding == b
}

// readTemplate fetches the server's current value of the structured
// signal once and keeps its encoding id, so later cycles only swap the
// body.
func (s *Session) readTemplate(ctx context.Context) error {
	st := s.structured
	values, err := s.transport.Read(ctx, []ua.NodeID{st.binding.Target()})
	if err != nil {
		return errors.Transport("Read", err)
	}
	if len(values) != 1 {
		return errors.New(errors.PhaseTransport, errors.KindLengthMismatch).
			Signal(st.binding.Name).
			Detail("Read returned %d values for 1 node", len(values)).
			Build()
	}
	if values[0].Status != ua.StatusGood {
		e := errors.BadStatus(errors.PhaseTransport, "Read", values[0].Status)
		e.Signal = st.binding.Name
		return e
	}

	ext := values[0].Value.Ext
	if values[0].Value.Type != ua.TypeExtensionObject || ext == nil {
		return errors.New(errors.PhaseDecode, errors.KindInvalidInput).
			Signal(st.binding.Name).
			Node(st.binding.Node.String()).
			Detail("value is %s, not an extension object", values[0].Value.Type).
			Build()
	}
	if err := st.layout.Validate(ext.Body); err != nil {
		s.logCodec(st, st.layout.Size(), len(ext.Body), err)
		return err
	}

	st.template =ua.ExtensionObject{TypeID: ext.TypeID, Encoding: ext.Encoding, Body: st.binding.Memory}
	return nil
}

// encode refreshes the count prefixes of the structured body.
func (s *Session) encode() error {
	st := s.structured
	if err := st.layout.Encode(st.binding.Memory, st.binder); err != nil {
		s.logCodec(st, st.layout.Size(), len(st.binding.Memory), err)
		return err
	}
	return nil
}

func (s *Session) logCodec(st *structured, expected, actual int, err error) {
	s.log.Error("codec error",
		zap.String("signal", errors.SignalName(st.index, st.binding.Name)),
		zap.Int("expected", expected),
		zap.Int("actual", actual),
		zap.Error(err))
}

// checkStatuses turns the first bad per-node status into an error.
func checkStatuses(service string, statuses []ua.StatusCode, names []string) error {
	if len(statuses) != len(names) {
		return errors.New(errors.PhaseTransport, errors.KindLengthMismatch).
			Detail("%s returned %d results for %d nodes", service, len(statuses), len(names)).
			Build()
	}
	for i, st := range statuses {
		if st != ua.StatusGood {
			e := errors.BadStatus(errors.PhaseTransport, service, st)
			e.Signal = errors.SignalName(i, names[i])
			return e
		}
	}
	return nil
}
