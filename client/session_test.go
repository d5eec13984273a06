package client

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	opcuabridge "github.com/wippyai/opcua-bridge"
	"github.com/wippyai/opcua-bridge/binding"
	"github.com/wippyai/opcua-bridge/dispatch"
	"github.com/wippyai/opcua-bridge/errors"
	"github.com/wippyai/opcua-bridge/metrics"
	"github.com/wippyai/opcua-bridge/transcoder"
	"github.com/wippyai/opcua-bridge/typereg"
	"github.com/wippyai/opcua-bridge/ua"
	"github.com/wippyai/opcua-bridge/uasim"
)

const ns = 2

// T is {A u8, B u16[2]}: 1 + 4 + 4 bytes.
const registryYAML = `
types:
  - name: T
    members:
      - {name: A, type: u8}
      - {name: B, type: u16, elements: 2}
`

const bodySize = 9

var encodingID = ua.NumericNodeID{NS: ns, ID: 5001}

// emptyBody is a zeroed T with its B count prefix in place.
func emptyBody() []byte {
	return []byte{0, 2, 0, 0, 0, 0, 0, 0, 0}
}

type fixture struct {
	srv    *uasim.Server
	oracle *typereg.Registry
	speed  ua.NodeID
	limits ua.NodeID
	body   ua.NodeID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg, err := typereg.Parse([]byte(registryYAML))
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	srv := uasim.New()
	return &fixture{
		srv:    srv,
		oracle: reg,
		speed:  srv.AddPath(ua.MustParsePath("Line1.Speed", ns), uasim.Scalar(ua.TypeFloat, make([]byte, 4))),
		limits: srv.AddPath(ua.MustParsePath("Line1.Limits", ns), uasim.Array(ua.TypeUInt32, 4, make([]byte, 16))),
		body:   srv.AddPath(ua.MustParsePath("Line1.Config", ns), uasim.Struct(encodingID, emptyBody())),
	}
}

func (f *fixture) signals() []Signal {
	return []Signal{
		{Name: "speed", Path: ua.MustParsePath("Line1.Speed", ns), Type: "float", Elements: 1},
		{Name: "limits", Path: ua.MustParsePath("Line1.Limits", ns), Type: "u32", Elements: 4},
		{Name: "config", Path: ua.MustParsePath("Line1.Config", ns), Type: "T", Elements: 1, Structured: true},
	}
}

func (f *fixture) options() Options {
	return Options{Oracle: f.oracle}
}

// ready drives s through Connect, Register and Prepare.
func ready(t *testing.T, s *Session, signals []Signal) []binding.Handle {
	t.Helper()
	ctx := context.Background()
	if err := s.Connect(ctx, "opc.tcp://sim", ua.Credentials{}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	handles, err := s.Register(ctx, signals...)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Prepare(ctx); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if s.State() != StateReady {
		t.Fatalf("state = %s, want ready", s.State())
	}
	return handles
}

func TestWriter_Transfer(t *testing.T) {
	f := newFixture(t)
	s := NewWriter(f.srv, f.options())
	h := ready(t, s, f.signals())
	ctx := context.Background()

	speed, _ := s.Memory(h[0])
	transcoder.View(speed).SetF32(0, 12.5)
	limits, _ := s.Memory(h[1])
	transcoder.View(limits).SetU32(3, 900)

	leaves := s.Leaves()
	if len(leaves) != 2 {
		t.Fatalf("leaves = %d, want 2", len(leaves))
	}
	transcoder.View(leaves[0]).SetU8(0, 7)
	transcoder.View(leaves[1]).SetU16(1, 0x1234)

	if err := s.Transfer(ctx); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := f.srv.Calls(uasim.ServiceWrite); got != 1 {
		t.Errorf("Write calls = %d, want one batched write", got)
	}

	if got := transcoder.View(f.srv.Value(f.speed).Raw).F32(0); got != 12.5 {
		t.Errorf("speed = %v", got)
	}
	if got := transcoder.View(f.srv.Value(f.limits).Raw).U32(3); got != 900 {
		t.Errorf("limits[3] = %v", got)
	}

	want := []byte{7, 2, 0, 0, 0, 0, 0, 0x34, 0x12}
	first := f.srv.Value(f.body)
	if !bytes.Equal(first.Ext.Body, want) {
		t.Errorf("body = % x, want % x", first.Ext.Body, want)
	}
	if !ua.Equal(first.Ext.TypeID, encodingID) {
		t.Errorf("type id = %v", first.Ext.TypeID)
	}

	if err := s.Transfer(ctx); err != nil {
		t.Fatalf("second Transfer: %v", err)
	}
	if second := f.srv.Value(f.body); !bytes.Equal(first.Ext.Body, second.Ext.Body) {
		t.Errorf("unchanged memory gave a different body: % x vs % x", first.Ext.Body, second.Ext.Body)
	}
	if got := f.srv.Calls(uasim.ServiceRead); got != 1 {
		t.Errorf("template read %d times, want once", got)
	}
}

func TestWriter_TransportErrorKeepsReady(t *testing.T) {
	f := newFixture(t)
	s := NewWriter(f.srv, f.options())
	ready(t, s, f.signals())
	ctx := context.Background()

	f.srv.FailOnce(uasim.ServiceWrite, ua.StatusBadTimeout)
	err := s.Transfer(ctx)
	if !errors.IsTransport(err) {
		t.Fatalf("Transfer = %v, want transport error", err)
	}
	if s.State() != StateReady {
		t.Errorf("state = %s after transport error", s.State())
	}

	if err := s.Transfer(ctx); err != nil {
		t.Errorf("next cycle: %v", err)
	}
	if got := f.srv.Calls(uasim.ServiceBrowse); got != 3 {
		t.Errorf("Browse calls = %d; Transfer must not re-resolve", got)
	}
}

func TestWriter_BadNodeStatus(t *testing.T) {
	f := newFixture(t)
	s := NewWriter(f.srv, f.options())
	ready(t, s, f.signals()[:1])

	f.srv.SetValue(f.speed, uasim.Scalar(ua.TypeDouble, make([]byte, 8)))
	err := s.Transfer(context.Background())
	if !errors.IsTransport(err) {
		t.Fatalf("Transfer = %v", err)
	}
	var e *errors.Error
	if !asError(err, &e) || e.Kind != errors.KindBadStatus || e.Signal != "#0 speed" {
		t.Errorf("error = %+v", e)
	}
}

func TestPrepare_ServerBodyMismatch(t *testing.T) {
	target := MethodTarget{
		Object: ua.MustParsePath("Line1", ns),
		Method: ua.MustParsePath("Line1.Apply", ns),
	}
	tests := []struct {
		name string
		body []byte
		make func(f *fixture) *Session
	}{
		{"writer longer body", make([]byte, 12), func(f *fixture) *Session { return NewWriter(f.srv, f.options()) }},
		{"writer bad count", []byte{0, 3, 0, 0, 0, 0, 0, 0, 0}, func(f *fixture) *Session { return NewWriter(f.srv, f.options()) }},
		{"method longer body", make([]byte, 12), func(f *fixture) *Session { return NewMethodInvoker(f.srv, target, f.options()) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.srv.AddMethod(ua.StringNodeID{NS: ns, ID: "Line1"}, "Apply", ua.NumericNodeID{NS: ns, ID: 7000},
				func([]ua.Variant) ([]ua.Variant, ua.StatusCode) { return nil, ua.StatusGood })
			f.srv.SetValue(f.body, uasim.Struct(encodingID, tt.body))

			s := tt.make(f)
			ctx := context.Background()
			if err := s.Connect(ctx, "opc.tcp://sim", ua.Credentials{}); err != nil {
				t.Fatal(err)
			}
			if _, err := s.Register(ctx, f.signals()...); err != nil {
				t.Fatal(err)
			}
			err := s.Prepare(ctx)
			if !errors.IsCodec(err) {
				t.Fatalf("Prepare = %v, want codec error", err)
			}
			if s.State() != StateBound {
				t.Errorf("state = %s, want bound", s.State())
			}
			if n := f.srv.Calls(uasim.ServiceWrite); n != 0 {
				t.Errorf("Write calls = %d after rejected template", n)
			}
		})
	}
}

func TestSession_Disconnected(t *testing.T) {
	f := newFixture(t)
	d := dispatch.New()
	opts := f.options()
	opts.Dispatcher = d
	s := NewWriter(f.srv, opts)
	ready(t, s, f.signals())

	f.srv.Drop()
	if !s.Disconnected() {
		t.Fatal("connection loss not delivered")
	}

	err := s.Transfer(context.Background())
	if errors.KindOf(err) != errors.KindDisconnected || !errors.IsTransport(err) {
		t.Fatalf("Transfer = %v, want disconnected", err)
	}
	if got := f.srv.Calls(uasim.ServiceConnect); got != 1 {
		t.Errorf("Connect calls = %d; Transfer must not reconnect", got)
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
	if d.Len() != 0 {
		t.Error("session still registered with dispatcher")
	}
}

func TestSession_ChannelRenewed(t *testing.T) {
	f := newFixture(t)
	s := NewWriter(f.srv, f.options())
	ready(t, s, f.signals())

	f.srv.Emit(opcuabridge.Event{Type: opcuabridge.EventChannelRenewed})
	if s.Disconnected() {
		t.Error("channel renewal is not a disconnect")
	}
	if err := s.Transfer(context.Background()); err != nil {
		t.Errorf("Transfer: %v", err)
	}
}

func TestSession_States(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := NewWriter(f.srv, f.options())

	if err := s.Transfer(ctx); errors.KindOf(err) != errors.KindInvalidState {
		t.Errorf("Transfer before connect: %v", err)
	}
	if _, err := s.Register(ctx, f.signals()...); errors.KindOf(err) != errors.KindInvalidState {
		t.Errorf("Register before connect: %v", err)
	}
	if err := s.Prepare(ctx); errors.KindOf(err) != errors.KindInvalidState {
		t.Errorf("Prepare before register: %v", err)
	}

	ready(t, s, f.signals())
	if err := s.Connect(ctx, "opc.tcp://sim", ua.Credentials{}); errors.KindOf(err) != errors.KindInvalidState {
		t.Errorf("second Connect: %v", err)
	}
	if _, err := s.Register(ctx, f.signals()[0]); errors.KindOf(err) != errors.KindInvalidState {
		t.Errorf("Register after Prepare: %v", err)
	}

	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if s.State() != StateClosed || f.srv.Connected() {
		t.Errorf("state = %s, connected = %v", s.State(), f.srv.Connected())
	}
	if err := s.Transfer(ctx); errors.KindOf(err) != errors.KindInvalidState {
		t.Errorf("Transfer after shutdown: %v", err)
	}
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
}

func TestSession_ConnectFailure(t *testing.T) {
	f := newFixture(t)
	f.srv.RequireCredentials(ua.Credentials{Username: "op", Password: "pw"})
	s := NewWriter(f.srv, f.options())

	err := s.Connect(context.Background(), "opc.tcp://sim", ua.Credentials{Username: "op"})
	if !errors.IsTransport(err) {
		t.Fatalf("Connect = %v", err)
	}
	if s.State() != StateUnconnected {
		t.Errorf("state = %s", s.State())
	}
}

func TestRegister_Errors(t *testing.T) {
	tests := []struct {
		name    string
		opts    func(*fixture) Options
		signals []Signal
		check   func(error) bool
	}{
		{
			name: "unresolved path",
			signals: []Signal{
				{Name: "speed", Path: ua.MustParsePath("Line1.Speed", ns), Type: "f32", Elements: 1},
				{Name: "ghost", Path: ua.MustParsePath("Line1.Ghost", ns), Type: "f32", Elements: 1},
			},
			check: errors.IsResolution,
		},
		{
			name: "unknown scalar",
			signals: []Signal{
				{Name: "s", Path: ua.MustParsePath("Line1.Speed", ns), Type: "string", Elements: 1},
			},
			check: errors.IsConfiguration,
		},
		{
			name: "zero elements",
			signals: []Signal{
				{Name: "s", Path: ua.MustParsePath("Line1.Speed", ns), Type: "f32"},
			},
			check: errors.IsConfiguration,
		},
		{
			name: "two structured",
			signals: []Signal{
				{Name: "a", Path: ua.MustParsePath("Line1.Config", ns), Type: "T", Elements: 1, Structured: true},
				{Name: "b", Path: ua.MustParsePath("Line1.Config", ns), Type: "T", Elements: 1, Structured: true},
			},
			check: errors.IsConfiguration,
		},
		{
			name: "no oracle",
			opts: func(*fixture) Options { return Options{} },
			signals: []Signal{
				{Name: "a", Path: ua.MustParsePath("Line1.Config", ns), Type: "T", Elements: 1, Structured: true},
			},
			check: func(err error) bool { return errors.KindOf(err) == errors.KindNotInitialized },
		},
		{
			name: "unknown structure",
			signals: []Signal{
				{Name: "a", Path: ua.MustParsePath("Line1.Config", ns), Type: "Nope", Elements: 1, Structured: true},
			},
			check: errors.IsCodec,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			opts := f.options()
			if tt.opts != nil {
				opts = tt.opts(f)
			}
			s := NewWriter(f.srv, opts)
			ctx := context.Background()
			if err := s.Connect(ctx, "opc.tcp://sim", ua.Credentials{}); err != nil {
				t.Fatal(err)
			}

			handles, err := s.Register(ctx, tt.signals...)
			if err == nil {
				t.Fatalf("Register = %v, want error", handles)
			}
			if !tt.check(err) {
				t.Errorf("unexpected error category %s: %v", errors.CategoryOf(err), err)
			}
			if s.State() != StateConnected {
				t.Errorf("state = %s, want connected", s.State())
			}
		})
	}
}

func TestRegister_DisableUnresolved(t *testing.T) {
	f := newFixture(t)
	opts := f.options()
	opts.DisableUnresolved = true
	s := NewWriter(f.srv, opts)
	ctx := context.Background()
	if err := s.Connect(ctx, "opc.tcp://sim", ua.Credentials{}); err != nil {
		t.Fatal(err)
	}

	handles, err := s.Register(ctx,
		Signal{Name: "ghost", Path: ua.MustParsePath("Line1.Ghost", ns), Type: "f32", Elements: 1},
		Signal{Name: "speed", Path: ua.MustParsePath("Line1.Speed", ns), Type: "f32", Elements: 1},
	)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if handles[0] != 0 || handles[1] == 0 {
		t.Fatalf("handles = %v", handles)
	}
	if _, err := s.Memory(handles[0]); err == nil {
		t.Error("dropped signal must have no memory")
	}
	if err := s.Prepare(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Transfer(ctx); err != nil {
		t.Errorf("Transfer: %v", err)
	}
}

func TestSession_FastAccess(t *testing.T) {
	f := newFixture(t)
	opts := f.options()
	opts.FastAccess = true
	s := NewWriter(f.srv, opts)
	h := ready(t, s, f.signals())
	ctx := context.Background()

	if got := f.srv.Registered(); got != 3 {
		t.Fatalf("registered = %d, want 3", got)
	}
	b, _ := s.Binding(h[0])
	if ua.Equal(b.Target(), b.Node) {
		t.Error("writes must address the alias")
	}

	mem, _ := s.Memory(h[0])
	transcoder.View(mem).SetF32(0, 3)
	if err := s.Transfer(ctx); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := transcoder.View(f.srv.Value(f.speed).Raw).F32(0); got != 3 {
		t.Errorf("speed = %v", got)
	}

	if err := s.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if got := f.srv.Registered(); got != 0 {
		t.Errorf("registered after shutdown = %d", got)
	}
}

func TestSession_FastAccessUnavailable(t *testing.T) {
	f := newFixture(t)
	f.srv.Fail(uasim.ServiceRegisterNodes, ua.StatusBadUnexpectedError)
	opts := f.options()
	opts.FastAccess = true
	s := NewWriter(f.srv, opts)
	h := ready(t, s, f.signals())

	b, _ := s.Binding(h[0])
	if b.Access != nil {
		t.Error("failed registration must leave resolved ids in use")
	}
	if err := s.Transfer(context.Background()); err != nil {
		t.Errorf("Transfer: %v", err)
	}
}

func TestReader_Transfer(t *testing.T) {
	f := newFixture(t)
	s := NewReader(f.srv, f.options())
	h := ready(t, s, f.signals())
	ctx := context.Background()

	speed := make([]byte, 4)
	transcoder.View(speed).SetF32(0, -4.25)
	f.srv.SetValue(f.speed, uasim.Scalar(ua.TypeFloat, speed))
	good := []byte{9, 2, 0, 0, 0, 1, 0, 2, 0}
	f.srv.SetValue(f.body, uasim.Struct(encodingID, good))

	if err := s.Transfer(ctx); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	mem, _ := s.Memory(h[0])
	if got := transcoder.View(mem).F32(0); got != -4.25 {
		t.Errorf("speed = %v", got)
	}
	if got := transcoder.View(s.Leaves()[1]).U16(1); got != 2 {
		t.Errorf("B[1] = %d", got)
	}

	bad := []byte{1, 3, 0, 0, 0, 0, 0, 0, 0}
	f.srv.SetValue(f.body, uasim.Struct(encodingID, bad))
	err := s.Transfer(ctx)
	if !errors.IsCodec(err) {
		t.Fatalf("Transfer = %v, want codec error", err)
	}
	body, _ := s.Memory(h[2])
	if !bytes.Equal(body, good) {
		t.Errorf("rejected body overwrote memory: % x", body)
	}
	if s.State() != StateReady {
		t.Errorf("state = %s", s.State())
	}
}

func TestMethodInvoker_Transfer(t *testing.T) {
	f := newFixture(t)
	line := ua.StringNodeID{NS: ns, ID: "Line1"}
	var got [][]byte
	f.srv.AddMethod(line, "Apply", ua.NumericNodeID{NS: ns, ID: 7000}, func(args []ua.Variant) ([]ua.Variant, ua.StatusCode) {
		if len(args) != 1 || args[0].Ext == nil {
			return nil, ua.StatusBadArgumentsMissing
		}
		got = append(got, args[0].Ext.Body)
		return nil, ua.StatusGood
	})

	target := MethodTarget{
		Object:           ua.MustParsePath("Line1", ns),
		Method:           ua.MustParsePath("Line1.Apply", ns),
		LivenessInterval: time.Hour,
	}
	s := NewMethodInvoker(f.srv, target, f.options())
	ready(t, s, f.signals())
	ctx := context.Background()

	transcoder.View(s.Leaves()[0]).SetU8(0, 5)
	for i := 0; i < 2; i++ {
		if err := s.Transfer(ctx); err != nil {
			t.Fatalf("Transfer %d: %v", i, err)
		}
	}

	if len(got) != 2 || got[0][0] != 5 || len(got[0]) != bodySize {
		t.Fatalf("method saw %d calls: % x", len(got), got)
	}
	// One template read plus one liveness probe; the second probe is paced out.
	if n := f.srv.Calls(uasim.ServiceRead); n != 2 {
		t.Errorf("Read calls = %d, want 2", n)
	}
}

func TestMethodInvoker_Failures(t *testing.T) {
	f := newFixture(t)
	line := ua.StringNodeID{NS: ns, ID: "Line1"}
	status := ua.StatusGood
	f.srv.AddMethod(line, "Apply", ua.NumericNodeID{NS: ns, ID: 7000}, func([]ua.Variant) ([]ua.Variant, ua.StatusCode) {
		return nil, status
	})

	target := MethodTarget{
		Object: ua.MustParsePath("Line1", ns),
		Method: ua.MustParsePath("Line1.Apply", ns),
	}
	s := NewMethodInvoker(f.srv, target, f.options())
	ready(t, s, f.signals())
	ctx := context.Background()

	status = ua.StatusBadInvalidArgument
	if err := s.Transfer(ctx); errors.KindOf(err) != errors.KindBadStatus {
		t.Errorf("bad call status: %v", err)
	}

	status = ua.StatusGood
	f.srv.SetValue(ua.ServerStatusState, uasim.Scalar(ua.TypeInt32, []byte{2, 0, 0, 0}))
	if err := s.Transfer(ctx); !errors.IsTransport(err) {
		t.Errorf("server not running: %v", err)
	}

	f.srv.SetValue(ua.ServerStatusState, uasim.Scalar(ua.TypeInt32, make([]byte, 4)))
	if err := s.Transfer(ctx); err != nil {
		t.Errorf("recovered server: %v", err)
	}
}

func TestMethodInvoker_LivenessAfterFailedCall(t *testing.T) {
	f := newFixture(t)
	f.srv.AddMethod(ua.StringNodeID{NS: ns, ID: "Line1"}, "Apply", ua.NumericNodeID{NS: ns, ID: 7000},
		func([]ua.Variant) ([]ua.Variant, ua.StatusCode) { return nil, ua.StatusBadInvalidArgument })

	target := MethodTarget{
		Object: ua.MustParsePath("Line1", ns),
		Method: ua.MustParsePath("Line1.Apply", ns),
	}
	s := NewMethodInvoker(f.srv, target, f.options())
	ready(t, s, f.signals())
	ctx := context.Background()
	f.srv.ResetCalls()

	for i := 0; i < 2; i++ {
		if err := s.Transfer(ctx); errors.KindOf(err) != errors.KindBadStatus {
			t.Fatalf("Transfer %d = %v, want bad status", i, err)
		}
	}
	if n := f.srv.Calls(uasim.ServiceRead); n != 2 {
		t.Errorf("liveness reads = %d, want one per cycle", n)
	}

	// With both failing, the cycle's error is reported.
	f.srv.SetValue(ua.ServerStatusState, uasim.Scalar(ua.TypeInt32, []byte{2, 0, 0, 0}))
	err := s.Transfer(ctx)
	var e *errors.Error
	if !asError(err, &e) || e.Signal != "config" {
		t.Errorf("Transfer = %v, want the Call error", err)
	}

	f.srv.Fail(uasim.ServiceCall, ua.StatusBadTimeout)
	f.srv.SetValue(ua.ServerStatusState, uasim.Scalar(ua.TypeInt32, make([]byte, 4)))
	if err := s.Transfer(ctx); !errors.IsTransport(err) {
		t.Errorf("Transfer = %v, want transport error", err)
	}
	if n := f.srv.Calls(uasim.ServiceRead); n != 4 {
		t.Errorf("liveness reads = %d after failed calls, want 4", n)
	}
}

func TestMethodInvoker_NeedsStructured(t *testing.T) {
	f := newFixture(t)
	s := NewMethodInvoker(f.srv, MethodTarget{}, f.options())
	ctx := context.Background()
	if err := s.Connect(ctx, "opc.tcp://sim", ua.Credentials{}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Register(ctx, f.signals()[0]); err != nil {
		t.Fatal(err)
	}
	if err := s.Prepare(ctx); !errors.IsConfiguration(err) {
		t.Errorf("Prepare = %v", err)
	}
	if s.State() != StateBound {
		t.Errorf("state = %s", s.State())
	}
}

func TestSession_Metrics(t *testing.T) {
	f := newFixture(t)
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		t.Fatal(err)
	}
	opts := f.options()
	opts.Metrics = m
	opts.Resolver.Observe = m.ObserveResolve

	s := NewWriter(f.srv, opts)
	ready(t, s, f.signals())
	if err := s.Transfer(context.Background()); err != nil {
		t.Fatal(err)
	}

	if n, err := testutil.GatherAndCount(reg, "opcua_bridge_transfers_total"); err != nil || n != 1 {
		t.Errorf("transfer series = %d, %v", n, err)
	}
	if n, err := testutil.GatherAndCount(reg, "opcua_bridge_bound_signals"); err != nil || n != 1 {
		t.Errorf("bound series = %d, %v", n, err)
	}
	if n, err := testutil.GatherAndCount(reg, "opcua_bridge_resolve_duration_seconds"); err != nil || n != 1 {
		t.Errorf("resolve series = %d, %v", n, err)
	}
}

func asError(err error, target **errors.Error) bool {
	e, ok := err.(*errors.Error)
	if ok {
		*target = e
	}
	return ok
}
