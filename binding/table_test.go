package binding

import (
	"context"
	stderrors "errors"
	"testing"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/opcua-bridge/errors"
	"github.com/wippyai/opcua-bridge/ua"
	"github.com/wippyai/opcua-bridge/uasim"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnBindingEvent(e Event) {
	o.events = append(o.events, e)
}

func scalarBinding(t *testing.T, name, path string) *Binding {
	t.Helper()
	b, err := NewScalar(name, ua.MustParsePath(path, 1), wit.U32{}, 1)
	if err != nil {
		t.Fatalf("NewScalar failed: %v", err)
	}
	b.Memory = make([]byte, b.Size())
	return b
}

func TestTable_Basic(t *testing.T) {
	table := NewTable()

	b := scalarBinding(t, "speed", "Line.Speed")
	h, err := table.Insert(b)
	if err != nil || h == 0 {
		t.Fatalf("Insert = %d, %v", h, err)
	}

	got, ok := table.Get(h)
	if !ok || got != b {
		t.Fatal("Get failed")
	}

	mem, err := table.Memory(h)
	if err != nil || len(mem) != 4 {
		t.Fatalf("Memory = %d bytes, %v", len(mem), err)
	}
	mem[0] = 42
	if b.Memory[0] != 42 {
		t.Error("Memory must alias the binding")
	}

	if _, ok := table.Get(0); ok {
		t.Error("handle 0 must be invalid")
	}
	if _, err := table.Memory(99); !errors.IsConfiguration(err) {
		t.Errorf("unknown handle: %v", err)
	}

	removed, ok := table.Remove(h)
	if !ok || removed != b {
		t.Fatal("Remove failed")
	}
	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
}

func TestTable_HandleReuse(t *testing.T) {
	table := NewTable()
	h1, _ := table.Insert(scalarBinding(t, "a", "A"))
	h2, _ := table.Insert(scalarBinding(t, "b", "B"))
	table.Remove(h1)

	h3, _ := table.Insert(scalarBinding(t, "c", "C"))
	if h3 != h1 {
		t.Errorf("freed handle not reused: got %d, want %d", h3, h1)
	}

	var order []Handle
	table.Each(func(h Handle, _ *Binding) bool {
		order = append(order, h)
		return true
	})
	if len(order) != 2 || order[0] != h3 || order[1] != h2 {
		t.Errorf("Each order = %v", order)
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	h, _ := table.Insert(scalarBinding(t, "a", "A"))
	if len(obs.events) != 1 || obs.events[0].Type != EventBound || obs.events[0].Handle != h {
		t.Fatalf("events = %+v", obs.events)
	}

	table.Remove(h)
	if len(obs.events) != 2 || obs.events[1].Type != EventUnbound {
		t.Fatalf("events = %+v", obs.events)
	}

	table.Unsubscribe(obs)
	_, _ = table.Insert(scalarBinding(t, "b", "B"))
	if len(obs.events) != 2 {
		t.Fatal("Should not receive events after Unsubscribe")
	}
}

func TestTable_Close(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	_, _ = table.Insert(scalarBinding(t, "a", "A"))
	_, _ = table.Insert(scalarBinding(t, "b", "B"))

	if err := table.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if table.Len() != 0 {
		t.Error("Close should drop every binding")
	}
	if len(obs.events) != 4 {
		t.Errorf("events = %d, want 4", len(obs.events))
	}

	if _, err := table.Insert(scalarBinding(t, "c", "C")); err == nil {
		t.Fatal("Expected Insert to fail after Close")
	}
	if err := table.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestTable_RegisterNodes(t *testing.T) {
	srv := uasim.New()
	ctx := context.Background()
	if err := srv.Connect(ctx, "opc.tcp://sim", ua.Credentials{}); err != nil {
		t.Fatal(err)
	}

	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	for _, p := range []string{"A.X", "A.Y"} {
		b := scalarBinding(t, p, p)
		b.Node = srv.AddPath(b.Path, uasim.Scalar(ua.TypeUInt32, make([]byte, 4)))
		if _, err := table.Insert(b); err != nil {
			t.Fatal(err)
		}
	}
	obs.events = nil

	if err := table.RegisterNodes(ctx, srv); err != nil {
		t.Fatalf("RegisterNodes failed: %v", err)
	}
	table.Each(func(_ Handle, b *Binding) bool {
		if b.Access == nil || ua.Equal(b.Target(), b.Node) {
			t.Errorf("%s: no alias recorded", b.Name)
		}
		return true
	})
	if srv.Registered() != 2 || len(obs.events) != 2 || obs.events[0].Type != EventRegistered {
		t.Errorf("registered = %d, events = %+v", srv.Registered(), obs.events)
	}

	if err := table.UnregisterNodes(ctx, srv); err != nil {
		t.Fatalf("UnregisterNodes failed: %v", err)
	}
	if srv.Registered() != 0 {
		t.Error("aliases not released")
	}
	table.Each(func(_ Handle, b *Binding) bool {
		if !ua.Equal(b.Target(), b.Node) {
			t.Errorf("%s still addresses %s", b.Name, b.Target())
		}
		return true
	})
}

func TestTable_RegisterNodesFailureKeepsResolvedIDs(t *testing.T) {
	srv := uasim.New()
	ctx := context.Background()
	_ = srv.Connect(ctx, "opc.tcp://sim", ua.Credentials{})

	table := NewTable()
	b := scalarBinding(t, "x", "A.X")
	b.Node = srv.AddPath(b.Path, uasim.Scalar(ua.TypeUInt32, make([]byte, 4)))
	_, _ = table.Insert(b)

	srv.FailOnce(uasim.ServiceRegisterNodes, ua.StatusBadUnexpectedError)
	err := table.RegisterNodes(ctx, srv)
	if err == nil {
		t.Fatal("expected error")
	}
	if !stderrors.Is(err, ua.StatusBadUnexpectedError) {
		t.Errorf("cause lost: %v", err)
	}
	if b.Access != nil || !ua.Equal(b.Target(), b.Node) {
		t.Error("failed registration must leave the resolved id in use")
	}
}

func TestBinding_VariantAndLoad(t *testing.T) {
	b, err := NewScalar("temps", ua.MustParsePath("Oven.Temps", 1), wit.F32{}, 3)
	if err != nil {
		t.Fatal(err)
	}
	arena := NewArena(16)
	if b.Memory, err = arena.Alloc(b.Size()); err != nil {
		t.Fatal(err)
	}

	v := b.Variant()
	if v.Type != ua.TypeFloat || v.Count != 3 || len(v.Raw) != 12 {
		t.Errorf("Variant = %+v", v)
	}
	b.Memory[0] = 1
	if v.Raw[0] != 1 {
		t.Error("Variant payload must alias memory")
	}

	if err := b.Load(ua.Variant{Type: ua.TypeFloat, Count: 3, Raw: make([]byte, 12)}); err != nil {
		t.Errorf("Load failed: %v", err)
	}
	if err := b.Load(ua.Variant{Type: ua.TypeDouble, Raw: make([]byte, 12)}); !errors.IsCodec(err) {
		t.Errorf("type mismatch: %v", err)
	}
	if err := b.Load(ua.Variant{Type: ua.TypeFloat, Raw: make([]byte, 8)}); !errors.IsCodec(err) {
		t.Errorf("length mismatch: %v", err)
	}

	if _, err := arena.Alloc(8); err == nil {
		t.Error("arena overflow should fail")
	}
	if arena.Used() != 12 {
		t.Errorf("Used = %d", arena.Used())
	}
}

func TestNewBinding_Errors(t *testing.T) {
	p := ua.MustParsePath("A.B", 1)
	if _, err := NewScalar("x", ua.PathSpec{}, wit.U8{}, 1); !errors.IsConfiguration(err) {
		t.Errorf("empty path: %v", err)
	}
	if _, err := NewScalar("x", p, wit.U8{}, 0); !errors.IsConfiguration(err) {
		t.Errorf("zero elements: %v", err)
	}
	if _, err := NewScalar("x", p, wit.String{}, 1); !errors.IsCodec(err) {
		t.Errorf("string scalar: %v", err)
	}
	if _, err := NewStructured("x", p, "", 1); !errors.IsConfiguration(err) {
		t.Errorf("missing type: %v", err)
	}
	s, err := NewStructured("x", p, "SCU", 1)
	if err != nil || !s.Structured || s.Builtin != ua.TypeExtensionObject || s.Size() != 0 {
		t.Errorf("NewStructured = %+v, %v", s, err)
	}
}
