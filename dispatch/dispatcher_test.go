package dispatch

import (
	"sync"
	"testing"

	opcuabridge "github.com/wippyai/opcua-bridge"
	"github.com/wippyai/opcua-bridge/uasim"
)

type recorder struct {
	events []opcuabridge.Event
	mu     sync.Mutex
}

func (r *recorder) OnTransportEvent(ev opcuabridge.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestDispatcher_Routes(t *testing.T) {
	d := New()
	a, b := &recorder{}, &recorder{}
	ha := d.Register(a)
	hb := d.Register(b)

	if ha == 0 || hb == 0 || ha == hb {
		t.Fatalf("handles %d, %d", ha, hb)
	}

	d.Dispatch(hb, opcuabridge.Event{Type: opcuabridge.EventConnectionLost})
	if a.count() != 0 || b.count() != 1 {
		t.Errorf("a=%d b=%d", a.count(), b.count())
	}

	d.Unregister(hb)
	if d.Dispatch(hb, opcuabridge.Event{Type: opcuabridge.EventChannelRenewed}) {
		t.Error("event for unregistered client delivered")
	}
	if d.Dropped() != 1 || d.Len() != 1 {
		t.Errorf("dropped=%d len=%d", d.Dropped(), d.Len())
	}
}

func TestDispatcher_IndependentInstances(t *testing.T) {
	d1, d2 := New(), New()
	r := &recorder{}
	h := d1.Register(r)

	if d2.Dispatch(h, opcuabridge.Event{}) {
		t.Error("second dispatcher must not know the first one's clients")
	}
}

func TestDispatcher_Attach(t *testing.T) {
	d := New()
	srv := uasim.New()
	r := &recorder{}
	h := d.Register(r)

	if !d.Attach(h, srv) {
		t.Fatal("simulator raises events")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			srv.Emit(opcuabridge.Event{Type: opcuabridge.EventChannelRenewed})
		}()
	}
	wg.Wait()

	if r.count() != 8 {
		t.Errorf("delivered %d events, want 8", r.count())
	}
}
