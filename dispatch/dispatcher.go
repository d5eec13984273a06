package dispatch

import (
	"sync"

	"go.uber.org/zap"

	opcuabridge "github.com/wippyai/opcua-bridge"
)

// ClientHandle identifies one transport client. 0 is never issued.
type ClientHandle uint32

// Dispatcher routes asynchronous transport events to the session that owns
// the client that raised them. Several sessions may share one dispatcher;
// each dispatcher is independent of every other.
//
// A Dispatcher is safe for concurrent use: transports may deliver events
// from their own goroutines.
type Dispatcher struct {
	sinks   map[ClientHandle]opcuabridge.EventSink
	next    ClientHandle
	dropped uint64
	mu      sync.RWMutex
}

// New creates an empty dispatcher.
func New() *Dispatcher {
	return &Dispatcher{sinks: make(map[ClientHandle]opcuabridge.EventSink)}
}

// Register adds sink and returns the handle its events are routed by.
func (d *Dispatcher) Register(sink opcuabridge.EventSink) ClientHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.sinks[d.next] = sink
	return d.next
}

// Attach subscribes to the events of t on behalf of h, if t raises any.
// It reports whether a subscription was made.
func (d *Dispatcher) Attach(h ClientHandle, t opcuabridge.Transport) bool {
	emitter, ok := t.(opcuabridge.EventEmitter)
	if !ok {
		return false
	}
	emitter.OnEvent(func(ev opcuabridge.Event) {
		d.Dispatch(h, ev)
	})
	return true
}

// Unregister stops routing events to h. Events that arrive later are
// dropped.
func (d *Dispatcher) Unregister(h ClientHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sinks, h)
}

// Dispatch delivers ev to the sink registered under h and reports whether
// one was found.
func (d *Dispatcher) Dispatch(h ClientHandle, ev opcuabridge.Event) bool {
	d.mu.RLock()
	sink, ok := d.sinks[h]
	d.mu.RUnlock()

	if !ok {
		d.mu.Lock()
		d.dropped++
		d.mu.Unlock()
		Logger().Debug("event for unknown client dropped",
			zap.Uint32("client", uint32(h)),
			zap.Stringer("event", ev.Type))
		return false
	}

	sink.OnTransportEvent(ev)
	return true
}

// Len returns the number of registered sinks.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sinks)
}

// Dropped returns the number of events that had no sink.
func (d *Dispatcher) Dropped() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dropped
}
