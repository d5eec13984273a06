package binding

import (
	"context"
	"sync"

	opcuabridge "github.com/wippyai/opcua-bridge"
	"github.com/wippyai/opcua-bridge/errors"
	"github.com/wippyai/opcua-bridge/ua"
)

// Table holds the bindings of one session. Handles are reused after Remove.
type Table struct {
	entries   []*Binding
	freeList  []Handle
	observers []Observer
	obsMu     sync.RWMutex
	mu        sync.RWMutex
	closed    bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		entries:  make([]*Binding, 0, 16),
		freeList: make([]Handle, 0, 4),
	}
}

// Insert adds b and returns its handle.
func (t *Table) Insert(b *Binding) (Handle, error) {
	if b == nil {
		return 0, errors.InvalidInput(errors.PhaseRegister, "nil binding")
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, errors.InvalidState("insert binding", "closed")
	}

	var h Handle
	if n := len(t.freeList); n > 0 {
		h = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		t.entries[h-1] = b
	} else {
		t.entries = append(t.entries, b)
		h = Handle(len(t.entries))
	}
	t.mu.Unlock()

	t.notify(Event{Type: EventBound, Handle: h, Binding: b})
	return h, nil
}

// Get returns the binding for h.
func (t *Table) Get(h Handle) (*Binding, bool) {
	if h == 0 {
		return nil, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if int(h) > len(t.entries) {
		return nil, false
	}
	b := t.entries[h-1]
	return b, b != nil
}

// Memory returns the signal memory of h. The slice stays valid until the
// table is closed.
func (t *Table) Memory(h Handle) ([]byte, error) {
	b, ok := t.Get(h)
	if !ok {
		return nil, errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Detail("unknown signal handle %d", h).
			Value(h).
			Build()
	}
	return b.Memory, nil
}

// Remove drops h and returns its binding.
func (t *Table) Remove(h Handle) (*Binding, bool) {
	if h == 0 {
		return nil, false
	}

	t.mu.Lock()
	if int(h) > len(t.entries) || t.entries[h-1] == nil {
		t.mu.Unlock()
		return nil, false
	}
	b := t.entries[h-1]
	t.entries[h-1] = nil
	t.freeList = append(t.freeList, h)
	t.mu.Unlock()

	t.notify(Event{Type: EventUnbound, Handle: h, Binding: b})
	return b, true
}

// Len returns the number of live bindings.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, b := range t.entries {
		if b != nil {
			n++
		}
	}
	return n
}

// Each calls fn for every live binding in handle order until fn returns false.
func (t *Table) Each(fn func(Handle, *Binding) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i, b := range t.entries {
		if b != nil && !fn(Handle(i+1), b) {
			return
		}
	}
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// RegisterNodes asks the server for fast-access aliases of every binding
// and records them in Access. On failure the bindings keep addressing
// their resolved ids and the error is returned for reporting only.
func (t *Table) RegisterNodes(ctx context.Context, tr opcuabridge.Transport) error {
	handles, bindings := t.snapshot()
	if len(bindings) == 0 {
		return nil
	}

	ids := make([]ua.NodeID, len(bindings))
	for i, b := range bindings {
		ids[i] = b.Node
	}

	aliases, err := tr.RegisterNodes(ctx, ids)
	if err != nil {
		return errors.New(errors.PhaseRegister, errors.KindBadStatus).
			Detail("RegisterNodes for %d node(s)", len(ids)).
			Cause(err).
			Build()
	}
	if len(aliases) != len(ids) {
		return errors.New(errors.PhaseRegister, errors.KindLengthMismatch).
			Detail("RegisterNodes returned %d ids for %d nodes", len(aliases), len(ids)).
			Build()
	}

	t.mu.Lock()
	for i, b := range bindings {
		b.Access = aliases[i]
	}
	t.mu.Unlock()

	for i, b := range bindings {
		t.notify(Event{Type: EventRegistered, Handle: handles[i], Binding: b})
	}
	return nil
}

// UnregisterNodes releases the aliases recorded by RegisterNodes. Bindings
// fall back to their resolved ids whatever the outcome.
func (t *Table) UnregisterNodes(ctx context.Context, tr opcuabridge.Transport) error {
	handles, bindings := t.snapshot()

	var ids []ua.NodeID
	var released []int
	t.mu.Lock()
	for i, b := range bindings {
		if b.Access != nil {
			ids = append(ids, b.Access)
			released = append(released, i)
			b.Access = nil
		}
	}
	t.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}

	for _, i := range released {
		t.notify(Event{Type: EventUnregistered, Handle: handles[i], Binding: bindings[i]})
	}

	if err := tr.UnregisterNodes(ctx, ids); err != nil {
		return errors.New(errors.PhaseRegister, errors.KindBadStatus).
			Detail("UnregisterNodes for %d node(s)", len(ids)).
			Cause(err).
			Build()
	}
	return nil
}

// Close drops every binding and stops accepting new ones.
func (t *Table) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	handles, _ := t.snapshot()
	for _, h := range handles {
		t.Remove(h)
	}

	t.mu.Lock()
	t.entries = nil
	t.freeList = nil
	t.mu.Unlock()
	return nil
}

func (t *Table) snapshot() ([]Handle, []*Binding) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var handles []Handle
	var bindings []*Binding
	for i, b := range t.entries {
		if b != nil {
			handles = append(handles, Handle(i+1))
			bindings = append(bindings, b)
		}
	}
	return handles, bindings
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnBindingEvent(e)
	}
}
