package client

import (
	"context"

	opcuabridge "github.com/wippyai/opcua-bridge"
	"github.com/wippyai/opcua-bridge/binding"
	"github.com/wippyai/opcua-bridge/errors"
	"github.com/wippyai/opcua-bridge/ua"
)

// reader pulls every bound signal from the server in one batched Read.
type reader struct {
	ids      []ua.NodeID
	bindings []*binding.Binding
}

// NewReader creates a session that reads its signals each cycle.
func NewReader(t opcuabridge.Transport, opts Options) *Session {
	return newSession(t, &reader{}, opts)
}

func (r *reader) prepare(_ context.Context, s *Session) error {
	r.bindings = s.bound()
	r.ids = make([]ua.NodeID, len(r.bindings))
	for i, b := range r.bindings {
		r.ids[i] = b.Target()
	}
	return nil
}

// transfer loads every value it can. The first failure is returned after
// the rest of the batch has been applied.
func (r *reader) transfer(ctx context.Context, s *Session) error {
	if len(r.ids) == 0 {
		return nil
	}

	values, err := s.transport.Read(ctx, r.ids)
	if err != nil {
		return errors.Transport("Read", err)
	}
	if len(values) != len(r.ids) {
		return errors.New(errors.PhaseTransport, errors.KindLengthMismatch).
			Detail("Read returned %d values for %d nodes", len(values), len(r.ids)).
			Build()
	}

	var first error
	for i, dv := range values {
		b := r.bindings[i]
		var err error
		switch {
		case dv.Status != ua.StatusGood:
			e := errors.BadStatus(errors.PhaseTransport, "Read", dv.Status)
			e.Signal = errors.SignalName(i, b.Name)
			err = e
		case s.isStructured(b):
			err = r.loadStructured(s, dv.Value)
		default:
			err = b.Load(dv.Value)
		}
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

// loadStructured validates the body against the layout before it
// replaces bound memory, so a bad body leaves the last good values.
func (r *reader) loadStructured(s *Session, v ua.Variant) error {
	st := s.structured
	if v.Type != ua.TypeExtensionObject || v.Ext == nil {
		return errors.New(errors.PhaseDecode, errors.KindInvalidInput).
			Signal(st.binding.Name).
			Detail("value is %s, not an extension object", v.Type).
			Build()
	}
	if err := st.layout.Validate(v.Ext.Body); err != nil {
		s.logCodec(st, st.layout.Size(), len(v.Ext.Body), err)
		return err
	}
	copy(st.binding.Memory, v.Ext.Body)
	return nil
}
