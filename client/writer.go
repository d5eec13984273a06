package client

import (
	"context"

	opcuabridge "github.com/wippyai/opcua-bridge"
	"github.com/wippyai/opcua-bridge/errors"
	"github.com/wippyai/opcua-bridge/ua"
)

// writer pushes every bound signal to the server in one batched Write.
// The request is built once; its variants alias bound memory, so each
// cycle sends whatever the owner last stored there.
type writer struct {
	writes []ua.WriteValue
	names  []string
}

// NewWriter creates a session that writes its signals each cycle.
func NewWriter(t opcuabridge.Transport, opts Options) *Session {
	return newSession(t, &writer{}, opts)
}

func (w *writer) prepare(ctx context.Context, s *Session) error {
	w.writes, w.names = scalarWrites(s)
	if s.structured == nil {
		return nil
	}
	if err := s.readTemplate(ctx); err != nil {
		return err
	}
	st := s.structured
	w.writes = append(w.writes, ua.WriteValue{
		NodeID: st.binding.Target(),
		Value:  ua.Variant{Type: ua.TypeExtensionObject, Ext: &st.template},
	})
	w.names = append(w.names, st.binding.Name)
	return nil
}

func (w *writer) transfer(ctx context.Context, s *Session) error {
	if s.structured != nil {
		if err := s.encode(); err != nil {
			return err
		}
	}
	return write(ctx, s, w.writes, w.names)
}

// scalarWrites builds write requests for every non-structured binding.
func scalarWrites(s *Session) ([]ua.WriteValue, []string) {
	var writes []ua.WriteValue
	var names []string
	for _, b := range s.bound() {
		if s.isStructured(b) {
			continue
		}
		writes = append(writes, ua.WriteValue{NodeID: b.Target(), Value: b.Variant()})
		names = append(names, b.Name)
	}
	return writes, names
}

func write(ctx context.Context, s *Session, writes []ua.WriteValue, names []string) error {
	if len(writes) == 0 {
		return nil
	}
	statuses, err := s.transport.Write(ctx, writes)
	if err != nil {
		return errors.Transport("Write", err)
	}
	return checkStatuses("Write", statuses, names)
}
