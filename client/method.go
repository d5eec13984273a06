package client

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	opcuabridge "github.com/wippyai/opcua-bridge"
	"github.com/wippyai/opcua-bridge/errors"
	"github.com/wippyai/opcua-bridge/transcoder"
	"github.com/wippyai/opcua-bridge/ua"
)

// serverRunning is the ServerState value of a healthy server.
const serverRunning = 0

// MethodTarget names the remote method a MethodInvoker calls.
type MethodTarget struct {
	Object ua.PathSpec
	Method ua.PathSpec
	// LivenessInterval paces the server-state probe. 0 probes every cycle.
	LivenessInterval time.Duration
}

// invoker hands the structured signal to a remote method each cycle.
// Scalar signals are written as by the writer.
type invoker struct {
	target  MethodTarget
	live    *rate.Limiter
	request ua.CallMethodRequest
	writes  []ua.WriteValue
	names   []string
	probe   []ua.NodeID
}

// NewMethodInvoker creates a session that calls target with the
// structured signal as its sole argument.
func NewMethodInvoker(t opcuabridge.Transport, target MethodTarget, opts Options) *Session {
	return newSession(t, &invoker{target: target}, opts)
}

func (m *invoker) prepare(ctx context.Context, s *Session) error {
	if s.structured == nil {
		return errors.New(errors.PhaseRegister, errors.KindFieldMissing).
			Detail("method invocation needs a structured signal").
			Build()
	}

	object, err := s.resolver.Resolve(ctx, m.target.Object)
	if err != nil {
		return err
	}
	method, err := s.resolver.Resolve(ctx, m.target.Method)
	if err != nil {
		return err
	}

	if err := s.readTemplate(ctx); err != nil {
		return err
	}

	m.writes, m.names = scalarWrites(s)
	m.request = ua.CallMethodRequest{
		ObjectID:  object,
		MethodID:  method,
		Arguments: []ua.Variant{{Type: ua.TypeExtensionObject, Ext: &s.structured.template}},
	}
	m.live = rate.NewLimiter(rate.Every(m.target.LivenessInterval), 1)
	m.probe = []ua.NodeID{ua.ServerStatusState}

	s.log.Debug("method target resolved",
		zap.Stringer("object", object),
		zap.Stringer("method", method))
	return nil
}

// transfer runs the cycle and then the liveness probe when it is due. The
// probe runs whatever the cycle outcome; the cycle's error wins.
func (m *invoker) transfer(ctx context.Context, s *Session) error {
	err := m.call(ctx, s)
	if m.live.Allow() {
		if lerr := m.liveness(ctx, s); err == nil {
			err = lerr
		}
	}
	return err
}

func (m *invoker) call(ctx context.Context, s *Session) error {
	if err := s.encode(); err != nil {
		return err
	}
	if err := write(ctx, s, m.writes, m.names); err != nil {
		return err
	}

	res, err := s.transport.Call(ctx, m.request)
	if err != nil {
		return errors.Transport("Call", err)
	}
	if res.StatusCode != ua.StatusGood {
		e := errors.BadStatus(errors.PhaseTransport, "Call", res.StatusCode)
		e.Signal = s.structured.binding.Name
		return e
	}
	return nil
}

// liveness reads the server state and fails unless the server is running.
func (m *invoker) liveness(ctx context.Context, s *Session) error {
	values, err := s.transport.Read(ctx, m.probe)
	if err != nil {
		return errors.Transport("Read", err)
	}
	if len(values) != 1 || values[0].Status != ua.StatusGood {
		status := ua.StatusBadUnexpectedError
		if len(values) == 1 {
			status = values[0].Status
		}
		return errors.BadStatus(errors.PhaseTransport, "Read", status)
	}

	raw := values[0].Value.Raw
	if len(raw) >= 4 {
		if state := transcoder.View(raw).S32(0); state != serverRunning {
			return errors.New(errors.PhaseTransport, errors.KindBadStatus).
				Node(ua.ServerStatusState.String()).
				Detail("server state %d", state).
				Value(state).
				Build()
		}
	}
	return nil
}
