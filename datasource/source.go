package datasource

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	opcuabridge "github.com/wippyai/opcua-bridge"
	"github.com/wippyai/opcua-bridge/binding"
	"github.com/wippyai/opcua-bridge/client"
	"github.com/wippyai/opcua-bridge/config"
	"github.com/wippyai/opcua-bridge/dispatch"
	"github.com/wippyai/opcua-bridge/errors"
	"github.com/wippyai/opcua-bridge/metrics"
	"github.com/wippyai/opcua-bridge/resolver"
	"github.com/wippyai/opcua-bridge/ua"
)

// Options supplies the collaborators a source does not build itself.
type Options struct {
	Logger     *zap.Logger
	Dispatcher *dispatch.Dispatcher
	Metrics    *metrics.Metrics
	// Now replaces the resolver clock in tests.
	Now func() time.Time
}

// Source is the surface an owning component drives: initialise, register
// signals, fetch their memory, transfer once per cycle, shut down.
type Source struct {
	cfg     *config.Config
	session *client.Session
	log     *zap.Logger
	handles map[string]binding.Handle
}

// New builds a source for cfg over t. cfg must already be validated, as
// config.Parse and config.Load do.
func New(cfg *config.Config, t opcuabridge.Transport, opts Options) (*Source, error) {
	if cfg == nil {
		return nil, errors.NotInitialized(errors.PhaseConfig, "config")
	}
	if t == nil {
		return nil, errors.NotInitialized(errors.PhaseConfig, "transport")
	}

	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = Logger()
	}

	copts := client.Options{
		Oracle:            registry,
		Logger:            log,
		Dispatcher:        opts.Dispatcher,
		Metrics:           opts.Metrics,
		Resolver:          resolverOptions(cfg, opts),
		FastAccess:        cfg.FastAccess,
		DisableUnresolved: cfg.DisableUnresolved,
	}

	var session *client.Session
	switch cfg.Mode {
	case config.ModeWriter:
		session = client.NewWriter(t, copts)
	case config.ModeReader:
		session = client.NewReader(t, copts)
	case config.ModeMethod:
		target, err := methodTarget(cfg)
		if err != nil {
			return nil, err
		}
		session = client.NewMethodInvoker(t, target, copts)
	default:
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("mode").
			Detail("unknown mode %q", cfg.Mode).
			Build()
	}

	return &Source{
		cfg:     cfg,
		session: session,
		log:     log.With(zap.String("session", session.ID())),
		handles: make(map[string]binding.Handle),
	}, nil
}

// Open builds a source, connects to the configured endpoint and binds
// every configured signal. On failure nothing stays connected.
func Open(ctx context.Context, cfg *config.Config, t opcuabridge.Transport, opts Options) (*Source, error) {
	s, err := New(cfg, t, opts)
	if err != nil {
		return nil, err
	}
	if err := s.Initialise(ctx, cfg.Endpoint, cfg.Credentials.UA()); err != nil {
		return nil, err
	}
	if err := s.registerConfigured(ctx); err != nil {
		_ = s.Shutdown(ctx)
		return nil, err
	}
	return s, nil
}

// Initialise connects to address.
func (s *Source) Initialise(ctx context.Context, address string, creds ua.Credentials) error {
	return s.session.Connect(ctx, address, creds)
}

// RegisterSignal binds one signal and returns its handle. The handle's
// memory is available from GetMemory at once and stays valid until
// Shutdown.
func (s *Source) RegisterSignal(ctx context.Context, path string, ns uint16, typ string, elements uint32, structured bool) (binding.Handle, error) {
	p, err := ua.ParsePath(path, ns)
	if err != nil {
		return 0, err
	}
	handles, err := s.session.Register(ctx, client.Signal{
		Name:       path,
		Path:       p,
		Type:       typ,
		Elements:   elements,
		Structured: structured,
	})
	if err != nil {
		return 0, err
	}
	if handles[0] == 0 {
		return 0, errors.New(errors.PhaseResolve, errors.KindNotFound).
			Path(p.Segments()...).
			Detail("signal disabled: path did not resolve").
			Build()
	}
	s.handles[path] = handles[0]
	return handles[0], nil
}

func (s *Source) registerConfigured(ctx context.Context) error {
	signals := make([]client.Signal, len(s.cfg.Signals))
	for i, sc := range s.cfg.Signals {
		p, err := sc.PathSpec()
		if err != nil {
			return err
		}
		signals[i] = client.Signal{
			Name:       sc.Name,
			Path:       p,
			Type:       sc.Type,
			Elements:   sc.Count(),
			Structured: sc.Structured,
		}
	}

	handles, err := s.session.Register(ctx, signals...)
	if err != nil {
		return err
	}
	for i, h := range handles {
		if h == 0 {
			s.log.Warn("signal disabled", zap.String("signal", signals[i].Name))
			continue
		}
		s.handles[signals[i].Name] = h
	}
	return nil
}

// Handle returns the handle of a configured signal by name.
func (s *Source) Handle(name string) (binding.Handle, bool) {
	h, ok := s.handles[name]
	return h, ok
}

// Signals returns the sorted names of every bound signal.
func (s *Source) Signals() []string {
	out := make([]string, 0, len(s.handles))
	for name := range s.handles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// GetMemory returns the bound memory of h.
func (s *Source) GetMemory(h binding.Handle) ([]byte, error) {
	return s.session.Memory(h)
}

// Leaves returns the member regions of the structured signal.
func (s *Source) Leaves() [][]byte { return s.session.Leaves() }

// Session exposes the underlying client session.
func (s *Source) Session() *client.Session { return s.session }

// Transfer runs one cycle. The first call after registration prepares the
// session.
func (s *Source) Transfer(ctx context.Context) error {
	if s.session.State() == client.StateBound {
		if err := s.session.Prepare(ctx); err != nil {
			return err
		}
	}
	return s.session.Transfer(ctx)
}

// Run transfers every interval until ctx is done, passing each cycle's
// outcome to report when it is set.
func (s *Source) Run(ctx context.Context, interval time.Duration, report func(error)) error {
	if interval <= 0 {
		return errors.InvalidInput(errors.PhaseConfig, "cycle interval must be positive")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			err := s.Transfer(ctx)
			if report != nil {
				report(err)
			}
			if stopsRun(err) {
				return err
			}
		}
	}
}

// stopsRun reports whether err means the session can no longer cycle.
// Codec and transport failures only cost the current cycle.
func stopsRun(err error) bool {
	return errors.PhaseOf(err) == errors.PhaseSession && errors.KindOf(err) == errors.KindInvalidState
}

// Shutdown releases every binding and disconnects.
func (s *Source) Shutdown(ctx context.Context) error {
	clear(s.handles)
	return s.session.Shutdown(ctx)
}

func resolverOptions(cfg *config.Config, opts Options) resolver.Options {
	ro := resolver.Options{
		Now:      opts.Now,
		Budget:   cfg.Resolve.Budget,
		Attempts: cfg.Resolve.Attempts,
	}
	if opts.Metrics != nil {
		ro.Observe = opts.Metrics.ObserveResolve
	}
	return ro
}

func methodTarget(cfg *config.Config) (client.MethodTarget, error) {
	object, err := cfg.Method.Object.PathSpec()
	if err != nil {
		return client.MethodTarget{}, err
	}
	method, err := cfg.Method.Method.PathSpec()
	if err != nil {
		return client.MethodTarget{}, err
	}
	return client.MethodTarget{
		Object:           object,
		Method:           method,
		LivenessInterval: cfg.Method.LivenessInterval,
	}, nil
}
