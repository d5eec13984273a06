package resolver

import (
	"context"
	stderrors "errors"
	"time"

	"go.uber.org/zap"

	opcuabridge "github.com/wippyai/opcua-bridge"
	"github.com/wippyai/opcua-bridge/errors"
	"github.com/wippyai/opcua-bridge/ua"
)

const (
	// DefaultBudget bounds the search for one path segment.
	DefaultBudget = 5 * time.Second
	// DefaultAttempts is the number of budgets granted to one segment.
	DefaultAttempts = 2
)

// Options configures path resolution.
type Options struct {
	// Now is the clock the per-segment budget is measured against.
	// nil means time.Now.
	Now func() time.Time

	// Observe, when set, is called once per Resolve with the elapsed time
	// and the outcome.
	Observe func(path ua.PathSpec, elapsed time.Duration, err error)

	// Budget is the wall-clock budget of one segment search, measured
	// from the last reset. 0 means DefaultBudget.
	Budget time.Duration

	// Attempts is the number of budgets a segment gets before the path
	// fails with a timeout. 0 means DefaultAttempts.
	Attempts int
}

// DefaultOptions returns the fixed 5-second, 2-attempt policy.
func DefaultOptions() Options {
	return Options{
		Budget:   DefaultBudget,
		Attempts: DefaultAttempts,
	}
}

// Resolver turns dotted browse paths into node ids.
//
// Each path is walked from the Objects folder with Browse and BrowseNext,
// recording the reference type of every hop, and then translated in one
// TranslateBrowsePath call. Only numeric and string identifiers are
// accepted.
//
// A Resolver is not safe for concurrent use; it drives its transport from
// a single goroutine during setup.
type Resolver struct {
	transport opcuabridge.Transport
	now       func() time.Time
	observe   func(ua.PathSpec, time.Duration, error)
	budget    time.Duration
	attempts  int
}

// errBudget marks a segment search that ran out of time.
var errBudget = stderrors.New("segment budget exceeded")

// New creates a resolver over t.
func New(t opcuabridge.Transport, opts Options) *Resolver {
	r := &Resolver{
		transport: t,
		now:       opts.Now,
		observe:   opts.Observe,
		budget:    opts.Budget,
		attempts:  opts.Attempts,
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.budget <= 0 {
		r.budget = DefaultBudget
	}
	if r.attempts <= 0 {
		r.attempts = DefaultAttempts
	}
	return r
}

// Resolve returns the node id addressed by p.
func (r *Resolver) Resolve(ctx context.Context, p ua.PathSpec) (ua.NodeID, error) {
	start := r.now()
	id, err := r.resolve(ctx, p)
	if r.observe != nil {
		r.observe(p, r.now().Sub(start), err)
	}
	if err != nil {
		Logger().Warn("path resolution failed",
			zap.String("path", p.String()),
			zap.Uint16("namespace", p.Namespace()),
			zap.Error(err))
		return nil, err
	}
	Logger().Debug("path resolved",
		zap.String("path", p.String()),
		zap.Uint16("namespace", p.Namespace()),
		zap.Stringer("node", id))
	return id, nil
}

func (r *Resolver) resolve(ctx context.Context, p ua.PathSpec) (ua.NodeID, error) {
	if r.transport == nil {
		return nil, errors.NotInitialized(errors.PhaseResolve, "transport")
	}
	if p.IsZero() {
		return nil, errors.FieldMissing(errors.PhaseConfig, nil, "path")
	}

	elems := make([]ua.RelativePathElement, 0, p.Len())
	current := ua.ObjectsFolder

	for i := 0; i < p.Len()-1; i++ {
		ref, err := r.hop(ctx, p, i, current)
		if err != nil {
			return nil, err
		}
		elems = append(elems, ua.RelativePathElement{
			ReferenceTypeID: ref.ReferenceTypeID,
			TargetName:      ua.QualifiedName{Name: p.Segment(i), NamespaceIndex: p.Namespace()},
		})
		current = ref.NodeID
	}

	// The leaf is never browsed; any hierarchical reference may reach it.
	elems = append(elems, ua.RelativePathElement{
		ReferenceTypeID: ua.HierarchicalReferences,
		TargetName:      ua.QualifiedName{Name: p.Segment(p.Len() - 1), NamespaceIndex: p.Namespace()},
		IncludeSubtypes: true,
	})

	return r.translate(ctx, p, elems)
}

// hop finds segment i below current, granting the search up to
// r.attempts budgets.
func (r *Resolver) hop(ctx context.Context, p ua.PathSpec, i int, current ua.NodeID) (ua.ReferenceDescription, error) {
	for attempt := 1; attempt <= r.attempts; attempt++ {
		ref, err := r.search(ctx, p, i, current)
		if err == nil {
			return ref, nil
		}
		if !stderrors.Is(err, errBudget) {
			return ua.ReferenceDescription{}, err
		}
		if ctx.Err() != nil {
			return ua.ReferenceDescription{}, errors.Wrap(errors.PhaseResolve, errors.KindTimeout, ctx.Err(), "resolution cancelled")
		}
		Logger().Warn("browse budget exceeded",
			zap.String("path", p.String()),
			zap.String("segment", p.Segment(i)),
			zap.Int("attempt", attempt),
			zap.Duration("budget", r.budget))
	}
	return ua.ReferenceDescription{}, errors.Timeout(errors.PhaseResolve, p.Prefix(i+1), r.attempts)
}

// search browses current page by page until a reference whose display
// name equals segment i is found.
func (r *Resolver) search(ctx context.Context, p ua.PathSpec, i int, current ua.NodeID) (ua.ReferenceDescription, error) {
	segment := p.Segment(i)
	deadline := r.now().Add(r.budget)

	callCtx, cancel := context.WithTimeout(ctx, r.budget)
	defer cancel()

	res, err := r.transport.Browse(callCtx, current)
	service := "Browse"
	for {
		if err != nil {
			if callCtx.Err() != nil || stderrors.Is(err, context.DeadlineExceeded) {
				return ua.ReferenceDescription{}, errBudget
			}
			return ua.ReferenceDescription{}, errors.New(errors.PhaseResolve, errors.KindBadStatus).
				Path(p.Prefix(i+1)...).
				Node(current.String()).
				Detail("%s failed", service).
				Cause(err).
				Build()
		}
		if r.now().After(deadline) {
			return ua.ReferenceDescription{}, errBudget
		}
		if res.StatusCode.IsBad() {
			e := errors.BadStatus(errors.PhaseResolve, service, res.StatusCode)
			e.Path = p.Prefix(i + 1)
			e.Node = current.String()
			return ua.ReferenceDescription{}, e
		}

		for _, ref := range res.References {
			if ref.DisplayName != segment {
				continue
			}
			if !addressable(ref.NodeID) {
				return ua.ReferenceDescription{}, errors.AmbiguousID(p.Prefix(i+1), nodeString(ref.NodeID))
			}
			return ref, nil
		}

		if len(res.ContinuationPoint) == 0 {
			return ua.ReferenceDescription{}, errors.PathNotFound(p.Prefix(i+1), segment)
		}
		service = "BrowseNext"
		res, err = r.transport.BrowseNext(callCtx, res.ContinuationPoint)
	}
}

func (r *Resolver) translate(ctx context.Context, p ua.PathSpec, elems []ua.RelativePathElement) (ua.NodeID, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.budget)
	defer cancel()

	id, err := r.transport.TranslateBrowsePath(callCtx, ua.ObjectsFolder, elems)
	if err != nil {
		var status ua.StatusCode
		switch {
		case stderrors.As(err, &status) && (status == ua.StatusBadNoMatch || status == ua.StatusBadNodeIDUnknown):
			return nil, errors.New(errors.PhaseResolve, errors.KindNotFound).
				Path(p.Segments()...).
				Detail("translate browse path: %s", status).
				Cause(err).
				Build()
		case callCtx.Err() != nil:
			return nil, errors.Timeout(errors.PhaseResolve, p.Segments(), 1)
		default:
			return nil, errors.New(errors.PhaseResolve, errors.KindBadStatus).
				Path(p.Segments()...).
				Detail("TranslateBrowsePath failed").
				Cause(err).
				Build()
		}
	}
	if !addressable(id) {
		return nil, errors.AmbiguousID(p.Segments(), nodeString(id))
	}
	return id, nil
}

// addressable reports whether id uses an identifier form the binding
// layer supports.
func addressable(id ua.NodeID) bool {
	if id == nil {
		return false
	}
	t := id.Type()
	return t == ua.IDNumeric || t == ua.IDString
}

func nodeString(id ua.NodeID) string {
	if id == nil {
		return "<nil>"
	}
	return id.String()
}
