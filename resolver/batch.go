package resolver

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/opcua-bridge/errors"
	"github.com/wippyai/opcua-bridge/ua"
)

// ResolveAll resolves every path independently. ids[i] is nil when paths[i]
// failed; the failures are reported together as *errors.ResolutionErrors.
func (r *Resolver) ResolveAll(ctx context.Context, paths []ua.PathSpec) ([]ua.NodeID, error) {
	ids := make([]ua.NodeID, len(paths))
	var failed errors.ResolutionErrors

	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			failed.Add(p.Namespace(), p.String(), errors.Wrap(errors.PhaseResolve, errors.KindTimeout, err, "resolution cancelled"))
			continue
		}
		id, err := r.Resolve(ctx, p)
		if err != nil {
			failed.Add(p.Namespace(), p.String(), err)
			continue
		}
		ids[i] = id
	}

	if err := failed.ErrOrNil(); err != nil {
		Logger().Warn("unresolved paths",
			zap.Int("failed", len(failed.Paths)),
			zap.Int("total", len(paths)))
		return ids, err
	}
	return ids, nil
}
