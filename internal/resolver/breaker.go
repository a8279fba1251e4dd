package resolver

import (
	"context"
	"log/slog"

	"hcm/pkg/platform/circuit"
)

// WithBreaker stops calling r after repeated network failures. While the
// circuit is open, calls fail fast with a network LookupError except for the
// periodic probe the breaker allows through.
func WithBreaker(r Resolver, b *circuit.Breaker, logger *slog.Logger) Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return Func(func(ctx context.Context, q Query) ([]Reference, error) {
		if !b.Allow() {
			return nil, NewLookupError(CategoryNetwork, b.Name(), "circuit open", nil)
		}
		refs, err := r.Resolve(ctx, q)
		if err != nil {
			if IsNetwork(err) {
				if _, change := b.RecordFailure(); change.Opened {
					logger.WarnContext(ctx, "resolver circuit opened",
						"resolver", b.Name(),
						"tenant_id", q.TenantID,
						"error", err,
					)
				}
			}
			return nil, err
		}
		if _, change := b.RecordSuccess(); change.Closed {
			logger.InfoContext(ctx, "resolver circuit closed", "resolver", b.Name())
		}
		return refs, nil
	})
}
