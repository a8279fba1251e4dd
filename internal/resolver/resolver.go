// Package resolver resolves batches of foreign references against peer
// services or the local datastore.
//
// Callers send one Query per tenant carrying both the server ids and the
// client reference ids they need, and compute the invalid ones with Missing.
// Responses are matched by id, never by position.
package resolver

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"hcm/pkg/platform/strings"
	"hcm/pkg/validation"
)

const tracerName = "hcm/internal/resolver"

// Reference is a resolved foreign entity.
type Reference struct {
	ID                string
	ClientReferenceID string
	TenantID          string
	IsDeleted         bool
}

// Key returns the identifier of the reference matching kind.
func (r Reference) Key(kind validation.IdentityKind) string {
	return kind.Pick(r.ID, r.ClientReferenceID)
}

// Query is one batched lookup for a tenant. A reference matches when its id
// is in IDs or its client reference id is in ClientReferenceIDs.
type Query struct {
	TenantID           string
	IDs                []string
	ClientReferenceIDs []string
	Request            validation.RequestContext
}

// Keys returns the queried identifiers of the given kind.
func (q Query) Keys(kind validation.IdentityKind) []string {
	if kind == validation.ByClientReferenceID {
		return q.ClientReferenceIDs
	}
	return q.IDs
}

// Len is the number of identifiers in the query.
func (q Query) Len() int {
	return len(q.IDs) + len(q.ClientReferenceIDs)
}

// Resolver returns the subset of the queried ids that exist.
type Resolver interface {
	Resolve(ctx context.Context, q Query) ([]Reference, error)
}

// Func adapts a function to the Resolver interface.
type Func func(ctx context.Context, q Query) ([]Reference, error)

func (f Func) Resolve(ctx context.Context, q Query) ([]Reference, error) {
	return f(ctx, q)
}

// Lookup deduplicates the query ids and skips the call entirely when none
// remain.
func Lookup(ctx context.Context, r Resolver, q Query) ([]Reference, error) {
	q.IDs = strings.DedupeAndTrim(q.IDs)
	q.ClientReferenceIDs = strings.DedupeAndTrim(q.ClientReferenceIDs)
	if q.Len() == 0 {
		return nil, nil
	}
	return r.Resolve(ctx, q)
}

// Missing returns the requested ids absent from refs, in request order.
func Missing(requested []string, refs []Reference, kind validation.IdentityKind) []string {
	found := make([]string, 0, len(refs))
	for _, ref := range refs {
		found = append(found, ref.Key(kind))
	}
	return strings.Difference(strings.DedupeAndTrim(requested), found)
}

// Index maps each reference by its identifier for the given kind. References
// without an identifier of that kind are left out.
func Index(refs []Reference, kind validation.IdentityKind) map[string]Reference {
	out := make(map[string]Reference, len(refs))
	for _, ref := range refs {
		if key := ref.Key(kind); key != "" {
			out[key] = ref
		}
	}
	return out
}

// Result pairs a query with what it resolved to.
type Result struct {
	Query      Query
	References []Reference
}

// ResolveTenants runs independent queries in parallel, at most limit at a
// time (limit <= 0 means unbounded). Results keep the order of queries. The
// first failure cancels the remaining lookups and is returned.
func ResolveTenants(ctx context.Context, r Resolver, queries []Query, limit int) ([]Result, error) {
	results := make([]Result, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, q := range queries {
		g.Go(func() error {
			refs, err := Lookup(gctx, r, q)
			if err != nil {
				return fmt.Errorf("resolve tenant %s: %w", q.TenantID, err)
			}
			results[i] = Result{Query: q, References: refs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// WithTimeout bounds every call made through r.
func WithTimeout(r Resolver, d time.Duration) Resolver {
	if d <= 0 {
		return r
	}
	return Func(func(ctx context.Context, q Query) ([]Reference, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return r.Resolve(ctx, q)
	})
}

// WithTracing wraps r in a span named after target.
func WithTracing(r Resolver, target string) Resolver {
	tracer := otel.Tracer(tracerName)
	return Func(func(ctx context.Context, q Query) ([]Reference, error) {
		ctx, span := tracer.Start(ctx, "resolver."+target,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("resolver.tenant_id", q.TenantID),
				attribute.Int("resolver.ids", len(q.IDs)),
				attribute.Int("resolver.client_reference_ids", len(q.ClientReferenceIDs)),
			))
		defer span.End()

		refs, err := r.Resolve(ctx, q)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(CategoryOf(err)))
			return nil, err
		}
		span.SetAttributes(attribute.Int("resolver.resolved", len(refs)))
		return refs, nil
	})
}
