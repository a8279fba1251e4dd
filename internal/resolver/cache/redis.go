// Package cache provides a Redis read-through decorator for resolvers.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"hcm/internal/resolver"
	"hcm/pkg/validation"
)

const keyPrefix = "hcm:ref:"

var lookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hcm_resolver_cache_lookups_total",
	Help: "Resolver cache lookups by namespace and result",
}, []string{"namespace", "result"})

// Resolver caches positive lookups of next in Redis. Ids that did not
// resolve are never cached so a later create on the peer is seen at once.
// Redis failures degrade to calling next directly.
type Resolver struct {
	next      resolver.Resolver
	client    *redis.Client
	namespace string
	ttl       time.Duration
	logger    *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New wraps next. namespace separates entity types sharing one Redis.
func New(next resolver.Resolver, client *redis.Client, namespace string, ttl time.Duration, opts ...Option) *Resolver {
	r := &Resolver{
		next:      next,
		client:    client,
		namespace: namespace,
		ttl:       ttl,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) key(tenantID string, kind validation.IdentityKind, id string) string {
	return keyPrefix + r.namespace + ":" + tenantID + ":" + kind.Column() + ":" + id
}

type cacheSlot struct {
	kind validation.IdentityKind
	id   string
}

// Resolve serves cached references and resolves the rest through next in a
// single call.
func (r *Resolver) Resolve(ctx context.Context, q resolver.Query) ([]resolver.Reference, error) {
	if q.Len() == 0 {
		return nil, nil
	}
	slots := make([]cacheSlot, 0, q.Len())
	keys := make([]string, 0, q.Len())
	for _, kind := range []validation.IdentityKind{validation.ByID, validation.ByClientReferenceID} {
		for _, id := range q.Keys(kind) {
			slots = append(slots, cacheSlot{kind: kind, id: id})
			keys = append(keys, r.key(q.TenantID, kind, id))
		}
	}

	cached, err := r.client.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.logger.WarnContext(ctx, "resolver cache read failed",
			"namespace", r.namespace,
			"tenant_id", q.TenantID,
			"error", err,
		)
		lookups.WithLabelValues(r.namespace, "error").Inc()
		return r.next.Resolve(ctx, q)
	}

	refs := make([]resolver.Reference, 0, len(slots))
	miss := q
	miss.IDs, miss.ClientReferenceIDs = nil, nil
	for i, v := range cached {
		var ref resolver.Reference
		raw, ok := v.(string)
		if ok && json.Unmarshal([]byte(raw), &ref) == nil {
			refs = append(refs, ref)
			continue
		}
		if slots[i].kind == validation.ByClientReferenceID {
			miss.ClientReferenceIDs = append(miss.ClientReferenceIDs, slots[i].id)
		} else {
			miss.IDs = append(miss.IDs, slots[i].id)
		}
	}
	lookups.WithLabelValues(r.namespace, "hit").Add(float64(len(refs)))
	lookups.WithLabelValues(r.namespace, "miss").Add(float64(miss.Len()))
	if miss.Len() == 0 {
		return refs, nil
	}

	fetched, err := r.next.Resolve(ctx, miss)
	if err != nil {
		return nil, err
	}
	r.store(ctx, q.TenantID, fetched)
	return append(refs, fetched...), nil
}

// store caches each reference under every identifier it carries.
func (r *Resolver) store(ctx context.Context, tenantID string, refs []resolver.Reference) {
	if len(refs) == 0 {
		return
	}
	pipe := r.client.Pipeline()
	for _, ref := range refs {
		raw, err := json.Marshal(ref)
		if err != nil {
			continue
		}
		if ref.ID != "" {
			pipe.Set(ctx, r.key(tenantID, validation.ByID, ref.ID), raw, r.ttl)
		}
		if ref.ClientReferenceID != "" {
			pipe.Set(ctx, r.key(tenantID, validation.ByClientReferenceID, ref.ClientReferenceID), raw, r.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.WarnContext(ctx, "resolver cache write failed",
			"namespace", r.namespace,
			"tenant_id", tenantID,
			"error", err,
		)
	}
}
