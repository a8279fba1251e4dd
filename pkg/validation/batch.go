package validation

import (
	"sync"
	"time"
)

// RequestContext is the request-scoped metadata that travels with a batch to
// validators and remote resolvers.
type RequestContext struct {
	UserID    string
	AuthToken string
	MsgID     string
	Action    string
	Time      time.Time
}

// Item pairs an entity with its position in the submitted batch. The position
// is the entity's identity for the lifetime of the request.
type Item[E Entity] struct {
	Index  int
	Entity E
}

// Resolution is typed intermediate state one validator hands to later
// stages, e.g. a client reference id resolved to the stored server id.
type Resolution struct {
	ID                string
	ClientReferenceID string
}

type resolutionKey struct {
	index int
	name  string
}

// Batch is one bulk request under validation. Entities are never mutated by
// the pipeline: failure status, resolutions and stored snapshots live in
// side tables owned by the batch.
type Batch[E Entity] struct {
	Context  RequestContext
	Entities []E

	mu          sync.RWMutex
	failed      map[int]struct{}
	resolutions map[resolutionKey]Resolution
	existing    map[int]E
}

// NewBatch wraps entities for a single pipeline run.
func NewBatch[E Entity](rc RequestContext, entities []E) *Batch[E] {
	return &Batch[E]{
		Context:     rc,
		Entities:    entities,
		failed:      make(map[int]struct{}),
		resolutions: make(map[resolutionKey]Resolution),
		existing:    make(map[int]E),
	}
}

// Len returns the number of submitted entities.
func (b *Batch[E]) Len() int {
	return len(b.Entities)
}

// All returns every entity regardless of status.
func (b *Batch[E]) All() []Item[E] {
	out := make([]Item[E], len(b.Entities))
	for i, e := range b.Entities {
		out[i] = Item[E]{Index: i, Entity: e}
	}
	return out
}

// Valid returns the working set of entities not yet marked with a terminal
// error. Every validator starts from this set.
func (b *Batch[E]) Valid() []Item[E] {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Item[E], 0, len(b.Entities))
	for i, e := range b.Entities {
		if _, bad := b.failed[i]; bad {
			continue
		}
		out = append(out, Item[E]{Index: i, Entity: e})
	}
	return out
}

// HasErrors reports whether the entity at index was marked by an earlier unit.
func (b *Batch[E]) HasErrors(index int) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, bad := b.failed[index]
	return bad
}

// Mark flags every entity in m that carries a non-recoverable error.
func (b *Batch[E]) Mark(m ErrorMap) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for idx, errs := range m {
		if idx < 0 || idx >= len(b.Entities) {
			continue
		}
		if terminal(errs) {
			b.failed[idx] = struct{}{}
		}
	}
}

// Resolve records a resolved reference for the entity at index.
func (b *Batch[E]) Resolve(index int, name string, r Resolution) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resolutions[resolutionKey{index: index, name: name}] = r
}

// Resolved returns a reference recorded by an earlier stage.
func (b *Batch[E]) Resolved(index int, name string) (Resolution, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.resolutions[resolutionKey{index: index, name: name}]
	return r, ok
}

// SetExisting records the stored snapshot of the entity at index.
func (b *Batch[E]) SetExisting(index int, stored E) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.existing[index] = stored
}

// Existing returns the stored snapshot recorded by an existence check.
func (b *Batch[E]) Existing(index int) (E, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.existing[index]
	return e, ok
}
