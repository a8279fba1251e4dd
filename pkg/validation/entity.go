package validation

import "sort"

// Entity is the capability every bulk-validated record exposes. Validators
// read identity through it instead of reflecting into field names.
type Entity interface {
	GetID() string
	GetClientReferenceID() string
	GetTenantID() string
	GetRowVersion() int
	GetIsDeleted() bool
}

// IdentityKind selects which identifier column a batched lookup matches on.
type IdentityKind int

const (
	ByID IdentityKind = iota
	ByClientReferenceID
)

// Column returns the datastore column for the kind.
func (k IdentityKind) Column() string {
	if k == ByClientReferenceID {
		return "clientReferenceId"
	}
	return "id"
}

func (k IdentityKind) String() string {
	return k.Column()
}

// Pick returns the identifier matching the kind.
func (k IdentityKind) Pick(id, clientReferenceID string) string {
	if k == ByClientReferenceID {
		return clientReferenceID
	}
	return id
}

// KindOf resolves the identity kind of a reference pair: server ids win when
// present, client reference ids are used before the server has assigned one.
// ok is false when both are empty (a null reference).
func KindOf(id, clientReferenceID string) (kind IdentityKind, key string, ok bool) {
	switch {
	case id != "":
		return ByID, id, true
	case clientReferenceID != "":
		return ByClientReferenceID, clientReferenceID, true
	default:
		return ByID, "", false
	}
}

// Identity returns the preferred identifier of an entity.
func Identity(e Entity) (IdentityKind, string, bool) {
	return KindOf(e.GetID(), e.GetClientReferenceID())
}

// GroupByTenant partitions items by tenant. Tenants are independent
// partitions, so each group can be looked up separately.
func GroupByTenant[E Entity](items []Item[E]) map[string][]Item[E] {
	groups := make(map[string][]Item[E])
	for _, it := range items {
		t := it.Entity.GetTenantID()
		groups[t] = append(groups[t], it)
	}
	return groups
}

// SortedKeys returns map keys in ascending order so grouped lookups run in a
// deterministic sequence.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
