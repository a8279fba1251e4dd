package validation

import (
	"context"
	"fmt"

	"hcm/pkg/platform/strings"
)

// FindFunc is the datastore query shape findById(ids, idField, includeDeleted)
// scoped to one tenant.
type FindFunc[E Entity] func(ctx context.Context, tenantID string, ids []string, kind IdentityKind, includeDeleted bool) ([]E, error)

// ExistingFunc is the query shape validateClientReferenceIdsFromDB: it returns
// the subset of clientReferenceIDs already stored for the tenant.
type ExistingFunc func(ctx context.Context, tenantID string, clientReferenceIDs []string, onlyActive bool) ([]string, error)

// NullIDValidator flags entities without a server id. Used on update and delete.
func NullIDValidator[E Entity]() Validator[E] {
	return ValidatorFunc[E](func(_ context.Context, batch *Batch[E]) (ErrorMap, error) {
		found := make(ErrorMap)
		for _, it := range batch.Valid() {
			if it.Entity.GetID() == "" {
				Populate(found, it.Index, NullID())
			}
		}
		return found, nil
	})
}

// IsDeletedValidator flags entities submitted with isDeleted=true; clients
// delete through the delete operation only.
func IsDeletedValidator[E Entity]() Validator[E] {
	return ValidatorFunc[E](func(_ context.Context, batch *Batch[E]) (ErrorMap, error) {
		found := make(ErrorMap)
		for _, it := range batch.Valid() {
			if it.Entity.GetIsDeleted() {
				Populate(found, it.Index, IsDeletedTrue())
			}
		}
		return found, nil
	})
}

// UniqueEntityValidator rejects client reference ids that repeat inside the
// batch or already exist in the datastore. Every entity sharing a repeated
// id is flagged; only ids unique within the batch are sent to the datastore.
func UniqueEntityValidator[E Entity](existing ExistingFunc) Validator[E] {
	return ValidatorFunc[E](func(ctx context.Context, batch *Batch[E]) (ErrorMap, error) {
		found := make(ErrorMap)
		valid := batch.Valid()

		type key struct{ tenant, crID string }
		freq := make(map[key]int, len(valid))
		for _, it := range valid {
			if cr := it.Entity.GetClientReferenceID(); cr != "" {
				freq[key{it.Entity.GetTenantID(), cr}]++
			}
		}

		var candidates []Item[E]
		for _, it := range valid {
			cr := it.Entity.GetClientReferenceID()
			if cr == "" {
				continue
			}
			if freq[key{it.Entity.GetTenantID(), cr}] > 1 {
				Populate(found, it.Index, DuplicateEntity())
				continue
			}
			candidates = append(candidates, it)
		}
		if len(candidates) == 0 {
			return found, nil
		}

		groups := GroupByTenant(candidates)
		for _, tenant := range SortedKeys(groups) {
			items := groups[tenant]
			ids := make([]string, len(items))
			for i, it := range items {
				ids[i] = it.Entity.GetClientReferenceID()
			}
			stored, err := existing(ctx, tenant, ids, false)
			if err != nil {
				return nil, fmt.Errorf("check existing client reference ids for tenant %s: %w", tenant, err)
			}
			taken := strings.Set(stored)
			for _, it := range items {
				if _, dup := taken[it.Entity.GetClientReferenceID()]; dup {
					Populate(found, it.Index, DuplicateEntity())
				}
			}
		}
		return found, nil
	})
}

// NonExistentEntityValidator confirms update/delete targets exist. It issues
// one lookup per tenant and identity kind, never one per entity, and records
// the stored snapshot on the batch for later stages. Tombstoned entities are
// treated as missing so they cannot be mutated again.
func NonExistentEntityValidator[E Entity](find FindFunc[E]) Validator[E] {
	return ValidatorFunc[E](func(ctx context.Context, batch *Batch[E]) (ErrorMap, error) {
		found := make(ErrorMap)
		valid := batch.Valid()
		if len(valid) == 0 {
			return found, nil
		}
		groups := GroupByTenant(valid)
		for _, tenant := range SortedKeys(groups) {
			if err := lookupExisting(ctx, batch, tenant, groups[tenant], find, found); err != nil {
				return nil, err
			}
		}
		return found, nil
	})
}

func lookupExisting[E Entity](ctx context.Context, batch *Batch[E], tenant string, items []Item[E], find FindFunc[E], found ErrorMap) error {
	byKind := map[IdentityKind][]Item[E]{}
	for _, it := range items {
		kind, _, ok := Identity(it.Entity)
		if !ok {
			Populate(found, it.Index, NonExistentEntity())
			continue
		}
		byKind[kind] = append(byKind[kind], it)
	}
	for _, kind := range []IdentityKind{ByID, ByClientReferenceID} {
		group := byKind[kind]
		if len(group) == 0 {
			continue
		}
		ids := make([]string, len(group))
		for i, it := range group {
			ids[i] = kind.Pick(it.Entity.GetID(), it.Entity.GetClientReferenceID())
		}
		stored, err := find(ctx, tenant, ids, kind, false)
		if err != nil {
			return fmt.Errorf("find entities by %s for tenant %s: %w", kind, tenant, err)
		}
		index := make(map[string]E, len(stored))
		for _, s := range stored {
			index[kind.Pick(s.GetID(), s.GetClientReferenceID())] = s
		}
		for i, it := range group {
			s, ok := index[ids[i]]
			if !ok {
				Populate(found, it.Index, NonExistentEntity())
				continue
			}
			batch.SetExisting(it.Index, s)
		}
	}
	return nil
}

// RowVersionValidator rejects updates whose rowVersion differs from the
// stored one. It reuses snapshots recorded by NonExistentEntityValidator and
// only queries for entities that have none.
func RowVersionValidator[E Entity](find FindFunc[E]) Validator[E] {
	return ValidatorFunc[E](func(ctx context.Context, batch *Batch[E]) (ErrorMap, error) {
		found := make(ErrorMap)
		var missing []Item[E]
		for _, it := range batch.Valid() {
			if _, ok := batch.Existing(it.Index); !ok && it.Entity.GetID() != "" {
				missing = append(missing, it)
			}
		}
		if len(missing) > 0 {
			groups := GroupByTenant(missing)
			for _, tenant := range SortedKeys(groups) {
				items := groups[tenant]
				ids := make([]string, len(items))
				for i, it := range items {
					ids[i] = it.Entity.GetID()
				}
				stored, err := find(ctx, tenant, ids, ByID, false)
				if err != nil {
					return nil, fmt.Errorf("load row versions for tenant %s: %w", tenant, err)
				}
				index := make(map[string]E, len(stored))
				for _, s := range stored {
					index[s.GetID()] = s
				}
				for _, it := range items {
					if s, ok := index[it.Entity.GetID()]; ok {
						batch.SetExisting(it.Index, s)
					}
				}
			}
		}
		for _, it := range batch.Valid() {
			stored, ok := batch.Existing(it.Index)
			if !ok {
				continue
			}
			if it.Entity.GetRowVersion() != stored.GetRowVersion() {
				Populate(found, it.Index, RowVersionMismatch(it.Entity.GetRowVersion(), stored.GetRowVersion()))
			}
		}
		return found, nil
	})
}
