package validators

import (
	"context"
	"fmt"

	"hcm/internal/household/models"
	"hcm/internal/resolver"
	"hcm/pkg/validation"
)

// HouseholdReferenceRequired rejects members that name no household at all.
func HouseholdReferenceRequired() validation.Validator[models.HouseholdMember] {
	return validation.ValidatorFunc[models.HouseholdMember](func(_ context.Context, batch *Batch) (validation.ErrorMap, error) {
		found := make(validation.ErrorMap)
		for _, it := range batch.Valid() {
			if it.Entity.HouseholdKey() == "" {
				validation.Populate(found, it.Index, validation.NewError(CodeHouseholdReferenceRequired,
					"householdId or householdClientReferenceId is required"))
			}
		}
		return found, nil
	})
}

// HouseholdResolver exposes the household store as a resolver. Deleted
// households do not resolve.
func HouseholdResolver(store HouseholdStore) resolver.Resolver {
	return resolver.Func(func(ctx context.Context, q resolver.Query) ([]resolver.Reference, error) {
		households, err := store.FindByReferences(ctx, q.TenantID, q.IDs, q.ClientReferenceIDs, false)
		if err != nil {
			return nil, err
		}
		refs := make([]resolver.Reference, len(households))
		for i, h := range households {
			refs[i] = resolver.Reference{ID: h.ID, ClientReferenceID: h.ClientReferenceID, TenantID: h.TenantID}
		}
		return refs, nil
	})
}

// Household confirms referenced households exist with one query per tenant,
// and records each resolved household on the batch.
// Members without a household reference are left to
// HouseholdReferenceRequired.
func Household(households resolver.Resolver, d Deps) validation.Validator[models.HouseholdMember] {
	logger := d.logger()
	return validation.ValidatorFunc[models.HouseholdMember](func(ctx context.Context, batch *Batch) (validation.ErrorMap, error) {
		found := make(validation.ErrorMap)
		queries, groups := groupReferences(batch.Valid(),
			func(m models.HouseholdMember) string { return m.HouseholdID },
			func(m models.HouseholdMember) string { return m.HouseholdClientReferenceID },
		)
		if len(queries) == 0 {
			return found, nil
		}
		for i := range queries {
			queries[i].Request = batch.Context
		}

		results, err := resolver.ResolveTenants(ctx, households, queries, d.Parallelism)
		if err != nil {
			if !d.NetworkErrorsAsEntityErrors {
				return nil, fmt.Errorf("look up households: %w", err)
			}
			logger.WarnContext(ctx, "household lookup failed, rejecting affected members",
				"error", err,
				"queries", len(queries),
			)
			for _, refs := range groups {
				for _, r := range refs {
					validation.Populate(found, r.item.Index, validation.EntityWithNetworkError(err))
				}
			}
			return found, nil
		}

		for _, res := range results {
			index := newReferenceIndex(res.References)
			for _, r := range groups[res.Query.TenantID] {
				h, ok := index.lookup(r)
				if !ok {
					validation.Populate(found, r.item.Index, validation.NonExistentRelatedEntity([]string{r.key}))
					continue
				}
				batch.Resolve(r.item.Index, ResolvedHousehold, validation.Resolution{ID: h.ID, ClientReferenceID: h.ClientReferenceID})
			}
		}
		return found, nil
	})
}
