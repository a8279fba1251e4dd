package validators

import (
	"context"
	"fmt"

	"hcm/internal/household/models"
	"hcm/internal/resolver"
	dErrors "hcm/pkg/domain-errors"
	"hcm/pkg/validation"
)

// Individual confirms that every referenced individual exists in the
// individual service and does not already belong to a household. On update
// the member itself does not count as a prior membership. A failed lookup
// fails the request.
func Individual(individuals resolver.Resolver, d Deps) validation.Validator[models.HouseholdMember] {
	return validation.ValidatorFunc[models.HouseholdMember](func(ctx context.Context, batch *Batch) (validation.ErrorMap, error) {
		found := make(validation.ErrorMap)
		queries, groups := groupReferences(batch.Valid(),
			func(m models.HouseholdMember) string { return m.IndividualID },
			func(m models.HouseholdMember) string { return m.IndividualClientReferenceID },
		)
		if len(queries) == 0 {
			return found, nil
		}
		for i := range queries {
			queries[i].Request = batch.Context
		}

		results, err := resolver.ResolveTenants(ctx, individuals, queries, d.Parallelism)
		if err != nil {
			return nil, dErrors.Wrap(err, requestCode(err), CodeInternalServerError+": individual search failed")
		}

		resolvedByTenant := make(map[string][]reference)
		for _, res := range results {
			tenant := res.Query.TenantID
			index := newReferenceIndex(res.References)
			for _, r := range groups[tenant] {
				ind, ok := index.lookup(r)
				if !ok || ind.IsDeleted {
					validation.Populate(found, r.item.Index, validation.NewError(CodeIndividualNotFound,
						fmt.Sprintf("Individual not found: %s", r.key)))
					continue
				}
				batch.Resolve(r.item.Index, ResolvedIndividual, validation.Resolution{ID: ind.ID, ClientReferenceID: ind.ClientReferenceID})
				resolvedByTenant[tenant] = append(resolvedByTenant[tenant], reference{item: r.item, kind: validation.ByID, key: ind.ID})
			}
		}

		for _, tenant := range validation.SortedKeys(resolvedByTenant) {
			refs := resolvedByTenant[tenant]
			ids := make([]string, len(refs))
			for i, r := range refs {
				ids[i] = r.key
			}
			members, err := d.Members.FindByIndividualIDs(ctx, tenant, ids)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal,
					fmt.Sprintf("%s: find members by individual for tenant %s", CodeMemberSearchFailed, tenant))
			}
			memberOf := make(map[string][]string, len(members))
			for _, m := range members {
				memberOf[m.IndividualID] = append(memberOf[m.IndividualID], m.ID)
			}
			for _, r := range refs {
				if alreadyMember(memberOf[r.key], r.item.Entity.ID) {
					validation.Populate(found, r.item.Index, validation.NewError(CodeIndividualAlreadyMember,
						fmt.Sprintf("Individual %s is already a member of a household", r.key)))
				}
			}
		}
		return found, nil
	})
}

// alreadyMember reports whether any stored membership belongs to a member
// other than self.
func alreadyMember(memberIDs []string, self string) bool {
	for _, id := range memberIDs {
		if id != self {
			return true
		}
	}
	return false
}

func requestCode(err error) dErrors.Code {
	if resolver.IsNetwork(err) {
		return dErrors.CodeUnavailable
	}
	return dErrors.CodeInternal
}
