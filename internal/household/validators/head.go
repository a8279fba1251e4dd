package validators

import (
	"context"

	"hcm/internal/household/models"
	dErrors "hcm/pkg/domain-errors"
	"hcm/pkg/validation"
)

// HouseholdHead allows at most one active head per household. A member
// claiming head is rejected when a different active head is on file or when
// an earlier member of the same batch claims the same household. Members
// rejected by any earlier rule hold no claim, and stored heads stepping down
// in this batch do not block a new one. It runs last in a chain.
func HouseholdHead(d Deps) validation.Validator[models.HouseholdMember] {
	return validation.ValidatorFunc[models.HouseholdMember](func(ctx context.Context, batch *Batch) (validation.ErrorMap, error) {
		found := make(validation.ErrorMap)
		valid := batch.Valid()

		releasing := make(map[string]bool)
		claims := make(map[string][]item)
		for _, it := range valid {
			m := it.Entity
			if m.ID != "" && (!m.IsHeadOfHousehold || m.IsDeleted) {
				releasing[m.ID] = true
			}
			if m.IsHeadOfHousehold && !m.IsDeleted && householdID(batch, it) != "" {
				claims[m.TenantID] = append(claims[m.TenantID], it)
			}
		}

		for _, tenant := range validation.SortedKeys(claims) {
			items := claims[tenant]
			ids := make([]string, 0, len(items))
			for _, it := range items {
				ids = append(ids, householdID(batch, it))
			}
			heads, err := d.Members.FindHeadsByHouseholdIDs(ctx, tenant, ids)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, CodeMemberSearchFailed+": find household heads")
			}
			onFile := make(map[string][]models.HouseholdMember)
			for _, h := range heads {
				onFile[h.HouseholdID] = append(onFile[h.HouseholdID], h)
			}
			claimed := make(map[string]bool)
			for _, it := range items {
				hh := householdID(batch, it)
				if headConflict(it.Entity.ID, onFile[hh], releasing, claimed[hh]) {
					validation.Populate(found, it.Index, validation.NewError(CodeHouseholdAlreadyHasHead,
						"Household already has a head"))
					continue
				}
				claimed[hh] = true
			}
		}
		return found, nil
	})
}

// headConflict decides whether memberID may be head of a household given the
// heads on file, the stored heads stepping down in this request and whether
// an earlier batch member already holds the claim.
func headConflict(memberID string, onFile []models.HouseholdMember, releasing map[string]bool, claimedInBatch bool) bool {
	if claimedInBatch {
		return true
	}
	for _, h := range onFile {
		if h.ID == memberID || releasing[h.ID] {
			continue
		}
		return true
	}
	return false
}

// householdID returns the server id of the member's household, preferring
// the id resolved by the household check.
func householdID(batch *Batch, it item) string {
	if r, ok := batch.Resolved(it.Index, ResolvedHousehold); ok && r.ID != "" {
		return r.ID
	}
	return it.Entity.HouseholdID
}
