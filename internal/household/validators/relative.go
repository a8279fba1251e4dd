package validators

import (
	"context"
	"fmt"

	"hcm/internal/household/models"
	dErrors "hcm/pkg/domain-errors"
	"hcm/pkg/platform/strings"
	"hcm/pkg/validation"
)

// RelativeExistent checks every relationship of a member. A relationship
// that names no relative, points at the member itself or whose self does not
// match the member is INVALID_RELATED_ENTITY_ID. Otherwise each relative must
// exist in the datastore or, by client reference id, among the batch members
// that are not rejected. Relatives found in the datastore by client reference
// id are recorded on the batch so enrichment can fill in their server id.
func RelativeExistent(d Deps) validation.Validator[models.HouseholdMember] {
	return validation.ValidatorFunc[models.HouseholdMember](func(ctx context.Context, batch *Batch) (validation.ErrorMap, error) {
		found := make(validation.ErrorMap)

		var withRelatives []item
		for _, it := range batch.Valid() {
			if len(it.Entity.MemberRelationships) == 0 {
				continue
			}
			if invalidRelationship(it.Entity) {
				validation.Populate(found, it.Index, validation.InvalidRelatedEntityID())
				continue
			}
			withRelatives = append(withRelatives, it)
		}
		if len(withRelatives) == 0 {
			return found, nil
		}

		inBatch := make(map[string]map[string]bool)
		for _, it := range batch.Valid() {
			if cr := it.Entity.ClientReferenceID; cr != "" && !found.Has(it.Index) {
				t := it.Entity.TenantID
				if inBatch[t] == nil {
					inBatch[t] = make(map[string]bool)
				}
				inBatch[t][cr] = true
			}
		}

		groups := validation.GroupByTenant(withRelatives)
		for _, tenant := range validation.SortedKeys(groups) {
			items := groups[tenant]
			var ids, crIDs []string
			for _, it := range items {
				for _, r := range it.Entity.MemberRelationships {
					if r.IsDeleted {
						continue
					}
					if r.RelativeID != "" {
						ids = append(ids, r.RelativeID)
					} else {
						crIDs = append(crIDs, r.RelativeClientReferenceID)
					}
				}
			}
			byID, byCR, err := d.findRelatives(ctx, tenant, ids, crIDs)
			if err != nil {
				return nil, err
			}

			// A rejected member is no longer a relative in the batch, which
			// may in turn reject members pointing at it.
			present := inBatch[tenant]
			pending := items
			for {
				var next []item
				dropped := false
				for _, it := range pending {
					missing := missingRelatives(it.Entity, byID, byCR, present)
					if len(missing) == 0 {
						next = append(next, it)
						continue
					}
					validation.Populate(found, it.Index, validation.NonExistentRelatedEntity(missing))
					if cr := it.Entity.ClientReferenceID; present[cr] {
						delete(present, cr)
						dropped = true
					}
				}
				pending = next
				if !dropped {
					break
				}
			}

			for _, it := range pending {
				for _, r := range it.Entity.MemberRelationships {
					if r.IsDeleted || r.RelativeID != "" || present[r.RelativeClientReferenceID] {
						continue
					}
					stored := byCR[r.RelativeClientReferenceID]
					batch.Resolve(it.Index, ResolvedRelative(r.RelativeClientReferenceID),
						validation.Resolution{ID: stored.ID, ClientReferenceID: stored.ClientReferenceID})
				}
			}
		}
		return found, nil
	})
}

// findRelatives loads the stored relatives of one tenant in a single query
// and indexes them by id and by client reference id.
func (d Deps) findRelatives(ctx context.Context, tenant string, ids, crIDs []string) (byID, byCR map[string]models.HouseholdMember, err error) {
	byID = make(map[string]models.HouseholdMember)
	byCR = make(map[string]models.HouseholdMember)
	if len(ids) == 0 && len(crIDs) == 0 {
		return byID, byCR, nil
	}
	members, err := d.Members.FindByReferences(ctx, tenant, strings.DedupeAndTrim(ids), strings.DedupeAndTrim(crIDs), false)
	if err != nil {
		d.logger().ErrorContext(ctx, "relative search failed",
			"tenant_id", tenant,
			"error", err,
		)
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal,
			fmt.Sprintf("%s: search relatives for tenant %s", CodeMemberSearchFailed, tenant))
	}
	for _, m := range members {
		byID[m.ID] = m
		if m.ClientReferenceID != "" {
			byCR[m.ClientReferenceID] = m
		}
	}
	return byID, byCR, nil
}

// missingRelatives lists the live relationships of m whose relative is
// neither stored nor present in the batch.
func missingRelatives(m models.HouseholdMember, byID, byCR map[string]models.HouseholdMember, present map[string]bool) []string {
	var missing []string
	for _, r := range m.MemberRelationships {
		if r.IsDeleted {
			continue
		}
		if r.RelativeID != "" {
			if _, ok := byID[r.RelativeID]; !ok {
				missing = append(missing, r.RelativeID)
			}
			continue
		}
		if present[r.RelativeClientReferenceID] {
			continue
		}
		if _, ok := byCR[r.RelativeClientReferenceID]; !ok {
			missing = append(missing, r.RelativeClientReferenceID)
		}
	}
	return missing
}

func invalidRelationship(m models.HouseholdMember) bool {
	for _, r := range m.MemberRelationships {
		if r.RelativeID == "" && r.RelativeClientReferenceID == "" {
			return true
		}
		if same(m.ID, r.RelativeID) || same(m.ClientReferenceID, r.RelativeClientReferenceID) {
			return true
		}
		if differ(m.ID, r.SelfID) || differ(m.ClientReferenceID, r.SelfClientReferenceID) {
			return true
		}
	}
	return false
}

func same(a, b string) bool {
	return a != "" && a == b
}

func differ(a, b string) bool {
	return a != "" && b != "" && a != b
}
