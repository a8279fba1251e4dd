package validators

import (
	"context"

	"hcm/internal/household/models"
	"hcm/pkg/platform/strings"
	"hcm/pkg/validation"
)

// IsDeletedRelationship rejects relationships submitted as deleted on create.
func IsDeletedRelationship() validation.Validator[models.HouseholdMember] {
	return deletedRelationship(func(models.Relationship) bool { return true })
}

// IsDeletedNewRelationship rejects relationships without an id submitted as
// deleted. Stored relationships may still be deleted through an update.
func IsDeletedNewRelationship() validation.Validator[models.HouseholdMember] {
	return deletedRelationship(func(r models.Relationship) bool { return r.ID == "" })
}

func deletedRelationship(applies func(models.Relationship) bool) validation.Validator[models.HouseholdMember] {
	return validation.ValidatorFunc[models.HouseholdMember](func(_ context.Context, batch *Batch) (validation.ErrorMap, error) {
		found := make(validation.ErrorMap)
		for _, it := range batch.Valid() {
			for _, r := range it.Entity.MemberRelationships {
				if r.IsDeleted && applies(r) {
					validation.Populate(found, it.Index, validation.IsDeletedSubEntity())
					break
				}
			}
		}
		return found, nil
	})
}

// UniqueRelationship rejects a member whose relationships repeat an id.
func UniqueRelationship() validation.Validator[models.HouseholdMember] {
	return validation.ValidatorFunc[models.HouseholdMember](func(_ context.Context, batch *Batch) (validation.ErrorMap, error) {
		found := make(validation.ErrorMap)
		for _, it := range batch.Valid() {
			ids := make([]string, 0, len(it.Entity.MemberRelationships))
			for _, r := range it.Entity.MemberRelationships {
				ids = append(ids, r.ID)
			}
			for id, n := range strings.Frequencies(ids) {
				if id != "" && n > 1 {
					validation.Populate(found, it.Index, validation.DuplicateSubEntity())
					break
				}
			}
		}
		return found, nil
	})
}

// NonExistentRelationship rejects relationship ids that the stored member
// does not own. It reads the snapshot recorded by the existence check and
// skips members without one.
func NonExistentRelationship() validation.Validator[models.HouseholdMember] {
	return validation.ValidatorFunc[models.HouseholdMember](func(_ context.Context, batch *Batch) (validation.ErrorMap, error) {
		found := make(validation.ErrorMap)
		for _, it := range batch.Valid() {
			stored, ok := batch.Existing(it.Index)
			if !ok {
				continue
			}
			owned := make([]string, 0, len(stored.MemberRelationships))
			for _, r := range stored.MemberRelationships {
				owned = append(owned, r.ID)
			}
			var submitted []string
			for _, r := range it.Entity.MemberRelationships {
				if r.ID != "" {
					submitted = append(submitted, r.ID)
				}
			}
			if missing := strings.Difference(submitted, owned); len(missing) > 0 {
				validation.Populate(found, it.Index, validation.NonExistentSubEntity(missing))
			}
		}
		return found, nil
	})
}
