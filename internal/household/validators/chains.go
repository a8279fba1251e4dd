package validators

import (
	"context"
	"errors"

	"hcm/internal/household/models"
	"hcm/internal/resolver"
	"hcm/pkg/validation"
)

var errNoIndividualResolver = errors.New("individual resolver not configured")

// Chain is a household member validation chain.
type Chain = validation.Chain[models.HouseholdMember]

// NewCreateChain registers the rules run before members are created.
func NewCreateChain(d Deps, opts ...validation.Option) *Chain {
	households := HouseholdResolver(d.Households)
	return validation.NewChain[models.HouseholdMember]("household_member.create", opts...).
		Register(1, "unique_client_reference_id", validation.UniqueEntityValidator[models.HouseholdMember](d.Members.ExistingClientReferenceIDs)).
		Register(2, "is_deleted", validation.IsDeletedValidator[models.HouseholdMember]()).
		Register(2, "is_deleted_relationship", IsDeletedRelationship()).
		Register(3, "household_reference_required", HouseholdReferenceRequired()).
		Register(3, "household", Household(households, d)).
		Register(7, "individual", Individual(individuals(d), d)).
		Register(11, "relative_existent", RelativeExistent(d)).
		Register(12, "household_head", HouseholdHead(d))
}

// NewUpdateChain registers the rules run before members are updated. Stored
// relationships may be deleted on update; new ones may not.
func NewUpdateChain(d Deps, opts ...validation.Option) *Chain {
	households := HouseholdResolver(d.Households)
	return validation.NewChain[models.HouseholdMember]("household_member.update", opts...).
		Register(1, "null_id", validation.NullIDValidator[models.HouseholdMember]()).
		Register(2, "is_deleted", validation.IsDeletedValidator[models.HouseholdMember]()).
		Register(2, "is_deleted_new_relationship", IsDeletedNewRelationship()).
		Register(3, "household_reference_required", HouseholdReferenceRequired()).
		Register(3, "household", Household(households, d)).
		Register(4, "non_existent", validation.NonExistentEntityValidator[models.HouseholdMember](d.Members.FindByIDs)).
		Register(5, "row_version", validation.RowVersionValidator[models.HouseholdMember](d.Members.FindByIDs)).
		Register(6, "unique_relationship", UniqueRelationship()).
		Register(6, "non_existent_relationship", NonExistentRelationship()).
		Register(7, "individual", Individual(individuals(d), d)).
		Register(11, "relative_existent", RelativeExistent(d)).
		Register(12, "household_head", HouseholdHead(d))
}

// NewDeleteChain registers the rules run before members are deleted.
func NewDeleteChain(d Deps, opts ...validation.Option) *Chain {
	return validation.NewChain[models.HouseholdMember]("household_member.delete", opts...).
		Register(1, "null_id", validation.NullIDValidator[models.HouseholdMember]()).
		Register(4, "non_existent", validation.NonExistentEntityValidator[models.HouseholdMember](d.Members.FindByIDs)).
		Register(5, "row_version", validation.RowVersionValidator[models.HouseholdMember](d.Members.FindByIDs))
}

func individuals(d Deps) resolver.Resolver {
	if d.Individuals == nil {
		return resolver.Func(func(_ context.Context, _ resolver.Query) ([]resolver.Reference, error) {
			return nil, errNoIndividualResolver
		})
	}
	return d.Individuals
}
