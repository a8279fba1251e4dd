// Package validators holds the household member validation chains and the
// rules registered in them.
package validators

import (
	"context"
	"log/slog"

	"hcm/internal/household/models"
	"hcm/internal/resolver"
	"hcm/pkg/validation"
)

// Member-specific error codes.
const (
	CodeHouseholdAlreadyHasHead    = "HOUSEHOLD_ALREADY_HAS_HEAD"
	CodeHouseholdReferenceRequired = "HOUSEHOLD_REFERENCE_REQUIRED"
	CodeIndividualNotFound         = "INDIVIDUAL_NOT_FOUND"
	CodeIndividualAlreadyMember    = "INDIVIDUAL_ALREADY_MEMBER_OF_HOUSEHOLD"
	CodeMemberSearchFailed         = "HOUSEHOLD_MEMBER_SEARCH_FAILED"
	CodeInternalServerError        = "INTERNAL_SERVER_ERROR"
)

// Resolution names written to the batch side table.
const (
	ResolvedHousehold  = "household"
	ResolvedIndividual = "individual"
	relativePrefix     = "relative/"
)

// ResolvedRelative names the resolution of a relative client reference id.
func ResolvedRelative(clientReferenceID string) string {
	return relativePrefix + clientReferenceID
}

// Batch is a household member batch under validation.
type Batch = validation.Batch[models.HouseholdMember]

type item = validation.Item[models.HouseholdMember]

// MemberStore is the member datastore surface the rules query.
type MemberStore interface {
	FindByIDs(ctx context.Context, tenantID string, ids []string, kind validation.IdentityKind, includeDeleted bool) ([]models.HouseholdMember, error)
	FindByReferences(ctx context.Context, tenantID string, ids, clientReferenceIDs []string, includeDeleted bool) ([]models.HouseholdMember, error)
	ExistingClientReferenceIDs(ctx context.Context, tenantID string, ids []string, onlyActive bool) ([]string, error)
	FindByIndividualIDs(ctx context.Context, tenantID string, individualIDs []string) ([]models.HouseholdMember, error)
	FindHeadsByHouseholdIDs(ctx context.Context, tenantID string, householdIDs []string) ([]models.HouseholdMember, error)
}

// HouseholdStore looks up households referenced by members.
type HouseholdStore interface {
	FindByReferences(ctx context.Context, tenantID string, ids, clientReferenceIDs []string, includeDeleted bool) ([]models.Household, error)
}

// Deps are the collaborators shared by the rules.
type Deps struct {
	Members     MemberStore
	Households  HouseholdStore
	Individuals resolver.Resolver
	Logger      *slog.Logger

	// NetworkErrorsAsEntityErrors turns a failed household lookup into a
	// NETWORK_ERROR on every affected member instead of failing the request.
	NetworkErrorsAsEntityErrors bool

	// Parallelism caps concurrent tenant lookups. Zero means unbounded.
	Parallelism int
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// reference is one member's pointer to a foreign entity.
type reference struct {
	item item
	kind validation.IdentityKind
	key  string
}

// groupReferences partitions non-null references by tenant, producing one
// query per tenant in tenant order. A query carries the ids and the client
// reference ids of its tenant together.
func groupReferences(items []item, idFn, crIDFn func(models.HouseholdMember) string) ([]resolver.Query, map[string][]reference) {
	groups := make(map[string][]reference)
	for _, it := range items {
		kind, key, ok := validation.KindOf(idFn(it.Entity), crIDFn(it.Entity))
		if !ok {
			continue
		}
		tenant := it.Entity.TenantID
		groups[tenant] = append(groups[tenant], reference{item: it, kind: kind, key: key})
	}
	queries := make([]resolver.Query, 0, len(groups))
	for _, tenant := range validation.SortedKeys(groups) {
		q := resolver.Query{TenantID: tenant}
		for _, r := range groups[tenant] {
			if r.kind == validation.ByClientReferenceID {
				q.ClientReferenceIDs = append(q.ClientReferenceIDs, r.key)
			} else {
				q.IDs = append(q.IDs, r.key)
			}
		}
		queries = append(queries, q)
	}
	return queries, groups
}

// referenceIndex finds the resolved entity a reference points at.
type referenceIndex struct {
	byID map[string]resolver.Reference
	byCR map[string]resolver.Reference
}

func newReferenceIndex(refs []resolver.Reference) referenceIndex {
	return referenceIndex{
		byID: resolver.Index(refs, validation.ByID),
		byCR: resolver.Index(refs, validation.ByClientReferenceID),
	}
}

func (x referenceIndex) lookup(r reference) (resolver.Reference, bool) {
	if r.kind == validation.ByClientReferenceID {
		ref, ok := x.byCR[r.key]
		return ref, ok
	}
	ref, ok := x.byID[r.key]
	return ref, ok
}
