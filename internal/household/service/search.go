package service

import (
	"context"
	"time"

	"hcm/internal/household/models"
	dErrors "hcm/pkg/domain-errors"
	"hcm/pkg/validation"
)

// Search returns one page of members. A search by server ids alone is a
// direct id lookup filtered by tenant, deletion and lastChangedSince.
func (s *Service) Search(ctx context.Context, req models.SearchRequest) (_ *models.SearchResult, err error) {
	start := time.Now()
	defer s.observe(OperationSearch, &err, start)

	if req.TenantID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "tenantId is required")
	}
	if req.Limit < 0 || req.Offset < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "limit and offset must not be negative")
	}
	if req.Limit == 0 {
		req.Limit = s.searchLimit
	}

	if req.HouseholdMember.OnlyIDs() {
		found, err := s.store.FindByIDs(ctx, req.TenantID, req.HouseholdMember.ID, validation.ByID, req.IncludeDeleted)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "search household members")
		}
		members := make([]models.HouseholdMember, 0, len(found))
		for _, m := range found {
			if changedSince(m, req.LastChangedSince) {
				members = append(members, m)
			}
		}
		return &models.SearchResult{Members: members, TotalCount: len(members)}, nil
	}

	members, total, err := s.store.Search(ctx, req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "search household members")
	}
	return &models.SearchResult{Members: members, TotalCount: total}, nil
}

func changedSince(m models.HouseholdMember, since int64) bool {
	if since <= 0 {
		return true
	}
	return m.AuditDetails != nil && m.AuditDetails.LastModifiedTime >= since
}
