// Package member persists household members.
package member

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"hcm/internal/household/models"
	"hcm/pkg/platform/sentinel"
	"hcm/pkg/platform/strings"
	"hcm/pkg/validation"
)

// InMemoryStore keeps members in a map guarded by a RWMutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	members map[string]models.HouseholdMember
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{members: make(map[string]models.HouseholdMember)}
}

func (s *InMemoryStore) FindByIDs(_ context.Context, tenantID string, ids []string, kind validation.IdentityKind, includeDeleted bool) ([]models.HouseholdMember, error) {
	want := strings.Set(ids)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.HouseholdMember
	for _, m := range s.members {
		if m.TenantID != tenantID || (!includeDeleted && m.IsDeleted) {
			continue
		}
		if _, ok := want[kind.Pick(m.ID, m.ClientReferenceID)]; ok {
			out = append(out, m.Clone())
		}
	}
	sortMembers(out)
	return out, nil
}

// FindByReferences returns the tenant's members matching any of ids or
// clientReferenceIDs.
func (s *InMemoryStore) FindByReferences(_ context.Context, tenantID string, ids, clientReferenceIDs []string, includeDeleted bool) ([]models.HouseholdMember, error) {
	byID, byCR := strings.Set(ids), strings.Set(clientReferenceIDs)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.HouseholdMember
	for _, m := range s.members {
		if m.TenantID != tenantID || (!includeDeleted && m.IsDeleted) {
			continue
		}
		_, idHit := byID[m.ID]
		_, crHit := byCR[m.ClientReferenceID]
		if idHit || (crHit && m.ClientReferenceID != "") {
			out = append(out, m.Clone())
		}
	}
	sortMembers(out)
	return out, nil
}

func (s *InMemoryStore) ExistingClientReferenceIDs(_ context.Context, tenantID string, ids []string, onlyActive bool) ([]string, error) {
	want := strings.Set(ids)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, m := range s.members {
		if m.TenantID != tenantID || (onlyActive && m.IsDeleted) {
			continue
		}
		if _, ok := want[m.ClientReferenceID]; ok {
			out = append(out, m.ClientReferenceID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *InMemoryStore) FindByIndividualIDs(_ context.Context, tenantID string, individualIDs []string) ([]models.HouseholdMember, error) {
	want := strings.Set(individualIDs)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.HouseholdMember
	for _, m := range s.members {
		if m.TenantID != tenantID || m.IsDeleted {
			continue
		}
		if _, ok := want[m.IndividualID]; ok {
			out = append(out, m.Clone())
		}
	}
	sortMembers(out)
	return out, nil
}

func (s *InMemoryStore) FindHeadsByHouseholdIDs(_ context.Context, tenantID string, householdIDs []string) ([]models.HouseholdMember, error) {
	want := strings.Set(householdIDs)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.HouseholdMember
	for _, m := range s.members {
		if m.TenantID != tenantID || m.IsDeleted || !m.IsHeadOfHousehold {
			continue
		}
		if _, ok := want[m.HouseholdID]; ok {
			out = append(out, m.Clone())
		}
	}
	sortMembers(out)
	return out, nil
}

func (s *InMemoryStore) Search(_ context.Context, req models.SearchRequest) ([]models.HouseholdMember, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []models.HouseholdMember
	for _, m := range s.members {
		if matches(m, req) {
			matched = append(matched, m.Clone())
		}
	}
	sortMembers(matched)
	total := len(matched)
	return page(matched, req.Offset, req.Limit), total, nil
}

// Create inserts every member or none. A clash on id or client reference id
// within the tenant is a conflict.
func (s *InMemoryStore) Create(_ context.Context, members []models.HouseholdMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range members {
		if _, ok := s.members[m.ID]; ok {
			return fmt.Errorf("create member %s: %w", m.ID, sentinel.ErrConflict)
		}
		if m.ClientReferenceID == "" {
			continue
		}
		for _, existing := range s.members {
			if existing.TenantID == m.TenantID && existing.ClientReferenceID == m.ClientReferenceID {
				return fmt.Errorf("create member %s: client reference id %s: %w", m.ID, m.ClientReferenceID, sentinel.ErrConflict)
			}
		}
	}
	for _, m := range members {
		s.members[m.ID] = m.Clone()
	}
	return nil
}

// UpdateIfVersion replaces the stored member only if its row version still
// equals expected and it is not deleted.
func (s *InMemoryStore) UpdateIfVersion(_ context.Context, m models.HouseholdMember, expected int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.members[m.ID]
	if !ok || stored.TenantID != m.TenantID || stored.IsDeleted {
		return fmt.Errorf("update member %s: %w", m.ID, sentinel.ErrNotFound)
	}
	if stored.RowVersion != expected {
		return fmt.Errorf("update member %s: row version %d, expected %d: %w", m.ID, stored.RowVersion, expected, sentinel.ErrConflict)
	}
	s.members[m.ID] = m.Clone()
	return nil
}

func matches(m models.HouseholdMember, req models.SearchRequest) bool {
	if m.TenantID != req.TenantID {
		return false
	}
	if !req.IncludeDeleted && m.IsDeleted {
		return false
	}
	if req.LastChangedSince > 0 && lastModified(m) < req.LastChangedSince {
		return false
	}
	f := req.HouseholdMember
	return in(f.ID, m.ID) &&
		in(f.ClientReferenceID, m.ClientReferenceID) &&
		in(f.HouseholdID, m.HouseholdID) &&
		in(f.HouseholdClientReferenceID, m.HouseholdClientReferenceID) &&
		in(f.IndividualID, m.IndividualID) &&
		in(f.IndividualClientReferenceID, m.IndividualClientReferenceID) &&
		(f.IsHeadOfHousehold == nil || *f.IsHeadOfHousehold == m.IsHeadOfHousehold)
}

func in(filter []string, v string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if f == v {
			return true
		}
	}
	return false
}

func lastModified(m models.HouseholdMember) int64 {
	if m.AuditDetails == nil {
		return 0
	}
	return m.AuditDetails.LastModifiedTime
}

func page(members []models.HouseholdMember, offset, limit int) []models.HouseholdMember {
	if offset >= len(members) {
		return []models.HouseholdMember{}
	}
	members = members[offset:]
	if limit > 0 && limit < len(members) {
		members = members[:limit]
	}
	return members
}

func sortMembers(members []models.HouseholdMember) {
	sort.Slice(members, func(i, j int) bool {
		return members[i].ID < members[j].ID
	})
}
