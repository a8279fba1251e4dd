// Package household persists the households members belong to.
package household

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"hcm/internal/household/models"
	"hcm/pkg/platform/sentinel"
	"hcm/pkg/platform/strings"
)

// InMemoryStore keeps households in a map guarded by a RWMutex.
type InMemoryStore struct {
	mu         sync.RWMutex
	households map[string]models.Household
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{households: make(map[string]models.Household)}
}

// FindByReferences returns the tenant's households matching any of ids or
// clientReferenceIDs.
func (s *InMemoryStore) FindByReferences(_ context.Context, tenantID string, ids, clientReferenceIDs []string, includeDeleted bool) ([]models.Household, error) {
	byID, byCR := strings.Set(ids), strings.Set(clientReferenceIDs)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Household
	for _, h := range s.households {
		if h.TenantID != tenantID || (!includeDeleted && h.IsDeleted) {
			continue
		}
		_, idHit := byID[h.ID]
		_, crHit := byCR[h.ClientReferenceID]
		if idHit || (crHit && h.ClientReferenceID != "") {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Save inserts or replaces a household. A client reference id already taken
// by another household in the tenant is a conflict.
func (s *InMemoryStore) Save(_ context.Context, h models.Household) error {
	if h.ID == "" {
		return fmt.Errorf("save household: missing id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.ClientReferenceID != "" {
		for _, existing := range s.households {
			if existing.ID != h.ID && existing.TenantID == h.TenantID && existing.ClientReferenceID == h.ClientReferenceID {
				return fmt.Errorf("save household %s: %w", h.ID, sentinel.ErrConflict)
			}
		}
	}
	if h.AuditDetails != nil {
		ad := *h.AuditDetails
		h.AuditDetails = &ad
	}
	s.households[h.ID] = h
	return nil
}
