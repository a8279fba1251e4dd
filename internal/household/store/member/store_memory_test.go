package member_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"hcm/internal/household/models"
	"hcm/internal/household/store/member"
	"hcm/pkg/platform/sentinel"
	"hcm/pkg/validation"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *member.InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = member.NewInMemory()
	s.ctx = context.Background()
	s.Require().NoError(s.store.Create(s.ctx, []models.HouseholdMember{
		newMember("m1", "c1", "t1", "h1", "i1", true),
		newMember("m2", "c2", "t1", "h1", "i2", false),
		newMember("m3", "c3", "t2", "h2", "i3", true),
	}))
	deleted := newMember("m4", "c4", "t1", "h1", "i4", false)
	deleted.IsDeleted = true
	s.Require().NoError(s.store.Create(s.ctx, []models.HouseholdMember{deleted}))
}

func newMember(id, crID, tenant, household, individual string, head bool) models.HouseholdMember {
	return models.HouseholdMember{
		ID:                id,
		ClientReferenceID: crID,
		TenantID:          tenant,
		HouseholdID:       household,
		IndividualID:      individual,
		IsHeadOfHousehold: head,
		RowVersion:        1,
		AuditDetails:      &models.AuditDetails{CreatedBy: "u", CreatedTime: 100, LastModifiedBy: "u", LastModifiedTime: 100},
	}
}

func ids(members []models.HouseholdMember) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.ID
	}
	return out
}

func (s *InMemoryStoreSuite) TestFindByIDs() {
	s.Run("by id within tenant", func() {
		got, err := s.store.FindByIDs(s.ctx, "t1", []string{"m1", "m3"}, validation.ByID, false)
		s.Require().NoError(err)
		s.Equal([]string{"m1"}, ids(got))
	})

	s.Run("by client reference id", func() {
		got, err := s.store.FindByIDs(s.ctx, "t1", []string{"c2"}, validation.ByClientReferenceID, false)
		s.Require().NoError(err)
		s.Equal([]string{"m2"}, ids(got))
	})

	s.Run("deleted only when requested", func() {
		got, err := s.store.FindByIDs(s.ctx, "t1", []string{"m4"}, validation.ByID, false)
		s.Require().NoError(err)
		s.Empty(got)

		got, err = s.store.FindByIDs(s.ctx, "t1", []string{"m4"}, validation.ByID, true)
		s.Require().NoError(err)
		s.Equal([]string{"m4"}, ids(got))
	})
}

func (s *InMemoryStoreSuite) TestFindByReferences() {
	got, err := s.store.FindByReferences(s.ctx, "t1", []string{"m1", "m3"}, []string{"c2", "m1"}, false)
	s.Require().NoError(err)
	s.Equal([]string{"m1", "m2"}, ids(got))

	got, err = s.store.FindByReferences(s.ctx, "t1", nil, []string{"c4"}, false)
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *InMemoryStoreSuite) TestExistingClientReferenceIDs() {
	got, err := s.store.ExistingClientReferenceIDs(s.ctx, "t1", []string{"c1", "c4", "nope"}, false)
	s.Require().NoError(err)
	s.Equal([]string{"c1", "c4"}, got)

	got, err = s.store.ExistingClientReferenceIDs(s.ctx, "t1", []string{"c1", "c4"}, true)
	s.Require().NoError(err)
	s.Equal([]string{"c1"}, got)
}

func (s *InMemoryStoreSuite) TestFindByIndividualAndHeads() {
	got, err := s.store.FindByIndividualIDs(s.ctx, "t1", []string{"i2", "i3", "i4"})
	s.Require().NoError(err)
	s.Equal([]string{"m2"}, ids(got))

	heads, err := s.store.FindHeadsByHouseholdIDs(s.ctx, "t1", []string{"h1"})
	s.Require().NoError(err)
	s.Equal([]string{"m1"}, ids(heads))
}

func (s *InMemoryStoreSuite) TestSearch() {
	s.Run("filters and pages", func() {
		got, total, err := s.store.Search(s.ctx, models.SearchRequest{
			TenantID:        "t1",
			HouseholdMember: models.Search{HouseholdID: []string{"h1"}},
			Limit:           1,
			Offset:          1,
		})
		s.Require().NoError(err)
		s.Equal(2, total)
		s.Equal([]string{"m2"}, ids(got))
	})

	s.Run("include deleted", func() {
		_, total, err := s.store.Search(s.ctx, models.SearchRequest{
			TenantID:        "t1",
			HouseholdMember: models.Search{HouseholdID: []string{"h1"}},
			IncludeDeleted:  true,
		})
		s.Require().NoError(err)
		s.Equal(3, total)
	})

	s.Run("last changed since", func() {
		got, _, err := s.store.Search(s.ctx, models.SearchRequest{TenantID: "t1", LastChangedSince: 101})
		s.Require().NoError(err)
		s.Empty(got)
	})

	s.Run("offset past end", func() {
		got, total, err := s.store.Search(s.ctx, models.SearchRequest{TenantID: "t1", Offset: 10})
		s.Require().NoError(err)
		s.Equal(2, total)
		s.NotNil(got)
		s.Empty(got)
	})
}

func (s *InMemoryStoreSuite) TestCreateConflicts() {
	s.Run("duplicate id", func() {
		err := s.store.Create(s.ctx, []models.HouseholdMember{newMember("m1", "new", "t1", "h1", "i9", false)})
		s.True(errors.Is(err, sentinel.ErrConflict))
	})

	s.Run("duplicate client reference id within tenant", func() {
		err := s.store.Create(s.ctx, []models.HouseholdMember{newMember("m9", "c1", "t1", "h1", "i9", false)})
		s.True(errors.Is(err, sentinel.ErrConflict))
	})

	s.Run("same client reference id in another tenant", func() {
		err := s.store.Create(s.ctx, []models.HouseholdMember{newMember("m9", "c1", "t3", "h1", "i9", false)})
		s.NoError(err)
	})

	s.Run("nothing written when one member conflicts", func() {
		err := s.store.Create(s.ctx, []models.HouseholdMember{
			newMember("m10", "c10", "t1", "h1", "i10", false),
			newMember("m1", "c11", "t1", "h1", "i11", false),
		})
		s.Error(err)
		got, err := s.store.FindByIDs(s.ctx, "t1", []string{"m10"}, validation.ByID, true)
		s.Require().NoError(err)
		s.Empty(got)
	})
}

func (s *InMemoryStoreSuite) TestUpdateIfVersion() {
	s.Run("matching version", func() {
		m := newMember("m2", "c2", "t1", "h1", "i2", false)
		m.RowVersion = 2
		s.Require().NoError(s.store.UpdateIfVersion(s.ctx, m, 1))

		got, err := s.store.FindByIDs(s.ctx, "t1", []string{"m2"}, validation.ByID, false)
		s.Require().NoError(err)
		s.Equal(2, got[0].RowVersion)
	})

	s.Run("stale version", func() {
		m := newMember("m1", "c1", "t1", "h1", "i1", true)
		m.RowVersion = 3
		err := s.store.UpdateIfVersion(s.ctx, m, 2)
		s.True(errors.Is(err, sentinel.ErrConflict))
	})

	s.Run("deleted row", func() {
		m := newMember("m4", "c4", "t1", "h1", "i4", false)
		err := s.store.UpdateIfVersion(s.ctx, m, 1)
		s.True(errors.Is(err, sentinel.ErrNotFound))
	})

	s.Run("wrong tenant", func() {
		m := newMember("m3", "c3", "t1", "h2", "i3", true)
		err := s.store.UpdateIfVersion(s.ctx, m, 1)
		s.True(errors.Is(err, sentinel.ErrNotFound))
	})
}

func (s *InMemoryStoreSuite) TestReturnsCopies() {
	m := newMember("m20", "c20", "t1", "h1", "i20", false)
	m.MemberRelationships = []models.Relationship{{ID: "r1", RelationshipType: "SPOUSE"}}
	s.Require().NoError(s.store.Create(s.ctx, []models.HouseholdMember{m}))
	m.MemberRelationships[0].RelationshipType = "CHANGED"

	got, err := s.store.FindByIDs(s.ctx, "t1", []string{"m20"}, validation.ByID, false)
	s.Require().NoError(err)
	s.Equal("SPOUSE", got[0].MemberRelationships[0].RelationshipType)
}
