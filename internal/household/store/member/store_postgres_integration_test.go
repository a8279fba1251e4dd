//go:build integration

package member_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"hcm/internal/household/models"
	"hcm/internal/household/store/member"
	"hcm/pkg/platform/sentinel"
	"hcm/pkg/platform/tx"
	"hcm/pkg/testutil/containers"
	"hcm/pkg/validation"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *member.PostgresStore
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = member.NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "household_member"))
	s.Require().NoError(s.store.Create(s.ctx, []models.HouseholdMember{
		newMember("m1", "c1", "t1", "h1", "i1", true),
		newMember("m2", "c2", "t1", "h1", "i2", false),
		newMember("m3", "c3", "t2", "h2", "i3", true),
	}))
}

func (s *PostgresStoreSuite) TestRoundTripsJSONColumns() {
	m := newMember("m9", "c9", "t1", "h1", "i9", false)
	m.MemberRelationships = []models.Relationship{{ID: "r1", SelfID: "m9", RelativeID: "m1", RelationshipType: "CHILD", RowVersion: 1}}
	m.AdditionalFields = &models.AdditionalFields{Schema: "member", Version: 1, Fields: []models.Field{{Key: "k", Value: "v"}}}
	s.Require().NoError(s.store.Create(s.ctx, []models.HouseholdMember{m}))

	got, err := s.store.FindByIDs(s.ctx, "t1", []string{"c9"}, validation.ByClientReferenceID, false)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(m.MemberRelationships, got[0].MemberRelationships)
	s.Equal(m.AdditionalFields, got[0].AdditionalFields)
	s.Equal(m.AuditDetails, got[0].AuditDetails)
}

func (s *PostgresStoreSuite) TestFindByReferences() {
	got, err := s.store.FindByReferences(s.ctx, "t1", []string{"m1", "m3"}, []string{"c2", "c3"}, false)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("m1", got[0].ID)
	s.Equal("m2", got[1].ID)
}

func (s *PostgresStoreSuite) TestLookups() {
	existing, err := s.store.ExistingClientReferenceIDs(s.ctx, "t1", []string{"c1", "c3", "zz"}, true)
	s.Require().NoError(err)
	s.Equal([]string{"c1"}, existing)

	byIndividual, err := s.store.FindByIndividualIDs(s.ctx, "t1", []string{"i2"})
	s.Require().NoError(err)
	s.Equal([]string{"m2"}, ids(byIndividual))

	heads, err := s.store.FindHeadsByHouseholdIDs(s.ctx, "t1", []string{"h1"})
	s.Require().NoError(err)
	s.Equal([]string{"m1"}, ids(heads))
}

func (s *PostgresStoreSuite) TestSearch() {
	head := true
	got, total, err := s.store.Search(s.ctx, models.SearchRequest{
		TenantID:        "t1",
		HouseholdMember: models.Search{HouseholdID: []string{"h1"}, IsHeadOfHousehold: &head},
		Limit:           10,
	})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal([]string{"m1"}, ids(got))
}

func (s *PostgresStoreSuite) TestCreateDuplicateClientReference() {
	err := s.store.Create(s.ctx, []models.HouseholdMember{newMember("m8", "c1", "t1", "h1", "i8", false)})
	s.True(errors.Is(err, sentinel.ErrConflict))
}

func (s *PostgresStoreSuite) TestCreateRollsBackInTx() {
	runner := tx.NewSQLRunner(s.postgres.DB, 0)
	err := runner.RunInTx(s.ctx, func(ctx context.Context) error {
		return s.store.Create(ctx, []models.HouseholdMember{
			newMember("m7", "c7", "t1", "h1", "i7", false),
			newMember("m1", "c70", "t1", "h1", "i70", false),
		})
	})
	s.Error(err)
	got, err := s.store.FindByIDs(s.ctx, "t1", []string{"m7"}, validation.ByID, true)
	s.Require().NoError(err)
	s.Empty(got)
}

// Concurrent writers with the same expected row version: exactly one wins.
func (s *PostgresStoreSuite) TestConcurrentUpdateIfVersion() {
	const writers = 20
	var wg sync.WaitGroup
	var wins, conflicts atomic.Int32
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := newMember("m2", "c2", "t1", "h1", "i2", false)
			m.RowVersion = 2
			err := s.store.UpdateIfVersion(s.ctx, m, 1)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins.Load())
	s.Equal(int32(writers-1), conflicts.Load())
}

func (s *PostgresStoreSuite) TestUpdateMissing() {
	err := s.store.UpdateIfVersion(s.ctx, newMember("nope", "", "t1", "h1", "i1", false), 1)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}
