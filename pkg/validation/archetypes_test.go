package validation

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/suite"

	"hcm/pkg/platform/strings"
)

type fakeStore struct {
	rows  []record
	calls []string
	err   error
}

func (f *fakeStore) find(_ context.Context, tenant string, ids []string, kind IdentityKind, includeDeleted bool) ([]record, error) {
	f.calls = append(f.calls, tenant+"/"+kind.Column())
	if f.err != nil {
		return nil, f.err
	}
	want := strings.Set(ids)
	var out []record
	for _, r := range f.rows {
		if r.TenantID != tenant || (!includeDeleted && r.IsDeleted) {
			continue
		}
		if _, ok := want[kind.Pick(r.ID, r.ClientReferenceID)]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) existing(_ context.Context, tenant string, crIDs []string, _ bool) ([]string, error) {
	f.calls = append(f.calls, tenant)
	if f.err != nil {
		return nil, f.err
	}
	want := strings.Set(crIDs)
	var out []string
	for _, r := range f.rows {
		if _, ok := want[r.ClientReferenceID]; ok && r.TenantID == tenant {
			out = append(out, r.ClientReferenceID)
		}
	}
	return out, nil
}

type ArchetypesSuite struct {
	suite.Suite
	ctx   context.Context
	store *fakeStore
}

func TestArchetypesSuite(t *testing.T) {
	suite.Run(t, new(ArchetypesSuite))
}

func (s *ArchetypesSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = &fakeStore{rows: []record{
		{ID: "m1", ClientReferenceID: "c1", TenantID: "t1", RowVersion: 1},
		{ID: "m2", ClientReferenceID: "c2", TenantID: "t1", RowVersion: 3},
		{ID: "m3", ClientReferenceID: "c3", TenantID: "t2", RowVersion: 1},
		{ID: "m4", ClientReferenceID: "c4", TenantID: "t1", RowVersion: 1, IsDeleted: true},
	}}
}

func (s *ArchetypesSuite) run(v Validator[record], entities ...record) (ErrorMap, *Batch[record]) {
	batch := NewBatch(RequestContext{}, entities)
	found, err := v.Validate(s.ctx, batch)
	s.Require().NoError(err)
	return found, batch
}

func (s *ArchetypesSuite) TestNullID() {
	found, _ := s.run(NullIDValidator[record](), record{ID: "m1"}, record{ClientReferenceID: "c9"})
	s.Equal([]int{1}, found.Indexes())
	s.Equal([]string{CodeNullID}, found.Codes(1))
}

func (s *ArchetypesSuite) TestIsDeleted() {
	found, _ := s.run(IsDeletedValidator[record](), record{ID: "m1"}, record{ID: "m2", IsDeleted: true})
	s.Equal([]string{CodeIsDeletedTrue}, found.Codes(1))
	s.False(found.Has(0))
}

func (s *ArchetypesSuite) TestUniqueEntity() {
	s.Run("in-batch duplicates flag every occurrence", func() {
		found, _ := s.run(UniqueEntityValidator[record](s.store.existing),
			record{ClientReferenceID: "x", TenantID: "t1"},
			record{ClientReferenceID: "x", TenantID: "t1"},
			record{ClientReferenceID: "y", TenantID: "t1"},
		)
		s.Equal([]int{0, 1}, found.Indexes())
		s.Equal([]string{CodeDuplicateEntity}, found.Codes(0))
		s.Equal([]string{CodeDuplicateEntity}, found.Codes(1))
	})

	s.Run("stored ids are flagged per tenant", func() {
		s.store.calls = nil
		found, _ := s.run(UniqueEntityValidator[record](s.store.existing),
			record{ClientReferenceID: "c1", TenantID: "t1"},
			record{ClientReferenceID: "c3", TenantID: "t1"},
			record{ClientReferenceID: "c3", TenantID: "t2"},
		)
		s.Equal([]int{0, 2}, found.Indexes())
		s.Equal([]string{"t1", "t2"}, s.store.calls)
	})

	s.Run("no candidates issues no lookup", func() {
		s.store.calls = nil
		found, _ := s.run(UniqueEntityValidator[record](s.store.existing), record{TenantID: "t1"})
		s.Equal(0, found.Count())
		s.Empty(s.store.calls)
	})
}

func (s *ArchetypesSuite) TestNonExistentEntity() {
	s.Run("one lookup per tenant and kind", func() {
		s.store.calls = nil
		found, batch := s.run(NonExistentEntityValidator[record](s.store.find),
			record{ID: "m1", TenantID: "t1"},
			record{ID: "m2", TenantID: "t1"},
			record{ClientReferenceID: "c3", TenantID: "t2"},
			record{ID: "missing", TenantID: "t1"},
		)
		s.Equal([]int{3}, found.Indexes())
		s.Equal([]string{CodeNonExistentEntity}, found.Codes(3))

		calls := append([]string(nil), s.store.calls...)
		sort.Strings(calls)
		s.Equal([]string{"t1/id", "t2/clientReferenceId"}, calls)

		stored, ok := batch.Existing(1)
		s.Require().True(ok)
		s.Equal(3, stored.RowVersion)
	})

	s.Run("null reference is non existent", func() {
		found, _ := s.run(NonExistentEntityValidator[record](s.store.find), record{TenantID: "t1"})
		s.Equal([]string{CodeNonExistentEntity}, found.Codes(0))
	})

	s.Run("tombstones count as missing", func() {
		found, _ := s.run(NonExistentEntityValidator[record](s.store.find), record{ID: "m4", TenantID: "t1"})
		s.True(found.Has(0))
	})

	s.Run("store failure aborts", func() {
		s.store.err = errors.New("connection refused")
		defer func() { s.store.err = nil }()
		_, err := NonExistentEntityValidator[record](s.store.find).
			Validate(s.ctx, NewBatch(RequestContext{}, []record{{ID: "m1", TenantID: "t1"}}))
		s.Error(err)
	})
}

func (s *ArchetypesSuite) TestRowVersion() {
	s.Run("uses recorded snapshots", func() {
		s.store.calls = nil
		batch := NewBatch(RequestContext{}, []record{{ID: "m2", TenantID: "t1", RowVersion: 2}})
		batch.SetExisting(0, record{ID: "m2", TenantID: "t1", RowVersion: 3})

		found, err := RowVersionValidator[record](s.store.find).Validate(s.ctx, batch)
		s.Require().NoError(err)
		s.Equal([]string{CodeRowVersionMismatch}, found.Codes(0))
		s.Empty(s.store.calls)
	})

	s.Run("loads missing snapshots", func() {
		found, _ := s.run(RowVersionValidator[record](s.store.find),
			record{ID: "m1", TenantID: "t1", RowVersion: 1},
			record{ID: "m2", TenantID: "t1", RowVersion: 1},
		)
		s.Equal([]int{1}, found.Indexes())
	})
}

func (s *ArchetypesSuite) TestOrderingInvariance() {
	// a duplicated entity appears in the aggregate map regardless of where
	// the uniqueness check runs relative to an unrelated validator.
	entities := []record{
		{ClientReferenceID: "dup", TenantID: "t1"},
		{ClientReferenceID: "dup", TenantID: "t1"},
	}
	first := NewChain[record]("a").
		Register(1, "unique", UniqueEntityValidator[record](s.store.existing)).
		Register(2, "is-deleted", IsDeletedValidator[record]())
	second := NewChain[record]("b").
		Register(1, "is-deleted", IsDeletedValidator[record]()).
		Register(2, "unique", UniqueEntityValidator[record](s.store.existing))

	a, err := first.Run(s.ctx, NewBatch(RequestContext{}, entities))
	s.Require().NoError(err)
	b, err := second.Run(s.ctx, NewBatch(RequestContext{}, entities))
	s.Require().NoError(err)
	s.Equal(a.Indexes(), b.Indexes())
}
