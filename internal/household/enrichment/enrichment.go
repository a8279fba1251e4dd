// Package enrichment prepares validated household members for persistence:
// server ids, audit stamps, row versions and keys propagated into
// relationships.
package enrichment

import (
	"github.com/google/uuid"

	"hcm/internal/household/models"
	"hcm/internal/household/validators"
	"hcm/pkg/validation"
)

// Enriched is a member ready to write. ExpectedRowVersion is the stored
// version the write must still find; zero for creates.
type Enriched struct {
	Index              int
	Member             models.HouseholdMember
	ExpectedRowVersion int
}

// Enricher stamps members that passed validation.
type Enricher struct {
	newID func() string
}

type Option func(*Enricher)

// WithIDGenerator replaces uuid.NewString as the id source.
func WithIDGenerator(fn func() string) Option {
	return func(e *Enricher) {
		e.newID = fn
	}
}

func New(opts ...Option) *Enricher {
	e := &Enricher{newID: uuid.NewString}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type stamp struct {
	user string
	at   int64
}

func stampOf(batch *validators.Batch) stamp {
	return stamp{user: batch.Context.UserID, at: batch.Context.Time.UnixMilli()}
}

func (s stamp) created() *models.AuditDetails {
	return &models.AuditDetails{CreatedBy: s.user, CreatedTime: s.at, LastModifiedBy: s.user, LastModifiedTime: s.at}
}

func (s stamp) modified(prev *models.AuditDetails) *models.AuditDetails {
	out := &models.AuditDetails{LastModifiedBy: s.user, LastModifiedTime: s.at}
	if prev != nil {
		out.CreatedBy = prev.CreatedBy
		out.CreatedTime = prev.CreatedTime
	}
	return out
}

// Create assigns ids and creation audit to every item. Relationships take
// their self keys and tenant from the member and resolve relatives named by
// client reference id from the batch first, then from the datastore.
func (e *Enricher) Create(batch *validators.Batch, items []validation.Item[models.HouseholdMember]) []Enriched {
	st := stampOf(batch)
	out := make([]Enriched, len(items))
	for i, it := range items {
		m := it.Entity.Clone()
		m.ID = e.newID()
		m.IsDeleted = false
		m.RowVersion = 1
		m.AuditDetails = st.created()
		applyResolutions(batch, it.Index, &m)
		out[i] = Enriched{Index: it.Index, Member: m}
	}

	byClientRef := clientRefIndex(out)
	for i := range out {
		m := &out[i].Member
		for j := range m.MemberRelationships {
			e.createRelationship(batch, out[i].Index, m, &m.MemberRelationships[j], byClientRef, st)
		}
	}
	return out
}

// Update stamps modification audit, keeps creation audit from the stored
// snapshot and increments row versions. Relationships without an id are
// created; the rest are bumped.
func (e *Enricher) Update(batch *validators.Batch, items []validation.Item[models.HouseholdMember]) []Enriched {
	st := stampOf(batch)
	out := make([]Enriched, len(items))
	for i, it := range items {
		m := it.Entity.Clone()
		stored, ok := batch.Existing(it.Index)
		if !ok {
			stored = it.Entity
		}
		m.RowVersion = stored.RowVersion + 1
		m.AuditDetails = st.modified(stored.AuditDetails)
		applyResolutions(batch, it.Index, &m)
		out[i] = Enriched{Index: it.Index, Member: m, ExpectedRowVersion: stored.RowVersion}
	}

	byClientRef := clientRefIndex(out)
	for i := range out {
		m := &out[i].Member
		stored, _ := batch.Existing(out[i].Index)
		prev := relationshipIndex(stored.MemberRelationships)
		for j := range m.MemberRelationships {
			r := &m.MemberRelationships[j]
			if r.ID == "" {
				e.createRelationship(batch, out[i].Index, m, r, byClientRef, st)
				continue
			}
			var prevAudit *models.AuditDetails
			rowVersion := r.RowVersion
			if p, ok := prev[r.ID]; ok {
				prevAudit = p.AuditDetails
				rowVersion = p.RowVersion
			}
			r.RowVersion = rowVersion + 1
			r.AuditDetails = st.modified(prevAudit)
			r.TenantID = m.TenantID
		}
	}
	return out
}

// Delete tombstones the stored member and every relationship it owns and
// increments their row versions.
func (e *Enricher) Delete(batch *validators.Batch, items []validation.Item[models.HouseholdMember]) []Enriched {
	st := stampOf(batch)
	out := make([]Enriched, len(items))
	for i, it := range items {
		base, ok := batch.Existing(it.Index)
		if !ok {
			base = it.Entity
		}
		m := base.Clone()
		expected := m.RowVersion
		m.IsDeleted = true
		m.RowVersion++
		m.AuditDetails = st.modified(base.AuditDetails)
		for j := range m.MemberRelationships {
			r := &m.MemberRelationships[j]
			r.IsDeleted = true
			r.RowVersion++
			r.AuditDetails = st.modified(r.AuditDetails)
		}
		out[i] = Enriched{Index: it.Index, Member: m, ExpectedRowVersion: expected}
	}
	return out
}

func (e *Enricher) createRelationship(batch *validators.Batch, index int, m *models.HouseholdMember, r *models.Relationship, byClientRef map[string]string, st stamp) {
	r.ID = e.newID()
	r.IsDeleted = false
	r.RowVersion = 1
	r.AuditDetails = st.created()
	r.SelfID = m.ID
	r.SelfClientReferenceID = m.ClientReferenceID
	r.TenantID = m.TenantID
	if r.RelativeID != "" || r.RelativeClientReferenceID == "" {
		return
	}
	if id, ok := byClientRef[r.RelativeClientReferenceID]; ok {
		r.RelativeID = id
		return
	}
	if res, ok := batch.Resolved(index, validators.ResolvedRelative(r.RelativeClientReferenceID)); ok {
		r.RelativeID = res.ID
	}
}

func applyResolutions(batch *validators.Batch, index int, m *models.HouseholdMember) {
	if r, ok := batch.Resolved(index, validators.ResolvedHousehold); ok {
		m.HouseholdID = r.ID
		m.HouseholdClientReferenceID = r.ClientReferenceID
	}
	if r, ok := batch.Resolved(index, validators.ResolvedIndividual); ok {
		m.IndividualID = r.ID
		if r.ClientReferenceID != "" {
			m.IndividualClientReferenceID = r.ClientReferenceID
		}
	}
}

func clientRefIndex(members []Enriched) map[string]string {
	out := make(map[string]string, len(members))
	for _, e := range members {
		if cr := e.Member.ClientReferenceID; cr != "" {
			out[cr] = e.Member.ID
		}
	}
	return out
}

func relationshipIndex(rels []models.Relationship) map[string]models.Relationship {
	out := make(map[string]models.Relationship, len(rels))
	for _, r := range rels {
		out[r.ID] = r
	}
	return out
}
