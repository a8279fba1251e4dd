// Package models holds the household member domain types and request
// envelopes.
package models

// AuditDetails records who touched a record and when, as epoch milliseconds.
type AuditDetails struct {
	CreatedBy        string `json:"createdBy,omitempty"`
	CreatedTime      int64  `json:"createdTime,omitempty"`
	LastModifiedBy   string `json:"lastModifiedBy,omitempty"`
	LastModifiedTime int64  `json:"lastModifiedTime,omitempty"`
}

// Field is one key/value pair of AdditionalFields.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// AdditionalFields carries schema-versioned extension data.
type AdditionalFields struct {
	Schema  string  `json:"schema,omitempty"`
	Version int     `json:"version,omitempty"`
	Fields  []Field `json:"fields,omitempty"`
}

// HouseholdMember links an individual to a household.
type HouseholdMember struct {
	ID                          string            `json:"id,omitempty"`
	ClientReferenceID           string            `json:"clientReferenceId,omitempty"`
	TenantID                    string            `json:"tenantId"`
	HouseholdID                 string            `json:"householdId,omitempty"`
	HouseholdClientReferenceID  string            `json:"householdClientReferenceId,omitempty"`
	IndividualID                string            `json:"individualId,omitempty"`
	IndividualClientReferenceID string            `json:"individualClientReferenceId,omitempty"`
	IsHeadOfHousehold           bool              `json:"isHeadOfHousehold"`
	MemberRelationships         []Relationship    `json:"memberRelationships,omitempty"`
	AdditionalFields            *AdditionalFields `json:"additionalFields,omitempty"`
	IsDeleted                   bool              `json:"isDeleted"`
	RowVersion                  int               `json:"rowVersion"`
	AuditDetails                *AuditDetails     `json:"auditDetails,omitempty"`
	ClientAuditDetails          *AuditDetails     `json:"clientAuditDetails,omitempty"`
}

func (m HouseholdMember) GetID() string                { return m.ID }
func (m HouseholdMember) GetClientReferenceID() string { return m.ClientReferenceID }
func (m HouseholdMember) GetTenantID() string          { return m.TenantID }
func (m HouseholdMember) GetRowVersion() int           { return m.RowVersion }
func (m HouseholdMember) GetIsDeleted() bool           { return m.IsDeleted }

// HouseholdKey returns the household reference, server id first.
func (m HouseholdMember) HouseholdKey() string {
	if m.HouseholdID != "" {
		return m.HouseholdID
	}
	return m.HouseholdClientReferenceID
}

// IndividualKey returns the individual reference, server id first.
func (m HouseholdMember) IndividualKey() string {
	if m.IndividualID != "" {
		return m.IndividualID
	}
	return m.IndividualClientReferenceID
}

// Relationship is a sub-entity describing how a member relates to another
// member of the same household.
type Relationship struct {
	ID                        string        `json:"id,omitempty"`
	ClientReferenceID         string        `json:"clientReferenceId,omitempty"`
	TenantID                  string        `json:"tenantId,omitempty"`
	SelfID                    string        `json:"selfId,omitempty"`
	SelfClientReferenceID     string        `json:"selfClientReferenceId,omitempty"`
	RelativeID                string        `json:"relativeId,omitempty"`
	RelativeClientReferenceID string        `json:"relativeClientReferenceId,omitempty"`
	RelationshipType          string        `json:"relationshipType,omitempty"`
	IsDeleted                 bool          `json:"isDeleted"`
	RowVersion                int           `json:"rowVersion"`
	AuditDetails              *AuditDetails `json:"auditDetails,omitempty"`
}

func (r Relationship) GetID() string                { return r.ID }
func (r Relationship) GetClientReferenceID() string { return r.ClientReferenceID }
func (r Relationship) GetTenantID() string          { return r.TenantID }
func (r Relationship) GetRowVersion() int           { return r.RowVersion }
func (r Relationship) GetIsDeleted() bool           { return r.IsDeleted }

// RelativeKey returns the relative reference, server id first.
func (r Relationship) RelativeKey() string {
	if r.RelativeID != "" {
		return r.RelativeID
	}
	return r.RelativeClientReferenceID
}

// Clone returns a deep copy so enrichment never aliases request data.
func (m HouseholdMember) Clone() HouseholdMember {
	out := m
	if m.MemberRelationships != nil {
		out.MemberRelationships = make([]Relationship, len(m.MemberRelationships))
		for i, r := range m.MemberRelationships {
			if r.AuditDetails != nil {
				ad := *r.AuditDetails
				r.AuditDetails = &ad
			}
			out.MemberRelationships[i] = r
		}
	}
	if m.AdditionalFields != nil {
		af := *m.AdditionalFields
		af.Fields = append([]Field(nil), m.AdditionalFields.Fields...)
		out.AdditionalFields = &af
	}
	if m.AuditDetails != nil {
		ad := *m.AuditDetails
		out.AuditDetails = &ad
	}
	if m.ClientAuditDetails != nil {
		ad := *m.ClientAuditDetails
		out.ClientAuditDetails = &ad
	}
	return out
}
