package models

// Household is the group a member belongs to. Only the fields the member
// pipeline depends on are modelled.
type Household struct {
	ID                string        `json:"id,omitempty"`
	ClientReferenceID string        `json:"clientReferenceId,omitempty"`
	TenantID          string        `json:"tenantId"`
	MemberCount       int           `json:"memberCount"`
	IsDeleted         bool          `json:"isDeleted"`
	RowVersion        int           `json:"rowVersion"`
	AuditDetails      *AuditDetails `json:"auditDetails,omitempty"`
}

func (h Household) GetID() string                { return h.ID }
func (h Household) GetClientReferenceID() string { return h.ClientReferenceID }
func (h Household) GetTenantID() string          { return h.TenantID }
func (h Household) GetRowVersion() int           { return h.RowVersion }
func (h Household) GetIsDeleted() bool           { return h.IsDeleted }
