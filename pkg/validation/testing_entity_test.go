package validation

type record struct {
	ID                string
	ClientReferenceID string
	TenantID          string
	RowVersion        int
	IsDeleted         bool
}

func (r record) GetID() string                { return r.ID }
func (r record) GetClientReferenceID() string { return r.ClientReferenceID }
func (r record) GetTenantID() string          { return r.TenantID }
func (r record) GetRowVersion() int           { return r.RowVersion }
func (r record) GetIsDeleted() bool           { return r.IsDeleted }
