package member

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"hcm/internal/household/models"
	"hcm/pkg/platform/sentinel"
	"hcm/pkg/platform/tx"
	"hcm/pkg/validation"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const memberColumns = `id, client_reference_id, tenant_id, household_id, household_client_reference_id,
	individual_id, individual_client_reference_id, is_head_of_household, relationships,
	additional_fields, client_audit_details, is_deleted, row_version,
	created_by, created_time, last_modified_by, last_modified_time`

// PostgresStore persists members in PostgreSQL. Relationships, additional
// fields and client audit details are stored as JSONB on the member row.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed member store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByIDs(ctx context.Context, tenantID string, ids []string, kind validation.IdentityKind, includeDeleted bool) ([]models.HouseholdMember, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + memberColumns + ` FROM household_member
		WHERE tenant_id = $1 AND ` + identityColumn(kind) + ` = ANY($2::text[])`
	if !includeDeleted {
		query += ` AND NOT is_deleted`
	}
	query += ` ORDER BY id`
	members, err := s.query(ctx, query, tenantID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("find members by %s: %w", kind, err)
	}
	return members, nil
}

func (s *PostgresStore) FindByReferences(ctx context.Context, tenantID string, ids, clientReferenceIDs []string, includeDeleted bool) ([]models.HouseholdMember, error) {
	if len(ids) == 0 && len(clientReferenceIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + memberColumns + ` FROM household_member
		WHERE tenant_id = $1 AND (id = ANY($2::text[]) OR client_reference_id = ANY($3::text[]))`
	if !includeDeleted {
		query += ` AND NOT is_deleted`
	}
	query += ` ORDER BY id`
	members, err := s.query(ctx, query, tenantID, pq.Array(ids), pq.Array(clientReferenceIDs))
	if err != nil {
		return nil, fmt.Errorf("find members by reference: %w", err)
	}
	return members, nil
}

func (s *PostgresStore) ExistingClientReferenceIDs(ctx context.Context, tenantID string, ids []string, onlyActive bool) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT client_reference_id FROM household_member
		WHERE tenant_id = $1 AND client_reference_id = ANY($2::text[])`
	if onlyActive {
		query += ` AND NOT is_deleted`
	}
	query += ` ORDER BY client_reference_id`
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, tenantID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("find existing client reference ids: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan client reference id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate client reference ids: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) FindByIndividualIDs(ctx context.Context, tenantID string, individualIDs []string) ([]models.HouseholdMember, error) {
	if len(individualIDs) == 0 {
		return nil, nil
	}
	members, err := s.query(ctx, `SELECT `+memberColumns+` FROM household_member
		WHERE tenant_id = $1 AND individual_id = ANY($2::text[]) AND NOT is_deleted
		ORDER BY id`, tenantID, pq.Array(individualIDs))
	if err != nil {
		return nil, fmt.Errorf("find members by individual: %w", err)
	}
	return members, nil
}

func (s *PostgresStore) FindHeadsByHouseholdIDs(ctx context.Context, tenantID string, householdIDs []string) ([]models.HouseholdMember, error) {
	if len(householdIDs) == 0 {
		return nil, nil
	}
	members, err := s.query(ctx, `SELECT `+memberColumns+` FROM household_member
		WHERE tenant_id = $1 AND household_id = ANY($2::text[]) AND is_head_of_household AND NOT is_deleted
		ORDER BY id`, tenantID, pq.Array(householdIDs))
	if err != nil {
		return nil, fmt.Errorf("find household heads: %w", err)
	}
	return members, nil
}

func (s *PostgresStore) Search(ctx context.Context, req models.SearchRequest) ([]models.HouseholdMember, int, error) {
	where, args := searchClause(req)
	var total int
	if err := tx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT count(*) FROM household_member WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count members: %w", err)
	}
	query := `SELECT ` + memberColumns + ` FROM household_member WHERE ` + where + ` ORDER BY id`
	if req.Limit > 0 {
		args = append(args, req.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if req.Offset > 0 {
		args = append(args, req.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}
	members, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search members: %w", err)
	}
	if members == nil {
		members = []models.HouseholdMember{}
	}
	return members, total, nil
}

// Create inserts members using the transaction in ctx when present.
func (s *PostgresStore) Create(ctx context.Context, members []models.HouseholdMember) error {
	exec := tx.Exec(ctx, s.db)
	for _, m := range members {
		r, err := toRow(m)
		if err != nil {
			return err
		}
		_, err = exec.ExecContext(ctx, `INSERT INTO household_member (`+memberColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
			m.ID, m.ClientReferenceID, m.TenantID, m.HouseholdID, m.HouseholdClientReferenceID,
			m.IndividualID, m.IndividualClientReferenceID, m.IsHeadOfHousehold, r.relationships,
			r.additionalFields, r.clientAudit, m.IsDeleted, m.RowVersion,
			r.audit.CreatedBy, r.audit.CreatedTime, r.audit.LastModifiedBy, r.audit.LastModifiedTime)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("create member %s: %w", m.ID, sentinel.ErrConflict)
			}
			return fmt.Errorf("create member %s: %w", m.ID, err)
		}
	}
	return nil
}

// UpdateIfVersion writes m only if the stored row version still equals
// expected. The compare and the write happen in one statement.
func (s *PostgresStore) UpdateIfVersion(ctx context.Context, m models.HouseholdMember, expected int) error {
	r, err := toRow(m)
	if err != nil {
		return err
	}
	exec := tx.Exec(ctx, s.db)
	res, err := exec.ExecContext(ctx, `UPDATE household_member SET
			household_id = $3, household_client_reference_id = $4,
			individual_id = $5, individual_client_reference_id = $6,
			is_head_of_household = $7, relationships = $8, additional_fields = $9,
			client_audit_details = $10, is_deleted = $11, row_version = $12,
			last_modified_by = $13, last_modified_time = $14
		WHERE id = $1 AND tenant_id = $2 AND row_version = $15 AND NOT is_deleted`,
		m.ID, m.TenantID, m.HouseholdID, m.HouseholdClientReferenceID,
		m.IndividualID, m.IndividualClientReferenceID, m.IsHeadOfHousehold,
		r.relationships, r.additionalFields, r.clientAudit, m.IsDeleted, m.RowVersion,
		r.audit.LastModifiedBy, r.audit.LastModifiedTime, expected)
	if err != nil {
		return fmt.Errorf("update member %s: %w", m.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update member %s: rows affected: %w", m.ID, err)
	}
	if n == 1 {
		return nil
	}
	var stored int
	err = exec.QueryRowContext(ctx, `SELECT row_version FROM household_member
		WHERE id = $1 AND tenant_id = $2 AND NOT is_deleted`, m.ID, m.TenantID).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update member %s: %w", m.ID, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update member %s: read row version: %w", m.ID, err)
	}
	return fmt.Errorf("update member %s: row version %d, expected %d: %w", m.ID, stored, expected, sentinel.ErrConflict)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]models.HouseholdMember, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.HouseholdMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return out, nil
}

func searchClause(req models.SearchRequest) (string, []any) {
	args := []any{req.TenantID}
	conds := []string{"tenant_id = $1"}
	add := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		args = append(args, pq.Array(values))
		conds = append(conds, fmt.Sprintf("%s = ANY($%d::text[])", column, len(args)))
	}
	f := req.HouseholdMember
	add("id", f.ID)
	add("client_reference_id", f.ClientReferenceID)
	add("household_id", f.HouseholdID)
	add("household_client_reference_id", f.HouseholdClientReferenceID)
	add("individual_id", f.IndividualID)
	add("individual_client_reference_id", f.IndividualClientReferenceID)
	if f.IsHeadOfHousehold != nil {
		args = append(args, *f.IsHeadOfHousehold)
		conds = append(conds, fmt.Sprintf("is_head_of_household = $%d", len(args)))
	}
	if req.LastChangedSince > 0 {
		args = append(args, req.LastChangedSince)
		conds = append(conds, fmt.Sprintf("last_modified_time >= $%d", len(args)))
	}
	if !req.IncludeDeleted {
		conds = append(conds, "NOT is_deleted")
	}
	return strings.Join(conds, " AND "), args
}

func identityColumn(kind validation.IdentityKind) string {
	if kind == validation.ByClientReferenceID {
		return "client_reference_id"
	}
	return "id"
}

type row struct {
	relationships    []byte
	additionalFields []byte
	clientAudit      []byte
	audit            models.AuditDetails
}

func toRow(m models.HouseholdMember) (row, error) {
	var r row
	rels := m.MemberRelationships
	if rels == nil {
		rels = []models.Relationship{}
	}
	var err error
	if r.relationships, err = json.Marshal(rels); err != nil {
		return row{}, fmt.Errorf("marshal relationships: %w", err)
	}
	if m.AdditionalFields != nil {
		if r.additionalFields, err = json.Marshal(m.AdditionalFields); err != nil {
			return row{}, fmt.Errorf("marshal additional fields: %w", err)
		}
	}
	if m.ClientAuditDetails != nil {
		if r.clientAudit, err = json.Marshal(m.ClientAuditDetails); err != nil {
			return row{}, fmt.Errorf("marshal client audit details: %w", err)
		}
	}
	if m.AuditDetails != nil {
		r.audit = *m.AuditDetails
	}
	return r, nil
}

func scanMember(rows *sql.Rows) (models.HouseholdMember, error) {
	var (
		m                             models.HouseholdMember
		audit                         models.AuditDetails
		rels, additional, clientAudit []byte
	)
	if err := rows.Scan(&m.ID, &m.ClientReferenceID, &m.TenantID, &m.HouseholdID, &m.HouseholdClientReferenceID,
		&m.IndividualID, &m.IndividualClientReferenceID, &m.IsHeadOfHousehold, &rels,
		&additional, &clientAudit, &m.IsDeleted, &m.RowVersion,
		&audit.CreatedBy, &audit.CreatedTime, &audit.LastModifiedBy, &audit.LastModifiedTime); err != nil {
		return models.HouseholdMember{}, fmt.Errorf("scan member: %w", err)
	}
	m.AuditDetails = &audit
	if len(rels) > 0 {
		if err := json.Unmarshal(rels, &m.MemberRelationships); err != nil {
			return models.HouseholdMember{}, fmt.Errorf("unmarshal relationships: %w", err)
		}
		if len(m.MemberRelationships) == 0 {
			m.MemberRelationships = nil
		}
	}
	if len(additional) > 0 {
		m.AdditionalFields = &models.AdditionalFields{}
		if err := json.Unmarshal(additional, m.AdditionalFields); err != nil {
			return models.HouseholdMember{}, fmt.Errorf("unmarshal additional fields: %w", err)
		}
	}
	if len(clientAudit) > 0 {
		m.ClientAuditDetails = &models.AuditDetails{}
		if err := json.Unmarshal(clientAudit, m.ClientAuditDetails); err != nil {
			return models.HouseholdMember{}, fmt.Errorf("unmarshal client audit details: %w", err)
		}
	}
	return m, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}
