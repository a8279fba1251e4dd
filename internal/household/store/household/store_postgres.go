package household

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hcm/internal/household/models"
	"hcm/pkg/platform/sentinel"
	"hcm/pkg/platform/tx"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PostgresStore persists households in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByReferences(ctx context.Context, tenantID string, ids, clientReferenceIDs []string, includeDeleted bool) ([]models.Household, error) {
	if len(ids) == 0 && len(clientReferenceIDs) == 0 {
		return nil, nil
	}
	query := `SELECT id, client_reference_id, tenant_id, member_count, is_deleted, row_version,
			created_by, created_time, last_modified_by, last_modified_time
		FROM household WHERE tenant_id = $1
			AND (id = ANY($2::text[]) OR client_reference_id = ANY($3::text[]))`
	if !includeDeleted {
		query += ` AND NOT is_deleted`
	}
	query += ` ORDER BY id`

	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, tenantID, pq.Array(ids), pq.Array(clientReferenceIDs))
	if err != nil {
		return nil, fmt.Errorf("find households by reference: %w", err)
	}
	defer rows.Close()
	var out []models.Household
	for rows.Next() {
		var (
			h     models.Household
			audit models.AuditDetails
		)
		if err := rows.Scan(&h.ID, &h.ClientReferenceID, &h.TenantID, &h.MemberCount, &h.IsDeleted, &h.RowVersion,
			&audit.CreatedBy, &audit.CreatedTime, &audit.LastModifiedBy, &audit.LastModifiedTime); err != nil {
			return nil, fmt.Errorf("scan household: %w", err)
		}
		h.AuditDetails = &audit
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate households: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Save(ctx context.Context, h models.Household) error {
	if h.ID == "" {
		return fmt.Errorf("save household: missing id")
	}
	var audit models.AuditDetails
	if h.AuditDetails != nil {
		audit = *h.AuditDetails
	}
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO household (id, client_reference_id, tenant_id, member_count, is_deleted, row_version,
			created_by, created_time, last_modified_by, last_modified_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			member_count = EXCLUDED.member_count,
			is_deleted = EXCLUDED.is_deleted,
			row_version = EXCLUDED.row_version,
			last_modified_by = EXCLUDED.last_modified_by,
			last_modified_time = EXCLUDED.last_modified_time`,
		h.ID, h.ClientReferenceID, h.TenantID, h.MemberCount, h.IsDeleted, h.RowVersion,
		audit.CreatedBy, audit.CreatedTime, audit.LastModifiedBy, audit.LastModifiedTime)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("save household %s: %w", h.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("save household %s: %w", h.ID, err)
	}
	return nil
}
