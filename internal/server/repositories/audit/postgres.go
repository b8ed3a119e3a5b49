package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/tourdesk/internal/dbx"
	"github.com/dmitrijs2005/tourdesk/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, e *models.AuditEntry) error {
	query := `
		INSERT INTO audit_log (user_id, client_id, package_id, action, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		e.UserID, nullable(e.ClientID), nullable(e.PackageID), e.Action, e.Description, e.CreatedAt).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const selectEntries = `
		SELECT a.id, a.user_id, u.username, a.client_id, a.package_id, a.action, a.description, a.created_at
		FROM audit_log a
		JOIN users u ON u.id = a.user_id`

func (r *PostgresRepository) List(ctx context.Context, page models.PageRequest) ([]models.AuditEntry, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	var items []models.AuditEntry
	err := r.each(ctx, selectEntries+`
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT $1 OFFSET $2`,
		[]any{page.PageSize, page.Offset()},
		func(e models.AuditEntry) error {
			items = append(items, e)
			return nil
		})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *PostgresRepository) Each(ctx context.Context, fn func(models.AuditEntry) error) error {
	return r.each(ctx, selectEntries+`
		ORDER BY a.created_at ASC, a.id ASC`, nil, fn)
}

func (r *PostgresRepository) each(ctx context.Context, query string, args []any, fn func(models.AuditEntry) error) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e                   models.AuditEntry
			clientID, packageID sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.UserName, &clientID, &packageID, &e.Action, &e.Description, &e.CreatedAt); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if clientID.Valid {
			e.ClientID = &clientID.Int64
		}
		if packageID.Valid {
			e.PackageID = &packageID.Int64
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func nullable(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
