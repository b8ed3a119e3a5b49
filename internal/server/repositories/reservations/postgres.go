package reservations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tourdesk/internal/common"
	"github.com/dmitrijs2005/tourdesk/internal/dbx"
	"github.com/dmitrijs2005/tourdesk/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, res *models.Reservation) (*models.Reservation, error) {
	query := `
		INSERT INTO reservations (client_id, package_id, reserved_at, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query, res.ClientID, res.PackageID, res.ReservedAt, string(res.Status)).Scan(&res.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return res, nil
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Reservation, error) {
	query := `
		SELECT id, client_id, package_id, reserved_at, status
		FROM reservations
		WHERE id = $1
		FOR UPDATE
	`
	res := &models.Reservation{}
	var status string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&res.ID, &res.ClientID, &res.PackageID, &res.ReservedAt, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	res.Status = models.ReservationStatus(status)
	return res, nil
}

func (r *PostgresRepository) Cancel(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE reservations
		SET status = 'cancelled'
		WHERE id = $1 AND status = 'active'
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) CountActive(ctx context.Context, packageID int64) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM reservations WHERE package_id = $1 AND status = 'active'`
	if err := r.db.QueryRowContext(ctx, query, packageID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) CountAllActive(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations WHERE status = 'active'`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ListActive(ctx context.Context, page models.PageRequest) ([]models.ReservationView, int, error) {
	total, err := r.CountAllActive(ctx)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT r.id, r.client_id, r.package_id, r.reserved_at, r.status,
			c.name, c.email, p.destination, p.start_date
		FROM reservations r
		JOIN clients c ON c.id = r.client_id
		JOIN packages p ON p.id = r.package_id
		WHERE r.status = 'active'
		ORDER BY r.reserved_at DESC, r.id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var items []models.ReservationView
	for rows.Next() {
		var v models.ReservationView
		var status string
		if err := rows.Scan(&v.ID, &v.ClientID, &v.PackageID, &v.ReservedAt, &status,
			&v.ClientName, &v.ClientEmail, &v.Destination, &v.PackageStart); err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		v.Status = models.ReservationStatus(status)
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return items, total, nil
}

func (r *PostgresRepository) DeleteByPackage(ctx context.Context, packageID int64) (int64, error) {
	return r.deleteWhere(ctx, `DELETE FROM reservations WHERE package_id = $1`, packageID)
}

func (r *PostgresRepository) DeleteByClient(ctx context.Context, clientID int64) (int64, error) {
	return r.deleteWhere(ctx, `DELETE FROM reservations WHERE client_id = $1`, clientID)
}

func (r *PostgresRepository) deleteWhere(ctx context.Context, query string, id int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
