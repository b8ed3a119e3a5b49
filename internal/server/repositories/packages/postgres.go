package packages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

const packageColumns = `id, destination, start_date, end_date, price, min_slots, max_slots,
		category, description, cancellation_policy, created_at`

type scanner interface {
	Scan(dest ...any) error
}

// scanPackage reads packageColumns followed by any extra columns.
func scanPackage(s scanner, extra ...any) (*models.Package, error) {
	p := &models.Package{}
	var category string
	dest := []any{&p.ID, &p.Destination, &p.StartDate, &p.EndDate, &p.Price, &p.MinSlots, &p.MaxSlots,
		&category, &p.Description, &p.CancellationPolicy, &p.CreatedAt}
	err := s.Scan(append(dest, extra...)...)
	if err != nil {
		return nil, err
	}
	p.Category = models.Category(category)
	return p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Package) (*models.Package, error) {
	query := `
		INSERT INTO packages (destination, start_date, end_date, price, min_slots, max_slots,
			category, description, cancellation_policy)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	f := p.PackageFields
	err := r.db.QueryRowContext(ctx, query,
		f.Destination, f.StartDate, f.EndDate, f.Price, f.MinSlots, f.MaxSlots,
		string(f.Category), f.Description, f.CancellationPolicy).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id int64, f models.PackageFields) (*models.Package, error) {
	query := `
		UPDATE packages
		SET destination = $1, start_date = $2, end_date = $3, price = $4, min_slots = $5,
			max_slots = $6, category = $7, description = $8, cancellation_policy = $9
		WHERE id = $10
		RETURNING created_at
	`
	p := &models.Package{ID: id, PackageFields: f}
	err := r.db.QueryRowContext(ctx, query,
		f.Destination, f.StartDate, f.EndDate, f.Price, f.MinSlots, f.MaxSlots,
		string(f.Category), f.Description, f.CancellationPolicy, id).Scan(&p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM packages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Package, error) {
	return r.getOne(ctx, `SELECT `+packageColumns+` FROM packages WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Package, error) {
	return r.getOne(ctx, `SELECT `+packageColumns+` FROM packages WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgresRepository) GetDetail(ctx context.Context, id int64) (*models.PackageDetail, error) {
	query := `SELECT ` + packageColumns + `,
		(SELECT COUNT(*) FROM reservations r WHERE r.package_id = packages.id AND r.status = 'active')
		FROM packages
		WHERE id = $1`

	var active int
	p, err := scanPackage(r.db.QueryRowContext(ctx, query, id), &active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &models.PackageDetail{Package: *p, AvailableSlots: p.MaxSlots - active}, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, id int64) (*models.Package, error) {
	p, err := scanPackage(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context, page models.PageRequest) ([]models.Package, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM packages`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	query := `SELECT ` + packageColumns + `
		FROM packages
		ORDER BY start_date ASC, id ASC
		LIMIT $1 OFFSET $2`

	items, err := r.query(ctx, query, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *PostgresRepository) ListStartingFrom(ctx context.Context, day time.Time) ([]models.Package, error) {
	query := `SELECT ` + packageColumns + `
		FROM packages
		WHERE start_date >= $1
		ORDER BY destination ASC, start_date ASC`

	return r.query(ctx, query, day)
}

func (r *PostgresRepository) CountStartingFrom(ctx context.Context, day time.Time) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM packages WHERE start_date >= $1`, day).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]models.Package, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var items []models.Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return items, nil
}

func (r *PostgresRepository) Loads(ctx context.Context) ([]models.PackageLoad, error) {
	query := `
		SELECT p.id, p.destination, p.min_slots, p.max_slots, COUNT(r.id)
		FROM packages p
		LEFT JOIN reservations r ON r.package_id = p.id AND r.status = 'active'
		GROUP BY p.id, p.destination, p.min_slots, p.max_slots, p.start_date
		ORDER BY p.start_date ASC, p.id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var loads []models.PackageLoad
	for rows.Next() {
		var l models.PackageLoad
		if err := rows.Scan(&l.PackageID, &l.Destination, &l.MinSlots, &l.MaxSlots, &l.Active); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		loads = append(loads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return loads, nil
}
