package clients

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

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.Client, error) {
	return r.getOne(ctx, `SELECT id, name, email, phone, created_at FROM clients WHERE email = $1`, email)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	return r.getOne(ctx, `SELECT id, name, email, phone, created_at FROM clients WHERE id = $1`, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Client, error) {
	c := &models.Client{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// InsertIfAbsent relies on ON CONFLICT DO NOTHING so a concurrent insert of
// the same email does not abort the surrounding transaction.
func (r *PostgresRepository) InsertIfAbsent(ctx context.Context, c *models.Client) (bool, error) {
	query := `
		INSERT INTO clients (name, email, phone)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO NOTHING
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, c.Name, c.Email, c.Phone).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
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
