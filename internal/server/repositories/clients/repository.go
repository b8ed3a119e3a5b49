// Package clients declares the repository contract for agency clients.
package clients

import (
	"context"

	"github.com/dmitrijs2005/tourdesk/internal/server/models"
)

type Repository interface {
	// FindByEmail looks a client up by normalized email.
	FindByEmail(ctx context.Context, email string) (*models.Client, error)

	GetByID(ctx context.Context, id int64) (*models.Client, error)

	// InsertIfAbsent inserts c unless a client with the same email exists.
	// It reports whether a row was created; on false c is left untouched.
	InsertIfAbsent(ctx context.Context, c *models.Client) (bool, error)

	// Delete removes client id. Its reservations must be removed first.
	Delete(ctx context.Context, id int64) error
}
