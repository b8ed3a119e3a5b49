// Package users declares the repository contract for staff accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/tourdesk/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills its ID and CreatedAt. A duplicate
	// username or email yields common.ErrorConflict.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUserName(ctx context.Context, userName string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
