// Package packages declares the repository contract for the travel package
// catalog.
package packages

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tourdesk/internal/server/models"
)

type Repository interface {
	// Create inserts p and fills its ID and CreatedAt.
	Create(ctx context.Context, p *models.Package) (*models.Package, error)

	// Update replaces every editable field of package id.
	Update(ctx context.Context, id int64, fields models.PackageFields) (*models.Package, error)

	// Delete removes package id. Its reservations must be removed first.
	Delete(ctx context.Context, id int64) error

	GetByID(ctx context.Context, id int64) (*models.Package, error)

	// GetDetail reads package id together with its available slots in a
	// single statement.
	GetDetail(ctx context.Context, id int64) (*models.PackageDetail, error)

	// GetByIDForUpdate reads package id and row-locks it until the
	// surrounding transaction ends. Booking uses it to serialize capacity
	// checks for the same package.
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Package, error)

	// List returns one page ordered by start date ascending, plus the total
	// number of packages.
	List(ctx context.Context, page models.PageRequest) ([]models.Package, int, error)

	// ListStartingFrom returns packages whose start date is on or after
	// day, ordered by destination.
	ListStartingFrom(ctx context.Context, day time.Time) ([]models.Package, error)

	CountStartingFrom(ctx context.Context, day time.Time) (int, error)

	// Loads returns every package with its count of active reservations.
	Loads(ctx context.Context) ([]models.PackageLoad, error)
}
