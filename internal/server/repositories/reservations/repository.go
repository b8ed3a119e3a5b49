// Package reservations declares the repository contract for the reservation
// ledger.
package reservations

import (
	"context"

	"github.com/dmitrijs2005/tourdesk/internal/server/models"
)

type Repository interface {
	// Create inserts r and fills its ID.
	Create(ctx context.Context, r *models.Reservation) (*models.Reservation, error)

	// GetByIDForUpdate reads reservation id and row-locks it until the
	// surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Reservation, error)

	// Cancel moves reservation id from active to cancelled. It reports
	// false when the reservation was not active.
	Cancel(ctx context.Context, id int64) (bool, error)

	// CountActive counts active reservations of one package.
	CountActive(ctx context.Context, packageID int64) (int, error)

	// CountAllActive counts active reservations across all packages.
	CountAllActive(ctx context.Context) (int, error)

	// ListActive returns one page of active reservations, most recent
	// first, plus the total number of active reservations.
	ListActive(ctx context.Context, page models.PageRequest) ([]models.ReservationView, int, error)

	DeleteByPackage(ctx context.Context, packageID int64) (int64, error)
	DeleteByClient(ctx context.Context, clientID int64) (int64, error)
}
