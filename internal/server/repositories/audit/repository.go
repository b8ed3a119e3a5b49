// Package audit declares the append-only audit log repository.
package audit

import (
	"context"

	"github.com/dmitrijs2005/tourdesk/internal/server/models"
)

// Repository has no update or delete: entries are immutable once written.
type Repository interface {
	// Append writes e and fills its ID. Callers pass the DBTX of the
	// transaction that performs the change e documents.
	Append(ctx context.Context, e *models.AuditEntry) error

	// List returns one page of entries, newest first, plus the total count.
	List(ctx context.Context, page models.PageRequest) ([]models.AuditEntry, int, error)

	// Each streams every entry, oldest first, stopping at the first error
	// returned by fn.
	Each(ctx context.Context, fn func(models.AuditEntry) error) error
}
