package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tourdesk/internal/common"
	"github.com/dmitrijs2005/tourdesk/internal/dbx"
	"github.com/dmitrijs2005/tourdesk/internal/logging"
	"github.com/dmitrijs2005/tourdesk/internal/server/models"
	"github.com/dmitrijs2005/tourdesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tourdesk/internal/timex"
)

// CatalogService owns travel packages. Every mutation is admin only and is
// committed together with its audit entry.
type CatalogService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

func NewCatalogService(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) *CatalogService {
	return &CatalogService{db: db, repomanager: rm, logger: logger.With("module", "catalog"), now: time.Now}
}

// CreatePackage validates fields, requiring a start date after today, and
// stores a new package.
func (s *CatalogService) CreatePackage(ctx context.Context, actor models.Actor, fields models.PackageFields) (*models.Package, error) {
	if !actor.IsAdmin() {
		return nil, common.ErrorForbidden
	}

	fields.Normalize()
	if err := fields.Validate(s.now(), true); err != nil {
		return nil, err
	}

	p := &models.Package{PackageFields: fields}
	var entry *models.AuditEntry
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Packages(tx).Create(ctx, p); err != nil {
			return err
		}
		entry = &models.AuditEntry{
			UserID:      actor.ID,
			PackageID:   int64Ptr(p.ID),
			Action:      models.ActionPackageCreate,
			Description: fmt.Sprintf("Package %q created by %s.", p.Destination, actor.UserName),
			CreatedAt:   s.now(),
		}
		return appendAudit(ctx, s.repomanager, tx, entry)
	})
	if err != nil {
		return nil, classify(ctx, s.logger, "create package", err)
	}
	committed(entry)

	return p, nil
}

// UpdatePackage replaces every field of package id. The start date is not
// required to be in the future here.
func (s *CatalogService) UpdatePackage(ctx context.Context, actor models.Actor, id int64, fields models.PackageFields) (*models.Package, error) {
	if !actor.IsAdmin() {
		return nil, common.ErrorForbidden
	}

	fields.Normalize()
	if err := fields.Validate(s.now(), false); err != nil {
		return nil, err
	}

	var (
		p     *models.Package
		entry *models.AuditEntry
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if p, err = s.repomanager.Packages(tx).Update(ctx, id, fields); err != nil {
			return err
		}
		entry = &models.AuditEntry{
			UserID:      actor.ID,
			PackageID:   int64Ptr(p.ID),
			Action:      models.ActionPackageEdit,
			Description: fmt.Sprintf("Package %q edited by %s.", p.Destination, actor.UserName),
			CreatedAt:   s.now(),
		}
		return appendAudit(ctx, s.repomanager, tx, entry)
	})
	if err != nil {
		return nil, classify(ctx, s.logger, "update package", err)
	}
	committed(entry)

	return p, nil
}

// DeletePackage removes package id together with all its reservations.
func (s *CatalogService) DeletePackage(ctx context.Context, actor models.Actor, id int64) error {
	if !actor.IsAdmin() {
		return common.ErrorForbidden
	}

	var entry *models.AuditEntry
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		packages := s.repomanager.Packages(tx)

		p, err := packages.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		removed, err := s.repomanager.Reservations(tx).DeleteByPackage(ctx, id)
		if err != nil {
			return err
		}
		if err := packages.Delete(ctx, id); err != nil {
			return err
		}

		entry = &models.AuditEntry{
			UserID:      actor.ID,
			PackageID:   int64Ptr(id),
			Action:      models.ActionPackageDelete,
			Description: fmt.Sprintf("Package %q deleted by %s.", p.Destination, actor.UserName),
			CreatedAt:   s.now(),
		}
		if removed > 0 {
			entry.Description += fmt.Sprintf(" %d reservation(s) removed.", removed)
		}
		return appendAudit(ctx, s.repomanager, tx, entry)
	})
	if err != nil {
		return classify(ctx, s.logger, "delete package", err)
	}
	committed(entry)

	return nil
}

// AvailableSlots is max slots minus the active reservations of package id,
// computed on every call.
func (s *CatalogService) AvailableSlots(ctx context.Context, id int64) (int, error) {
	p, err := s.GetPackage(ctx, id)
	if err != nil {
		return 0, err
	}
	return p.AvailableSlots, nil
}

// GetPackage returns package id with its live availability.
func (s *CatalogService) GetPackage(ctx context.Context, id int64) (*models.PackageDetail, error) {
	d, err := s.repomanager.Packages(s.db).GetDetail(ctx, id)
	if err != nil {
		return nil, classify(ctx, s.logger, "get package", err)
	}
	return d, nil
}

// ListPackages returns one page of packages ordered by start date.
func (s *CatalogService) ListPackages(ctx context.Context, page models.PageRequest) (models.Page[models.Package], error) {
	page = page.Normalize(common.DefaultPackagesPageSize)
	items, total, err := s.repomanager.Packages(s.db).List(ctx, page)
	if err != nil {
		return models.Page[models.Package]{}, classify(ctx, s.logger, "list packages", err)
	}
	return models.NewPage(items, page, total), nil
}

// OfferablePackages lists packages starting today or later, by destination.
// These are the packages a new reservation may be made for.
func (s *CatalogService) OfferablePackages(ctx context.Context) ([]models.Package, error) {
	items, err := s.repomanager.Packages(s.db).ListStartingFrom(ctx, timex.DateOf(s.now()))
	if err != nil {
		return nil, classify(ctx, s.logger, "list offerable packages", err)
	}
	if items == nil {
		items = []models.Package{}
	}
	return items, nil
}
