package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/tourdesk/internal/common"
	"github.com/dmitrijs2005/tourdesk/internal/dbx"
	"github.com/dmitrijs2005/tourdesk/internal/logging"
	"github.com/dmitrijs2005/tourdesk/internal/server/metrics"
	"github.com/dmitrijs2005/tourdesk/internal/server/models"
	"github.com/dmitrijs2005/tourdesk/internal/server/repositories/repomanager"
)

// appendAudit writes one audit entry through tx, which must be the
// transaction performing the change being documented.
func appendAudit(ctx context.Context, rm repomanager.RepositoryManager, tx dbx.DBTX, e *models.AuditEntry) error {
	return rm.Audit(tx).Append(ctx, e)
}

// committed bumps the audit counter once the transaction holding e is
// committed.
func committed(e *models.AuditEntry) {
	metrics.AuditEntriesTotal.WithLabelValues(e.Action).Inc()
}

func int64Ptr(v int64) *int64 {
	return &v
}

// AuditService exposes the read side of the audit log.
type AuditService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewAuditService(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) *AuditService {
	return &AuditService{db: db, repomanager: rm, logger: logger.With("module", "audit")}
}

// List returns one page of audit entries, newest first. Admin only.
func (s *AuditService) List(ctx context.Context, actor models.Actor, page models.PageRequest) (models.Page[models.AuditEntry], error) {
	if !actor.IsAdmin() {
		return models.Page[models.AuditEntry]{}, common.ErrorForbidden
	}

	page = page.Normalize(common.DefaultAuditPageSize)
	items, total, err := s.repomanager.Audit(s.db).List(ctx, page)
	if err != nil {
		return models.Page[models.AuditEntry]{}, classify(ctx, s.logger, "list audit", err)
	}
	return models.NewPage(items, page, total), nil
}
