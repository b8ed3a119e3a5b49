package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/tourdesk/internal/logging"
	"github.com/dmitrijs2005/tourdesk/internal/server/models"
	"github.com/dmitrijs2005/tourdesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tourdesk/internal/timex"
)

// ReportService derives capacity alerts and dashboard figures. Nothing is
// cached: every call reads the current state.
type ReportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

func NewReportService(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) *ReportService {
	return &ReportService{db: db, repomanager: rm, logger: logger.With("module", "reports"), now: time.Now}
}

// Alerts flags every package whose active reservations fall below its
// minimum or above its maximum slots. Packages without reservations are
// included.
func (s *ReportService) Alerts(ctx context.Context) ([]models.Alert, error) {
	loads, err := s.repomanager.Packages(s.db).Loads(ctx)
	if err != nil {
		return nil, classify(ctx, s.logger, "capacity report", err)
	}

	alerts := []models.Alert{}
	for _, l := range loads {
		alerts = append(alerts, l.Alerts()...)
	}
	return alerts, nil
}

// Dashboard counts upcoming packages and active reservations and attaches
// the current capacity alerts.
func (s *ReportService) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	upcoming, err := s.repomanager.Packages(s.db).CountStartingFrom(ctx, timex.DateOf(s.now()))
	if err != nil {
		return nil, classify(ctx, s.logger, "count packages", err)
	}
	active, err := s.repomanager.Reservations(s.db).CountAllActive(ctx)
	if err != nil {
		return nil, classify(ctx, s.logger, "count reservations", err)
	}
	alerts, err := s.Alerts(ctx)
	if err != nil {
		return nil, err
	}

	return &models.Dashboard{
		UpcomingPackages:   upcoming,
		ActiveReservations: active,
		Alerts:             alerts,
	}, nil
}
