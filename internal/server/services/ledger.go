package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/tourdesk/internal/common"
	"github.com/dmitrijs2005/tourdesk/internal/dbx"
	"github.com/dmitrijs2005/tourdesk/internal/logging"
	"github.com/dmitrijs2005/tourdesk/internal/server/metrics"
	"github.com/dmitrijs2005/tourdesk/internal/server/models"
	"github.com/dmitrijs2005/tourdesk/internal/server/repositories/repomanager"
)

const maxCancelReasonLen = 200

// CreateReservationInput is a booking request made by an attendant on
// behalf of a client.
type CreateReservationInput struct {
	PackageID   int64
	ClientName  string
	ClientEmail string
}

// LedgerService creates, cancels and lists reservations.
type LedgerService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clients     *ClientService
	logger      logging.Logger
	now         func() time.Time
}

func NewLedgerService(db *sql.DB, rm repomanager.RepositoryManager, clients *ClientService, logger logging.Logger) *LedgerService {
	return &LedgerService{db: db, repomanager: rm, clients: clients, logger: logger.With("module", "ledger"), now: time.Now}
}

// CreateReservation books one slot of a package for a client.
//
// The package row is locked for the duration of the transaction, so two
// bookings for the same package cannot both pass the capacity check on the
// last slot. A full package yields common.ErrorCapacityExceeded and nothing
// is written. The package start date is not re-checked here; offering only
// upcoming packages is up to the caller (see CatalogService.OfferablePackages).
func (s *LedgerService) CreateReservation(ctx context.Context, actor models.Actor, in CreateReservationInput) (*models.Reservation, error) {
	clientName, clientEmail, err := normalizeClient(in.ClientName, in.ClientEmail)
	if err != nil {
		metrics.ReservationsRejectedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	var (
		res   *models.Reservation
		entry *models.AuditEntry
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		p, err := s.repomanager.Packages(tx).GetByIDForUpdate(ctx, in.PackageID)
		if err != nil {
			return err
		}

		reservations := s.repomanager.Reservations(tx)
		active, err := reservations.CountActive(ctx, p.ID)
		if err != nil {
			return err
		}
		if p.MaxSlots-active <= 0 {
			return common.ErrorCapacityExceeded
		}

		client, err := s.clients.FindOrCreate(ctx, tx, clientName, clientEmail)
		if err != nil {
			return err
		}

		res = &models.Reservation{
			ClientID:   client.ID,
			PackageID:  p.ID,
			ReservedAt: s.now(),
			Status:     models.ReservationActive,
		}
		if _, err := reservations.Create(ctx, res); err != nil {
			return err
		}

		entry = &models.AuditEntry{
			UserID:      actor.ID,
			ClientID:    int64Ptr(client.ID),
			PackageID:   int64Ptr(p.ID),
			Action:      models.ActionReservationCreate,
			Description: fmt.Sprintf("Reservation for %q created for client %s by %s.", p.Destination, client.Name, actor.UserName),
			CreatedAt:   s.now(),
		}
		return appendAudit(ctx, s.repomanager, tx, entry)
	})
	if err != nil {
		metrics.ReservationsRejectedTotal.WithLabelValues(rejectReason(err)).Inc()
		return nil, classify(ctx, s.logger, "create reservation", err)
	}
	committed(entry)
	metrics.ReservationsCreatedTotal.Inc()

	return res, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, common.ErrorCapacityExceeded):
		return "capacity"
	case errors.Is(err, common.ErrorNotFound):
		return "not_found"
	case errors.Is(err, common.ErrorValidation):
		return "validation"
	default:
		return "error"
	}
}

// CancelReservation moves reservation id to cancelled. Cancelling an
// already cancelled reservation writes nothing and reports
// models.CancelOutcomeAlreadyCancelled.
func (s *LedgerService) CancelReservation(ctx context.Context, actor models.Actor, id int64, reason string) (models.CancelOutcome, error) {
	verr := &common.ValidationError{}
	checkLength(verr, "reason", reason, 0, maxCancelReasonLen)
	if err := verr.OrNil(); err != nil {
		return "", err
	}

	var (
		outcome models.CancelOutcome
		entry   *models.AuditEntry
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		reservations := s.repomanager.Reservations(tx)

		res, err := reservations.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if res.Status == models.ReservationCancelled {
			outcome = models.CancelOutcomeAlreadyCancelled
			return nil
		}

		client, err := s.repomanager.Clients(tx).GetByID(ctx, res.ClientID)
		if err != nil {
			return err
		}
		p, err := s.repomanager.Packages(tx).GetByID(ctx, res.PackageID)
		if err != nil {
			return err
		}

		changed, err := reservations.Cancel(ctx, id)
		if err != nil {
			return err
		}
		if !changed {
			outcome = models.CancelOutcomeAlreadyCancelled
			return nil
		}

		outcome = models.CancelOutcomeCancelled
		entry = &models.AuditEntry{
			UserID:      actor.ID,
			ClientID:    int64Ptr(res.ClientID),
			PackageID:   int64Ptr(res.PackageID),
			Action:      models.ActionReservationCancel,
			Description: cancelDescription(p.Destination, client.Name, actor.UserName, reason),
			CreatedAt:   s.now(),
		}
		return appendAudit(ctx, s.repomanager, tx, entry)
	})
	if err != nil {
		return "", classify(ctx, s.logger, "cancel reservation", err)
	}
	if entry != nil {
		committed(entry)
	}
	metrics.ReservationsCancelledTotal.WithLabelValues(string(outcome)).Inc()

	return outcome, nil
}

func cancelDescription(destination, client, actor, reason string) string {
	d := fmt.Sprintf("Reservation for %q of client %s cancelled by %s.", destination, client, actor)
	if r := strings.TrimSpace(reason); r != "" {
		d += " Reason: " + r
	}
	return d
}

// ListActive returns one page of active reservations, most recent first.
func (s *LedgerService) ListActive(ctx context.Context, page models.PageRequest) (models.Page[models.ReservationView], error) {
	page = page.Normalize(common.DefaultReservationsPageSize)
	items, total, err := s.repomanager.Reservations(s.db).ListActive(ctx, page)
	if err != nil {
		return models.Page[models.ReservationView]{}, classify(ctx, s.logger, "list reservations", err)
	}
	return models.NewPage(items, page, total), nil
}
