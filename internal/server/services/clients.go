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
	"github.com/dmitrijs2005/tourdesk/internal/server/models"
	"github.com/dmitrijs2005/tourdesk/internal/server/repositories/repomanager"
)

// ClientService is the client registry. Clients are deduplicated by
// normalized email.
type ClientService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

func NewClientService(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) *ClientService {
	return &ClientService{db: db, repomanager: rm, logger: logger.With("module", "clients"), now: time.Now}
}

// normalizeClient trims name and normalizes email, then validates the
// normalized values.
func normalizeClient(name, email string) (string, string, error) {
	name = strings.TrimSpace(name)
	email = models.NormalizeEmail(email)

	verr := &common.ValidationError{}
	checkLength(verr, "client_name", name, 3, 100)
	checkEmail(verr, "client_email", email)
	return name, email, verr.OrNil()
}

// FindOrCreate returns the client registered under email, creating it with
// name when absent. An existing client is returned untouched whatever name
// is passed. It runs on db, which should be the transaction of the
// reservation the client is resolved for.
func (s *ClientService) FindOrCreate(ctx context.Context, db dbx.DBTX, name, email string) (*models.Client, error) {
	name, email, err := normalizeClient(name, email)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Clients(db)

	c, err := repo.FindByEmail(ctx, email)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	c = &models.Client{Name: name, Email: email}
	created, err := repo.InsertIfAbsent(ctx, c)
	if err != nil {
		return nil, err
	}
	if created {
		return c, nil
	}

	// Inserted concurrently by another request since the lookup above.
	return repo.FindByEmail(ctx, email)
}

func (s *ClientService) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	c, err := s.repomanager.Clients(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, classify(ctx, s.logger, "get client", err)
	}
	return c, nil
}

// DeleteClient removes client id and all its reservations. Admin only.
func (s *ClientService) DeleteClient(ctx context.Context, actor models.Actor, id int64) error {
	if !actor.IsAdmin() {
		return common.ErrorForbidden
	}

	var entry *models.AuditEntry
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		clients := s.repomanager.Clients(tx)

		c, err := clients.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if _, err := s.repomanager.Reservations(tx).DeleteByClient(ctx, id); err != nil {
			return err
		}
		if err := clients.Delete(ctx, id); err != nil {
			return err
		}

		entry = &models.AuditEntry{
			UserID:      actor.ID,
			ClientID:    int64Ptr(id),
			Action:      models.ActionClientDelete,
			Description: fmt.Sprintf("Client %s deleted by %s.", c.Name, actor.UserName),
			CreatedAt:   s.now(),
		}
		return appendAudit(ctx, s.repomanager, tx, entry)
	})
	if err != nil {
		return classify(ctx, s.logger, "delete client", err)
	}
	committed(entry)

	return nil
}
