package httpapi

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tourdesk/internal/server/auth"
	"github.com/dmitrijs2005/tourdesk/internal/server/models"
	"github.com/dmitrijs2005/tourdesk/internal/server/services"
)

// The interfaces below are the slices of the service layer each handler
// group needs.

type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, userName, password string) (*services.TokenPair, *models.User, error)
	Logout(ctx context.Context, actor models.Actor, refreshToken, tokenID string, tokenExpires time.Time) error
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error)
}

type CatalogService interface {
	CreatePackage(ctx context.Context, actor models.Actor, fields models.PackageFields) (*models.Package, error)
	UpdatePackage(ctx context.Context, actor models.Actor, id int64, fields models.PackageFields) (*models.Package, error)
	DeletePackage(ctx context.Context, actor models.Actor, id int64) error
	GetPackage(ctx context.Context, id int64) (*models.PackageDetail, error)
	ListPackages(ctx context.Context, page models.PageRequest) (models.Page[models.Package], error)
	OfferablePackages(ctx context.Context) ([]models.Package, error)
}

type LedgerService interface {
	CreateReservation(ctx context.Context, actor models.Actor, in services.CreateReservationInput) (*models.Reservation, error)
	CancelReservation(ctx context.Context, actor models.Actor, id int64, reason string) (models.CancelOutcome, error)
	ListActive(ctx context.Context, page models.PageRequest) (models.Page[models.ReservationView], error)
}

type ClientService interface {
	GetClient(ctx context.Context, id int64) (*models.Client, error)
	DeleteClient(ctx context.Context, actor models.Actor, id int64) error
}

type ReportService interface {
	Alerts(ctx context.Context) ([]models.Alert, error)
	Dashboard(ctx context.Context) (*models.Dashboard, error)
}

type AuditService interface {
	List(ctx context.Context, actor models.Actor, page models.PageRequest) (models.Page[models.AuditEntry], error)
}

type ArchiveService interface {
	Export(ctx context.Context, actor models.Actor) (*services.ArchiveResult, error)
}

// Services bundles everything the router dispatches to.
type Services struct {
	Users   UserService
	Catalog CatalogService
	Ledger  LedgerService
	Clients ClientService
	Reports ReportService
	Audit   AuditService
	Archive ArchiveService
}

var (
	_ UserService    = (*services.UserService)(nil)
	_ CatalogService = (*services.CatalogService)(nil)
	_ LedgerService  = (*services.LedgerService)(nil)
	_ ClientService  = (*services.ClientService)(nil)
	_ ReportService  = (*services.ReportService)(nil)
	_ AuditService   = (*services.AuditService)(nil)
	_ ArchiveService = (*services.ArchiveService)(nil)
)
