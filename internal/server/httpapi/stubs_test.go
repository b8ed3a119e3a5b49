package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/tourdesk/internal/common"
	"github.com/dmitrijs2005/tourdesk/internal/logging"
	"github.com/dmitrijs2005/tourdesk/internal/server/auth"
	"github.com/dmitrijs2005/tourdesk/internal/server/models"
	"github.com/dmitrijs2005/tourdesk/internal/server/services"
)

var (
	adminActor = models.Actor{ID: 1, UserName: "alice", Role: models.RoleAdmin}
	clerkActor = models.Actor{ID: 2, UserName: "bob", Role: models.RoleAttendant}
	tokenExp   = time.Date(2030, time.June, 1, 10, 15, 0, 0, time.UTC)
)

var errUnexpected = errors.New("unexpected call")

// stubServices implements every service interface. Unset functions fail
// the call.
type stubServices struct {
	registerFn     func(ctx context.Context, in services.RegisterInput) (*models.User, error)
	loginFn        func(ctx context.Context, userName, password string) (*services.TokenPair, *models.User, error)
	logoutFn       func(ctx context.Context, actor models.Actor, refreshToken, tokenID string, exp time.Time) error
	refreshFn      func(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	createPkgFn    func(ctx context.Context, actor models.Actor, f models.PackageFields) (*models.Package, error)
	updatePkgFn    func(ctx context.Context, actor models.Actor, id int64, f models.PackageFields) (*models.Package, error)
	deletePkgFn    func(ctx context.Context, actor models.Actor, id int64) error
	getPkgFn       func(ctx context.Context, id int64) (*models.PackageDetail, error)
	listPkgFn      func(ctx context.Context, page models.PageRequest) (models.Page[models.Package], error)
	offerableFn    func(ctx context.Context) ([]models.Package, error)
	createResFn    func(ctx context.Context, actor models.Actor, in services.CreateReservationInput) (*models.Reservation, error)
	cancelResFn    func(ctx context.Context, actor models.Actor, id int64, reason string) (models.CancelOutcome, error)
	listActiveFn   func(ctx context.Context, page models.PageRequest) (models.Page[models.ReservationView], error)
	getClientFn    func(ctx context.Context, id int64) (*models.Client, error)
	deleteClientFn func(ctx context.Context, actor models.Actor, id int64) error
	alertsFn       func(ctx context.Context) ([]models.Alert, error)
	dashboardFn    func(ctx context.Context) (*models.Dashboard, error)
	auditFn        func(ctx context.Context, actor models.Actor, page models.PageRequest) (models.Page[models.AuditEntry], error)
	exportFn       func(ctx context.Context, actor models.Actor) (*services.ArchiveResult, error)
}

func (s *stubServices) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	if s.registerFn == nil {
		return nil, errUnexpected
	}
	return s.registerFn(ctx, in)
}

func (s *stubServices) Login(ctx context.Context, userName, password string) (*services.TokenPair, *models.User, error) {
	if s.loginFn == nil {
		return nil, nil, errUnexpected
	}
	return s.loginFn(ctx, userName, password)
}

func (s *stubServices) Logout(ctx context.Context, actor models.Actor, refreshToken, tokenID string, exp time.Time) error {
	if s.logoutFn == nil {
		return errUnexpected
	}
	return s.logoutFn(ctx, actor, refreshToken, tokenID, exp)
}

func (s *stubServices) RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	if s.refreshFn == nil {
		return nil, errUnexpected
	}
	return s.refreshFn(ctx, refreshToken)
}

// Authenticate accepts "admin-token" and "clerk-token".
func (s *stubServices) Authenticate(_ context.Context, token string) (*auth.Claims, error) {
	var a models.Actor
	switch token {
	case "admin-token":
		a = adminActor
	case "clerk-token":
		a = clerkActor
	case "revoked-token":
		return nil, common.ErrTokenRevoked
	default:
		return nil, common.ErrInvalidToken
	}
	return &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ID: "jti-" + a.UserName, ExpiresAt: jwt.NewNumericDate(tokenExp)},
		UserID:           a.ID,
		UserName:         a.UserName,
		Role:             a.Role,
	}, nil
}

func (s *stubServices) CreatePackage(ctx context.Context, actor models.Actor, f models.PackageFields) (*models.Package, error) {
	if s.createPkgFn == nil {
		return nil, errUnexpected
	}
	return s.createPkgFn(ctx, actor, f)
}

func (s *stubServices) UpdatePackage(ctx context.Context, actor models.Actor, id int64, f models.PackageFields) (*models.Package, error) {
	if s.updatePkgFn == nil {
		return nil, errUnexpected
	}
	return s.updatePkgFn(ctx, actor, id, f)
}

func (s *stubServices) DeletePackage(ctx context.Context, actor models.Actor, id int64) error {
	if s.deletePkgFn == nil {
		return errUnexpected
	}
	return s.deletePkgFn(ctx, actor, id)
}

func (s *stubServices) GetPackage(ctx context.Context, id int64) (*models.PackageDetail, error) {
	if s.getPkgFn == nil {
		return nil, errUnexpected
	}
	return s.getPkgFn(ctx, id)
}

func (s *stubServices) ListPackages(ctx context.Context, page models.PageRequest) (models.Page[models.Package], error) {
	if s.listPkgFn == nil {
		return models.Page[models.Package]{}, errUnexpected
	}
	return s.listPkgFn(ctx, page)
}

func (s *stubServices) OfferablePackages(ctx context.Context) ([]models.Package, error) {
	if s.offerableFn == nil {
		return nil, errUnexpected
	}
	return s.offerableFn(ctx)
}

func (s *stubServices) CreateReservation(ctx context.Context, actor models.Actor, in services.CreateReservationInput) (*models.Reservation, error) {
	if s.createResFn == nil {
		return nil, errUnexpected
	}
	return s.createResFn(ctx, actor, in)
}

func (s *stubServices) CancelReservation(ctx context.Context, actor models.Actor, id int64, reason string) (models.CancelOutcome, error) {
	if s.cancelResFn == nil {
		return "", errUnexpected
	}
	return s.cancelResFn(ctx, actor, id, reason)
}

func (s *stubServices) ListActive(ctx context.Context, page models.PageRequest) (models.Page[models.ReservationView], error) {
	if s.listActiveFn == nil {
		return models.Page[models.ReservationView]{}, errUnexpected
	}
	return s.listActiveFn(ctx, page)
}

func (s *stubServices) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	if s.getClientFn == nil {
		return nil, errUnexpected
	}
	return s.getClientFn(ctx, id)
}

func (s *stubServices) DeleteClient(ctx context.Context, actor models.Actor, id int64) error {
	if s.deleteClientFn == nil {
		return errUnexpected
	}
	return s.deleteClientFn(ctx, actor, id)
}

func (s *stubServices) Alerts(ctx context.Context) ([]models.Alert, error) {
	if s.alertsFn == nil {
		return nil, errUnexpected
	}
	return s.alertsFn(ctx)
}

func (s *stubServices) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	if s.dashboardFn == nil {
		return nil, errUnexpected
	}
	return s.dashboardFn(ctx)
}

func (s *stubServices) List(ctx context.Context, actor models.Actor, page models.PageRequest) (models.Page[models.AuditEntry], error) {
	if s.auditFn == nil {
		return models.Page[models.AuditEntry]{}, errUnexpected
	}
	return s.auditFn(ctx, actor, page)
}

func (s *stubServices) Export(ctx context.Context, actor models.Actor) (*services.ArchiveResult, error) {
	if s.exportFn == nil {
		return nil, errUnexpected
	}
	return s.exportFn(ctx, actor)
}

func (s *stubServices) bundle() Services {
	return Services{Users: s, Catalog: s, Ledger: s, Clients: s, Reports: s, Audit: s, Archive: s}
}

func newTestServer(t *testing.T, stub *stubServices, deps map[string]Pinger) *Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewServer(Options{
		Address:      "127.0.0.1:0",
		Registerer:   reg,
		Gatherer:     reg,
		Dependencies: deps,
	}, stub.bundle(), logging.Nop())
}

// do sends one request through the full router. token may be empty.
func do(t *testing.T, srv *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}
