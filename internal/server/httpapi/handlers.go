package httpapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/tourdesk/internal/server/models"
	"github.com/dmitrijs2005/tourdesk/internal/server/services"
)

type handlers struct {
	svc Services
}

// bind decodes the request into req and runs struct validation.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}

func bindPage(c echo.Context) (models.PageRequest, error) {
	var q pageQuery
	if err := c.Bind(&q); err != nil {
		return models.PageRequest{}, echo.NewHTTPError(http.StatusBadRequest, "invalid paging parameters")
	}
	return q.request(), nil
}

// --- auth ---

func (h *handlers) Register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.svc.Users.Register(c.Request().Context(), services.RegisterInput{
		UserName:   req.UserName,
		Email:      req.Email,
		Password:   req.Password,
		SecretCode: req.SecretCode,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toUserResponse(user))
}

func (h *handlers) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	pair, user, err := h.svc.Users.Login(c.Request().Context(), req.UserName, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTokenResponse(pair, user))
}

func (h *handlers) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	pair, err := h.svc.Users.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTokenResponse(pair, nil))
}

func (h *handlers) Logout(c echo.Context) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return err
	}
	var req logoutRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	if err := h.svc.Users.Logout(c.Request().Context(), claims.Actor(), req.RefreshToken, claims.ID, expires); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// --- packages ---

func (h *handlers) ListPackages(c echo.Context) error {
	page, err := bindPage(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Catalog.ListPackages(c.Request().Context(), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPageResponse(p, toPackageResponse))
}

func (h *handlers) OfferablePackages(c echo.Context) error {
	items, err := h.svc.Catalog.OfferablePackages(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]packageResponse, 0, len(items))
	for _, p := range items {
		out = append(out, toPackageResponse(p))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handlers) GetPackage(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.Catalog.GetPackage(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPackageDetailResponse(d))
}

func (h *handlers) CreatePackage(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req packageRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	p, err := h.svc.Catalog.CreatePackage(c.Request().Context(), actor, req.fields())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toPackageResponse(*p))
}

func (h *handlers) UpdatePackage(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req packageRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	p, err := h.svc.Catalog.UpdatePackage(c.Request().Context(), actor, id, req.fields())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPackageResponse(*p))
}

func (h *handlers) DeletePackage(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Catalog.DeletePackage(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// --- reservations ---

func (h *handlers) ListReservations(c echo.Context) error {
	page, err := bindPage(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Ledger.ListActive(c.Request().Context(), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPageResponse(p, toReservationViewResponse))
}

func (h *handlers) CreateReservation(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req reservationRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	r, err := h.svc.Ledger.CreateReservation(c.Request().Context(), actor, services.CreateReservationInput{
		PackageID:   req.PackageID,
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toReservationResponse(*r))
}

func (h *handlers) CancelReservation(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req cancelRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	outcome, err := h.svc.Ledger.CancelReservation(c.Request().Context(), actor, id, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cancelResponse{Outcome: outcome})
}

// --- clients ---

func (h *handlers) GetClient(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	client, err := h.svc.Clients.GetClient(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toClientResponse(client))
}

func (h *handlers) DeleteClient(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Clients.DeleteClient(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// --- reports ---

func (h *handlers) Dashboard(c echo.Context) error {
	d, err := h.svc.Reports.Dashboard(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dashboardResponse{
		UpcomingPackages:   d.UpcomingPackages,
		ActiveReservations: d.ActiveReservations,
		Alerts:             toAlertResponses(d.Alerts),
	})
}

func (h *handlers) Alerts(c echo.Context) error {
	alerts, err := h.svc.Reports.Alerts(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAlertResponses(alerts))
}

// --- audit ---

func (h *handlers) ListAudit(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	page, err := bindPage(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Audit.List(c.Request().Context(), actor, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPageResponse(p, func(e models.AuditEntry) models.AuditEntry { return e }))
}

func (h *handlers) ExportAudit(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	res, err := h.svc.Archive.Export(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, archiveResponse{Bucket: res.Bucket, Key: res.Key, Entries: res.Entries})
}
