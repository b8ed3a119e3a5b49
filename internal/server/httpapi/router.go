package httpapi

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dmitrijs2005/tourdesk/internal/logging"
)

func newRouter(opts Options, svc Services, logger logging.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newValidator()
	e.HTTPErrorHandler = newHTTPErrorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestContext())
	e.Use(requestLogger(logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "tourdesk",
		Subsystem:  "http",
		Registerer: opts.Registerer,
		Skipper: func(c echo.Context) bool {
			return isProbe(c.Path())
		},
	}))

	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: opts.Gatherer}))

	health := &healthHandler{deps: opts.Dependencies}
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)

	h := &handlers{svc: svc}
	api := e.Group("/api/v1")

	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/refresh", h.Refresh)

	authed := authenticate(svc.Users)
	admin := requireAdmin()

	api.POST("/auth/logout", h.Logout, authed)

	api.GET("/packages", h.ListPackages, authed)
	api.GET("/packages/offerable", h.OfferablePackages, authed)
	api.GET("/packages/:id", h.GetPackage, authed)
	api.POST("/packages", h.CreatePackage, authed, admin)
	api.PUT("/packages/:id", h.UpdatePackage, authed, admin)
	api.DELETE("/packages/:id", h.DeletePackage, authed, admin)

	api.GET("/reservations", h.ListReservations, authed)
	api.POST("/reservations", h.CreateReservation, authed)
	api.POST("/reservations/:id/cancel", h.CancelReservation, authed)

	api.GET("/clients/:id", h.GetClient, authed)
	api.DELETE("/clients/:id", h.DeleteClient, authed, admin)

	api.GET("/dashboard", h.Dashboard, authed)
	api.GET("/alerts", h.Alerts, authed)

	api.GET("/audit", h.ListAudit, authed, admin)
	api.POST("/audit/export", h.ExportAudit, authed, admin)

	return e
}
