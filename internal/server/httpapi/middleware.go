package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dmitrijs2005/tourdesk/internal/logging"
	"github.com/dmitrijs2005/tourdesk/internal/server/auth"
)

const claimsKey = "claims"

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error)
}

// authenticate resolves the bearer token into claims stored on the
// context. Token errors are left to the error handler.
func authenticate(a Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims, err := a.Authenticate(c.Request().Context(), parts[1])
			if err != nil {
				return err
			}

			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

// requireAdmin must run after authenticate.
func requireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, err := actorFrom(c)
			if err != nil {
				return err
			}
			if !actor.IsAdmin() {
				return echo.NewHTTPError(http.StatusForbidden, "admin role required")
			}
			return next(c)
		}
	}
}

func requestLogger(l logging.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.String(),
			}
			ctx := c.Request().Context()
			switch {
			case v.Error != nil:
				l.Warn(ctx, "request failed", append(args, "error", v.Error.Error())...)
			case isProbe(v.URI):
				l.Debug(ctx, "request", args...)
			default:
				l.Info(ctx, "request", args...)
			}
			return nil
		},
	})
}

// requestContext copies the id set by middleware.RequestID into the request
// context so service logs carry it too.
func requestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			if id != "" {
				req := c.Request()
				c.SetRequest(req.WithContext(logging.ContextWithRequestID(req.Context(), id)))
			}
			return next(c)
		}
	}
}

func isProbe(uri string) bool {
	return uri == "/metrics" || strings.HasPrefix(uri, "/health")
}
