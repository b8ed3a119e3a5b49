package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/tourdesk/internal/server/auth"
	"github.com/dmitrijs2005/tourdesk/internal/server/models"
)

func claimsFrom(c echo.Context) (*auth.Claims, error) {
	claims, ok := c.Get(claimsKey).(*auth.Claims)
	if !ok || claims == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return claims, nil
}

// actorFrom returns the caller identified by the authenticate middleware.
func actorFrom(c echo.Context) (models.Actor, error) {
	claims, err := claimsFrom(c)
	if err != nil {
		return models.Actor{}, err
	}
	return claims.Actor(), nil
}

func pathID(c echo.Context) (int64, error) {
	var id int64
	if err := echo.PathParamsBinder(c).MustInt64("id", &id).BindError(); err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
