package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/tourdesk/internal/common"
	"github.com/dmitrijs2005/tourdesk/internal/logging"
)

// errorResponse is the error envelope of every failed request.
type errorResponse struct {
	Error  string              `json:"error"`
	Fields []common.FieldError `json:"fields,omitempty"`
}

// newHTTPErrorHandler maps service errors to status codes. Unexpected
// errors are logged and reported without detail.
func newHTTPErrorHandler(logger logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err)
		if code == http.StatusInternalServerError {
			logger.Error(c.Request().Context(), "unhandled error",
				"method", c.Request().Method,
				"path", c.Path(),
				"error", err,
			)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error) (int, errorResponse) {
	var verr *common.ValidationError
	if errors.As(err, &verr) {
		return http.StatusUnprocessableEntity, errorResponse{Error: "validation error", Fields: verr.Fields}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	switch {
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, errorResponse{Error: "not found"}
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, errorResponse{Error: "access forbidden"}
	case errors.Is(err, common.ErrorConflict):
		return http.StatusConflict, errorResponse{Error: err.Error()}
	case errors.Is(err, common.ErrorCapacityExceeded):
		return http.StatusConflict, errorResponse{Error: common.ErrorCapacityExceeded.Error()}
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, errorResponse{Error: "invalid credentials"}
	case errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrTokenRevoked),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, errorResponse{Error: err.Error()}
	}

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}
