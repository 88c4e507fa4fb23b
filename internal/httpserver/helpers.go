package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/nmalenkov/storefront/internal/service"
	"github.com/nmalenkov/storefront/internal/transport"
)

// mapServiceError turns service sentinels into HTTP errors. Anything
// unclassified is logged by the caller and surfaced as a generic 500
// without internal detail.
func mapServiceError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, service.ErrInsufficientStock):
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"error": "Insufficient stock"})
	case errors.Is(err, service.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid input")
	case errors.Is(err, service.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "already exists")
	case errors.Is(err, service.ErrGateway):
		return echo.NewHTTPError(http.StatusBadGateway, "payment gateway unavailable")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(req); err != nil {
		if fields := transport.FieldErrors(err); fields != nil {
			return echo.NewHTTPError(http.StatusBadRequest, echo.Map{
				"error":  "validation failed",
				"fields": fields,
			})
		}
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return nil
}

func userIDFromContext(c echo.Context) (uint, error) {
	v, ok := c.Get("user_id").(string)
	if !ok || v == "" {
		return 0, errors.New("unauthorized")
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, errors.New("unauthorized")
	}
	return uint(id), nil
}

func parseUintParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
