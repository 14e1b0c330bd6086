package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/securetransact/escrow-api/internal/api/middleware"
)

// currentUserID returns the id injected by the Auth middleware. An empty id
// means the route was mounted without Auth; reject with 401.
func currentUserID(c echo.Context) (string, error) {
	id := middleware.UserID(c)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return id, nil
}

// bindAndValidate decodes the request into req and runs its validate tags.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}
