package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// SelfOnly restricts a route to the user named by the path parameter param.
// It must run after Auth.
func SelfOnly(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if UserID(c) == "" || UserID(c) != c.Param(param) {
				return echo.NewHTTPError(http.StatusForbidden, "you can only modify your own profile")
			}
			return next(c)
		}
	}
}
