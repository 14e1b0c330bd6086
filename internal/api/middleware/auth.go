package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/securetransact/escrow-api/internal/core/ports"
)

// Context keys set by Auth.
const (
	UserIDKey = "userId"
	EmailKey  = "email"
)

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*ports.Claims, error)
}

// Auth validates the JWT and injects its claims into the context.
// A missing token is rejected with 401, a token that does not verify with 403.
// Browsers cannot set headers on a websocket handshake, so a "token" query
// parameter is accepted when the Authorization header is absent.
func Auth(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c.Request())
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization token")
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusForbidden, "invalid token")
			}

			c.Set(UserIDKey, claims.UserID)
			c.Set(EmailKey, claims.Email)

			return next(c)
		}
	}
}

// UserID returns the authenticated user id, or "" outside Auth.
func UserID(c echo.Context) string {
	id, _ := c.Get(UserIDKey).(string)
	return id
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return r.URL.Query().Get("token")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
