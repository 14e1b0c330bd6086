package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/securetransact/escrow-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string           `json:"error"`
	Kind  domain.ErrorKind `json:"kind,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain error kinds to their HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>", "kind": "<kind>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message), Kind: kindForStatus(he.Code)}
	}

	if errors.Is(err, domain.ErrInvalidTransition) {
		return http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Kind: domain.KindValidationFailed}
	}

	kind := domain.KindOf(err)
	switch kind {
	case domain.KindDuplicateEmail:
		return http.StatusConflict, errorResponse{Error: domain.MessageOf(err), Kind: kind}
	case domain.KindNotFound:
		return http.StatusNotFound, errorResponse{Error: domain.MessageOf(err), Kind: kind}
	case domain.KindUnauthorized:
		return http.StatusUnauthorized, errorResponse{Error: domain.MessageOf(err), Kind: kind}
	case domain.KindValidationFailed:
		// Wrapped validation errors carry useful context (e.g. the action and status).
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: kind}
	case domain.KindUnreachable:
		log.Warn().Err(err).Str("path", c.Path()).Msg("dependency unavailable")
		return http.StatusServiceUnavailable, errorResponse{Error: domain.MessageOf(err), Kind: kind}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error", Kind: domain.KindInternal}
}

// kindForStatus classifies router and middleware errors so that every
// envelope carries a kind the client understands.
func kindForStatus(code int) domain.ErrorKind {
	switch {
	case code == http.StatusConflict:
		return domain.KindDuplicateEmail
	case code == http.StatusNotFound:
		return domain.KindNotFound
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.KindUnauthorized
	case code == http.StatusServiceUnavailable:
		return domain.KindUnreachable
	case code >= 500:
		return domain.KindInternal
	case code >= 400 && code != http.StatusTooManyRequests:
		return domain.KindValidationFailed
	}
	return ""
}
