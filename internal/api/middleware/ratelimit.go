package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/securetransact/escrow-api/internal/api/metrics"
)

// Limiter decides whether one more request for key fits the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit refuses requests over the limiter's budget with 429, keyed by
// client IP. When the limiter itself fails the request is let through.
func RateLimit(limiter Limiter, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			ok, err := limiter.Allow(c.Request().Context(), ip)
			if err != nil {
				log.Warn().Err(err).Str("remote_ip", ip).Msg("rate limiter unavailable")
				return next(c)
			}
			if !ok {
				metrics.RateLimitedTotal.Inc()
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, try again later")
			}
			return next(c)
		}
	}
}
