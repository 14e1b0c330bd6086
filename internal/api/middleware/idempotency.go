package middleware

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/securetransact/escrow-api/internal/api/metrics"
	"github.com/securetransact/escrow-api/internal/core/ports"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

// Idempotency replays the stored response when a request repeats an
// Idempotency-Key already seen for the same route and user. Requests without
// the header pass through. Store failures are logged and the request is
// served normally.
func Idempotency(store ports.IdempotencyStore, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get(HeaderIdempotencyKey)
			if key == "" {
				return next(c)
			}

			ctx := c.Request().Context()
			scope := c.Request().Method + " " + c.Path() + ":" + UserID(c)

			stored, err := store.Lookup(ctx, scope, key)
			if err != nil {
				log.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency lookup failed")
			}
			if stored != nil {
				metrics.IdempotencyTotal.WithLabelValues("hit").Inc()
				c.Response().Header().Set(HeaderReplayed, "true")
				return c.Blob(stored.Status, stored.ContentType, stored.Body)
			}
			metrics.IdempotencyTotal.WithLabelValues("miss").Inc()

			capture := &captureWriter{ResponseWriter: c.Response().Writer}
			c.Response().Writer = capture

			if err := next(c); err != nil {
				return err
			}

			status := c.Response().Status
			if status < http.StatusOK || status >= http.StatusMultipleChoices {
				return nil
			}
			if err := store.Save(ctx, scope, key, ports.StoredResponse{
				Status:      status,
				ContentType: c.Response().Header().Get(echo.HeaderContentType),
				Body:        capture.buf.Bytes(),
			}); err != nil {
				log.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency save failed")
			}
			return nil
		}
	}
}

// captureWriter tees the response body so it can be stored after the
// handler returns.
type captureWriter struct {
	http.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
