package http

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/securetransact/escrow-api/internal/core/ports"
	"github.com/securetransact/escrow-api/internal/infrastructure/http/handlers"
)

// RegisterProbes mounts the unauthenticated health routes on g. rdb may be
// nil when Redis is not configured.
func RegisterProbes(g *echo.Group, store ports.Store, rdb *redis.Client) {
	deps := map[string]handlers.Pinger{"database": store}
	if rdb != nil {
		deps["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	healthHandler := handlers.NewHealthHandler(store.Driver())
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps)

	g.GET("/health", healthHandler.Liveness)       // liveness  – is the process alive?
	g.GET("/db-test", healthDepsHandler.Readiness) // readiness – are dependencies up?
}
