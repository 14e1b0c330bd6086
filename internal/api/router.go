package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/securetransact/escrow-api/docs"
	"github.com/securetransact/escrow-api/internal/api/handler"
	"github.com/securetransact/escrow-api/internal/api/middleware"
	"github.com/securetransact/escrow-api/internal/core/ports"
	httpinfra "github.com/securetransact/escrow-api/internal/infrastructure/http"
	"github.com/securetransact/escrow-api/pkg/logger"
)

const maxImageUpload = "10M"

// Dependencies are the collaborators the router wires into handlers.
// Redis, Idempotency, RateLimiter and Stream are optional.
type Dependencies struct {
	Auth         ports.AuthService
	Users        ports.UserService
	Transactions ports.TransactionService
	Messages     ports.MessageService
	Store        ports.Store

	Redis       *redis.Client
	Idempotency ports.IdempotencyStore
	RateLimiter middleware.Limiter
	Stream      handler.StreamServer

	// Registerer receives the HTTP metrics; nil means the default registry.
	Registerer prometheus.Registerer
	Logger     zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	log := deps.Logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)
	e.Validator = handler.NewValidator()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(logger.RequestLogger(log))
	e.Use(echomiddleware.CORS())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "escrow",
		Registerer: deps.Registerer,
	}))

	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	userHandler := handler.NewUserHandler(deps.Users, deps.Transactions, deps.Messages)
	txHandler := handler.NewTransactionHandler(deps.Transactions, log)
	msgHandler := handler.NewMessageHandler(deps.Messages, deps.Transactions, deps.Stream, log)

	authMiddleware := middleware.Auth(deps.Auth)
	createMiddleware := []echo.MiddlewareFunc{authMiddleware}
	if deps.Idempotency != nil {
		createMiddleware = append(createMiddleware, middleware.Idempotency(deps.Idempotency, log))
	}

	api := e.Group("/api")

	// --- Health probes (no auth required) ---
	httpinfra.RegisterProbes(api, deps.Store, deps.Redis)

	// --- Auth routes ---
	auth := api.Group("/auth")
	if deps.RateLimiter != nil {
		auth.Use(middleware.RateLimit(deps.RateLimiter, log))
	}
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// --- Users ---
	api.GET("/users/:id", userHandler.Get, authMiddleware)
	api.PUT("/users/:id", userHandler.Update, authMiddleware, middleware.SelfOnly("id"))
	api.GET("/users/:id/stats", userHandler.Stats, authMiddleware)
	api.GET("/users/:id/conversations", userHandler.Conversations, authMiddleware)

	// --- Transactions ---
	api.GET("/transactions", txHandler.List, authMiddleware)
	api.POST("/transactions", txHandler.Create, createMiddleware...)
	api.GET("/transactions/user/:userId", txHandler.ListByUser, authMiddleware)
	api.GET("/transactions/:id", txHandler.Get, authMiddleware)
	api.PUT("/transactions/:id/status", txHandler.UpdateStatus, authMiddleware)
	api.GET("/transactions/:id/actions", txHandler.Actions, authMiddleware)
	api.POST("/transactions/:id/actions/:action", txHandler.ApplyAction, authMiddleware)
	api.POST("/transactions/:id/images", txHandler.UploadImage, authMiddleware, echomiddleware.BodyLimit(maxImageUpload))

	// --- Messages ---
	api.GET("/transactions/:id/messages", msgHandler.List, authMiddleware)
	api.GET("/transactions/:id/messages/stream", msgHandler.Stream, authMiddleware)
	api.POST("/messages", msgHandler.Send, createMiddleware...)

	return e
}
