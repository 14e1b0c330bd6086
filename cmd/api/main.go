// @title                      SecureTransact Escrow API
// @version                    1.0
// @description                Escrow marketplace backend: users, transactions with their lifecycle, and per-transaction chat.
// @BasePath                   /api
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/securetransact/escrow-api/internal/api"
	"github.com/securetransact/escrow-api/internal/core/ports"
	"github.com/securetransact/escrow-api/internal/core/service"
	"github.com/securetransact/escrow-api/internal/infrastructure/chat"
	"github.com/securetransact/escrow-api/internal/infrastructure/config"
	"github.com/securetransact/escrow-api/internal/infrastructure/db/memory"
	"github.com/securetransact/escrow-api/internal/infrastructure/db/mongo"
	redisstore "github.com/securetransact/escrow-api/internal/infrastructure/db/redis"
	"github.com/securetransact/escrow-api/internal/infrastructure/db/sqlstore"
	"github.com/securetransact/escrow-api/internal/infrastructure/objectstore"
	"github.com/securetransact/escrow-api/internal/infrastructure/queue"
	"github.com/securetransact/escrow-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "escrow-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "escrow-api",
	})

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("closing storage")
		}
	}()
	log.Info().Str("driver", store.Driver()).Msg("storage ready")

	hub := chat.NewHub(logger.Component("chat"))
	dispatcher := queue.NewDispatcher(cfg.ChatWorkers, hub, logger.Component("dispatcher"))
	dispatcher.Start(ctx)

	txOpts := []service.TransactionOption{
		service.WithStrictTransitions(cfg.StrictTransitions),
		service.WithPublisher(dispatcher),
	}
	if cfg.Minio.Endpoint != "" {
		images, err := openImageStore(ctx, cfg.Minio)
		if err != nil {
			return err
		}
		txOpts = append(txOpts, service.WithImageStore(images))
		log.Info().Str("bucket", cfg.Minio.Bucket).Msg("image uploads enabled")
	}

	authService := service.NewAuthService(store.Users(), cfg.JWTSecret, cfg.TokenTTL, log)
	deps := api.Dependencies{
		Auth:         authService,
		Users:        service.NewUserService(store.Users(), log),
		Transactions: service.NewTransactionService(store.Transactions(), store.Messages(), log, txOpts...),
		Messages:     service.NewMessageService(store.Transactions(), store.Messages(), dispatcher, log),
		Store:        store,
		Stream:       hub,
		Logger:       log,
	}

	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		if err := wireRedis(&deps, rdb, cfg.Redis); err != nil {
			return err
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if dropped := dispatcher.Dropped(); dropped > 0 {
		log.Warn().Uint64("dropped", dropped).Msg("chat events dropped during run")
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (ports.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		return sqlstore.Open(ctx, sqlstore.Config{Driver: sqlstore.DriverPostgres, DSN: cfg.Storage.DatabaseURL})
	case config.DriverSQLite:
		return sqlstore.Open(ctx, sqlstore.Config{Driver: sqlstore.DriverSQLite, DSN: cfg.Storage.SQLitePath})
	case config.DriverMongo:
		return mongo.Open(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	default:
		return memory.NewStore(), nil
	}
}

func openImageStore(ctx context.Context, cfg config.MinioConfig) (*objectstore.MinioStore, error) {
	images, err := objectstore.NewMinioStore(objectstore.Config{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		UseSSL:    cfg.UseSSL,
		PublicURL: cfg.PublicURL,
	})
	if err != nil {
		return nil, err
	}
	if err := images.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return images, nil
}

func wireRedis(deps *api.Dependencies, rdb *goredis.Client, cfg config.RedisConfig) error {
	deps.Redis = rdb
	deps.Idempotency = redisstore.NewIdempotencyStore(rdb, cfg.IdempotencyTTL)
	if cfg.AuthRateLimit > 0 {
		limiter, err := redisstore.NewFixedWindowLimiter(rdb, "auth", cfg.AuthRateLimit, cfg.AuthRateWindow)
		if err != nil {
			return err
		}
		deps.RateLimiter = limiter
	}
	return nil
}
