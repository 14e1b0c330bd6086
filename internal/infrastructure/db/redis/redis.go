// Package redis backs idempotent replays and auth rate limiting.
//
// Keys:
//
//	idem:<scope>:<key>           stored 2xx response, TTL IDEMPOTENCY_TTL
//	<prefix>:<client>:<window>   fixed-window counter, TTL one window
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 5 * time.Second

type Config struct {
	Addr     string
	Password string
	DB       int
	// Timeout bounds the startup ping; zero means five seconds.
	Timeout time.Duration
}

// Connect opens a client and pings it once. A failed ping closes the client.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   "escrow-api",
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}
