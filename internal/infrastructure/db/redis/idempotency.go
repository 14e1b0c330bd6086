package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/securetransact/escrow-api/internal/core/ports"
)

const defaultIdempotencyTTL = 24 * time.Hour

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore remembers create responses by client-supplied key so that
// retries replay the original result instead of creating a duplicate.
// Key format: idem:<scope>:<key>
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore wraps client. A non-positive ttl falls back to 24h.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Lookup returns the stored response for key, or nil when none exists.
func (s *IdempotencyStore) Lookup(ctx context.Context, scope, key string) (*ports.StoredResponse, error) {
	raw, err := s.client.Get(ctx, s.key(scope, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	var resp ports.StoredResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("idempotency decode: %w", err)
	}
	return &resp, nil
}

// Save records resp for key unless a response is already stored; the first
// writer wins.
func (s *IdempotencyStore) Save(ctx context.Context, scope, key string, resp ports.StoredResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("idempotency encode: %w", err)
	}
	if err := s.client.SetNX(ctx, s.key(scope, key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency save: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(scope, key string) string {
	return fmt.Sprintf("idem:%s:%s", scope, key)
}
