package ports

import "context"

// StoredResponse is the first response produced for an idempotency key.
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// IdempotencyStore remembers the first successful response of a key within a
// scope. Lookup returns nil, nil when the key is unknown.
type IdempotencyStore interface {
	Lookup(ctx context.Context, scope, key string) (*StoredResponse, error)
	Save(ctx context.Context, scope, key string, resp StoredResponse) error
}
