package ports

import "context"

// Store bundles the repositories of one storage backend so that the
// backend can be chosen at startup.
type Store interface {
	Users() UserRepository
	Transactions() TransactionRepository
	Messages() MessageRepository
	// Driver names the backend ("memory", "postgres", "sqlite", "mongo").
	Driver() string
	// Ping verifies the backend answers queries.
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
