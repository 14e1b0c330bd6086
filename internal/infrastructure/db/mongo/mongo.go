package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/securetransact/escrow-api/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database. A default timeout is
// applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(cfg.Database)
	return client, db, nil
}

// Store implements ports.Store over one MongoDB database.
type Store struct {
	client       *mongo.Client
	users        *UserRepository
	transactions *TransactionRepository
	messages     *MessageRepository
}

var _ ports.Store = (*Store)(nil)

// Open connects and makes sure the indexes exist.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	client, db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := NewStore(client, db)
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}
	return s, nil
}

func NewStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		client:       client,
		users:        NewUserRepository(db),
		transactions: NewTransactionRepository(db),
		messages:     NewMessageRepository(db),
	}
}

// EnsureIndexes creates the unique email index and the lookup indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if err := s.users.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := s.transactions.EnsureIndexes(ctx); err != nil {
		return err
	}
	return s.messages.EnsureIndexes(ctx)
}

func (s *Store) Users() ports.UserRepository               { return s.users }
func (s *Store) Transactions() ports.TransactionRepository { return s.transactions }
func (s *Store) Messages() ports.MessageRepository         { return s.messages }
func (s *Store) Driver() string                            { return "mongo" }

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// newID returns a hex ObjectID. ObjectIDs grow monotonically, which the
// repositories use as the insertion-order tie breaker.
func newID() string {
	return primitive.NewObjectID().Hex()
}
