package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/securetransact/escrow-api/internal/core/domain"
)

const collectionMessages = "messages"

// MessageRepository stores the chat log of every transaction in one
// collection.
type MessageRepository struct {
	col          *mongo.Collection
	transactions *TransactionRepository
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{
		col:          db.Collection(collectionMessages),
		transactions: NewTransactionRepository(db),
	}
}

type mongoMessage struct {
	ID            string    `bson:"_id"`
	TransactionID string    `bson:"transaction_id"`
	SenderID      string    `bson:"sender_id"`
	SenderName    string    `bson:"sender_name"`
	Message       string    `bson:"message"`
	Timestamp     time.Time `bson:"timestamp"`
	Type          string    `bson:"type"`
}

// Append inserts a message. MongoDB has no foreign keys, so the owning
// transaction is checked first.
func (r *MessageRepository) Append(ctx context.Context, m *domain.Message) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	ok, err := r.transactions.exists(ctx, m.TransactionID)
	if err != nil {
		return fmt.Errorf("check transaction: %w", err)
	}
	if !ok {
		return domain.ErrTransactionNotFound
	}

	if m.ID == "" {
		m.ID = newID()
	}
	doc := mongoMessage{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		SenderID:      m.SenderID,
		SenderName:    m.SenderName,
		Message:       m.Message,
		Timestamp:     m.Timestamp.UTC(),
		Type:          string(m.Type),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessageRepository) ListByTransaction(ctx context.Context, transactionID string) ([]*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"transaction_id": transactionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*domain.Message{}
	for cur.Next(ctx) {
		var doc mongoMessage
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, &domain.Message{
			ID:            doc.ID,
			TransactionID: doc.TransactionID,
			SenderID:      doc.SenderID,
			SenderName:    doc.SenderName,
			Message:       doc.Message,
			Timestamp:     doc.Timestamp.UTC(),
			Type:          domain.MessageType(doc.Type),
		})
	}
	return out, cur.Err()
}

func (r *MessageRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "transaction_id", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	return err
}
