package ports

import (
	"context"

	"github.com/securetransact/escrow-api/internal/core/domain"
)

// MessageRepository is the append-only chat log, partitioned by transaction.
type MessageRepository interface {
	// Append assigns ID when empty and stores m.
	Append(ctx context.Context, m *domain.Message) error
	// ListByTransaction returns messages ordered by timestamp ascending; ties
	// keep insertion order.
	ListByTransaction(ctx context.Context, transactionID string) ([]*domain.Message, error)
}
