package ports

import (
	"context"

	"github.com/securetransact/escrow-api/internal/core/domain"
)

// SendMessageInput carries one user-authored chat line.
type SendMessageInput struct {
	TransactionID string
	SenderID      string
	SenderName    string
	Message       string
	Type          domain.MessageType // empty means text
}

// MessageService is the per-transaction chat channel.
type MessageService interface {
	SendMessage(ctx context.Context, input SendMessageInput) (*domain.Message, error)
	ListMessages(ctx context.Context, transactionID string) ([]*domain.Message, error)
	Conversations(ctx context.Context, userID, query string) ([]domain.Conversation, error)
}
