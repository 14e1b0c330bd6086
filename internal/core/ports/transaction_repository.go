package ports

import (
	"context"

	"github.com/securetransact/escrow-api/internal/core/domain"
)

// TransactionFilter narrows List. An empty UserID lists every transaction.
type TransactionFilter struct {
	UserID string // matches buyer OR seller
}

// TransactionRepository defines persistence operations for transactions.
// List results are ordered by created date, newest first.
type TransactionRepository interface {
	// Create assigns ID when empty and stores t.
	Create(ctx context.Context, t *domain.Transaction) error
	FindByID(ctx context.Context, id string) (*domain.Transaction, error)
	List(ctx context.Context, filter TransactionFilter) ([]*domain.Transaction, error)
	// UpdateStatus overwrites status and last update, and the dispute reason
	// only when change.DisputeReason is non-empty. It returns the stored row.
	UpdateStatus(ctx context.Context, id string, change domain.StatusChange) (*domain.Transaction, error)
	// AppendImage adds uri to the end of the image list.
	AppendImage(ctx context.Context, id, uri string, lastUpdate domain.Date) (*domain.Transaction, error)
}
