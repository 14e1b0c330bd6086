package ports

import (
	"context"
	"io"

	"github.com/shopspring/decimal"

	"github.com/securetransact/escrow-api/internal/core/domain"
)

// CreateTransactionInput carries everything needed to open a transaction.
// BuyerID or SellerID may be a placeholder when the other party is unknown.
type CreateTransactionInput struct {
	Title            string
	Description      string
	Price            decimal.Decimal
	Status           domain.TransactionStatus // empty means pending_acceptance
	BuyerID          string
	SellerID         string
	BuyerName        string
	SellerName       string
	ExpectedDelivery domain.Date
	InspectionPeriod int
	DeliveryAddress  string
	Images           []string
}

// UpdateStatusInput carries a status overwrite.
type UpdateStatusInput struct {
	TransactionID string
	Status        domain.TransactionStatus
	DisputeReason string
}

// ApplyActionInput carries a role-checked lifecycle action.
type ApplyActionInput struct {
	TransactionID string
	UserID        string
	Action        domain.Action
	Reason        string
}

// AttachImageInput carries one uploaded image.
type AttachImageInput struct {
	TransactionID string
	FileName      string
	ContentType   string
	Size          int64
	Body          io.Reader
}

// ActionsView is what the caller can do on a transaction.
type ActionsView struct {
	Role    string          `json:"role"` // buyer or seller
	Actions []domain.Action `json:"actions"`
}

// Stats are the dashboard counters of one user.
type Stats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Disputed  int `json:"disputed"`
}

// TransactionService is the transaction lifecycle mutator and its queries.
type TransactionService interface {
	CreateTransaction(ctx context.Context, input CreateTransactionInput) (*domain.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, input UpdateStatusInput) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context) ([]*domain.Transaction, error)
	ListUserTransactions(ctx context.Context, userID string) ([]*domain.Transaction, error)
	AvailableActions(ctx context.Context, transactionID, userID string) (*ActionsView, error)
	ApplyAction(ctx context.Context, input ApplyActionInput) (*domain.Transaction, error)
	AttachImage(ctx context.Context, input AttachImageInput) (*domain.Transaction, error)
	Stats(ctx context.Context, userID string) (*Stats, error)
}
