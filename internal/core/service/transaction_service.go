package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/securetransact/escrow-api/internal/core/domain"
	"github.com/securetransact/escrow-api/internal/core/ports"
)

// TransactionService is the transaction lifecycle mutator. It overwrites a
// transaction's status and records the change as a system chat message.
// The two writes are not atomic.
type TransactionService struct {
	txRepo    ports.TransactionRepository
	msgRepo   ports.MessageRepository
	images    ports.ImageStore
	publisher ports.MessagePublisher
	strict    bool
	now       func() time.Time
	logger    zerolog.Logger
}

// TransactionOption customizes a TransactionService.
type TransactionOption func(*TransactionService)

// WithStrictTransitions makes UpdateTransactionStatus reject moves that the
// forward lifecycle does not allow.
func WithStrictTransitions(strict bool) TransactionOption {
	return func(s *TransactionService) { s.strict = strict }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) TransactionOption {
	return func(s *TransactionService) { s.now = now }
}

// WithImageStore enables image uploads.
func WithImageStore(images ports.ImageStore) TransactionOption {
	return func(s *TransactionService) { s.images = images }
}

// WithPublisher forwards appended system messages to live subscribers.
func WithPublisher(p ports.MessagePublisher) TransactionOption {
	return func(s *TransactionService) { s.publisher = p }
}

func NewTransactionService(
	txRepo ports.TransactionRepository,
	msgRepo ports.MessageRepository,
	logger zerolog.Logger,
	opts ...TransactionOption,
) *TransactionService {
	s := &TransactionService{
		txRepo:    txRepo,
		msgRepo:   msgRepo,
		publisher: nopPublisher{},
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTransaction stores a new transaction and appends the opening system
// message. A failed message write is logged; the transaction is still
// returned.
func (s *TransactionService) CreateTransaction(ctx context.Context, input ports.CreateTransactionInput) (*domain.Transaction, error) {
	status := input.Status
	if status == "" {
		status = domain.StatusPendingAcceptance
	}
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	price, err := domain.NormalizePrice(input.Price)
	if err != nil {
		return nil, err
	}

	inspection := input.InspectionPeriod
	if inspection <= 0 {
		inspection = domain.DefaultInspectionPeriod
	}

	today := s.today()
	tx := &domain.Transaction{
		Title:            input.Title,
		Description:      input.Description,
		Price:            price,
		Status:           status,
		BuyerID:          placeholderOr(input.BuyerID, domain.PlaceholderBuyerID),
		SellerID:         placeholderOr(input.SellerID, domain.PlaceholderSellerID),
		BuyerName:        input.BuyerName,
		SellerName:       input.SellerName,
		CreatedDate:      today,
		LastUpdate:       today,
		ExpectedDelivery: input.ExpectedDelivery,
		InspectionPeriod: inspection,
		DeliveryAddress:  input.DeliveryAddress,
		Images:           append([]string(nil), input.Images...),
	}

	if err := s.txRepo.Create(ctx, tx); err != nil {
		s.logger.Error().Err(err).Msg("failed to create transaction")
		return nil, err
	}

	if err := s.appendSystemMessage(ctx, tx.ID, domain.CreatedMessage); err != nil {
		s.logger.Warn().Err(err).Str("transaction_id", tx.ID).Msg("transaction created without opening message")
	}

	s.logger.Info().
		Str("transaction_id", tx.ID).
		Str("buyer_id", tx.BuyerID).
		Str("seller_id", tx.SellerID).
		Str("price", tx.Price.String()).
		Msg("transaction created")

	return tx, nil
}

// UpdateTransactionStatus overwrites the status, stamps the last update and
// appends the canned message for the new status. Any transition is accepted
// unless strict mode is on.
func (s *TransactionService) UpdateTransactionStatus(ctx context.Context, input ports.UpdateStatusInput) (*domain.Transaction, error) {
	if !input.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	if s.strict {
		current, err := s.txRepo.FindByID(ctx, input.TransactionID)
		if err != nil {
			return nil, err
		}
		if !current.Status.CanTransitionTo(input.Status) {
			return nil, fmt.Errorf("%w (from %s to %s)", domain.ErrInvalidTransition, current.Status, input.Status)
		}
	}

	tx, err := s.txRepo.UpdateStatus(ctx, input.TransactionID, domain.StatusChange{
		Status:        input.Status,
		DisputeReason: strings.TrimSpace(input.DisputeReason),
		LastUpdate:    s.today(),
	})
	if err != nil {
		return nil, err
	}

	if err := s.appendSystemMessage(ctx, tx.ID, input.Status.SystemMessage()); err != nil {
		s.logger.Warn().Err(err).Str("transaction_id", tx.ID).Str("status", string(input.Status)).Msg("status changed without history message")
	}

	s.logger.Info().
		Str("transaction_id", tx.ID).
		Str("status", string(tx.Status)).
		Msg("transaction status updated")

	return tx, nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.txRepo.FindByID(ctx, id)
}

func (s *TransactionService) ListTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	return s.txRepo.List(ctx, ports.TransactionFilter{})
}

func (s *TransactionService) ListUserTransactions(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	if userID == "" {
		return nil, domain.Validation("user id is required")
	}
	return s.txRepo.List(ctx, ports.TransactionFilter{UserID: userID})
}

// AvailableActions reports the caller's role and the steps it may take.
// Anyone who is not the buyer is offered the seller's side.
func (s *TransactionService) AvailableActions(ctx context.Context, transactionID, userID string) (*ports.ActionsView, error) {
	tx, err := s.txRepo.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	isBuyer := tx.IsBuyer(userID)
	return &ports.ActionsView{
		Role:    roleName(isBuyer),
		Actions: domain.AvailableActions(tx.Status, isBuyer),
	}, nil
}

// ApplyAction checks the action against the caller's role and current status,
// then performs the matching status update.
func (s *TransactionService) ApplyAction(ctx context.Context, input ports.ApplyActionInput) (*domain.Transaction, error) {
	target, ok := input.Action.Target()
	if !ok {
		return nil, domain.Validation("unknown action " + string(input.Action))
	}

	tx, err := s.txRepo.FindByID(ctx, input.TransactionID)
	if err != nil {
		return nil, err
	}

	isBuyer := tx.IsBuyer(input.UserID)
	if !domain.Allows(tx.Status, isBuyer, input.Action) {
		return nil, fmt.Errorf("%w: %s cannot %s while %s", domain.ErrActionNotAllowed, roleName(isBuyer), input.Action, tx.Status)
	}
	if input.Action == domain.ActionDispute && strings.TrimSpace(input.Reason) == "" {
		return nil, domain.Validation("dispute reason is required")
	}

	return s.UpdateTransactionStatus(ctx, ports.UpdateStatusInput{
		TransactionID: tx.ID,
		Status:        target,
		DisputeReason: input.Reason,
	})
}

// AttachImage uploads an image and appends its URI to the transaction.
func (s *TransactionService) AttachImage(ctx context.Context, input ports.AttachImageInput) (*domain.Transaction, error) {
	if s.images == nil {
		return nil, domain.ErrImagesDisabled
	}
	if _, err := s.txRepo.FindByID(ctx, input.TransactionID); err != nil {
		return nil, err
	}

	key := path.Join("transactions", input.TransactionID, uuid.NewString()+path.Ext(input.FileName))
	uri, err := s.images.Put(ctx, key, input.Body, input.Size, input.ContentType)
	if err != nil {
		return nil, domain.Wrap(domain.KindUnreachable, "image upload failed", err)
	}

	tx, err := s.txRepo.AppendImage(ctx, input.TransactionID, uri, s.today())
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("transaction_id", tx.ID).Str("uri", uri).Msg("image attached")
	return tx, nil
}

// Stats buckets the user's transactions the way the dashboard shows them.
func (s *TransactionService) Stats(ctx context.Context, userID string) (*ports.Stats, error) {
	txs, err := s.ListUserTransactions(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := &ports.Stats{Total: len(txs)}
	for _, tx := range txs {
		switch {
		case tx.Status.IsActive():
			stats.Active++
		case tx.Status.IsPending():
			stats.Pending++
		case tx.Status == domain.StatusCompleted:
			stats.Completed++
		case tx.Status == domain.StatusDisputed:
			stats.Disputed++
		}
	}
	return stats, nil
}

func (s *TransactionService) appendSystemMessage(ctx context.Context, transactionID, text string) error {
	m := &domain.Message{
		TransactionID: transactionID,
		SenderID:      domain.SystemSenderID,
		SenderName:    domain.SystemSenderName,
		Message:       text,
		Timestamp:     s.now().UTC(),
		Type:          domain.MessageSystem,
	}
	if err := s.msgRepo.Append(ctx, m); err != nil {
		return err
	}
	s.publisher.Publish(*m)
	return nil
}

func (s *TransactionService) today() domain.Date {
	return domain.DateOf(s.now().UTC())
}

func placeholderOr(id, placeholder string) string {
	if domain.IsPlaceholderParty(id) {
		return placeholder
	}
	return id
}

func roleName(isBuyer bool) string {
	if isBuyer {
		return "buyer"
	}
	return "seller"
}

type nopPublisher struct{}

func (nopPublisher) Publish(domain.Message) {}
