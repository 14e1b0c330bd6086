package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/securetransact/escrow-api/internal/core/domain"
	"github.com/securetransact/escrow-api/internal/core/ports"
)

// MessageService is the append-only chat channel of each transaction.
type MessageService struct {
	txRepo    ports.TransactionRepository
	msgRepo   ports.MessageRepository
	publisher ports.MessagePublisher
	now       func() time.Time
	logger    zerolog.Logger
}

func NewMessageService(
	txRepo ports.TransactionRepository,
	msgRepo ports.MessageRepository,
	publisher ports.MessagePublisher,
	logger zerolog.Logger,
) *MessageService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &MessageService{
		txRepo:    txRepo,
		msgRepo:   msgRepo,
		publisher: publisher,
		now:       time.Now,
		logger:    logger,
	}
}

// SendMessage appends a user-authored message. System messages are reserved
// to the lifecycle mutator.
func (s *MessageService) SendMessage(ctx context.Context, input ports.SendMessageInput) (*domain.Message, error) {
	msgType := input.Type
	if msgType == "" {
		msgType = domain.MessageText
	}
	if !msgType.Valid() {
		return nil, domain.Validation("unknown message type " + string(msgType))
	}
	if msgType == domain.MessageSystem || input.SenderID == domain.SystemSenderID {
		return nil, domain.ErrSystemMessage
	}

	if _, err := s.txRepo.FindByID(ctx, input.TransactionID); err != nil {
		return nil, err
	}

	m := &domain.Message{
		TransactionID: input.TransactionID,
		SenderID:      input.SenderID,
		SenderName:    input.SenderName,
		Message:       input.Message,
		Timestamp:     s.now().UTC(),
		Type:          msgType,
	}
	if err := s.msgRepo.Append(ctx, m); err != nil {
		s.logger.Error().Err(err).Str("transaction_id", input.TransactionID).Msg("failed to append message")
		return nil, err
	}
	s.publisher.Publish(*m)

	s.logger.Debug().
		Str("transaction_id", m.TransactionID).
		Str("sender_id", m.SenderID).
		Str("type", string(m.Type)).
		Msg("message sent")

	return m, nil
}

// ListMessages returns the chat log of a transaction, oldest first.
func (s *MessageService) ListMessages(ctx context.Context, transactionID string) ([]*domain.Message, error) {
	if _, err := s.txRepo.FindByID(ctx, transactionID); err != nil {
		return nil, err
	}
	msgs, err := s.msgRepo.ListByTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	sortMessages(msgs)
	return msgs, nil
}

// Conversations summarizes every chat the user takes part in. A message
// counts as unread when someone else wrote it and it is not a system line;
// there is no tracked read state.
func (s *MessageService) Conversations(ctx context.Context, userID, query string) ([]domain.Conversation, error) {
	if userID == "" {
		return nil, domain.Validation("user id is required")
	}
	txs, err := s.txRepo.List(ctx, ports.TransactionFilter{UserID: userID})
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	conversations := make([]domain.Conversation, 0, len(txs))
	for _, tx := range txs {
		msgs, err := s.msgRepo.ListByTransaction(ctx, tx.ID)
		if err != nil {
			return nil, err
		}
		if len(msgs) == 0 {
			continue
		}
		sortMessages(msgs)

		last := msgs[len(msgs)-1]
		if query != "" &&
			!strings.Contains(strings.ToLower(tx.Title), query) &&
			!strings.Contains(strings.ToLower(last.Message), query) {
			continue
		}

		unread := 0
		for _, m := range msgs {
			if m.SenderID != userID && !m.IsSystem() {
				unread++
			}
		}
		conversations = append(conversations, domain.Conversation{
			Transaction: *tx,
			LastMessage: last,
			UnreadCount: unread,
		})
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].LastMessage.Timestamp.After(conversations[j].LastMessage.Timestamp)
	})
	return conversations, nil
}

// sortMessages orders by timestamp; equal timestamps keep storage order.
func sortMessages(msgs []*domain.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}
