package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/securetransact/escrow-api/internal/core/domain"
	"github.com/securetransact/escrow-api/internal/core/ports"
	"github.com/securetransact/escrow-api/internal/infrastructure/db/memory"
)

// steppingClock advances by one second per call so timestamps are ordered.
func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func newMessageFixture(t *testing.T) (*TransactionService, *MessageService, *recordingPublisher) {
	t.Helper()
	store := memory.NewStore()
	clock := steppingClock(fixedNow)
	pub := &recordingPublisher{}
	txSvc := NewTransactionService(store.Transactions(), store.Messages(), zerolog.Nop(), WithClock(clock))
	msgSvc := NewMessageService(store.Transactions(), store.Messages(), pub, zerolog.Nop())
	msgSvc.now = clock
	return txSvc, msgSvc, pub
}

func TestMessageService_SendAndList(t *testing.T) {
	txSvc, msgSvc, pub := newMessageFixture(t)
	tx := createDeal(t, txSvc)
	ctx := context.Background()

	sent, err := msgSvc.SendMessage(ctx, ports.SendMessageInput{
		TransactionID: tx.ID,
		SenderID:      "1",
		SenderName:    "Bea",
		Message:       "Is it still available?",
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if sent.ID == "" || sent.Type != domain.MessageText {
		t.Fatalf("unexpected message: %+v", sent)
	}
	if len(pub.published) != 1 || pub.published[0].ID != sent.ID {
		t.Fatalf("expected message to be published, got %+v", pub.published)
	}

	msgs, err := msgSvc.ListMessages(ctx, tx.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected opening message plus one, got %d", len(msgs))
	}
	if !msgs[0].IsSystem() || msgs[1].ID != sent.ID {
		t.Fatalf("unexpected order: %+v %+v", msgs[0], msgs[1])
	}
}

func TestMessageService_SendRejections(t *testing.T) {
	txSvc, msgSvc, _ := newMessageFixture(t)
	tx := createDeal(t, txSvc)
	ctx := context.Background()

	if _, err := msgSvc.SendMessage(ctx, ports.SendMessageInput{TransactionID: "missing", SenderID: "1", Message: "hi"}); !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
	if _, err := msgSvc.SendMessage(ctx, ports.SendMessageInput{TransactionID: tx.ID, SenderID: "1", Message: "x", Type: domain.MessageSystem}); !errors.Is(err, domain.ErrSystemMessage) {
		t.Fatalf("expected ErrSystemMessage, got %v", err)
	}
	if _, err := msgSvc.SendMessage(ctx, ports.SendMessageInput{TransactionID: tx.ID, SenderID: domain.SystemSenderID, Message: "x"}); !errors.Is(err, domain.ErrSystemMessage) {
		t.Fatalf("expected ErrSystemMessage for system sender, got %v", err)
	}
	if _, err := msgSvc.SendMessage(ctx, ports.SendMessageInput{TransactionID: tx.ID, SenderID: "1", Message: "x", Type: "video"}); domain.KindOf(err) != domain.KindValidationFailed {
		t.Fatalf("expected validation failure, got %v", err)
	}
}

func TestMessageService_ListUnknownTransaction(t *testing.T) {
	_, msgSvc, _ := newMessageFixture(t)
	if _, err := msgSvc.ListMessages(context.Background(), "missing"); !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestMessageService_Conversations(t *testing.T) {
	txSvc, msgSvc, _ := newMessageFixture(t)
	ctx := context.Background()

	camera := createDeal(t, txSvc)
	bike, err := txSvc.CreateTransaction(ctx, ports.CreateTransactionInput{Title: "Road bike", BuyerID: "1", SellerID: "3"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	send := func(txID, sender, text string) {
		t.Helper()
		if _, err := msgSvc.SendMessage(ctx, ports.SendMessageInput{TransactionID: txID, SenderID: sender, Message: text}); err != nil {
			t.Fatalf("send failed: %v", err)
		}
	}
	send(bike.ID, "3", "Frame size is 56")
	send(camera.ID, "2", "Lens included")
	send(camera.ID, "1", "Great, thanks")

	convs, err := msgSvc.Conversations(ctx, "1", "")
	if err != nil {
		t.Fatalf("conversations failed: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	if convs[0].Transaction.ID != camera.ID {
		t.Fatalf("expected most recent conversation first")
	}
	if convs[0].LastMessage.Message != "Great, thanks" || convs[0].UnreadCount != 1 {
		t.Fatalf("unexpected camera summary: %+v", convs[0])
	}
	if convs[1].UnreadCount != 1 {
		t.Fatalf("unexpected bike summary: %+v", convs[1])
	}

	filtered, err := msgSvc.Conversations(ctx, "1", "BIKE")
	if err != nil {
		t.Fatalf("filtered conversations failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Transaction.ID != bike.ID {
		t.Fatalf("expected only the bike conversation, got %+v", filtered)
	}

	none, _ := msgSvc.Conversations(ctx, "42", "")
	if len(none) != 0 {
		t.Fatalf("expected no conversations for a stranger, got %d", len(none))
	}
}
