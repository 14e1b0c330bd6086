package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/securetransact/escrow-api/internal/core/domain"
	"github.com/securetransact/escrow-api/internal/core/ports"
	"github.com/securetransact/escrow-api/internal/infrastructure/db/memory"
)

var fixedNow = time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

func newTxService(store *memory.Store, opts ...TransactionOption) *TransactionService {
	opts = append([]TransactionOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewTransactionService(store.Transactions(), store.Messages(), zerolog.Nop(), opts...)
}

func createDeal(t *testing.T, svc *TransactionService) *domain.Transaction {
	t.Helper()
	tx, err := svc.CreateTransaction(context.Background(), ports.CreateTransactionInput{
		Title:      "Vintage camera",
		Price:      decimal.NewFromInt(850),
		BuyerID:    "1",
		SellerID:   "2",
		BuyerName:  "Bea",
		SellerName: "Sam",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return tx
}

type recordingPublisher struct {
	published []domain.Message
}

func (p *recordingPublisher) Publish(m domain.Message) { p.published = append(p.published, m) }

func TestTransactionService_Create_Defaults(t *testing.T) {
	store := memory.NewStore()
	svc := newTxService(store)

	tx, err := svc.CreateTransaction(context.Background(), ports.CreateTransactionInput{
		Title: "Desk",
		Price: decimal.RequireFromString("120.50"),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if tx.ID == "" {
		t.Fatalf("expected generated id")
	}
	if tx.Status != domain.StatusPendingAcceptance {
		t.Fatalf("expected pending_acceptance, got %s", tx.Status)
	}
	if tx.InspectionPeriod != domain.DefaultInspectionPeriod {
		t.Fatalf("expected default inspection period, got %d", tx.InspectionPeriod)
	}
	if tx.BuyerID != domain.PlaceholderBuyerID || tx.SellerID != domain.PlaceholderSellerID {
		t.Fatalf("expected placeholder parties, got %q/%q", tx.BuyerID, tx.SellerID)
	}
	if tx.CreatedDate.String() != "2025-03-14" || tx.LastUpdate != tx.CreatedDate {
		t.Fatalf("unexpected dates: %s %s", tx.CreatedDate, tx.LastUpdate)
	}

	msgs, _ := store.Messages().ListByTransaction(context.Background(), tx.ID)
	if len(msgs) != 1 {
		t.Fatalf("expected opening message, got %d", len(msgs))
	}
	if msgs[0].Message != domain.CreatedMessage || msgs[0].SenderID != domain.SystemSenderID || msgs[0].Type != domain.MessageSystem {
		t.Fatalf("unexpected opening message: %+v", msgs[0])
	}
}

func TestTransactionService_Create_InvalidStatus(t *testing.T) {
	svc := newTxService(memory.NewStore())
	_, err := svc.CreateTransaction(context.Background(), ports.CreateTransactionInput{Title: "x", Status: "lost"})
	if !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestTransactionService_Create_PricePrecision(t *testing.T) {
	store := memory.NewStore()
	svc := newTxService(store)
	ctx := context.Background()

	_, err := svc.CreateTransaction(ctx, ports.CreateTransactionInput{Title: "Pen", Price: decimal.RequireFromString("10.005")})
	if !errors.Is(err, domain.ErrPricePrecision) {
		t.Fatalf("expected ErrPricePrecision, got %v", err)
	}
	if all, _ := store.Transactions().List(ctx, ports.TransactionFilter{}); len(all) != 0 {
		t.Fatalf("expected nothing stored, got %d transactions", len(all))
	}

	tx, err := svc.CreateTransaction(ctx, ports.CreateTransactionInput{Title: "Pen", Price: decimal.RequireFromString("10.500")})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	stored, err := store.Transactions().FindByID(ctx, tx.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if tx.Price.String() != "10.5" || stored.Price.String() != tx.Price.String() {
		t.Fatalf("expected 10.5 in response and store, got %s and %s", tx.Price, stored.Price)
	}
}

func TestTransactionService_FullLifecycle(t *testing.T) {
	store := memory.NewStore()
	pub := &recordingPublisher{}
	svc := newTxService(store, WithPublisher(pub))
	tx := createDeal(t, svc)

	chain := []domain.TransactionStatus{
		domain.StatusPendingPayment,
		domain.StatusPaymentSecured,
		domain.StatusShipped,
		domain.StatusInspectionPeriod,
		domain.StatusCompleted,
	}
	for _, status := range chain {
		updated, err := svc.UpdateTransactionStatus(context.Background(), ports.UpdateStatusInput{TransactionID: tx.ID, Status: status})
		if err != nil {
			t.Fatalf("update to %s failed: %v", status, err)
		}
		if updated.Status != status {
			t.Fatalf("expected %s, got %s", status, updated.Status)
		}
	}

	msgs, err := store.Messages().ListByTransaction(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("list messages failed: %v", err)
	}
	if len(msgs) != 6 {
		t.Fatalf("expected 6 system messages, got %d", len(msgs))
	}
	for i, status := range chain {
		if msgs[i+1].Message != status.SystemMessage() {
			t.Fatalf("message %d: expected %q, got %q", i+1, status.SystemMessage(), msgs[i+1].Message)
		}
	}
	if len(pub.published) != 6 {
		t.Fatalf("expected 6 published messages, got %d", len(pub.published))
	}

	got, _ := svc.GetTransaction(context.Background(), tx.ID)
	if got.Status != domain.StatusCompleted || !got.Price.Equal(decimal.NewFromInt(850)) {
		t.Fatalf("unexpected final state: %+v", got)
	}
}

func TestTransactionService_Update_PermissiveByDefault(t *testing.T) {
	svc := newTxService(memory.NewStore())
	tx := createDeal(t, svc)

	if _, err := svc.UpdateTransactionStatus(context.Background(), ports.UpdateStatusInput{TransactionID: tx.ID, Status: domain.StatusCompleted}); err != nil {
		t.Fatalf("expected skip-ahead to be accepted, got %v", err)
	}
	if _, err := svc.UpdateTransactionStatus(context.Background(), ports.UpdateStatusInput{TransactionID: tx.ID, Status: domain.StatusPendingPayment}); err != nil {
		t.Fatalf("expected backwards move to be accepted, got %v", err)
	}
}

func TestTransactionService_Update_Strict(t *testing.T) {
	svc := newTxService(memory.NewStore(), WithStrictTransitions(true))
	tx := createDeal(t, svc)

	_, err := svc.UpdateTransactionStatus(context.Background(), ports.UpdateStatusInput{TransactionID: tx.ID, Status: domain.StatusCompleted})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.UpdateTransactionStatus(context.Background(), ports.UpdateStatusInput{TransactionID: tx.ID, Status: domain.StatusPendingPayment}); err != nil {
		t.Fatalf("expected forward move to be accepted, got %v", err)
	}
}

func TestTransactionService_Update_Errors(t *testing.T) {
	svc := newTxService(memory.NewStore())
	tx := createDeal(t, svc)

	if _, err := svc.UpdateTransactionStatus(context.Background(), ports.UpdateStatusInput{TransactionID: tx.ID, Status: "teleported"}); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := svc.UpdateTransactionStatus(context.Background(), ports.UpdateStatusInput{TransactionID: "missing", Status: domain.StatusShipped}); !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestTransactionService_DisputeReasonIsKept(t *testing.T) {
	svc := newTxService(memory.NewStore())
	tx := createDeal(t, svc)

	updated, err := svc.UpdateTransactionStatus(context.Background(), ports.UpdateStatusInput{
		TransactionID: tx.ID,
		Status:        domain.StatusDisputed,
		DisputeReason: "  item damaged ",
	})
	if err != nil {
		t.Fatalf("dispute failed: %v", err)
	}
	if updated.DisputeReason != "item damaged" {
		t.Fatalf("expected trimmed reason, got %q", updated.DisputeReason)
	}

	updated, _ = svc.UpdateTransactionStatus(context.Background(), ports.UpdateStatusInput{TransactionID: tx.ID, Status: domain.StatusCancelled})
	if updated.DisputeReason != "item damaged" {
		t.Fatalf("expected reason to survive later updates, got %q", updated.DisputeReason)
	}
}

type failingMessageRepo struct{}

func (failingMessageRepo) Append(context.Context, *domain.Message) error {
	return errors.New("disk full")
}

func (failingMessageRepo) ListByTransaction(context.Context, string) ([]*domain.Message, error) {
	return nil, nil
}

func TestTransactionService_MessageFailureDoesNotFailMutation(t *testing.T) {
	store := memory.NewStore()
	svc := NewTransactionService(store.Transactions(), failingMessageRepo{}, zerolog.Nop())

	tx, err := svc.CreateTransaction(context.Background(), ports.CreateTransactionInput{Title: "Lamp"})
	if err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}
	if _, err := svc.UpdateTransactionStatus(context.Background(), ports.UpdateStatusInput{TransactionID: tx.ID, Status: domain.StatusShipped}); err != nil {
		t.Fatalf("expected update to succeed, got %v", err)
	}
}

func TestTransactionService_AvailableActions(t *testing.T) {
	svc := newTxService(memory.NewStore())
	tx := createDeal(t, svc)

	view, err := svc.AvailableActions(context.Background(), tx.ID, "2")
	if err != nil {
		t.Fatalf("actions failed: %v", err)
	}
	if view.Role != "seller" || len(view.Actions) != 2 || view.Actions[0] != domain.ActionAccept {
		t.Fatalf("unexpected seller view: %+v", view)
	}

	view, _ = svc.AvailableActions(context.Background(), tx.ID, "1")
	if view.Role != "buyer" || len(view.Actions) != 1 || view.Actions[0] != domain.ActionCancel {
		t.Fatalf("unexpected buyer view: %+v", view)
	}
}

func TestTransactionService_ApplyAction(t *testing.T) {
	svc := newTxService(memory.NewStore())
	tx := createDeal(t, svc)
	ctx := context.Background()

	if _, err := svc.ApplyAction(ctx, ports.ApplyActionInput{TransactionID: tx.ID, UserID: "1", Action: domain.ActionAccept}); !errors.Is(err, domain.ErrActionNotAllowed) {
		t.Fatalf("expected buyer accept to be refused, got %v", err)
	}
	if _, err := svc.ApplyAction(ctx, ports.ApplyActionInput{TransactionID: tx.ID, UserID: "1", Action: "teleport"}); domain.KindOf(err) != domain.KindValidationFailed {
		t.Fatalf("expected unknown action to fail validation, got %v", err)
	}

	steps := []struct {
		user   string
		action domain.Action
		want   domain.TransactionStatus
	}{
		{"2", domain.ActionAccept, domain.StatusPendingPayment},
		{"1", domain.ActionPay, domain.StatusPaymentSecured},
		{"2", domain.ActionShip, domain.StatusShipped},
		{"1", domain.ActionConfirmDelivery, domain.StatusInspectionPeriod},
	}
	for _, step := range steps {
		updated, err := svc.ApplyAction(ctx, ports.ApplyActionInput{TransactionID: tx.ID, UserID: step.user, Action: step.action})
		if err != nil {
			t.Fatalf("%s by %s failed: %v", step.action, step.user, err)
		}
		if updated.Status != step.want {
			t.Fatalf("%s: expected %s, got %s", step.action, step.want, updated.Status)
		}
	}

	if _, err := svc.ApplyAction(ctx, ports.ApplyActionInput{TransactionID: tx.ID, UserID: "1", Action: domain.ActionDispute}); domain.KindOf(err) != domain.KindValidationFailed {
		t.Fatalf("expected dispute without reason to fail validation, got %v", err)
	}
	updated, err := svc.ApplyAction(ctx, ports.ApplyActionInput{TransactionID: tx.ID, UserID: "1", Action: domain.ActionDispute, Reason: "wrong model"})
	if err != nil {
		t.Fatalf("dispute failed: %v", err)
	}
	if updated.Status != domain.StatusDisputed || updated.DisputeReason != "wrong model" {
		t.Fatalf("unexpected disputed state: %+v", updated)
	}
}

type memImageStore struct {
	objects map[string][]byte
}

func (s *memImageStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.objects[key] = data
	return "mem://" + key, nil
}

func TestTransactionService_AttachImage(t *testing.T) {
	store := memory.NewStore()
	images := &memImageStore{objects: make(map[string][]byte)}
	svc := newTxService(store, WithImageStore(images))
	tx := createDeal(t, svc)

	updated, err := svc.AttachImage(context.Background(), ports.AttachImageInput{
		TransactionID: tx.ID,
		FileName:      "front.jpg",
		ContentType:   "image/jpeg",
		Size:          3,
		Body:          bytes.NewReader([]byte("jpg")),
	})
	if err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if len(updated.Images) != 1 || !strings.HasPrefix(updated.Images[0], "mem://transactions/"+tx.ID+"/") || !strings.HasSuffix(updated.Images[0], ".jpg") {
		t.Fatalf("unexpected images: %v", updated.Images)
	}
	if len(images.objects) != 1 {
		t.Fatalf("expected one stored object, got %d", len(images.objects))
	}
}

func TestTransactionService_AttachImage_Disabled(t *testing.T) {
	svc := newTxService(memory.NewStore())
	tx := createDeal(t, svc)

	_, err := svc.AttachImage(context.Background(), ports.AttachImageInput{TransactionID: tx.ID, Body: strings.NewReader("x")})
	if !errors.Is(err, domain.ErrImagesDisabled) {
		t.Fatalf("expected ErrImagesDisabled, got %v", err)
	}
}

func TestTransactionService_ListAndStats(t *testing.T) {
	store := memory.NewStore()
	svc := newTxService(store)
	ctx := context.Background()

	first := createDeal(t, svc)
	second := createDeal(t, svc)
	if _, err := svc.CreateTransaction(ctx, ports.CreateTransactionInput{Title: "Other", BuyerID: "9", SellerID: "8"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	_, _ = svc.UpdateTransactionStatus(ctx, ports.UpdateStatusInput{TransactionID: first.ID, Status: domain.StatusShipped})
	_, _ = svc.UpdateTransactionStatus(ctx, ports.UpdateStatusInput{TransactionID: second.ID, Status: domain.StatusDisputed})

	all, err := svc.ListTransactions(ctx)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 transactions, got %d (%v)", len(all), err)
	}

	mine, err := svc.ListUserTransactions(ctx, "1")
	if err != nil || len(mine) != 2 {
		t.Fatalf("expected 2 transactions for user 1, got %d (%v)", len(mine), err)
	}
	if mine[0].ID != second.ID {
		t.Fatalf("expected newest first")
	}

	stats, err := svc.Stats(ctx, "2")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	want := ports.Stats{Total: 2, Active: 1, Disputed: 1}
	if *stats != want {
		t.Fatalf("expected %+v, got %+v", want, *stats)
	}

	if _, err := svc.ListUserTransactions(ctx, ""); domain.KindOf(err) != domain.KindValidationFailed {
		t.Fatalf("expected validation failure for empty user, got %v", err)
	}
}
