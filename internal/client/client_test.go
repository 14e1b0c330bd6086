package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securetransact/escrow-api/internal/api"
	"github.com/securetransact/escrow-api/internal/core/domain"
	"github.com/securetransact/escrow-api/internal/core/service"
	"github.com/securetransact/escrow-api/internal/infrastructure/db/memory"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := zerolog.Nop()
	store := memory.NewStore()
	auth := service.NewAuthService(store.Users(), "test-secret", time.Hour, log)
	e := api.NewRouter(api.Dependencies{
		Auth:         auth,
		Users:        service.NewUserService(store.Users(), log),
		Transactions: service.NewTransactionService(store.Transactions(), store.Messages(), log),
		Messages:     service.NewMessageService(store.Transactions(), store.Messages(), nil, log),
		Store:        store,
		Registerer:   prometheus.NewRegistry(),
		Logger:       log,
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func register(t *testing.T, c *Client, email, name string, userType domain.UserType) *domain.User {
	t.Helper()
	res, err := c.Register(context.Background(), RegisterRequest{
		Email:    email,
		Password: "secret123",
		Name:     name,
		UserType: userType,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	return res.User
}

func requireKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, domain.KindOf(err), "error: %v", err)
}

func TestClient_EscrowFlow(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)

	sellerClient := New(srv.URL)
	seller := register(t, sellerClient, "seller@example.com", "Sam Seller", domain.UserTypeSeller)
	buyerClient := New(srv.URL)
	buyer := register(t, buyerClient, "buyer@example.com", "Bea Buyer", domain.UserTypeBuyer)

	tx, err := buyerClient.CreateTransaction(ctx, CreateTransactionRequest{
		Title:       "Road bike",
		Description: "Lightly used",
		Price:       "850",
		BuyerID:     buyer.ID,
		SellerID:    seller.ID,
		BuyerName:   buyer.Name,
		SellerName:  seller.Name,
	}, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingAcceptance, tx.Status)
	assert.Equal(t, "850", tx.Price.String())

	view, err := sellerClient.Actions(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "seller", view.Role)
	assert.Contains(t, view.Actions, domain.ActionAccept)

	_, err = buyerClient.ApplyAction(ctx, tx.ID, domain.ActionAccept, "")
	requireKind(t, err, domain.KindValidationFailed)

	tx, err = sellerClient.ApplyAction(ctx, tx.ID, domain.ActionAccept, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingPayment, tx.Status)

	tx, err = buyerClient.ApplyAction(ctx, tx.ID, domain.ActionPay, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaymentSecured, tx.Status)

	msg, err := buyerClient.SendMessage(ctx, SendMessageRequest{
		TransactionID: tx.ID,
		SenderName:    buyer.Name,
		Message:       "Paid, please ship",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, buyer.ID, msg.SenderID)
	assert.Equal(t, domain.MessageText, msg.Type)

	msgs, err := sellerClient.ListMessages(ctx, tx.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, domain.MessageSystem, msgs[0].Type)
	assert.Equal(t, "Payment secured. Item can be shipped.", msgs[2].Message)
	assert.Equal(t, "Paid, please ship", msgs[3].Message)

	convs, err := sellerClient.Conversations(ctx, seller.ID, "bike")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 1, convs[0].UnreadCount)

	tx, err = sellerClient.UpdateStatus(ctx, tx.ID, domain.StatusDisputed, "never arrived")
	require.NoError(t, err)
	assert.Equal(t, "never arrived", tx.DisputeReason)

	stats, err := buyerClient.Stats(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Disputed)

	list, err := buyerClient.ListUserTransactions(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, tx.ID, list[0].ID)
}

func TestClient_UserProfile(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	c := New(srv.URL)
	user := register(t, c, "pat@example.com", "Pat", domain.UserTypeBoth)

	name := "Patricia"
	updated, err := c.UpdateUser(ctx, user.ID, UserUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Patricia", updated.Name)
	assert.Equal(t, "pat@example.com", updated.Email)

	got, err := c.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Patricia", got.Name)

	relogged := New(srv.URL)
	res, err := relogged.Login(ctx, "pat@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)
	assert.Equal(t, res.Token, relogged.Token())
}

func TestClient_ErrorKinds(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	c := New(srv.URL)
	register(t, c, "dup@example.com", "Dup", domain.UserTypeBuyer)

	_, err := New(srv.URL).Register(ctx, RegisterRequest{
		Email: "DUP@example.com", Password: "secret123", Name: "Dup", UserType: domain.UserTypeBuyer,
	})
	requireKind(t, err, domain.KindDuplicateEmail)

	_, err = New(srv.URL).Login(ctx, "dup@example.com", "wrong-password")
	requireKind(t, err, domain.KindUnauthorized)

	_, err = c.GetTransaction(ctx, "missing")
	requireKind(t, err, domain.KindNotFound)

	_, err = c.CreateTransaction(ctx, CreateTransactionRequest{Title: "x", Description: "y", Price: "-5"}, "")
	requireKind(t, err, domain.KindValidationFailed)

	_, err = New(srv.URL).ListTransactions(ctx)
	requireKind(t, err, domain.KindUnauthorized)

	_, err = New(srv.URL, WithToken("garbage")).ListTransactions(ctx)
	requireKind(t, err, domain.KindUnauthorized)

	tx, err := c.CreateTransaction(ctx, CreateTransactionRequest{Title: "Lamp", Description: "Brass", Price: "40"}, "")
	require.NoError(t, err)
	_, err = c.UploadImage(ctx, tx.ID, "lamp.jpg", strings.NewReader("jpeg"))
	requireKind(t, err, domain.KindUnreachable)
}

func TestClient_HealthAndReadiness(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	c := New(srv.URL)

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "memory", health.Storage)

	ready, err := c.Ready(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", ready.Dependencies["database"].Status)
}

func TestDiscover_PicksFirstReachable(t *testing.T) {
	srv := newServer(t)
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	c, err := Discover(context.Background(), []string{dead.URL, srv.URL + "/"}, time.Second, WithToken("t"))
	require.NoError(t, err)
	assert.Equal(t, srv.URL, c.BaseURL())
	assert.Equal(t, "t", c.Token())
}

func TestDiscover_NoneReachable(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	_, err := Discover(context.Background(), []string{dead.URL}, 200*time.Millisecond)
	requireKind(t, err, domain.KindUnreachable)
}

func TestDiscover_SlowServerTimesOut(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(slow.Close)

	start := time.Now()
	_, err := Discover(context.Background(), []string{slow.URL}, 100*time.Millisecond)
	requireKind(t, err, domain.KindUnreachable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestKindForStatus(t *testing.T) {
	cases := map[int]domain.ErrorKind{
		http.StatusConflict:            domain.KindDuplicateEmail,
		http.StatusNotFound:            domain.KindNotFound,
		http.StatusUnauthorized:        domain.KindUnauthorized,
		http.StatusForbidden:           domain.KindUnauthorized,
		http.StatusBadRequest:          domain.KindValidationFailed,
		http.StatusUnprocessableEntity: domain.KindValidationFailed,
		http.StatusServiceUnavailable:  domain.KindUnreachable,
		http.StatusInternalServerError: domain.KindInternal,
		http.StatusTooManyRequests:     domain.KindInternal,
	}
	for code, want := range cases {
		assert.Equal(t, want, KindForStatus(code), "status %d", code)
	}
}
