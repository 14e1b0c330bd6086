// Package storetest is the behavioral contract every ports.Store adapter runs
// in its own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securetransact/escrow-api/internal/core/domain"
	"github.com/securetransact/escrow-api/internal/core/ports"
)

// Run exercises store. newStore must return an empty store for each call.
func Run(t *testing.T, newStore func(t *testing.T) ports.Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("prices and delivery", func(t *testing.T) { testPricesAndDelivery(t, newStore(t)) })
	t.Run("messages", func(t *testing.T) { testMessages(t, newStore(t)) })
}

var today = domain.Date{Year: 2025, Month: time.March, Day: 14}

func seedUser(t *testing.T, s ports.Store, email string) *domain.User {
	t.Helper()
	u, err := s.Users().Create(context.Background(), &domain.User{
		Email:        email,
		PasswordHash: "hash",
		Name:         "User " + email,
		UserType:     domain.UserTypeBoth,
		JoinedDate:   today,
	})
	require.NoError(t, err)
	return u
}

func seedTransaction(t *testing.T, s ports.Store, buyer, seller string, created domain.Date) *domain.Transaction {
	t.Helper()
	tx := &domain.Transaction{
		Title:            "Camera",
		Description:      "35mm film camera",
		Price:            decimal.RequireFromString("850.50"),
		Status:           domain.StatusPendingAcceptance,
		BuyerID:          buyer,
		SellerID:         seller,
		BuyerName:        "Bea",
		SellerName:       "Sam",
		CreatedDate:      created,
		LastUpdate:       created,
		InspectionPeriod: 3,
	}
	require.NoError(t, s.Transactions().Create(context.Background(), tx))
	require.NotEmpty(t, tx.ID)
	return tx
}

func testUsers(t *testing.T, s ports.Store) {
	ctx := context.Background()
	repo := s.Users()

	alice := seedUser(t, s, "Alice@Example.com")
	assert.NotEmpty(t, alice.ID)
	assert.Equal(t, "alice@example.com", alice.Email)

	_, err := repo.Create(ctx, &domain.User{Email: "alice@example.com", PasswordHash: "x", Name: "Dup", UserType: domain.UserTypeBuyer, JoinedDate: today})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	got, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Equal(t, today, got.JoinedDate)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = repo.FindByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	got.Name = "Alice Renamed"
	got.Phone = "555-0100"
	got.Email = "alice.new@example.com"
	updated, err := repo.Update(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "Alice Renamed", updated.Name)
	assert.Equal(t, "555-0100", updated.Phone)
	assert.Equal(t, "alice.new@example.com", updated.Email)

	_, err = repo.FindByEmail(ctx, "alice@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	bob := seedUser(t, s, "bob@example.com")
	bob.Email = "alice.new@example.com"
	_, err = repo.Update(ctx, bob)
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	_, err = repo.Update(ctx, &domain.User{ID: "missing", Email: "x@example.com", Name: "x", UserType: domain.UserTypeBuyer})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func testTransactions(t *testing.T, s ports.Store) {
	ctx := context.Background()
	repo := s.Transactions()
	buyer := seedUser(t, s, "buyer@example.com")
	seller := seedUser(t, s, "seller@example.com")

	older := seedTransaction(t, s, buyer.ID, seller.ID, today.AddDays(-1))
	first := seedTransaction(t, s, buyer.ID, seller.ID, today)
	second := seedTransaction(t, s, buyer.ID, domain.PlaceholderSellerID, today)
	stranger := seedTransaction(t, s, domain.PlaceholderBuyerID, domain.PlaceholderSellerID, today)

	got, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("850.50")), "price %s", got.Price)
	assert.Equal(t, domain.StatusPendingAcceptance, got.Status)
	assert.Equal(t, today, got.CreatedDate)
	assert.True(t, got.ExpectedDelivery.IsZero())
	assert.Empty(t, got.Images)

	placeholder, err := repo.FindByID(ctx, stranger.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlaceholderBuyerID, placeholder.BuyerID)
	assert.Equal(t, domain.PlaceholderSellerID, placeholder.SellerID)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)

	all, err := repo.List(ctx, ports.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, older.ID, all[3].ID, "oldest created date comes last")
	assert.Equal(t, stranger.ID, all[0].ID, "same-day ties are newest first")

	mine, err := repo.List(ctx, ports.TransactionFilter{UserID: seller.ID})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, first.ID, mine[0].ID)
	assert.Equal(t, older.ID, mine[1].ID)

	next := today.AddDays(2)
	updated, err := repo.UpdateStatus(ctx, second.ID, domain.StatusChange{Status: domain.StatusDisputed, DisputeReason: "broken", LastUpdate: next})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDisputed, updated.Status)
	assert.Equal(t, "broken", updated.DisputeReason)
	assert.Equal(t, next, updated.LastUpdate)

	updated, err = repo.UpdateStatus(ctx, second.ID, domain.StatusChange{Status: domain.StatusCancelled, LastUpdate: next})
	require.NoError(t, err)
	assert.Equal(t, "broken", updated.DisputeReason, "empty reason keeps the stored one")

	_, err = repo.UpdateStatus(ctx, "missing", domain.StatusChange{Status: domain.StatusShipped, LastUpdate: next})
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)

	withImage, err := repo.AppendImage(ctx, first.ID, "https://img.example/1.jpg", next)
	require.NoError(t, err)
	withImage, err = repo.AppendImage(ctx, first.ID, "https://img.example/2.jpg", next)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img.example/1.jpg", "https://img.example/2.jpg"}, withImage.Images)

	_, err = repo.AppendImage(ctx, "missing", "x", next)
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

// testPricesAndDelivery checks that prices at cent scale and the optional
// delivery fields read back exactly as they were written.
func testPricesAndDelivery(t *testing.T, s ports.Store) {
	ctx := context.Background()
	repo := s.Transactions()
	delivery := domain.Date{Year: 2025, Month: time.April, Day: 2}

	for _, raw := range []string{"0.01", "10.01", "10.5", "7", "99999.99"} {
		price, err := domain.NormalizePrice(decimal.RequireFromString(raw))
		require.NoError(t, err)

		tx := &domain.Transaction{
			Title:            "Item " + raw,
			Description:      "priced item",
			Price:            price,
			Status:           domain.StatusPendingAcceptance,
			BuyerID:          domain.PlaceholderBuyerID,
			SellerID:         domain.PlaceholderSellerID,
			CreatedDate:      today,
			LastUpdate:       today,
			ExpectedDelivery: delivery,
			InspectionPeriod: 5,
			DeliveryAddress:  "1 Main St",
		}
		require.NoError(t, repo.Create(ctx, tx))

		got, err := repo.FindByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.True(t, got.Price.Equal(price), "price %s read back as %s", raw, got.Price)
		assert.Equal(t, price.String(), got.Price.String())
		assert.Equal(t, delivery, got.ExpectedDelivery)
		assert.Equal(t, 5, got.InspectionPeriod)
		assert.Equal(t, "1 Main St", got.DeliveryAddress)
	}
}

func testMessages(t *testing.T, s ports.Store) {
	ctx := context.Background()
	repo := s.Messages()
	tx := seedTransaction(t, s, domain.PlaceholderBuyerID, domain.PlaceholderSellerID, today)

	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	lines := []*domain.Message{
		{TransactionID: tx.ID, SenderID: domain.SystemSenderID, SenderName: domain.SystemSenderName, Message: domain.CreatedMessage, Timestamp: base, Type: domain.MessageSystem},
		{TransactionID: tx.ID, SenderID: "1", SenderName: "Bea", Message: "second", Timestamp: base.Add(2 * time.Second), Type: domain.MessageText},
		{TransactionID: tx.ID, SenderID: "2", SenderName: "Sam", Message: "first", Timestamp: base.Add(time.Second), Type: domain.MessageText},
		{TransactionID: tx.ID, SenderID: "2", SenderName: "Sam", Message: "tie", Timestamp: base.Add(2 * time.Second), Type: domain.MessageImage},
	}
	for _, m := range lines {
		require.NoError(t, repo.Append(ctx, m))
		assert.NotEmpty(t, m.ID)
	}

	got, err := repo.ListByTransaction(ctx, tx.ID)
	require.NoError(t, err)
	require.Len(t, got, 4)
	texts := make([]string, len(got))
	for i, m := range got {
		texts[i] = m.Message
	}
	assert.Equal(t, []string{domain.CreatedMessage, "first", "second", "tie"}, texts)
	assert.True(t, got[0].Timestamp.Equal(base))
	assert.Equal(t, domain.MessageImage, got[3].Type)

	err = repo.Append(ctx, &domain.Message{TransactionID: "missing", SenderID: "1", Message: "x", Timestamp: base, Type: domain.MessageText})
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)

	empty, err := repo.ListByTransaction(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
