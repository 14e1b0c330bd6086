package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/securetransact/escrow-api/internal/core/domain"
	"github.com/securetransact/escrow-api/internal/core/ports"
)

func seedUser(t *testing.T, svc services, email string) *domain.User {
	t.Helper()
	u, err := svc.store.Users().Create(context.Background(), &domain.User{
		Email:    email,
		Name:     "Alice",
		UserType: domain.UserTypeBuyer,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func newUserHandler(svc services) *UserHandler {
	return NewUserHandler(svc.users, svc.transactions, svc.messages)
}

func TestUserHandler_Get(t *testing.T) {
	svc := newServices()
	u := seedUser(t, svc, "alice@example.com")
	handler := newUserHandler(svc)

	c, rec := newContext(http.MethodGet, "/api/users/"+u.ID, "", u.ID, "id", u.ID)
	if err := handler.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	got := decode[domain.User](t, rec)
	if got.Email != "alice@example.com" || got.Name != "Alice" {
		t.Fatalf("unexpected user: %+v", got)
	}

	c, _ = newContext(http.MethodGet, "/api/users/ghost", "", u.ID, "id", "ghost")
	expectKind(t, handler.Get(c), domain.KindNotFound)
}

func TestUserHandler_Update_Partial(t *testing.T) {
	svc := newServices()
	u := seedUser(t, svc, "alice@example.com")
	handler := newUserHandler(svc)

	c, rec := newContext(http.MethodPut, "/api/users/"+u.ID, `{"phone":"555-0100","userType":"both"}`, u.ID, "id", u.ID)
	if err := handler.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	got := decode[domain.User](t, rec)
	if got.Phone != "555-0100" || got.UserType != domain.UserTypeBoth || got.Name != "Alice" {
		t.Fatalf("unexpected user after patch: %+v", got)
	}
}

func TestUserHandler_Update_Errors(t *testing.T) {
	svc := newServices()
	alice := seedUser(t, svc, "alice@example.com")
	seedUser(t, svc, "bob@example.com")
	handler := newUserHandler(svc)

	c, _ := newContext(http.MethodPut, "/", `{"email":"BOB@example.com"}`, alice.ID, "id", alice.ID)
	expectKind(t, handler.Update(c), domain.KindDuplicateEmail)

	c, _ = newContext(http.MethodPut, "/", `{"userType":"admin"}`, alice.ID, "id", alice.ID)
	expectKind(t, handler.Update(c), domain.KindValidationFailed)

	c, _ = newContext(http.MethodPut, "/", `{"name":""}`, alice.ID, "id", alice.ID)
	expectKind(t, handler.Update(c), domain.KindValidationFailed)
}

func TestUserHandler_StatsAndConversations(t *testing.T) {
	svc := newServices()
	tx := svc.deal(t)
	handler := newUserHandler(svc)

	c, rec := newContext(http.MethodGet, "/", "", "1", "id", "1")
	if err := handler.Stats(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	stats := decode[ports.Stats](t, rec)
	if stats.Total != 1 || stats.Pending != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	c, rec = newContext(http.MethodGet, "/?q=camera", "", "1", "id", "1")
	if err := handler.Conversations(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	convs := decode[[]domain.Conversation](t, rec)
	if len(convs) != 1 || convs[0].Transaction.ID != tx.ID || convs[0].UnreadCount != 0 {
		t.Fatalf("unexpected conversations: %+v", convs)
	}

	c, rec = newContext(http.MethodGet, "/?q=bicycle", "", "1", "id", "1")
	if err := handler.Conversations(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if convs := decode[[]domain.Conversation](t, rec); len(convs) != 0 {
		t.Fatalf("expected search to filter everything, got %d", len(convs))
	}
}
