package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/securetransact/escrow-api/internal/core/domain"
	"github.com/securetransact/escrow-api/internal/core/ports"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error)
	loginFn    func(ctx context.Context, email, password string) (*ports.AuthResult, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Verify(string) (*ports.Claims, error) {
	return nil, domain.ErrInvalidCredentials
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
			if in.Email != "alice@example.com" || in.UserType != domain.UserTypeBoth || in.Phone != "555" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &ports.AuthResult{
				User:  &domain.User{ID: "1", Email: in.Email, Name: in.Name, UserType: in.UserType, PasswordHash: "hash"},
				Token: "token123",
			}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := newContext(http.MethodPost, "/api/auth/register",
		`{"email":"alice@example.com","password":"secret","name":"Alice","phone":"555","userType":"both"}`, "")
	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	resp := decode[map[string]any](t, rec)
	if resp["token"] != "token123" {
		t.Fatalf("expected token, got %v", resp["token"])
	}
	user, ok := resp["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user in response")
	}
	if user["email"] != "alice@example.com" || user["userType"] != "both" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
	if _, leaked := user["passwordHash"]; leaked {
		t.Fatalf("password hash must not be serialized")
	}
}

func TestAuthHandler_Register_DuplicateEmail(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
			return nil, domain.ErrEmailTaken
		},
	}
	handler := NewAuthHandler(stub)

	c, _ := newContext(http.MethodPost, "/api/auth/register",
		`{"email":"bob@example.com","password":"secret","name":"Bob","userType":"buyer"}`, "")
	expectKind(t, handler.Register(c), domain.KindDuplicateEmail)
}

func TestAuthHandler_Register_Validation(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(stub)

	cases := map[string]string{
		"short password": `{"email":"a@example.com","password":"123","name":"A","userType":"buyer"}`,
		"bad email":      `{"email":"not-an-email","password":"secret","name":"A","userType":"buyer"}`,
		"bad user type":  `{"email":"a@example.com","password":"secret","name":"A","userType":"admin"}`,
		"missing name":   `{"email":"a@example.com","password":"secret","userType":"buyer"}`,
	}
	for name, body := range cases {
		c, _ := newContext(http.MethodPost, "/api/auth/register", body, "")
		err := handler.Register(c)
		if domain.KindOf(err) != domain.KindValidationFailed {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	handler := NewAuthHandler(&stubAuthService{})

	c, _ := newContext(http.MethodPost, "/api/auth/register", "not-json", "")
	expectHTTPError(t, handler.Register(c), http.StatusBadRequest)
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*ports.AuthResult, error) {
			if email != "alice@example.com" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return &ports.AuthResult{User: &domain.User{ID: "1", Email: email}, Token: "token123"}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := newContext(http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"secret"}`, "")
	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[map[string]any](t, rec)
	if resp["token"] != "token123" {
		t.Fatalf("expected token, got %v", resp["token"])
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*ports.AuthResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	handler := NewAuthHandler(stub)

	c, _ := newContext(http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"bad"}`, "")
	expectKind(t, handler.Login(c), domain.KindUnauthorized)
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	handler := NewAuthHandler(&stubAuthService{})

	c, _ := newContext(http.MethodPost, "/api/auth/login", "{", "")
	expectHTTPError(t, handler.Login(c), http.StatusBadRequest)
}
