package ports

import (
	"context"

	"github.com/securetransact/escrow-api/internal/core/domain"
)

// RegisterInput carries the sign-up form.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
	UserType domain.UserType
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User  *domain.User
	Token string
}

// Claims is the identity recovered from a verified token.
type Claims struct {
	UserID string
	Email  string
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	// Verify parses and validates a bearer token.
	Verify(token string) (*Claims, error)
}
