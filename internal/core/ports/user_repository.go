package ports

import (
	"context"

	"github.com/securetransact/escrow-api/internal/core/domain"
)

// UserRepository defines persistence operations for users.
// Implementations return domain.ErrUserNotFound and domain.ErrEmailTaken.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByEmail expects an already normalized address.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// Update overwrites the mutable profile columns of user.ID.
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
}
