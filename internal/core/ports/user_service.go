package ports

import (
	"context"

	"github.com/securetransact/escrow-api/internal/core/domain"
)

// UserService is the user directory.
type UserService interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error)
}
