package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/securetransact/escrow-api/internal/core/domain"
	"github.com/securetransact/escrow-api/internal/core/ports"
)

// UserService implements profile lookup and partial profile updates.
type UserService struct {
	repo   ports.UserRepository
	logger zerolog.Logger
}

func NewUserService(repo ports.UserRepository, logger zerolog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateUser overwrites the fields present in patch. Changing the email
// re-checks uniqueness.
func (s *UserService) UpdateUser(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	if patch.UserType != nil && !patch.UserType.Valid() {
		return nil, domain.Validation("userType must be one of buyer, seller, both")
	}
	if patch.Name != nil && *patch.Name == "" {
		return nil, domain.Validation("name cannot be empty")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Email != nil {
		email := domain.NormalizeEmail(*patch.Email)
		if email == "" {
			return nil, domain.Validation("email cannot be empty")
		}
		if email != user.Email {
			existing, err := s.repo.FindByEmail(ctx, email)
			switch {
			case err == nil && existing.ID != user.ID:
				return nil, domain.ErrEmailTaken
			case err != nil && !errors.Is(err, domain.ErrUserNotFound):
				return nil, err
			}
		}
	}

	patch.Apply(user)
	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", id).Msg("user updated")
	return updated, nil
}
