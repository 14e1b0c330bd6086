package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/securetransact/escrow-api/internal/core/domain"
	"github.com/securetransact/escrow-api/internal/core/ports"
)

const (
	bcryptCost      = 10
	minPasswordLen  = 6
	defaultTokenTTL = 7 * 24 * time.Hour
)

// AuthService implements registration, login and token verification.
type AuthService struct {
	repo      ports.UserRepository
	jwtSecret string
	tokenTTL  time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

func NewAuthService(repo ports.UserRepository, jwtSecret string, tokenTTL time.Duration, logger zerolog.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &AuthService{repo: repo, jwtSecret: jwtSecret, tokenTTL: tokenTTL, now: time.Now, logger: logger}
}

// Register creates a user and signs a token for it. The email uniqueness
// check and the insert are separate steps; the repository's unique index
// catches the race.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	email := domain.NormalizeEmail(in.Email)
	switch {
	case email == "" || in.Name == "":
		return nil, domain.Validation("email, password and name are required")
	case len(in.Password) < minPasswordLen:
		return nil, domain.Validation("password must be at least 6 characters")
	case !in.UserType.Valid():
		return nil, domain.Validation("userType must be one of buyer, seller, both")
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         in.Name,
		Phone:        in.Phone,
		UserType:     in.UserType,
		JoinedDate:   domain.DateOf(s.now().UTC()),
	})
	if err != nil {
		return nil, err
	}

	token, err := s.generateToken(created)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", created.ID).Str("user_type", string(created.UserType)).Msg("user registered")
	return &ports.AuthResult{User: created, Token: token}, nil
}

// Login checks credentials. Unknown email and wrong password are reported
// the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	return &ports.AuthResult{User: user, Token: token}, nil
}

// Verify parses an HS256 token signed with the service secret.
func (s *AuthService) Verify(token string) (*ports.Claims, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !tkn.Valid {
		return nil, domain.Wrap(domain.KindUnauthorized, "invalid token", err)
	}

	userID, _ := claims["userId"].(string)
	if userID == "" {
		return nil, domain.NewError(domain.KindUnauthorized, "invalid token")
	}
	email, _ := claims["email"].(string)
	return &ports.Claims{UserID: userID, Email: email}, nil
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	claims := jwt.MapClaims{
		"userId": user.ID,
		"email":  user.Email,
		"iat":    s.now().Unix(),
		"exp":    s.now().Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
