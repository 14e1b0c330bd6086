package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/securetransact/escrow-api/internal/core/domain"
)

const userColumns = `id, email, password_hash, name, phone, user_type, rating, total_transactions, joined_date`

type userRepository struct {
	s *Store
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	u := *user
	u.Email = domain.NormalizeEmail(u.Email)
	if u.ID == "" {
		u.ID = r.s.newID()
	}

	query := `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.s.db.ExecContext(ctx, r.s.rebind(query),
		u.ID, u.Email, u.PasswordHash, u.Name, u.Phone, string(u.UserType),
		u.Rating, u.TotalTransactions, u.JoinedDate)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return &u, nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, domain.NormalizeEmail(email))
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `UPDATE users SET email = $1, name = $2, phone = $3, user_type = $4 WHERE id = $5`
	res, err := r.s.db.ExecContext(ctx, r.s.rebind(query),
		domain.NormalizeEmail(user.Email), user.Name, user.Phone, string(user.UserType), user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, domain.ErrUserNotFound
	}
	return r.FindByID(ctx, user.ID)
}

func (r *userRepository) findOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var (
		u        domain.User
		userType string
	)
	err := r.s.db.QueryRowContext(ctx, r.s.rebind(query), arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &userType,
		&u.Rating, &u.TotalTransactions, &u.JoinedDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	u.UserType = domain.UserType(userType)
	return &u, nil
}
