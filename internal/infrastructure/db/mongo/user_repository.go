package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/securetransact/escrow-api/internal/core/domain"
)

const usersCollection = "users"

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

type mongoUser struct {
	ID                string  `bson:"_id"`
	Email             string  `bson:"email"`
	PasswordHash      string  `bson:"password_hash"`
	Name              string  `bson:"name"`
	Phone             string  `bson:"phone,omitempty"`
	UserType          string  `bson:"user_type"`
	Rating            float64 `bson:"rating"`
	TotalTransactions int     `bson:"total_transactions"`
	JoinedDate        string  `bson:"joined_date"`
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	u := *user
	u.Email = domain.NormalizeEmail(u.Email)
	if u.ID == "" {
		u.ID = newID()
	}

	if _, err := r.coll.InsertOne(ctx, toMongoUser(&u)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	update := bson.M{"$set": bson.M{
		"email":     domain.NormalizeEmail(user.Email),
		"name":      user.Name,
		"phone":     user.Phone,
		"user_type": string(user.UserType),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var mu mongoUser
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": user.ID}, update, opts).Decode(&mu)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, domain.ErrUserNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return fromMongoUser(&mu)
}

func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return fromMongoUser(&mu)
}

func toMongoUser(u *domain.User) mongoUser {
	return mongoUser{
		ID:                u.ID,
		Email:             u.Email,
		PasswordHash:      u.PasswordHash,
		Name:              u.Name,
		Phone:             u.Phone,
		UserType:          string(u.UserType),
		Rating:            u.Rating,
		TotalTransactions: u.TotalTransactions,
		JoinedDate:        u.JoinedDate.String(),
	}
}

func fromMongoUser(mu *mongoUser) (*domain.User, error) {
	joined, err := parseOptionalDate(mu.JoinedDate)
	if err != nil {
		return nil, err
	}
	return &domain.User{
		ID:                mu.ID,
		Email:             mu.Email,
		PasswordHash:      mu.PasswordHash,
		Name:              mu.Name,
		Phone:             mu.Phone,
		UserType:          domain.UserType(mu.UserType),
		Rating:            mu.Rating,
		TotalTransactions: mu.TotalTransactions,
		JoinedDate:        joined,
	}, nil
}

func parseOptionalDate(s string) (domain.Date, error) {
	if s == "" {
		return domain.Date{}, nil
	}
	return domain.ParseDate(s)
}
