package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/securetransact/escrow-api/internal/core/domain"
	"github.com/securetransact/escrow-api/internal/core/ports"
)

const collectionTransactions = "transactions"

type TransactionRepository struct {
	col *mongo.Collection
}

func NewTransactionRepository(db *mongo.Database) *TransactionRepository {
	return &TransactionRepository{col: db.Collection(collectionTransactions)}
}

type mongoTransaction struct {
	ID               string               `bson:"_id"`
	Title            string               `bson:"title"`
	Description      string               `bson:"description"`
	Price            primitive.Decimal128 `bson:"price"`
	Status           string               `bson:"status"`
	BuyerID          string               `bson:"buyer_id"`
	SellerID         string               `bson:"seller_id"`
	BuyerName        string               `bson:"buyer_name"`
	SellerName       string               `bson:"seller_name"`
	CreatedDate      string               `bson:"created_date"`
	LastUpdate       string               `bson:"last_update"`
	ExpectedDelivery string               `bson:"expected_delivery,omitempty"`
	InspectionPeriod int                  `bson:"inspection_period"`
	DeliveryAddress  string               `bson:"delivery_address,omitempty"`
	DisputeReason    string               `bson:"dispute_reason,omitempty"`
	Images           []string             `bson:"images,omitempty"`
}

// Create inserts a new transaction document.
func (r *TransactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if t.ID == "" {
		t.ID = newID()
	}
	doc, err := toMongoTransaction(t)
	if err != nil {
		return err
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoTransaction
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return fromMongoTransaction(&doc)
}

// List returns transactions newest first. When the filter names a user, only
// the transactions where that user is buyer or seller are returned.
func (r *TransactionRepository) List(ctx context.Context, f ports.TransactionFilter) ([]*domain.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.UserID != "" {
		filter["$or"] = bson.A{bson.M{"buyer_id": f.UserID}, bson.M{"seller_id": f.UserID}}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_date", Value: -1}, {Key: "_id", Value: -1}})

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*domain.Transaction{}
	for cur.Next(ctx) {
		var doc mongoTransaction
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		t, err := fromMongoTransaction(&doc)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, cur.Err()
}

// UpdateStatus overwrites the status and last update date. The dispute reason
// is only replaced when a new one is supplied.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id string, change domain.StatusChange) (*domain.Transaction, error) {
	set := bson.M{
		"status":      string(change.Status),
		"last_update": change.LastUpdate.String(),
	}
	if change.DisputeReason != "" {
		set["dispute_reason"] = change.DisputeReason
	}
	return r.findAndUpdate(ctx, id, bson.M{"$set": set})
}

func (r *TransactionRepository) AppendImage(ctx context.Context, id, uri string, lastUpdate domain.Date) (*domain.Transaction, error) {
	return r.findAndUpdate(ctx, id, bson.M{
		"$set":  bson.M{"last_update": lastUpdate.String()},
		"$push": bson.M{"images": uri},
	})
}

// EnsureIndexes creates necessary indexes on the transactions collection.
func (r *TransactionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "buyer_id", Value: 1}}},
		{Keys: bson.D{{Key: "seller_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_date", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *TransactionRepository) exists(ctx context.Context, id string) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *TransactionRepository) findAndUpdate(ctx context.Context, id string, update bson.M) (*domain.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc mongoTransaction
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return fromMongoTransaction(&doc)
}

func toMongoTransaction(t *domain.Transaction) (*mongoTransaction, error) {
	price, err := primitive.ParseDecimal128(t.Price.String())
	if err != nil {
		return nil, fmt.Errorf("encode price: %w", err)
	}
	return &mongoTransaction{
		ID:               t.ID,
		Title:            t.Title,
		Description:      t.Description,
		Price:            price,
		Status:           string(t.Status),
		BuyerID:          t.BuyerID,
		SellerID:         t.SellerID,
		BuyerName:        t.BuyerName,
		SellerName:       t.SellerName,
		CreatedDate:      t.CreatedDate.String(),
		LastUpdate:       t.LastUpdate.String(),
		ExpectedDelivery: t.ExpectedDelivery.String(),
		InspectionPeriod: t.InspectionPeriod,
		DeliveryAddress:  t.DeliveryAddress,
		DisputeReason:    t.DisputeReason,
		Images:           t.Images,
	}, nil
}

func fromMongoTransaction(doc *mongoTransaction) (*domain.Transaction, error) {
	price, err := decimal.NewFromString(doc.Price.String())
	if err != nil {
		return nil, fmt.Errorf("decode price: %w", err)
	}
	t := &domain.Transaction{
		ID:               doc.ID,
		Title:            doc.Title,
		Description:      doc.Description,
		Price:            price,
		Status:           domain.TransactionStatus(doc.Status),
		BuyerID:          doc.BuyerID,
		SellerID:         doc.SellerID,
		BuyerName:        doc.BuyerName,
		SellerName:       doc.SellerName,
		InspectionPeriod: doc.InspectionPeriod,
		DeliveryAddress:  doc.DeliveryAddress,
		DisputeReason:    doc.DisputeReason,
		Images:           doc.Images,
	}
	for _, d := range []struct {
		raw string
		dst *domain.Date
	}{
		{doc.CreatedDate, &t.CreatedDate},
		{doc.LastUpdate, &t.LastUpdate},
		{doc.ExpectedDelivery, &t.ExpectedDelivery},
	} {
		if *d.dst, err = parseOptionalDate(d.raw); err != nil {
			return nil, err
		}
	}
	return t, nil
}
