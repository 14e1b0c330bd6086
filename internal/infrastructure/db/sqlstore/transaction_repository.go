package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/securetransact/escrow-api/internal/core/domain"
	"github.com/securetransact/escrow-api/internal/core/ports"
)

const transactionColumns = `id, title, description, price, status, buyer_id, seller_id, buyer_name, seller_name,
	created_date, last_update, expected_delivery, inspection_period, delivery_address, dispute_reason, images`

type transactionRepository struct {
	s *Store
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *transactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	if t.ID == "" {
		t.ID = r.s.newID()
	}
	images, err := encodeImages(t.Images)
	if err != nil {
		return err
	}

	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err = r.s.db.ExecContext(ctx, r.s.rebind(query),
		t.ID, t.Title, t.Description, t.Price.StringFixed(2), string(t.Status),
		partyValue(t.BuyerID), partyValue(t.SellerID), t.BuyerName, t.SellerName,
		t.CreatedDate, t.LastUpdate, t.ExpectedDelivery, t.InspectionPeriod,
		t.DeliveryAddress, t.DisputeReason, images)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Validation("buyerId and sellerId must reference registered users")
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *transactionRepository) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	t, err := scanTransaction(r.s.db.QueryRowContext(ctx, r.s.rebind(query), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return t, nil
}

func (r *transactionRepository) List(ctx context.Context, f ports.TransactionFilter) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions`
	var args []any
	if f.UserID != "" {
		query += ` WHERE buyer_id = $1 OR seller_id = $2`
		args = append(args, f.UserID, f.UserID)
	}
	query += ` ORDER BY created_date DESC, seq DESC`

	rows, err := r.s.db.QueryContext(ctx, r.s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	out := []*domain.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *transactionRepository) UpdateStatus(ctx context.Context, id string, change domain.StatusChange) (*domain.Transaction, error) {
	query := `UPDATE transactions
		SET status = $1, last_update = $2, dispute_reason = COALESCE(NULLIF($3, ''), dispute_reason)
		WHERE id = $4`
	res, err := r.s.db.ExecContext(ctx, r.s.rebind(query),
		string(change.Status), change.LastUpdate, change.DisputeReason, id)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, domain.ErrTransactionNotFound
	}
	return r.FindByID(ctx, id)
}

// AppendImage reads and rewrites the image list inside one database
// transaction so that concurrent uploads do not drop each other.
func (r *transactionRepository) AppendImage(ctx context.Context, id, uri string, lastUpdate domain.Date) (*domain.Transaction, error) {
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var raw string
	query := `SELECT images FROM transactions WHERE id = $1` + r.s.dialect.lockSuffix
	if err := tx.QueryRowContext(ctx, r.s.rebind(query), id).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	images, err := decodeImages(raw)
	if err != nil {
		return nil, err
	}
	encoded, err := encodeImages(append(images, uri))
	if err != nil {
		return nil, err
	}

	update := `UPDATE transactions SET images = $1, last_update = $2 WHERE id = $3`
	if _, err := tx.ExecContext(ctx, r.s.rebind(update), encoded, lastUpdate, id); err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		t               domain.Transaction
		price           string
		status          string
		buyerID         sql.NullString
		sellerID        sql.NullString
		images          string
		expectedDeliver domain.Date
	)
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &price, &status, &buyerID, &sellerID,
		&t.BuyerName, &t.SellerName, &t.CreatedDate, &t.LastUpdate, &expectedDeliver,
		&t.InspectionPeriod, &t.DeliveryAddress, &t.DisputeReason, &images,
	)
	if err != nil {
		return nil, err
	}

	t.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid stored price %q: %w", price, err)
	}
	t.Status = domain.TransactionStatus(status)
	t.BuyerID = partyFromNull(buyerID, domain.PlaceholderBuyerID)
	t.SellerID = partyFromNull(sellerID, domain.PlaceholderSellerID)
	t.ExpectedDelivery = expectedDeliver
	if t.Images, err = decodeImages(images); err != nil {
		return nil, err
	}
	return &t, nil
}

// partyValue stores placeholder parties as NULL so the user foreign keys hold.
func partyValue(id string) any {
	if domain.IsPlaceholderParty(id) {
		return nil
	}
	return id
}

func partyFromNull(v sql.NullString, placeholder string) string {
	if !v.Valid || v.String == "" {
		return placeholder
	}
	return v.String
}

func encodeImages(images []string) (string, error) {
	if len(images) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(images)
	return string(b), err
}

func decodeImages(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var images []string
	if err := json.Unmarshal([]byte(raw), &images); err != nil {
		return nil, fmt.Errorf("invalid stored images: %w", err)
	}
	return images, nil
}
