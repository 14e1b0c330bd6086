package sqlstore

import (
	"context"
	"fmt"

	"github.com/securetransact/escrow-api/internal/core/domain"
)

type messageRepository struct {
	s *Store
}

func (r *messageRepository) Append(ctx context.Context, m *domain.Message) error {
	if m.ID == "" {
		m.ID = r.s.newID()
	}
	query := `INSERT INTO messages (id, transaction_id, sender_id, sender_name, message, "timestamp", type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.s.db.ExecContext(ctx, r.s.rebind(query),
		m.ID, m.TransactionID, m.SenderID, m.SenderName, m.Message,
		r.s.dialect.timestamp(m.Timestamp), string(m.Type))
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrTransactionNotFound
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *messageRepository) ListByTransaction(ctx context.Context, transactionID string) ([]*domain.Message, error) {
	query := `SELECT id, transaction_id, sender_id, sender_name, message, "timestamp", type
		FROM messages WHERE transaction_id = $1 ORDER BY "timestamp" ASC, seq ASC`
	rows, err := r.s.db.QueryContext(ctx, r.s.rebind(query), transactionID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	out := []*domain.Message{}
	for rows.Next() {
		var (
			m       domain.Message
			msgType string
		)
		if err := rows.Scan(&m.ID, &m.TransactionID, &m.SenderID, &m.SenderName, &m.Message,
			timeScanner{&m.Timestamp}, &msgType); err != nil {
			return nil, err
		}
		m.Type = domain.MessageType(msgType)
		out = append(out, &m)
	}
	return out, rows.Err()
}
