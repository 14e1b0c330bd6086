package ports

import "github.com/securetransact/escrow-api/internal/core/domain"

// MessagePublisher fans appended messages out to live subscribers.
// Publish must not block the caller.
type MessagePublisher interface {
	Publish(m domain.Message)
}
