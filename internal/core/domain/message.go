package domain

import "time"

// MessageType distinguishes user chat lines from synthesized ones.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageSystem MessageType = "system"
)

func (t MessageType) Valid() bool {
	return t == MessageText || t == MessageImage || t == MessageSystem
}

// System sender identity used for lifecycle messages.
const (
	SystemSenderID   = "system"
	SystemSenderName = "SecureTransact"
)

// Message is one append-only chat line attached to a transaction.
type Message struct {
	ID            string      `json:"id"`
	TransactionID string      `json:"transactionId"`
	SenderID      string      `json:"senderId"`
	SenderName    string      `json:"senderName"`
	Message       string      `json:"message"`
	Timestamp     time.Time   `json:"timestamp"`
	Type          MessageType `json:"type"`
}

// IsSystem reports whether m was synthesized by the lifecycle mutator.
func (m *Message) IsSystem() bool {
	return m.Type == MessageSystem || m.SenderID == SystemSenderID
}

// Conversation summarizes one transaction's chat for a given user.
type Conversation struct {
	Transaction Transaction `json:"transaction"`
	LastMessage *Message    `json:"lastMessage,omitempty"`
	UnreadCount int         `json:"unreadCount"`
}
