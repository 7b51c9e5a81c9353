package domain

import "time"

// MessageDirection indicates whether a message entered or left the platform.
type MessageDirection string

const (
	DirectionInbound  MessageDirection = "INBOUND"
	DirectionOutbound MessageDirection = "OUTBOUND"
)

// Message captures one inbound or outbound event on a conversation.
// Messages are immutable once created.
type Message struct {
	ID             string
	ConversationID string
	Direction      MessageDirection
	Sender         string
	Body           string
	Intent         Intent
	ExternalID     string
	CreatedAt      time.Time
}
