package events

import (
	"time"

	"github.com/dealerkit/chat-orchestrator/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventConversationCreated       EventType = "conversation_created"
	EventConversationStatusChanged EventType = "conversation_status_changed"
	EventMessageRecorded           EventType = "message_recorded"
	EventAmbiguousIdentity         EventType = "ambiguous_identity"
	EventBroadcastCompleted        EventType = "broadcast_completed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID             string      `json:"id"`
	Type           EventType   `json:"type"`
	TenantID       string      `json:"tenant_id"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
	Payload        interface{} `json:"payload"`
}

// ConversationCreatedPayload payload.
type ConversationCreatedPayload struct {
	CustomerPhone string                  `json:"customer_phone"`
	Type          domain.ConversationType `json:"type"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus domain.ConversationStatus `json:"old_status"`
	NewStatus domain.ConversationStatus `json:"new_status"`
	Trigger   string                    `json:"trigger,omitempty"`
}

// MessageRecordedPayload payload.
type MessageRecordedPayload struct {
	MessageID string                  `json:"message_id"`
	Direction domain.MessageDirection `json:"direction"`
	Intent    domain.Intent           `json:"intent,omitempty"`
	Sender    string                  `json:"sender"`
}

// AmbiguousIdentityPayload flags a phone matching more than one staff identity.
type AmbiguousIdentityPayload struct {
	Phone      string   `json:"phone"`
	MatchedIDs []string `json:"matched_ids"`
}

// BroadcastCompletedPayload payload.
type BroadcastCompletedPayload struct {
	Roles     []domain.Role `json:"roles"`
	Delivered int           `json:"delivered"`
	Failed    int           `json:"failed"`
	Filename  string        `json:"filename,omitempty"`
}
