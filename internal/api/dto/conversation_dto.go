package dto

import "time"

// ConversationSummary is the admin listing projection.
type ConversationSummary struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	CustomerPhone string     `json:"customer_phone"`
	IsStaff       bool       `json:"is_staff"`
	Type          string     `json:"type"`
	Status        string     `json:"status"`
	EscalatedAt   *time.Time `json:"escalated_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// MessageView is one message in a conversation detail.
type MessageView struct {
	ID        string    `json:"id"`
	Direction string    `json:"direction"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	Intent    string    `json:"intent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationDetail combines a conversation with its message history.
type ConversationDetail struct {
	ConversationSummary
	ClosingMessage string        `json:"closing_message,omitempty"`
	Messages       []MessageView `json:"messages"`
}

// BroadcastRequest is the manual text fan-out payload.
type BroadcastRequest struct {
	TenantID    string   `json:"tenant_id"`
	ClientID    string   `json:"client_id"`
	Message     string   `json:"message"`
	Roles       []string `json:"roles"`
	SenderPhone string   `json:"sender_phone"`
}

// BroadcastResponse reports fan-out delivery counts.
type BroadcastResponse struct {
	Delivered int                `json:"delivered"`
	Failed    int                `json:"failed"`
	Failures  []BroadcastFailure `json:"failures,omitempty"`
}

// BroadcastFailure is one failed recipient.
type BroadcastFailure struct {
	IdentityID string `json:"identity_id"`
	Phone      string `json:"phone"`
	Reason     string `json:"reason"`
}
