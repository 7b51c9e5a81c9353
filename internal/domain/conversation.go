package domain

import "time"

// ConversationStatus enumerates lifecycle states for conversations.
type ConversationStatus string

const (
	ConversationStatusActive    ConversationStatus = "ACTIVE"
	ConversationStatusEscalated ConversationStatus = "ESCALATED"
	ConversationStatusClosed    ConversationStatus = "CLOSED"
)

// ConversationType differentiates customer threads from staff threads.
type ConversationType string

const (
	ConversationTypeCustomer ConversationType = "CUSTOMER"
	ConversationTypeStaff    ConversationType = "STAFF"
)

// ConversationContext carries the optional per-thread fields that used to live
// in an open-ended dictionary. Validated at the state-machine boundary.
type ConversationContext struct {
	VerifiedStaffPhone string   `json:"verified_staff_phone,omitempty"`
	LinkedLIDs         []string `json:"linked_lids,omitempty"`
	OriginalLID        string   `json:"original_lid,omitempty"`
	ClosingMessage     string   `json:"closing_message,omitempty"`
}

// HasLinkedLID reports whether the given alias identifier is bound to this thread.
func (c ConversationContext) HasLinkedLID(lid string) bool {
	for _, linked := range c.LinkedLIDs {
		if linked == lid {
			return true
		}
	}
	return false
}

// Conversation is the aggregate for a customer-or-staff message thread.
// At most one conversation exists per (tenant, normalized customer phone) pair.
type Conversation struct {
	ID            string
	TenantID      string
	CustomerPhone string
	IsStaff       bool
	Type          ConversationType
	Status        ConversationStatus
	EscalatedAt   *time.Time
	Context       ConversationContext
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
