package dto

// InboundEventRequest is the gateway webhook payload.
type InboundEventRequest struct {
	AccountID string `json:"accountId"`
	ClientID  string `json:"clientId"`
	TenantID  string `json:"tenantId"`
	From      string `json:"from"`
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
	HasMedia  bool   `json:"hasMedia"`
}

// InboundEventResponse acknowledges webhook processing.
type InboundEventResponse struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Intent         string `json:"intent,omitempty"`
	Status         string `json:"status,omitempty"`
	Duplicate      bool   `json:"duplicate,omitempty"`
}
