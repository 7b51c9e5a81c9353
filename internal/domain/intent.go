package domain

// Intent enumerates the actions an inbound message can be classified into.
type Intent string

const (
	IntentCloseConversation Intent = "close_conversation"
	IntentStaffGetReport    Intent = "staff_get_report"
	IntentStaffGetInventory Intent = "staff_get_inventory"
	IntentStaffGetStatus    Intent = "staff_get_status"
	IntentStaffGetStats     Intent = "staff_get_statistics"
	IntentStaffGetAnalytics Intent = "staff_get_analytics"
	IntentCustomerInquiry   Intent = "customer_inquiry"
	IntentUnknown           Intent = "unknown"
)

// IsStaffCommand reports whether the intent belongs to the staff-command family.
func (i Intent) IsStaffCommand() bool {
	switch i {
	case IntentStaffGetReport, IntentStaffGetInventory, IntentStaffGetStatus,
		IntentStaffGetStats, IntentStaffGetAnalytics:
		return true
	}
	return false
}

// Classification is the ephemeral result of classifying one inbound message.
// Produced fresh per message and consumed immediately by routing; never persisted.
type Classification struct {
	Intent     Intent
	IsStaff    bool
	Confidence float64
}
