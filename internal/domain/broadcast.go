package domain

// BroadcastJob describes one fan-out dispatch. Ephemeral: it exists only for
// the duration of a dispatch call and is never persisted.
type BroadcastJob struct {
	TenantID    string
	ClientID    string
	Artifact    []byte
	Filename    string
	Caption     string
	Roles       []Role
	SenderPhone string
}

// BroadcastFailure records a single failed recipient delivery.
type BroadcastFailure struct {
	IdentityID string
	Phone      string
	Reason     string
}

// BroadcastResult summarizes a fan-out dispatch.
type BroadcastResult struct {
	Delivered int
	Failed    int
	Failures  []BroadcastFailure
}
