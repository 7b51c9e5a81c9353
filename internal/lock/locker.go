// Package lock serializes units of work that target the same conversation.
// Concurrent webhook deliveries for one (tenant, phone) pair must not race on
// state-machine transitions or context mutation.
package lock

import "context"

// Locker acquires an exclusive lock for a key. The returned release function
// must be called when the work is done; repeated calls are no-ops.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// ConversationKey builds the canonical lock key for a conversation.
func ConversationKey(tenantID, phone string) string {
	return "conv:" + tenantID + ":" + phone
}
