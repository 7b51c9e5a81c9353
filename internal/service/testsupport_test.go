package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dealerkit/chat-orchestrator/internal/domain"
	"github.com/dealerkit/chat-orchestrator/internal/repository"
)

func strPtr(s string) *string { return &s }

type fakeConversationRepo struct {
	mu        sync.Mutex
	seq       int
	byID      map[string]*domain.Conversation
	createErr error
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{byID: make(map[string]*domain.Conversation)}
}

func (f *fakeConversationRepo) failCreates(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr = err
}

func (f *fakeConversationRepo) Create(_ context.Context, conv *domain.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.seq++
	conv.ID = fmt.Sprintf("conv-%d", f.seq)
	conv.CreatedAt = time.Now().UTC()
	conv.UpdatedAt = conv.CreatedAt
	stored := *conv
	f.byID[conv.ID] = &stored
	return nil
}

func (f *fakeConversationRepo) GetByID(_ context.Context, id string) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (f *fakeConversationRepo) GetByTenantPhone(_ context.Context, tenantID, phone string) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, stored := range f.byID {
		if stored.TenantID == tenantID && stored.CustomerPhone == phone {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeConversationRepo) UpdateStatus(_ context.Context, id string, expected, next domain.ConversationStatus, escalatedAt *time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[id]
	if !ok || stored.Status != expected {
		return false, nil
	}
	stored.Status = next
	if escalatedAt != nil {
		stored.EscalatedAt = escalatedAt
	}
	stored.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (f *fakeConversationRepo) UpdateContext(_ context.Context, id string, contextData domain.ConversationContext) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Context = contextData
	return nil
}

func (f *fakeConversationRepo) SetStaff(_ context.Context, id string, isStaff bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.IsStaff = isStaff
	if isStaff {
		stored.Type = domain.ConversationTypeStaff
	}
	return nil
}

func (f *fakeConversationRepo) FindByLinkedLID(_ context.Context, tenantID, lid string) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, stored := range f.byID {
		if stored.TenantID == tenantID && stored.Context.HasLinkedLID(lid) {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeConversationRepo) ListWithFilter(_ context.Context, filter repository.ConversationFilter) ([]domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Conversation
	for _, stored := range f.byID {
		if filter.TenantID != "" && stored.TenantID != filter.TenantID {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, status := range filter.Statuses {
				if stored.Status == status {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *stored)
	}
	return out, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	seq      int
	messages []domain.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (f *fakeMessageRepo) Create(_ context.Context, msg *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	msg.ID = fmt.Sprintf("msg-%d", f.seq)
	msg.CreatedAt = time.Now().UTC()
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeMessageRepo) ListByConversation(_ context.Context, conversationID string, _, _ int) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Message
	for _, msg := range f.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) all() []domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Message{}, f.messages...)
}

type fakeIdentityRepo struct {
	identities []domain.Identity
}

func (f *fakeIdentityRepo) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	for i := range f.identities {
		if f.identities[i].ID == id {
			clone := f.identities[i]
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeIdentityRepo) ListByPhoneVariants(_ context.Context, tenantID string, variants []string) ([]domain.Identity, error) {
	var out []domain.Identity
	for _, identity := range f.identities {
		if !identity.Active {
			continue
		}
		if identity.TenantID != nil && *identity.TenantID != tenantID {
			continue
		}
		for _, variant := range variants {
			if identity.PhoneNormalized == variant {
				out = append(out, identity)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeIdentityRepo) ListByRoles(_ context.Context, tenantID string, roles []domain.Role) ([]domain.Identity, error) {
	var out []domain.Identity
	for _, identity := range f.identities {
		if !identity.Active {
			continue
		}
		// Role lookups are strictly tenant-scoped; platform-wide staff
		// (NULL tenant) only match phone-variant lookups.
		if identity.TenantID == nil || *identity.TenantID != tenantID {
			continue
		}
		for _, role := range roles {
			if identity.Role == role {
				out = append(out, identity)
				break
			}
		}
	}
	return out, nil
}

type gatewayCall struct {
	kind     string
	clientID string
	phone    string
	body     string
	filename string
}

// fakeGateway records sends in order. failuresFor schedules per-phone
// failures: a positive count fails that many sends then succeeds, -1 fails
// every send.
type fakeGateway struct {
	mu       sync.Mutex
	calls    []gatewayCall
	failures map[string]int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{failures: make(map[string]int)}
}

func (f *fakeGateway) failuresFor(phone string, count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[phone] = count
}

func (f *fakeGateway) record(call gatewayCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	remaining, ok := f.failures[call.phone]
	if !ok || remaining == 0 {
		return nil
	}
	if remaining > 0 {
		f.failures[call.phone] = remaining - 1
	}
	return fmt.Errorf("gateway rejected send to %s", call.phone)
}

func (f *fakeGateway) SendText(_ context.Context, clientID, phone, text string) error {
	return f.record(gatewayCall{kind: "text", clientID: clientID, phone: phone, body: text})
}

func (f *fakeGateway) SendDocument(_ context.Context, clientID, phone, payload, filename, caption string) error {
	return f.record(gatewayCall{kind: "document", clientID: clientID, phone: phone, body: payload, filename: filename})
}

func (f *fakeGateway) SendImage(_ context.Context, clientID, phone, imageData, caption string) error {
	return f.record(gatewayCall{kind: "image", clientID: clientID, phone: phone, body: imageData})
}

func (f *fakeGateway) sent() []gatewayCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gatewayCall{}, f.calls...)
}

func (f *fakeGateway) sentTo(phone string) []gatewayCall {
	var out []gatewayCall
	for _, call := range f.sent() {
		if call.phone == phone {
			out = append(out, call)
		}
	}
	return out
}

type fakeDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{seen: make(map[string]bool)}
}

func (f *fakeDeduper) ClaimMessageID(_ context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return true, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[messageID] {
		return false, nil
	}
	f.seen[messageID] = true
	return true, nil
}

func (f *fakeDeduper) ReleaseMessageID(_ context.Context, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.seen, messageID)
	return nil
}
