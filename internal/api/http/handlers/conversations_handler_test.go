package handlers_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	httptransport "github.com/dealerkit/chat-orchestrator/internal/api/http"
	"github.com/dealerkit/chat-orchestrator/internal/api/http/handlers"
	"github.com/dealerkit/chat-orchestrator/internal/auth"
	"github.com/dealerkit/chat-orchestrator/internal/domain"
	"github.com/dealerkit/chat-orchestrator/internal/events"
	"github.com/dealerkit/chat-orchestrator/internal/lock"
	"github.com/dealerkit/chat-orchestrator/internal/observability"
	"github.com/dealerkit/chat-orchestrator/internal/repository"
	"github.com/dealerkit/chat-orchestrator/internal/service"
)

type memConversationRepo struct {
	mu   sync.Mutex
	seq  int
	byID map[string]*domain.Conversation
}

func newMemConversationRepo() *memConversationRepo {
	return &memConversationRepo{byID: make(map[string]*domain.Conversation)}
}

func (m *memConversationRepo) Create(_ context.Context, conv *domain.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	conv.ID = fmt.Sprintf("conv-%d", m.seq)
	conv.CreatedAt = time.Now().UTC()
	conv.UpdatedAt = conv.CreatedAt
	stored := *conv
	m.byID[conv.ID] = &stored
	return nil
}

func (m *memConversationRepo) GetByID(_ context.Context, id string) (*domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (m *memConversationRepo) GetByTenantPhone(_ context.Context, tenantID, phone string) (*domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, stored := range m.byID {
		if stored.TenantID == tenantID && stored.CustomerPhone == phone {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memConversationRepo) UpdateStatus(_ context.Context, id string, expected, next domain.ConversationStatus, escalatedAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[id]
	if !ok || stored.Status != expected {
		return false, nil
	}
	stored.Status = next
	if escalatedAt != nil {
		stored.EscalatedAt = escalatedAt
	}
	return true, nil
}

func (m *memConversationRepo) UpdateContext(_ context.Context, id string, contextData domain.ConversationContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Context = contextData
	return nil
}

func (m *memConversationRepo) SetStaff(_ context.Context, id string, isStaff bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.IsStaff = isStaff
	return nil
}

func (m *memConversationRepo) FindByLinkedLID(_ context.Context, tenantID, lid string) (*domain.Conversation, error) {
	return nil, pgx.ErrNoRows
}

func (m *memConversationRepo) ListWithFilter(_ context.Context, filter repository.ConversationFilter) ([]domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Conversation
	for _, stored := range m.byID {
		if filter.TenantID != "" && stored.TenantID != filter.TenantID {
			continue
		}
		out = append(out, *stored)
	}
	return out, nil
}

type memMessageRepo struct{}

func (memMessageRepo) Create(_ context.Context, msg *domain.Message) error {
	msg.ID = "msg-1"
	return nil
}

func (memMessageRepo) ListByConversation(context.Context, string, int, int) ([]domain.Message, error) {
	return nil, nil
}

type memIdentityRepo struct {
	identities map[string]domain.Identity
}

func (m *memIdentityRepo) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	identity, ok := m.identities[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &identity, nil
}

func (m *memIdentityRepo) ListByPhoneVariants(context.Context, string, []string) ([]domain.Identity, error) {
	return nil, nil
}

func (m *memIdentityRepo) ListByRoles(context.Context, string, []domain.Role) ([]domain.Identity, error) {
	return nil, nil
}

type escalateFixture struct {
	app      *fiber.App
	repo     *memConversationRepo
	tokens   *auth.TokenManager
	identity *memIdentityRepo
}

func newEscalateFixture(t *testing.T) *escalateFixture {
	t.Helper()

	tenantA := "t1"
	tenantB := "t2"
	repo := newMemConversationRepo()
	identityRepo := &memIdentityRepo{identities: map[string]domain.Identity{
		"admin-a": {ID: "admin-a", TenantID: &tenantA, Role: domain.RoleAdmin, Active: true},
		"admin-b": {ID: "admin-b", TenantID: &tenantB, Role: domain.RoleAdmin, Active: true},
	}}

	logger := zap.NewNop()
	conversations := service.NewConversationService(repo, memMessageRepo{}, events.NewInMemoryDispatcher(), logger)
	orchestrator := service.NewOrchestrator(service.OrchestratorDependencies{
		Conversations: conversations,
		Locker:        lock.NewKeyedMutex(),
		Logger:        logger,
	})

	tokens := auth.NewTokenManager("test-secret", 30)
	middleware := auth.NewAuthMiddleware(tokens, identityRepo)
	handler := handlers.NewConversationsHandler(conversations, orchestrator, nil)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, observability.NewMetrics(), 0)
	app.Post("/admin/conversations/:id/escalate", middleware.Handle, handler.Escalate)

	return &escalateFixture{app: app, repo: repo, tokens: tokens, identity: identityRepo}
}

func (f *escalateFixture) seedConversation(t *testing.T) *domain.Conversation {
	t.Helper()
	conv := &domain.Conversation{
		TenantID:      "t1",
		CustomerPhone: "6285555555555",
		Type:          domain.ConversationTypeCustomer,
		Status:        domain.ConversationStatusActive,
	}
	if err := f.repo.Create(context.Background(), conv); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	return conv
}

func (f *escalateFixture) escalateAs(t *testing.T, subject, convID string) int {
	t.Helper()
	identity := f.identity.identities[subject]
	token, _, err := f.tokens.GenerateToken(subject, identity.TenantID, identity.Role)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	req := httptest.NewRequest("POST", "/admin/conversations/"+convID+"/escalate", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := f.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestEscalateRejectsOtherTenantWithoutTransition(t *testing.T) {
	fx := newEscalateFixture(t)
	conv := fx.seedConversation(t)

	if status := fx.escalateAs(t, "admin-b", conv.ID); status != 403 {
		t.Errorf("status = %d, want 403", status)
	}

	// The rejection must happen before any state change: the thread is still
	// active and no escalation time was recorded.
	stored, err := fx.repo.GetByID(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != domain.ConversationStatusActive {
		t.Errorf("status = %q, want ACTIVE", stored.Status)
	}
	if stored.EscalatedAt != nil {
		t.Errorf("escalated_at = %v, want unset", stored.EscalatedAt)
	}
}

func TestEscalateOwnTenantTransitions(t *testing.T) {
	fx := newEscalateFixture(t)
	conv := fx.seedConversation(t)

	if status := fx.escalateAs(t, "admin-a", conv.ID); status != 200 {
		t.Errorf("status = %d, want 200", status)
	}

	stored, _ := fx.repo.GetByID(context.Background(), conv.ID)
	if stored.Status != domain.ConversationStatusEscalated {
		t.Errorf("status = %q, want ESCALATED", stored.Status)
	}
	if stored.EscalatedAt == nil {
		t.Error("escalated_at not recorded")
	}
}

func TestEscalateUnknownConversation(t *testing.T) {
	fx := newEscalateFixture(t)

	if status := fx.escalateAs(t, "admin-a", "conv-missing"); status != 404 {
		t.Errorf("status = %d, want 404", status)
	}
}
