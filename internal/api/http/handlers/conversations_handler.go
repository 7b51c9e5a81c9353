package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/dealerkit/chat-orchestrator/internal/api/dto"
	"github.com/dealerkit/chat-orchestrator/internal/auth"
	"github.com/dealerkit/chat-orchestrator/internal/domain"
	"github.com/dealerkit/chat-orchestrator/internal/repository"
	"github.com/dealerkit/chat-orchestrator/internal/service"
	apperrors "github.com/dealerkit/chat-orchestrator/pkg/util"
)

// ConversationsHandler manages admin conversation endpoints.
type ConversationsHandler struct {
	conversations *service.ConversationService
	orchestrator  *service.Orchestrator
	broadcaster   *service.BroadcastService
}

// NewConversationsHandler constructs handler.
func NewConversationsHandler(
	conversations *service.ConversationService,
	orchestrator *service.Orchestrator,
	broadcaster *service.BroadcastService,
) *ConversationsHandler {
	return &ConversationsHandler{
		conversations: conversations,
		orchestrator:  orchestrator,
		broadcaster:   broadcaster,
	}
}

// List GET /admin/conversations.
func (h *ConversationsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	filter := repository.ConversationFilter{
		TenantID: c.Query("tenant_id"),
		Limit:    parseIntQuery(c, "limit", 50),
		Offset:   parseIntQuery(c, "offset", 0),
	}
	// Tenant-scoped staff may only see their own tenant.
	if principal.TenantID != nil {
		filter.TenantID = *principal.TenantID
	}
	if filter.TenantID == "" {
		return apperrors.NewValidationError("tenant_id required", nil)
	}
	if status := c.Query("status"); status != "" {
		filter.Statuses = []domain.ConversationStatus{domain.ConversationStatus(status)}
	}

	conversations, err := h.conversations.List(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.ConversationSummary, 0, len(conversations))
	for i := range conversations {
		items = append(items, conversationSummary(&conversations[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /admin/conversations/:id.
func (h *ConversationsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	conv, err := h.conversations.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("conversation", nil)
		}
		return err
	}
	if principal.TenantID != nil && conv.TenantID != *principal.TenantID {
		return apperrors.NewForbidden("conversation belongs to another tenant")
	}

	messages, err := h.conversations.Messages(c.Context(), conv.ID, parseIntQuery(c, "limit", 100), parseIntQuery(c, "offset", 0))
	if err != nil {
		return err
	}

	detail := dto.ConversationDetail{
		ConversationSummary: conversationSummary(conv),
		ClosingMessage:      conv.Context.ClosingMessage,
		Messages:            make([]dto.MessageView, 0, len(messages)),
	}
	for _, msg := range messages {
		detail.Messages = append(detail.Messages, dto.MessageView{
			ID:        msg.ID,
			Direction: string(msg.Direction),
			Sender:    msg.Sender,
			Body:      msg.Body,
			Intent:    string(msg.Intent),
			CreatedAt: msg.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": detail})
}

// Escalate POST /admin/conversations/:id/escalate.
func (h *ConversationsHandler) Escalate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	// Tenancy is checked before any transition happens: a caller from
	// another tenant must never move the state machine.
	existing, err := h.conversations.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("conversation", nil)
		}
		return err
	}
	if principal.TenantID != nil && existing.TenantID != *principal.TenantID {
		return apperrors.NewForbidden("conversation belongs to another tenant")
	}

	conv, changed, err := h.orchestrator.Escalate(c.Context(), existing.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("conversation", nil)
		}
		return err
	}

	return c.JSON(fiber.Map{"data": fiber.Map{
		"id":      conv.ID,
		"status":  conv.Status,
		"changed": changed,
	}})
}

// Broadcast POST /admin/broadcasts.
func (h *ConversationsHandler) Broadcast(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.BroadcastRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if principal.TenantID != nil {
		req.TenantID = *principal.TenantID
	}
	if req.TenantID == "" || req.Message == "" || len(req.Roles) == 0 {
		return apperrors.NewValidationError("tenant_id, message, roles required", nil)
	}

	roles := make([]domain.Role, 0, len(req.Roles))
	for _, role := range req.Roles {
		roles = append(roles, domain.Role(role))
	}

	result, err := h.broadcaster.Broadcast(c.Context(), domain.BroadcastJob{
		TenantID:    req.TenantID,
		ClientID:    req.ClientID,
		Caption:     req.Message,
		Roles:       roles,
		SenderPhone: req.SenderPhone,
	})
	if err != nil {
		return err
	}

	resp := dto.BroadcastResponse{Delivered: result.Delivered, Failed: result.Failed}
	for _, failure := range result.Failures {
		resp.Failures = append(resp.Failures, dto.BroadcastFailure{
			IdentityID: failure.IdentityID,
			Phone:      failure.Phone,
			Reason:     failure.Reason,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

func conversationSummary(conv *domain.Conversation) dto.ConversationSummary {
	return dto.ConversationSummary{
		ID:            conv.ID,
		TenantID:      conv.TenantID,
		CustomerPhone: conv.CustomerPhone,
		IsStaff:       conv.IsStaff,
		Type:          string(conv.Type),
		Status:        string(conv.Status),
		EscalatedAt:   conv.EscalatedAt,
		CreatedAt:     conv.CreatedAt,
		UpdatedAt:     conv.UpdatedAt,
	}
}

func parseIntQuery(c *fiber.Ctx, key string, fallback int) int {
	val := c.Query(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
