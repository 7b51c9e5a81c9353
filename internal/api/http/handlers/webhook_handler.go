package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/dealerkit/chat-orchestrator/internal/api/dto"
	"github.com/dealerkit/chat-orchestrator/internal/service"
	apperrors "github.com/dealerkit/chat-orchestrator/pkg/util"
)

// WebhookHandler receives inbound gateway events.
type WebhookHandler struct {
	orchestrator *service.Orchestrator
}

// NewWebhookHandler constructs handler.
func NewWebhookHandler(orchestrator *service.Orchestrator) *WebhookHandler {
	return &WebhookHandler{orchestrator: orchestrator}
}

// HandleInbound POST /webhook/gateway.
func (h *WebhookHandler) HandleInbound(c *fiber.Ctx) error {
	var req dto.InboundEventRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.TenantID) == "" || strings.TrimSpace(req.From) == "" {
		return apperrors.NewValidationError("tenantId and from required", nil)
	}

	outcome, err := h.orchestrator.HandleInbound(c.Context(), service.InboundEvent{
		AccountID: req.AccountID,
		ClientID:  req.ClientID,
		TenantID:  req.TenantID,
		From:      req.From,
		Message:   req.Message,
		MessageID: req.MessageID,
		HasMedia:  req.HasMedia,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": dto.InboundEventResponse{
		ConversationID: outcome.ConversationID,
		Intent:         string(outcome.Intent),
		Status:         string(outcome.Status),
		Duplicate:      outcome.Duplicate,
	}})
}
