package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/dealerkit/chat-orchestrator/internal/events"
)

// AuditService emits structured audit logs for domain events. Data-quality
// conditions (ambiguous identities) surface here for administrators.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventConversationCreated, a.handleConversationCreated)
	a.dispatcher.Subscribe(events.EventConversationStatusChanged, a.handleStatusChanged)
	a.dispatcher.Subscribe(events.EventAmbiguousIdentity, a.handleAmbiguousIdentity)
	a.dispatcher.Subscribe(events.EventBroadcastCompleted, a.handleBroadcastCompleted)
}

func (a *AuditService) handleConversationCreated(ctx context.Context, event events.Event) error {
	a.logger.Info("ConversationCreated",
		zap.String("tenant_id", event.TenantID),
		zap.String("conversation_id", event.ConversationID),
		zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleStatusChanged(ctx context.Context, event events.Event) error {
	a.logger.Info("ConversationStatusChanged",
		zap.String("tenant_id", event.TenantID),
		zap.String("conversation_id", event.ConversationID),
		zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleAmbiguousIdentity(ctx context.Context, event events.Event) error {
	// Data-quality warning: more than one staff identity claims a phone.
	// The conversation stays non-staff until an administrator resolves it.
	a.logger.Warn("AmbiguousIdentity",
		zap.String("tenant_id", event.TenantID),
		zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleBroadcastCompleted(ctx context.Context, event events.Event) error {
	a.logger.Info("BroadcastCompleted",
		zap.String("tenant_id", event.TenantID),
		zap.Any("payload", event.Payload))
	return nil
}
