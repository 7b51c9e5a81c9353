package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/dealerkit/chat-orchestrator/internal/domain"
	"github.com/dealerkit/chat-orchestrator/internal/events"
	"github.com/dealerkit/chat-orchestrator/internal/repository"
)

// ConversationService owns conversation status and its transition rules.
// Status is never set freely: all writes go through guarded transitions, and
// invalid transition requests are silent no-ops because they reflect normal
// out-of-order message arrival.
type ConversationService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// NewConversationService constructs the service.
func NewConversationService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		dispatcher:    dispatcher,
		logger:        logger,
	}
}

// GetOrCreate loads the conversation for a (tenant, normalized phone) pair,
// creating an active customer thread on first contact. A closed conversation
// is reopened: any new inbound message reactivates it.
func (s *ConversationService) GetOrCreate(ctx context.Context, tenantID, phone string) (*domain.Conversation, error) {
	conv, err := s.conversations.GetByTenantPhone(ctx, tenantID, phone)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		conv = &domain.Conversation{
			TenantID:      tenantID,
			CustomerPhone: phone,
			Type:          domain.ConversationTypeCustomer,
			Status:        domain.ConversationStatusActive,
		}
		if err := s.conversations.Create(ctx, conv); err != nil {
			return nil, err
		}
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type:           events.EventConversationCreated,
			TenantID:       tenantID,
			ConversationID: conv.ID,
			Payload:        events.ConversationCreatedPayload{CustomerPhone: phone, Type: conv.Type},
		})
		return conv, nil
	}

	if conv.Status == domain.ConversationStatusClosed {
		if err := s.Reopen(ctx, conv); err != nil {
			return nil, err
		}
	}
	return conv, nil
}

// GetByID loads a conversation.
func (s *ConversationService) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	return s.conversations.GetByID(ctx, id)
}

// List returns conversations matching the filter.
func (s *ConversationService) List(ctx context.Context, filter repository.ConversationFilter) ([]domain.Conversation, error) {
	return s.conversations.ListWithFilter(ctx, filter)
}

// Messages returns the message history for a conversation.
func (s *ConversationService) Messages(ctx context.Context, conversationID string, limit, offset int) ([]domain.Message, error) {
	return s.messages.ListByConversation(ctx, conversationID, limit, offset)
}

// Escalate transitions ACTIVE to ESCALATED, recording the escalation time.
// Returns false when the conversation was not active.
func (s *ConversationService) Escalate(ctx context.Context, conv *domain.Conversation) (bool, error) {
	now := time.Now().UTC()
	changed, err := s.conversations.UpdateStatus(ctx, conv.ID,
		domain.ConversationStatusActive, domain.ConversationStatusEscalated, &now)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}
	old := conv.Status
	conv.Status = domain.ConversationStatusEscalated
	conv.EscalatedAt = &now
	s.publishStatusChange(ctx, conv, old, "escalation")
	return true, nil
}

// Close transitions ESCALATED to CLOSED, recording the triggering text as the
// closing message. Closing a conversation that is not escalated is a no-op.
func (s *ConversationService) Close(ctx context.Context, conv *domain.Conversation, closingText string) (bool, error) {
	changed, err := s.conversations.UpdateStatus(ctx, conv.ID,
		domain.ConversationStatusEscalated, domain.ConversationStatusClosed, nil)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	old := conv.Status
	conv.Status = domain.ConversationStatusClosed
	conv.Context.ClosingMessage = closingText
	if err := s.conversations.UpdateContext(ctx, conv.ID, conv.Context); err != nil {
		return true, err
	}
	s.publishStatusChange(ctx, conv, old, "closing_phrase")
	return true, nil
}

// Reopen transitions CLOSED back to ACTIVE.
func (s *ConversationService) Reopen(ctx context.Context, conv *domain.Conversation) error {
	changed, err := s.conversations.UpdateStatus(ctx, conv.ID,
		domain.ConversationStatusClosed, domain.ConversationStatusActive, nil)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	old := conv.Status
	conv.Status = domain.ConversationStatusActive
	s.publishStatusChange(ctx, conv, old, "reopen")
	return nil
}

// MarkStaff flags the conversation as a verified staff thread and binds the
// alias identifier that delivered the verification, when present.
func (s *ConversationService) MarkStaff(ctx context.Context, conv *domain.Conversation, verifiedPhone, lid string) error {
	if !conv.IsStaff {
		if err := s.conversations.SetStaff(ctx, conv.ID, true); err != nil {
			return err
		}
		conv.IsStaff = true
		conv.Type = domain.ConversationTypeStaff
	}

	updated := false
	if verifiedPhone != "" && conv.Context.VerifiedStaffPhone != verifiedPhone {
		conv.Context.VerifiedStaffPhone = verifiedPhone
		updated = true
	}
	if lid != "" && !conv.Context.HasLinkedLID(lid) {
		conv.Context.LinkedLIDs = append(conv.Context.LinkedLIDs, lid)
		if conv.Context.OriginalLID == "" {
			conv.Context.OriginalLID = lid
		}
		updated = true
	}
	if !updated {
		return nil
	}
	return s.conversations.UpdateContext(ctx, conv.ID, conv.Context)
}

// RecordInbound persists an inbound message. Invalid transitions elsewhere
// never suppress recording: every gateway event leaves a message row.
func (s *ConversationService) RecordInbound(ctx context.Context, conv *domain.Conversation, sender, body string, intent domain.Intent, externalID string) (*domain.Message, error) {
	return s.record(ctx, conv, domain.Message{
		ConversationID: conv.ID,
		Direction:      domain.DirectionInbound,
		Sender:         sender,
		Body:           body,
		Intent:         intent,
		ExternalID:     externalID,
	})
}

// RecordOutbound persists an outbound message.
func (s *ConversationService) RecordOutbound(ctx context.Context, conv *domain.Conversation, sender, body string) (*domain.Message, error) {
	return s.record(ctx, conv, domain.Message{
		ConversationID: conv.ID,
		Direction:      domain.DirectionOutbound,
		Sender:         sender,
		Body:           body,
	})
}

func (s *ConversationService) record(ctx context.Context, conv *domain.Conversation, msg domain.Message) (*domain.Message, error) {
	if err := s.messages.Create(ctx, &msg); err != nil {
		return nil, err
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		Type:           events.EventMessageRecorded,
		TenantID:       conv.TenantID,
		ConversationID: conv.ID,
		Payload: events.MessageRecordedPayload{
			MessageID: msg.ID,
			Direction: msg.Direction,
			Intent:    msg.Intent,
			Sender:    msg.Sender,
		},
	})
	return &msg, nil
}

func (s *ConversationService) publishStatusChange(ctx context.Context, conv *domain.Conversation, old domain.ConversationStatus, trigger string) {
	s.logger.Info("conversation status changed",
		zap.String("conversation_id", conv.ID),
		zap.String("old_status", string(old)),
		zap.String("new_status", string(conv.Status)),
		zap.String("trigger", trigger))
	_ = s.dispatcher.Publish(ctx, events.Event{
		Type:           events.EventConversationStatusChanged,
		TenantID:       conv.TenantID,
		ConversationID: conv.ID,
		Payload: events.StatusChangedPayload{
			OldStatus: old,
			NewStatus: conv.Status,
			Trigger:   trigger,
		},
	})
}
