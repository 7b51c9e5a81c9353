package service

import (
	"context"
	"encoding/base64"
	"strings"

	"go.uber.org/zap"

	"github.com/dealerkit/chat-orchestrator/internal/domain"
	"github.com/dealerkit/chat-orchestrator/internal/gateway"
	"github.com/dealerkit/chat-orchestrator/internal/lock"
	"github.com/dealerkit/chat-orchestrator/internal/observability"
	"github.com/dealerkit/chat-orchestrator/pkg/phone"
)

// InboundEvent is one gateway webhook delivery. From is gateway-encoded and
// passes through the phone normalizer before any lookup.
type InboundEvent struct {
	AccountID string
	ClientID  string
	TenantID  string
	From      string
	Message   string
	MessageID string
	HasMedia  bool
}

// InboundOutcome summarizes how one inbound event was processed.
type InboundOutcome struct {
	ConversationID string
	Intent         domain.Intent
	Status         domain.ConversationStatus
	Duplicate      bool
	Replied        bool
	Broadcast      *domain.BroadcastResult
}

// MessageDeduper screens out webhook redeliveries by gateway message ID. A
// claim taken for a delivery that then fails mid-pipeline must be released,
// otherwise the gateway's redelivery would be dropped and the message lost.
type MessageDeduper interface {
	ClaimMessageID(ctx context.Context, messageID string) (bool, error)
	ReleaseMessageID(ctx context.Context, messageID string) error
}

const aliasSuffix = "@lid"

const closingReplyText = "Baik, percakapan kami tutup. Terima kasih!"

// Orchestrator receives inbound chat events, determines who is speaking and
// what they want, advances the conversation state machine, routes staff
// commands, and fans generated artifacts out to role-filtered recipients.
type Orchestrator struct {
	conversations *ConversationService
	resolver      *IdentityResolver
	classifier    *IntentClassifier
	registry      *OperationRegistry
	broadcaster   *BroadcastService
	gateway       gateway.Client
	locker        lock.Locker
	deduper       MessageDeduper
	metrics       *observability.Metrics
	logger        *zap.Logger
	countryCode   string
	defaultClient string
}

// OrchestratorDependencies bundles collaborators for the orchestrator.
type OrchestratorDependencies struct {
	Conversations *ConversationService
	Resolver      *IdentityResolver
	Classifier    *IntentClassifier
	Registry      *OperationRegistry
	Broadcaster   *BroadcastService
	Gateway       gateway.Client
	Locker        lock.Locker
	Deduper       MessageDeduper
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	CountryCode   string
	// DefaultClientID stands in when an inbound event omits clientId.
	DefaultClientID string
}

// NewOrchestrator constructs the service.
func NewOrchestrator(deps OrchestratorDependencies) *Orchestrator {
	return &Orchestrator{
		conversations: deps.Conversations,
		resolver:      deps.Resolver,
		classifier:    deps.Classifier,
		registry:      deps.Registry,
		broadcaster:   deps.Broadcaster,
		gateway:       deps.Gateway,
		locker:        deps.Locker,
		deduper:       deps.Deduper,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		countryCode:   deps.CountryCode,
		defaultClient: deps.DefaultClientID,
	}
}

// HandleInbound processes one gateway event end to end. Events for the same
// (tenant, normalized phone) pair are serialized behind a per-conversation
// lock; events for different conversations run concurrently.
func (o *Orchestrator) HandleInbound(ctx context.Context, event InboundEvent) (outcome *InboundOutcome, err error) {
	if event.ClientID == "" {
		event.ClientID = o.defaultClient
	}

	normalized := phone.Normalize(event.From)
	if normalized == "" {
		// Malformed identifiers fail lookups harmlessly; nothing to key a
		// conversation on, so the event is dropped with a trace.
		o.logger.Warn("inbound event with no usable sender identifier",
			zap.String("tenant_id", event.TenantID),
			zap.String("from", event.From))
		return &InboundOutcome{Intent: domain.IntentUnknown}, nil
	}

	if o.deduper != nil && event.MessageID != "" {
		first, derr := o.deduper.ClaimMessageID(ctx, event.MessageID)
		switch {
		case derr != nil:
			o.logger.Warn("message dedupe unavailable", zap.Error(derr))
		case !first:
			return &InboundOutcome{Duplicate: true}, nil
		default:
			// A claim held for a failed run would drop the gateway's
			// redelivery as a duplicate. Give it back so the retry is
			// processed as a first delivery.
			defer func() {
				if err == nil {
					return
				}
				if rerr := o.deduper.ReleaseMessageID(context.WithoutCancel(ctx), event.MessageID); rerr != nil {
					o.logger.Warn("dedupe claim release failed",
						zap.String("message_id", event.MessageID), zap.Error(rerr))
				}
			}()
		}
	}

	// Alias identifiers map back to the verified staff phone bound to them,
	// so staff messaging via an anonymized contact id land on their thread.
	senderPhone := normalized
	aliasLID := ""
	aliasVerified := false
	if strings.Contains(event.From, aliasSuffix) {
		aliasLID = normalized
		verifiedPhone, ok, err := o.resolver.ResolveAlias(ctx, event.TenantID, aliasLID)
		if err != nil {
			return nil, err
		}
		if ok {
			senderPhone = verifiedPhone
			aliasVerified = true
		}
	}

	release, err := o.locker.Acquire(ctx, lock.ConversationKey(event.TenantID, senderPhone))
	if err != nil {
		return nil, err
	}
	defer release()

	conv, err := o.conversations.GetOrCreate(ctx, event.TenantID, senderPhone)
	if err != nil {
		return nil, err
	}

	classification, err := o.classifier.Classify(ctx, ClassifyInput{
		Text:                 event.Message,
		SenderPhone:          senderPhone,
		TenantID:             event.TenantID,
		HasMedia:             event.HasMedia,
		ExplicitStaffContext: conv.IsStaff || aliasVerified,
		Status:               conv.Status,
	})
	if err != nil {
		return nil, err
	}
	o.metrics.RecordIntent(string(classification.Intent))

	if _, err := o.conversations.RecordInbound(ctx, conv, senderPhone, event.Message, classification.Intent, event.MessageID); err != nil {
		return nil, err
	}

	outcome = &InboundOutcome{
		ConversationID: conv.ID,
		Intent:         classification.Intent,
	}

	switch {
	case classification.Intent == domain.IntentCloseConversation:
		replied, cerr := o.handleClosing(ctx, event, conv)
		if cerr != nil {
			return nil, cerr
		}
		outcome.Replied = replied

	case classification.Intent.IsStaffCommand() && classification.IsStaff:
		broadcastResult, err := o.handleStaffCommand(ctx, event, conv, classification, senderPhone, aliasLID)
		if err != nil {
			return nil, err
		}
		outcome.Replied = true
		outcome.Broadcast = broadcastResult

	default:
		// Customer inquiries and unknowns are recorded and surfaced through
		// events; replying belongs to the inquiry pipeline, an external
		// collaborator.
		o.logger.Debug("inbound message recorded without direct reply",
			zap.String("conversation_id", conv.ID),
			zap.String("intent", string(classification.Intent)))
	}

	outcome.Status = conv.Status
	return outcome, nil
}

// Escalate is the external escalation trigger: a handler that cannot resolve
// a customer request flags the thread for staff attention.
func (o *Orchestrator) Escalate(ctx context.Context, conversationID string) (*domain.Conversation, bool, error) {
	conv, err := o.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, false, err
	}

	release, err := o.locker.Acquire(ctx, lock.ConversationKey(conv.TenantID, conv.CustomerPhone))
	if err != nil {
		return nil, false, err
	}
	defer release()

	changed, err := o.conversations.Escalate(ctx, conv)
	if err != nil {
		return nil, false, err
	}
	return conv, changed, nil
}

// handleClosing reports whether the customer actually got an acknowledgement:
// a guarded no-op close or a failed send is not a reply.
func (o *Orchestrator) handleClosing(ctx context.Context, event InboundEvent, conv *domain.Conversation) (bool, error) {
	closed, err := o.conversations.Close(ctx, conv, event.Message)
	if err != nil {
		return false, err
	}
	if !closed {
		// Stray closing phrase on a non-escalated thread: no-op by design.
		return false, nil
	}

	if err := o.gateway.SendText(ctx, event.ClientID, conv.CustomerPhone, closingReplyText); err != nil {
		o.logger.Warn("closing acknowledgement failed",
			zap.String("conversation_id", conv.ID), zap.Error(err))
		return false, nil
	}
	if _, err := o.conversations.RecordOutbound(ctx, conv, "system", closingReplyText); err != nil {
		return true, err
	}
	return true, nil
}

func (o *Orchestrator) handleStaffCommand(
	ctx context.Context,
	event InboundEvent,
	conv *domain.Conversation,
	classification domain.Classification,
	senderPhone, aliasLID string,
) (*domain.BroadcastResult, error) {
	if err := o.conversations.MarkStaff(ctx, conv, senderPhone, aliasLID); err != nil {
		return nil, err
	}

	resolution, err := o.resolver.Resolve(ctx, event.TenantID, senderPhone)
	if err != nil {
		return nil, err
	}

	command := ParseCommand(event.Message, classification.Intent)
	result, err := o.registry.Dispatch(ctx, OperationRequest{
		Command:   command,
		TenantID:  event.TenantID,
		Requester: resolution.Staff(),
	})
	if err != nil {
		o.logger.Error("operation handler failed",
			zap.String("command", string(command.Name)), zap.Error(err))
		result = &OperationResult{
			Success: false,
			Message: "Terjadi kesalahan saat memproses perintah. Silakan coba lagi.",
		}
	}

	// Direct reply to the requester always goes first, independently of how
	// the broadcast loop fares.
	o.sendDirectReply(ctx, event.ClientID, senderPhone, result)
	if _, err := o.conversations.RecordOutbound(ctx, conv, "system", result.Message); err != nil {
		return nil, err
	}

	if !result.Success || len(result.BroadcastRoles) == 0 || len(result.Artifact) == 0 {
		return nil, nil
	}

	broadcastResult, err := o.broadcaster.Broadcast(ctx, domain.BroadcastJob{
		TenantID:    event.TenantID,
		ClientID:    event.ClientID,
		Artifact:    result.Artifact,
		Filename:    result.Filename,
		Caption:     result.Message,
		Roles:       result.BroadcastRoles,
		SenderPhone: senderPhone,
	})
	if err != nil {
		return nil, err
	}
	return &broadcastResult, nil
}

func (o *Orchestrator) sendDirectReply(ctx context.Context, clientID, recipientPhone string, result *OperationResult) {
	var err error
	if len(result.Artifact) > 0 {
		payload := base64.StdEncoding.EncodeToString(result.Artifact)
		err = o.gateway.SendDocument(ctx, clientID, recipientPhone, payload, result.Filename, result.Message)
	} else {
		err = o.gateway.SendText(ctx, clientID, recipientPhone, result.Message)
	}
	if err != nil {
		o.logger.Warn("direct reply failed",
			zap.String("phone", recipientPhone), zap.Error(err))
	}

	if result.FollowUp != "" {
		if err := o.gateway.SendText(ctx, clientID, recipientPhone, result.FollowUp); err != nil {
			o.logger.Warn("follow-up reply failed",
				zap.String("phone", recipientPhone), zap.Error(err))
		}
	}
}
