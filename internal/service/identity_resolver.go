package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/dealerkit/chat-orchestrator/internal/domain"
	"github.com/dealerkit/chat-orchestrator/internal/events"
	"github.com/dealerkit/chat-orchestrator/internal/repository"
	"github.com/dealerkit/chat-orchestrator/pkg/phone"
)

// Resolution is the outcome of mapping a normalized phone to identities.
// Zero matches means customer; more than one is a data-quality condition and
// the conversation is treated as non-staff until resolved administratively.
type Resolution struct {
	Identities []domain.Identity
	Ambiguous  bool
}

// Staff returns the single resolved staff identity, or nil for the customer
// and ambiguous cases.
func (r Resolution) Staff() *domain.Identity {
	if r.Ambiguous || len(r.Identities) != 1 {
		return nil
	}
	return &r.Identities[0]
}

// IdentityResolver maps normalized phones and alias identifiers to staff
// identities.
type IdentityResolver struct {
	identities    repository.IdentityRepository
	conversations repository.ConversationRepository
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	countryCode   string
}

// NewIdentityResolver constructs the resolver.
func NewIdentityResolver(
	identities repository.IdentityRepository,
	conversations repository.ConversationRepository,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
	countryCode string,
) *IdentityResolver {
	return &IdentityResolver{
		identities:    identities,
		conversations: conversations,
		dispatcher:    dispatcher,
		logger:        logger,
		countryCode:   countryCode,
	}
}

// Resolve looks up all identities whose stored phone, once normalized, equals
// the input in any of its format variants.
func (r *IdentityResolver) Resolve(ctx context.Context, tenantID, normalizedPhone string) (Resolution, error) {
	if normalizedPhone == "" {
		return Resolution{}, nil
	}

	variants := phone.Variants(normalizedPhone, r.countryCode)
	identities, err := r.identities.ListByPhoneVariants(ctx, tenantID, variants)
	if err != nil {
		return Resolution{}, err
	}

	resolution := Resolution{Identities: identities}
	if len(identities) > 1 {
		resolution.Ambiguous = true
		ids := make([]string, 0, len(identities))
		for _, identity := range identities {
			ids = append(ids, identity.ID)
		}
		r.logger.Warn("phone matches multiple staff identities",
			zap.String("tenant_id", tenantID),
			zap.String("phone", normalizedPhone),
			zap.Strings("identity_ids", ids))
		_ = r.dispatcher.Publish(ctx, events.Event{
			Type:     events.EventAmbiguousIdentity,
			TenantID: tenantID,
			Payload:  events.AmbiguousIdentityPayload{Phone: normalizedPhone, MatchedIDs: ids},
		})
	}
	return resolution, nil
}

// ResolveAlias maps an anonymized contact identifier to the verified staff
// phone bound to it via a conversation's linked-LID set. The boolean reports
// whether a binding was found.
func (r *IdentityResolver) ResolveAlias(ctx context.Context, tenantID, lid string) (string, bool, error) {
	if lid == "" {
		return "", false, nil
	}
	conv, err := r.conversations.FindByLinkedLID(ctx, tenantID, lid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	if conv == nil || conv.Context.VerifiedStaffPhone == "" {
		return "", false, nil
	}
	return conv.Context.VerifiedStaffPhone, true, nil
}
