package service

import (
	"context"
	"encoding/base64"

	"go.uber.org/zap"

	"github.com/dealerkit/chat-orchestrator/internal/domain"
	"github.com/dealerkit/chat-orchestrator/internal/events"
	"github.com/dealerkit/chat-orchestrator/internal/gateway"
	"github.com/dealerkit/chat-orchestrator/internal/observability"
	"github.com/dealerkit/chat-orchestrator/internal/repository"
	"github.com/dealerkit/chat-orchestrator/pkg/phone"
)

// BroadcastService fans a generated artifact out to all identities matching a
// role filter within a tenant, excluding the original sender across all of
// their phone-format variants. Delivery is sequential by design: the provider
// rate-limits aggressively and ordered delivery logs are worth more than
// fan-out throughput here.
type BroadcastService struct {
	identities  repository.IdentityRepository
	gateway     gateway.Client
	retry       RetryPolicy
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	countryCode string
}

// NewBroadcastService constructs the dispatcher.
func NewBroadcastService(
	identities repository.IdentityRepository,
	gatewayClient gateway.Client,
	retry RetryPolicy,
	dispatcher events.Dispatcher,
	metrics *observability.Metrics,
	logger *zap.Logger,
	countryCode string,
) *BroadcastService {
	if retry == nil {
		retry = NoRetry{}
	}
	return &BroadcastService{
		identities:  identities,
		gateway:     gatewayClient,
		retry:       retry,
		dispatcher:  dispatcher,
		metrics:     metrics,
		logger:      logger,
		countryCode: countryCode,
	}
}

// Broadcast delivers the job to every matching recipient. A failure for one
// recipient is recorded and never aborts the loop; the result always reports
// delivered/failed counts instead of failing.
func (s *BroadcastService) Broadcast(ctx context.Context, job domain.BroadcastJob) (domain.BroadcastResult, error) {
	recipients, err := s.identities.ListByRoles(ctx, job.TenantID, job.Roles)
	if err != nil {
		return domain.BroadcastResult{}, err
	}

	excluded := s.excludedPhoneSet(job.SenderPhone)

	var result domain.BroadcastResult
	for _, recipient := range recipients {
		normalized := phone.Normalize(recipient.Phone)
		if _, skip := excluded[normalized]; skip {
			continue
		}

		if err := s.deliver(ctx, job, normalized); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, domain.BroadcastFailure{
				IdentityID: recipient.ID,
				Phone:      normalized,
				Reason:     err.Error(),
			})
			s.logger.Warn("broadcast recipient failed",
				zap.String("tenant_id", job.TenantID),
				zap.String("identity_id", recipient.ID),
				zap.Error(err))
			continue
		}
		result.Delivered++
	}

	s.metrics.RecordBroadcast(result.Delivered, result.Failed)
	_ = s.dispatcher.Publish(ctx, events.Event{
		Type:     events.EventBroadcastCompleted,
		TenantID: job.TenantID,
		Payload: events.BroadcastCompletedPayload{
			Roles:     job.Roles,
			Delivered: result.Delivered,
			Failed:    result.Failed,
			Filename:  job.Filename,
		},
	})
	return result, nil
}

// excludedPhoneSet guards against the sender receiving their own broadcast
// when the inbound event's phone encoding differs from the stored encoding.
func (s *BroadcastService) excludedPhoneSet(senderPhone string) map[string]struct{} {
	excluded := make(map[string]struct{})
	canonical := phone.Normalize(senderPhone)
	for _, variant := range phone.Variants(canonical, s.countryCode) {
		excluded[variant] = struct{}{}
	}
	return excluded
}

func (s *BroadcastService) deliver(ctx context.Context, job domain.BroadcastJob, recipientPhone string) error {
	return s.retry.Do(ctx, func() error {
		if len(job.Artifact) > 0 {
			payload := base64.StdEncoding.EncodeToString(job.Artifact)
			return s.gateway.SendDocument(ctx, job.ClientID, recipientPhone, payload, job.Filename, job.Caption)
		}
		return s.gateway.SendText(ctx, job.ClientID, recipientPhone, job.Caption)
	})
}
