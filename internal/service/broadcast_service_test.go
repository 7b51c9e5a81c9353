package service

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dealerkit/chat-orchestrator/internal/domain"
	"github.com/dealerkit/chat-orchestrator/internal/events"
	"github.com/dealerkit/chat-orchestrator/internal/observability"
)

func newTestBroadcaster(identities []domain.Identity, gw *fakeGateway, retry RetryPolicy) (*BroadcastService, *observability.Metrics, events.Dispatcher) {
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewBroadcastService(
		&fakeIdentityRepo{identities: identities},
		gw,
		retry,
		dispatcher,
		metrics,
		zap.NewNop(),
		"62",
	)
	return svc, metrics, dispatcher
}

func managerialRoles() []domain.Role {
	return []domain.Role{domain.RoleOwner, domain.RoleAdmin, domain.RoleManager}
}

func TestBroadcastExcludesSenderInEveryFormat(t *testing.T) {
	gw := newFakeGateway()
	// The admin row stores the sender's number in local leading-zero form;
	// exclusion must still catch it.
	svc, _, _ := newTestBroadcaster([]domain.Identity{
		staffIdentity("owner", "t1", "6287777777777", domain.RoleOwner),
		staffIdentity("admin", "t1", "081234567890", domain.RoleAdmin),
		staffIdentity("manager", "t1", "6289999999999", domain.RoleManager),
	}, gw, nil)

	result, err := svc.Broadcast(context.Background(), domain.BroadcastJob{
		TenantID:    "t1",
		ClientID:    "c1",
		Caption:     "Laporan terlampir.",
		Roles:       managerialRoles(),
		SenderPhone: "6281234567890",
	})
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if result.Delivered != 2 {
		t.Errorf("delivered = %d, want 2", result.Delivered)
	}
	if result.Failed != 0 {
		t.Errorf("failed = %d, want 0", result.Failed)
	}
	for _, call := range gw.sent() {
		if call.phone == "6281234567890" || call.phone == "081234567890" {
			t.Errorf("sender received their own broadcast via %q", call.phone)
		}
	}
}

func TestBroadcastIsTenantScoped(t *testing.T) {
	gw := newFakeGateway()
	platformOwner := staffIdentity("platform", "", "6286666666666", domain.RoleOwner)
	platformOwner.TenantID = nil
	svc, _, _ := newTestBroadcaster([]domain.Identity{
		staffIdentity("owner", "t1", "6287777777777", domain.RoleOwner),
		staffIdentity("other", "t2", "6288888888888", domain.RoleOwner),
		platformOwner,
	}, gw, nil)

	result, err := svc.Broadcast(context.Background(), domain.BroadcastJob{
		TenantID: "t1",
		ClientID: "c1",
		Caption:  "halo",
		Roles:    managerialRoles(),
	})
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	// Only the dealership's own staff receive fan-outs; other tenants and
	// platform-wide identities never do.
	if result.Delivered != 1 {
		t.Errorf("delivered = %d, want 1", result.Delivered)
	}
	calls := gw.sent()
	if len(calls) != 1 || calls[0].phone != "6287777777777" {
		t.Errorf("gateway calls = %+v, want the t1 owner only", calls)
	}
}

func TestBroadcastIsolatesRecipientFailures(t *testing.T) {
	gw := newFakeGateway()
	gw.failuresFor("6282222222222", -1)
	svc, metrics, dispatcher := newTestBroadcaster([]domain.Identity{
		staffIdentity("a", "t1", "6281111111111", domain.RoleOwner),
		staffIdentity("b", "t1", "6282222222222", domain.RoleAdmin),
		staffIdentity("c", "t1", "6283333333333", domain.RoleManager),
	}, gw, nil)

	var completed []events.BroadcastCompletedPayload
	dispatcher.Subscribe(events.EventBroadcastCompleted, func(_ context.Context, event events.Event) error {
		if payload, ok := event.Payload.(events.BroadcastCompletedPayload); ok {
			completed = append(completed, payload)
		}
		return nil
	})

	result, err := svc.Broadcast(context.Background(), domain.BroadcastJob{
		TenantID: "t1",
		ClientID: "c1",
		Caption:  "halo",
		Roles:    managerialRoles(),
	})
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if result.Delivered != 2 || result.Failed != 1 {
		t.Errorf("delivered/failed = %d/%d, want 2/1", result.Delivered, result.Failed)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("failures = %v", result.Failures)
	}
	if result.Failures[0].IdentityID != "b" || result.Failures[0].Phone != "6282222222222" {
		t.Errorf("failure = %+v", result.Failures[0])
	}
	if result.Failures[0].Reason == "" {
		t.Error("failure reason missing")
	}

	// The recipient after the failure must still be attempted, in order.
	calls := gw.sent()
	if len(calls) != 3 {
		t.Fatalf("gateway calls = %d, want 3", len(calls))
	}
	wantOrder := []string{"6281111111111", "6282222222222", "6283333333333"}
	for i, phone := range wantOrder {
		if calls[i].phone != phone {
			t.Errorf("call[%d] to %q, want %q", i, calls[i].phone, phone)
		}
	}

	delivered, failed := metrics.BroadcastTotals()
	if delivered != 2 || failed != 1 {
		t.Errorf("metrics delivered/failed = %d/%d", delivered, failed)
	}
	if len(completed) != 1 || completed[0].Delivered != 2 || completed[0].Failed != 1 {
		t.Errorf("completion events = %+v", completed)
	}
}

func TestBroadcastSendsDocumentWhenArtifactPresent(t *testing.T) {
	gw := newFakeGateway()
	svc, _, _ := newTestBroadcaster([]domain.Identity{
		staffIdentity("owner", "t1", "6287777777777", domain.RoleOwner),
	}, gw, nil)

	artifact := []byte("%PDF-1.4 laporan")
	_, err := svc.Broadcast(context.Background(), domain.BroadcastJob{
		TenantID: "t1",
		ClientID: "c1",
		Artifact: artifact,
		Filename: "laporan.pdf",
		Caption:  "Laporan terlampir.",
		Roles:    []domain.Role{domain.RoleOwner},
	})
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	calls := gw.sent()
	if len(calls) != 1 {
		t.Fatalf("gateway calls = %d, want 1", len(calls))
	}
	if calls[0].kind != "document" {
		t.Errorf("kind = %q, want document", calls[0].kind)
	}
	if calls[0].filename != "laporan.pdf" {
		t.Errorf("filename = %q", calls[0].filename)
	}
	if calls[0].body != base64.StdEncoding.EncodeToString(artifact) {
		t.Error("artifact not base64-encoded for the provider")
	}
}

func TestBroadcastRetriesWithBoundedBackoff(t *testing.T) {
	gw := newFakeGateway()
	gw.failuresFor("6287777777777", 2)
	svc, _, _ := newTestBroadcaster([]domain.Identity{
		staffIdentity("owner", "t1", "6287777777777", domain.RoleOwner),
	}, gw, BoundedBackoff{Attempts: 3, Initial: time.Millisecond})

	result, err := svc.Broadcast(context.Background(), domain.BroadcastJob{
		TenantID: "t1",
		ClientID: "c1",
		Caption:  "halo",
		Roles:    []domain.Role{domain.RoleOwner},
	})
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if result.Delivered != 1 || result.Failed != 0 {
		t.Errorf("delivered/failed = %d/%d, want 1/0", result.Delivered, result.Failed)
	}
	if calls := gw.sent(); len(calls) != 3 {
		t.Errorf("gateway attempts = %d, want 3", len(calls))
	}
}

func TestNoRetryAttemptsOnce(t *testing.T) {
	gw := newFakeGateway()
	gw.failuresFor("6287777777777", -1)
	svc, _, _ := newTestBroadcaster([]domain.Identity{
		staffIdentity("owner", "t1", "6287777777777", domain.RoleOwner),
	}, gw, NoRetry{})

	result, err := svc.Broadcast(context.Background(), domain.BroadcastJob{
		TenantID: "t1",
		ClientID: "c1",
		Caption:  "halo",
		Roles:    []domain.Role{domain.RoleOwner},
	})
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if result.Failed != 1 {
		t.Errorf("failed = %d, want 1", result.Failed)
	}
	if calls := gw.sent(); len(calls) != 1 {
		t.Errorf("gateway attempts = %d, want 1", len(calls))
	}
}
