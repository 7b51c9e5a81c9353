package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dealerkit/chat-orchestrator/internal/domain"
)

// OperationRequest is handed to an operation handler by the router.
type OperationRequest struct {
	Command   domain.Command
	TenantID  string
	Requester *domain.Identity
}

// OperationResult is what a handler returns. A non-empty BroadcastRoles list
// triggers fan-out of the artifact after the direct reply.
type OperationResult struct {
	Success        bool
	Message        string
	Artifact       []byte
	Filename       string
	FollowUp       string
	BroadcastRoles []domain.Role
}

// OperationHandler executes one staff command.
type OperationHandler interface {
	Handle(ctx context.Context, req OperationRequest) (*OperationResult, error)
}

// OperationRegistry routes parsed commands to their handlers.
type OperationRegistry struct {
	handlers map[domain.CommandName]OperationHandler
}

// NewOperationRegistry creates an empty registry.
func NewOperationRegistry() *OperationRegistry {
	return &OperationRegistry{handlers: make(map[domain.CommandName]OperationHandler)}
}

// Register binds a handler to a command name.
func (r *OperationRegistry) Register(name domain.CommandName, handler OperationHandler) {
	r.handlers[name] = handler
}

// Dispatch invokes the handler for the command. Unresolvable commands yield a
// user-visible failure result, never an error.
func (r *OperationRegistry) Dispatch(ctx context.Context, req OperationRequest) (*OperationResult, error) {
	handler, ok := r.handlers[req.Command.Name]
	if !ok {
		return &OperationResult{
			Success: false,
			Message: "Perintah tidak dikenali. Ketik \"laporan\" untuk melihat menu laporan.",
		}, nil
	}
	return handler.Handle(ctx, req)
}

// ArtifactGenerator produces report artifacts. Rendering internals (PDF etc.)
// are opaque to the orchestrator: bytes plus a filename come back.
type ArtifactGenerator interface {
	Generate(ctx context.Context, tenantID, reportType string) (data []byte, filename string, err error)
}

// InventoryReader answers inventory queries for a tenant.
type InventoryReader interface {
	Summary(ctx context.Context, tenantID, kind string) (string, error)
}

// StatisticsReader answers aggregate statistics queries for a tenant.
type StatisticsReader interface {
	Overview(ctx context.Context, tenantID string) (string, error)
}

// AnalyticsReader answers messaging analytics queries for a tenant.
type AnalyticsReader interface {
	ChatSummary(ctx context.Context, tenantID string) (string, error)
}

// ReportHandler generates sales reports and requests managerial fan-out.
type ReportHandler struct {
	generator ArtifactGenerator
}

// NewReportHandler constructs the handler.
func NewReportHandler(generator ArtifactGenerator) *ReportHandler {
	return &ReportHandler{generator: generator}
}

const reportMenuText = `Menu Laporan:
1. laporan penjualan harian
2. laporan penjualan mingguan
3. laporan penjualan bulanan

Balas dengan salah satu pilihan di atas.`

// Handle produces either the report menu or the requested artifact.
func (h *ReportHandler) Handle(ctx context.Context, req OperationRequest) (*OperationResult, error) {
	reportType := req.Command.Params[domain.ParamType]
	if reportType == "" || reportType == domain.ReportTypeMenu {
		return &OperationResult{Success: true, Message: reportMenuText}, nil
	}

	data, filename, err := h.generator.Generate(ctx, req.TenantID, reportType)
	if err != nil {
		return &OperationResult{
			Success: false,
			Message: "Gagal membuat laporan. Silakan coba lagi.",
		}, nil
	}
	return &OperationResult{
		Success:        true,
		Message:        "Laporan terlampir.",
		Artifact:       data,
		Filename:       filename,
		BroadcastRoles: []domain.Role{domain.RoleOwner, domain.RoleAdmin, domain.RoleManager},
	}, nil
}

// InventoryHandler answers inventory queries.
type InventoryHandler struct {
	inventory InventoryReader
}

// NewInventoryHandler constructs the handler.
func NewInventoryHandler(inventory InventoryReader) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

// Handle returns a textual inventory summary.
func (h *InventoryHandler) Handle(ctx context.Context, req OperationRequest) (*OperationResult, error) {
	summary, err := h.inventory.Summary(ctx, req.TenantID, req.Command.Params[domain.ParamType])
	if err != nil {
		return &OperationResult{
			Success: false,
			Message: "Gagal mengambil data stok. Silakan coba lagi.",
		}, nil
	}
	return &OperationResult{Success: true, Message: summary}, nil
}

// StatusHandler reports service liveness to staff.
type StatusHandler struct {
	startedAt time.Time
	version   string
}

// NewStatusHandler constructs the handler.
func NewStatusHandler(version string) *StatusHandler {
	return &StatusHandler{startedAt: time.Now(), version: version}
}

// Handle returns a short status line.
func (h *StatusHandler) Handle(_ context.Context, _ OperationRequest) (*OperationResult, error) {
	uptime := time.Since(h.startedAt).Round(time.Second)
	return &OperationResult{
		Success: true,
		Message: fmt.Sprintf("Sistem aktif. Versi %s, uptime %s.", h.version, uptime),
	}, nil
}

// StatisticsHandler answers aggregate statistics queries.
type StatisticsHandler struct {
	stats StatisticsReader
}

// NewStatisticsHandler constructs the handler.
func NewStatisticsHandler(stats StatisticsReader) *StatisticsHandler {
	return &StatisticsHandler{stats: stats}
}

// Handle returns a textual statistics overview.
func (h *StatisticsHandler) Handle(ctx context.Context, req OperationRequest) (*OperationResult, error) {
	overview, err := h.stats.Overview(ctx, req.TenantID)
	if err != nil {
		return &OperationResult{
			Success: false,
			Message: "Gagal mengambil statistik. Silakan coba lagi.",
		}, nil
	}
	return &OperationResult{Success: true, Message: overview}, nil
}

// AnalyticsHandler answers messaging analytics queries.
type AnalyticsHandler struct {
	analytics AnalyticsReader
}

// NewAnalyticsHandler constructs the handler.
func NewAnalyticsHandler(analytics AnalyticsReader) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Handle returns a textual chat analytics summary.
func (h *AnalyticsHandler) Handle(ctx context.Context, req OperationRequest) (*OperationResult, error) {
	summary, err := h.analytics.ChatSummary(ctx, req.TenantID)
	if err != nil {
		return &OperationResult{
			Success: false,
			Message: "Gagal mengambil analitik WhatsApp. Silakan coba lagi.",
		}, nil
	}
	return &OperationResult{Success: true, Message: summary}, nil
}
