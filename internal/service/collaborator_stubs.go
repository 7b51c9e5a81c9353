package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Stub collaborators stand in for the platform services that produce report
// artifacts and operational data, keeping the orchestrator runnable in
// isolation. Production deployments replace them through the registry wiring.

// StubArtifactGenerator returns a placeholder PDF payload.
type StubArtifactGenerator struct {
	logger *zap.Logger
}

// NewStubArtifactGenerator creates the stub.
func NewStubArtifactGenerator(logger *zap.Logger) *StubArtifactGenerator {
	return &StubArtifactGenerator{logger: logger}
}

// Generate produces a minimal PDF document naming the requested report.
func (g *StubArtifactGenerator) Generate(_ context.Context, tenantID, reportType string) ([]byte, string, error) {
	g.logger.Debug("generateArtifactStub",
		zap.String("tenant_id", tenantID),
		zap.String("report_type", reportType))
	content := fmt.Sprintf("%%PDF-1.4\n%% placeholder report: %s / %s\n%%%%EOF\n", tenantID, reportType)
	filename := fmt.Sprintf("laporan-%s-%s.pdf", reportType, time.Now().Format("20060102"))
	return []byte(content), filename, nil
}

// StubInventoryReader returns canned inventory summaries.
type StubInventoryReader struct{}

// Summary returns a placeholder inventory overview.
func (StubInventoryReader) Summary(_ context.Context, _ string, kind string) (string, error) {
	if kind == "" {
		kind = "summary"
	}
	return fmt.Sprintf("Ringkasan stok (%s): data inventaris belum terhubung.", kind), nil
}

// StubStatisticsReader returns canned statistics.
type StubStatisticsReader struct{}

// Overview returns a placeholder statistics overview.
func (StubStatisticsReader) Overview(_ context.Context, _ string) (string, error) {
	return "Statistik penjualan: data statistik belum terhubung.", nil
}

// StubAnalyticsReader returns canned chat analytics.
type StubAnalyticsReader struct{}

// ChatSummary returns a placeholder analytics summary.
func (StubAnalyticsReader) ChatSummary(_ context.Context, _ string) (string, error) {
	return "Analitik WhatsApp: data analitik belum terhubung.", nil
}
