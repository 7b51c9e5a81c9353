package service

import (
	"strings"

	"github.com/dealerkit/chat-orchestrator/internal/domain"
)

// ParseCommand converts classified staff-command text into a structured
// command. Pure function over text plus the intent already chosen by the
// classifier; synonyms and free word order are supported for the fixed
// command vocabulary. When a report family matched but no sub-type can be
// parsed, the type parameter defaults to the menu sentinel so the handler
// returns a navigable list instead of failing.
func ParseCommand(text string, intent domain.Intent) domain.Command {
	words := tokenize(text)

	switch intent {
	case domain.IntentStaffGetReport:
		return domain.Command{
			Name:   domain.CommandReport,
			Params: map[string]string{domain.ParamType: parseReportType(words)},
		}
	case domain.IntentStaffGetInventory:
		return domain.Command{
			Name:   domain.CommandInventory,
			Params: map[string]string{domain.ParamType: parseInventoryType(words)},
		}
	case domain.IntentStaffGetStatus:
		return domain.Command{Name: domain.CommandStatus, Params: map[string]string{}}
	case domain.IntentStaffGetStats:
		return domain.Command{
			Name:   domain.CommandStatistics,
			Params: map[string]string{domain.ParamType: "overview"},
		}
	case domain.IntentStaffGetAnalytics:
		return domain.Command{
			Name:   domain.CommandAnalytics,
			Params: map[string]string{domain.ParamType: "whatsapp"},
		}
	}

	return domain.Command{Name: domain.CommandUnknown, Params: map[string]string{}}
}

var reportPeriods = map[string]string{
	"harian":   domain.ReportTypeSalesDaily,
	"daily":    domain.ReportTypeSalesDaily,
	"hari":     domain.ReportTypeSalesDaily,
	"today":    domain.ReportTypeSalesDaily,
	"mingguan": domain.ReportTypeSalesWeekly,
	"weekly":   domain.ReportTypeSalesWeekly,
	"minggu":   domain.ReportTypeSalesWeekly,
	"week":     domain.ReportTypeSalesWeekly,
	"bulanan":  domain.ReportTypeSalesMonthly,
	"monthly":  domain.ReportTypeSalesMonthly,
	"bulan":    domain.ReportTypeSalesMonthly,
	"month":    domain.ReportTypeSalesMonthly,
}

func parseReportType(words []string) string {
	for _, word := range words {
		if period, ok := reportPeriods[word]; ok {
			return period
		}
	}
	return domain.ReportTypeMenu
}

func parseInventoryType(words []string) string {
	for _, word := range words {
		switch word {
		case "mobil", "kendaraan", "vehicle", "unit":
			return "vehicles"
		case "sparepart", "spareparts", "parts", "suku":
			return "parts"
		}
	}
	return "summary"
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '?' || r == '!' || r == '-'
	})
}
