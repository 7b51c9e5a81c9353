package domain

// CommandName identifies a parsed staff command.
type CommandName string

const (
	CommandReport     CommandName = "report"
	CommandInventory  CommandName = "inventory"
	CommandStatus     CommandName = "status"
	CommandStatistics CommandName = "statistics"
	CommandAnalytics  CommandName = "analytics"
	CommandUnknown    CommandName = "unknown"
)

// Well-known parameter keys and sentinel values for parsed commands.
const (
	ParamType = "type"

	// ReportTypeMenu is the sentinel used when a report family matched but no
	// specific sub-type could be parsed; handlers return a navigable menu.
	ReportTypeMenu = "report_menu"

	ReportTypeSalesDaily   = "sales_daily"
	ReportTypeSalesWeekly  = "sales_weekly"
	ReportTypeSalesMonthly = "sales_monthly"
)

// Command is the structured form of a staff-command message.
type Command struct {
	Name   CommandName
	Params map[string]string
}
