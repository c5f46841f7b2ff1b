package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"secanalytics/core"
	"secanalytics/overview"

	"github.com/fatih/color"
)

const tableWidth = 110

// renderOverview prints the summary of one refresh
func renderOverview(w io.Writer, window core.TimeWindow, s overview.Summary, findings, alerts int) {
	headerColor.Fprintln(w, "SECURITY ANALYTICS OVERVIEW")
	headerColor.Fprintln(w, strings.Repeat("=", tableWidth))
	printField(w, "Range", fmt.Sprintf("%s .. %s", formatTime(window.Start), formatTime(window.End)))
	if window.IsInverted() {
		warningColor.Fprintln(w, "  Range end is before its start; nothing can match")
	}
	printField(w, "Detectors", fmt.Sprintf("%d (%d enabled, %d disabled)",
		s.Detectors.Total, s.Detectors.Enabled, s.Detectors.Disabled))
	printField(w, "Findings", fmt.Sprintf("%d", findings))
	printField(w, "Alerts", fmt.Sprintf("%d", alerts))
	printField(w, "Histogram interval", s.Interval.String())
	fmt.Fprintln(w)

	printSection(w, "Top rules")
	if len(s.TopRules) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, r := range s.TopRules {
		fmt.Fprintf(w, "  %-6d %-50s %s\n", r.Count, truncateString(r.RuleName, 50), formatSeverity(r.Severity))
	}
	fmt.Fprintln(w)

	printSection(w, "Recent alerts")
	renderAlertRows(w, s.RecentAlerts)
	fmt.Fprintln(w)

	printSection(w, "Recent findings")
	renderFindingRows(w, s.RecentFindings)
	headerColor.Fprintln(w, strings.Repeat("=", tableWidth))
}

// renderDetectorsTable displays detectors in a formatted table
func renderDetectorsTable(w io.Writer, detectors []core.Detector) {
	if len(detectors) == 0 {
		warningColor.Fprintln(w, "No detectors configured")
		return
	}

	headerColor.Fprintln(w, "DETECTORS")
	headerColor.Fprintln(w, strings.Repeat("=", tableWidth))
	fmt.Fprintf(w, "%-22s %-30s %-14s %-8s %-10s %-8s %-8s\n",
		"ID", "Name", "Log type", "Enabled", "Schedule", "Rules", "Triggers")
	fmt.Fprintln(w, strings.Repeat("-", tableWidth))

	for _, d := range detectors {
		schedule := "-"
		if d.Schedule.Period.Interval > 0 {
			schedule = fmt.Sprintf("%d %s", d.Schedule.Period.Interval, strings.ToLower(d.Schedule.Period.Unit))
		}
		fmt.Fprintf(w, "%-22s %-30s %-14s %-8s %-10s %-8d %-8d\n",
			truncateString(d.ID, 22), truncateString(d.Name, 30), d.LogType(),
			formatBool(d.Enabled), schedule, len(d.RuleIDs()), len(d.Triggers))
	}
	fmt.Fprintln(w, strings.Repeat("=", tableWidth))
}

// renderFindingsTable displays findings in a formatted table
func renderFindingsTable(w io.Writer, items []core.FindingItem) {
	if len(items) == 0 {
		warningColor.Fprintln(w, "No findings in range")
		return
	}
	headerColor.Fprintln(w, "FINDINGS")
	headerColor.Fprintln(w, strings.Repeat("=", tableWidth))
	renderFindingRows(w, items)
	fmt.Fprintln(w, strings.Repeat("=", tableWidth))
}

func renderFindingRows(w io.Writer, items []core.FindingItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	fmt.Fprintf(w, "%-20s %-24s %-40s %-10s %-12s\n", "Time", "Detector", "Rule", "Severity", "Log type")
	fmt.Fprintln(w, strings.Repeat("-", tableWidth))
	for _, f := range items {
		rule := f.RuleName
		if f.IsThreatIntelOnly {
			rule = "[threat intel] " + rule
		}
		fmt.Fprintf(w, "%-20s %-24s %-40s %-10s %-12s\n",
			formatTime(f.Time), truncateString(f.DetectorName, 24), truncateString(rule, 40),
			formatSeverity(f.RuleSeverity), f.LogType)
	}
}

// renderAlertsTable displays alerts in a formatted table
func renderAlertsTable(w io.Writer, items []core.AlertItem) {
	if len(items) == 0 {
		warningColor.Fprintln(w, "No alerts in range")
		return
	}
	headerColor.Fprintln(w, "ALERTS")
	headerColor.Fprintln(w, strings.Repeat("=", tableWidth))
	renderAlertRows(w, items)
	fmt.Fprintln(w, strings.Repeat("=", tableWidth))
}

func renderAlertRows(w io.Writer, items []core.AlertItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	fmt.Fprintf(w, "%-20s %-34s %-12s %-14s %-12s\n", "Time", "Trigger", "Severity", "State", "Log type")
	fmt.Fprintln(w, strings.Repeat("-", tableWidth))
	for _, a := range items {
		label := a.SeverityLabel
		if label == "" {
			label = a.Severity
		}
		fmt.Fprintf(w, "%-20s %-34s %-12s %-14s %-12s\n",
			formatTime(a.Time), truncateString(a.TriggerName, 34), formatSeverity(label),
			formatState(a.State), a.LogType)
	}
}

// renderThreatIntelTable displays threat intel sources
func renderThreatIntelTable(w io.Writer, sources []core.ThreatIntelSource) {
	if len(sources) == 0 {
		warningColor.Fprintln(w, "No threat intel sources configured")
		return
	}
	headerColor.Fprintln(w, "THREAT INTEL SOURCES")
	headerColor.Fprintln(w, strings.Repeat("=", tableWidth))
	fmt.Fprintf(w, "%-24s %-30s %-12s %-8s %-12s %s\n", "ID", "Name", "Type", "Enabled", "State", "IOC types")
	fmt.Fprintln(w, strings.Repeat("-", tableWidth))
	for _, s := range sources {
		fmt.Fprintf(w, "%-24s %-30s %-12s %-8s %-12s %s\n",
			truncateString(s.ID, 24), truncateString(s.Name, 30), s.Type,
			formatBool(s.Enabled), s.State, strings.Join(s.IOCTypes, ","))
	}
	fmt.Fprintln(w, strings.Repeat("=", tableWidth))
}

func printSection(w io.Writer, title string) {
	headerColor.Fprintf(w, "  %s\n", title)
	headerColor.Fprintln(w, "  "+strings.Repeat("─", len(title)))
}

// printField prints a key-value field
func printField(w io.Writer, key, value string) {
	if value == "" {
		value = "(not set)"
	}
	fmt.Fprintf(w, "  %-25s %s\n", key+":", value)
}

// formatSeverity colors a rule severity or alert severity label
func formatSeverity(sev string) string {
	switch strings.ToLower(sev) {
	case "critical", "highest":
		return errorColor.Sprint(sev)
	case "high":
		return color.New(color.FgRed).Sprint(sev)
	case "medium":
		return warningColor.Sprint(sev)
	case "low", "lowest", "informational":
		return infoColor.Sprint(sev)
	}
	return sev
}

func formatState(state core.AlertState) string {
	switch state {
	case core.AlertStateActive:
		return errorColor.Sprint(string(state))
	case core.AlertStateAcknowledged, core.AlertStateCompleted:
		return successColor.Sprint(string(state))
	}
	return string(state)
}

func formatBool(b bool) string {
	if b {
		return color.New(color.FgGreen).Sprint("Yes")
	}
	return color.New(color.FgRed).Sprint("No")
}

// formatTime formats a timestamp in UTC
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func truncateString(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
