package core

import "strings"

// Rule severity levels
const (
	SeverityCritical      = "critical"
	SeverityHigh          = "high"
	SeverityMedium        = "medium"
	SeverityLow           = "low"
	SeverityInformational = "informational"
)

// ThreatIntelSeverity is the severity shown for findings produced only by threat-intel matches
const ThreatIntelSeverity = SeverityHigh

// ResolveSeverity picks the severity to display for a finding.
//
// A "critical" rule level always wins. Otherwise a non-empty existing
// annotation is kept, then the rule level is used. When neither is
// available the EmptyDataPlaceholder is returned.
func ResolveSeverity(ruleLevel, existing string) string {
	if ruleLevel == SeverityCritical {
		return SeverityCritical
	}
	if existing != "" {
		return existing
	}
	if ruleLevel != "" {
		return ruleLevel
	}
	return EmptyDataPlaceholder
}

// FindingSeverity resolves the display severity of a finding against its rule.
// Threat-intel-only findings have no rule and are forced to ThreatIntelSeverity.
func FindingSeverity(f Finding, rule *Rule) string {
	if f.IsThreatIntelOnly() {
		return ThreatIntelSeverity
	}
	level := ""
	if rule != nil {
		level = rule.Level
	}
	return ResolveSeverity(level, f.RuleSeverity)
}

var alertSeverityLabels = map[string]string{
	"1": "Highest",
	"2": "High",
	"3": "Medium",
	"4": "Low",
	"5": "Lowest",
}

// AlertSeverityLabel maps a trigger severity ("1" highest .. "5" lowest) to its label
func AlertSeverityLabel(severity string) string {
	if label, ok := alertSeverityLabels[strings.TrimSpace(severity)]; ok {
		return label
	}
	return EmptyDataPlaceholder
}

var severityRank = map[string]int{
	SeverityInformational: 1,
	SeverityLow:           2,
	SeverityMedium:        3,
	SeverityHigh:          4,
	SeverityCritical:      5,
}

// SeverityRank orders rule severity levels; unknown levels rank 0
func SeverityRank(level string) int {
	return severityRank[strings.ToLower(level)]
}
